package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/infra/docker"
	"github.com/m-mizutani/testbed/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Docker holds container runtime and test server image configuration
type Docker struct {
	Host            string
	Image           string
	Cmd             []string
	ContainerPrefix string
	DataPath        string
	GamePort        int
	Protocol        string
	PublicHost      string
	StopGrace       time.Duration
}

// Flags returns CLI flags for Docker configuration
func (c *Docker) Flags() []cli.Flag {
	def := usecase.DefaultConfig()
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "docker-host",
			Usage:       "Docker daemon address, DOCKER_HOST is used when empty",
			Destination: &c.Host,
			Sources:     cli.EnvVars("TESTBED_DOCKER_HOST"),
		},
		&cli.StringFlag{
			Name:        "image",
			Usage:       "Image the test server runs in",
			Value:       def.Image,
			Destination: &c.Image,
			Sources:     cli.EnvVars("TESTBED_IMAGE"),
		},
		&cli.StringSliceFlag{
			Name:        "cmd",
			Usage:       "Command of the test server container",
			Value:       def.Cmd,
			Destination: &c.Cmd,
			Sources:     cli.EnvVars("TESTBED_CMD"),
		},
		&cli.StringFlag{
			Name:        "container-prefix",
			Usage:       "Prefix of container names, followed by the PR number",
			Value:       def.ContainerPrefix,
			Destination: &c.ContainerPrefix,
			Sources:     cli.EnvVars("TESTBED_CONTAINER_PREFIX"),
		},
		&cli.StringFlag{
			Name:        "data-path",
			Usage:       "Mount point of the workspace inside the container",
			Value:       def.DataPath,
			Destination: &c.DataPath,
			Sources:     cli.EnvVars("TESTBED_DATA_PATH"),
		},
		&cli.IntFlag{
			Name:        "game-port",
			Usage:       "Port the server listens on inside the container",
			Value:       def.GamePort,
			Destination: &c.GamePort,
			Sources:     cli.EnvVars("TESTBED_GAME_PORT"),
		},
		&cli.StringFlag{
			Name:        "protocol",
			Usage:       "Protocol of the game port (udp or tcp)",
			Value:       def.Protocol,
			Destination: &c.Protocol,
			Sources:     cli.EnvVars("TESTBED_PROTOCOL"),
		},
		&cli.StringFlag{
			Name:        "public-host",
			Usage:       "Host name players connect to",
			Value:       def.PublicHost,
			Destination: &c.PublicHost,
			Sources:     cli.EnvVars("TESTBED_PUBLIC_HOST"),
		},
		&cli.DurationFlag{
			Name:        "stop-grace",
			Usage:       "Grace period before a stopping container is killed",
			Value:       def.StopGrace,
			Destination: &c.StopGrace,
			Sources:     cli.EnvVars("TESTBED_STOP_GRACE"),
		},
	}
}

// Validate checks the container settings
func (c *Docker) Validate() error {
	if c.Image == "" {
		return goerr.New("image is required")
	}
	if c.ContainerPrefix == "" {
		return goerr.New("container-prefix is required")
	}
	if c.GamePort <= 0 || c.GamePort > 65535 {
		return goerr.New("game-port is out of range", goerr.V("port", c.GamePort))
	}
	if c.Protocol != "udp" && c.Protocol != "tcp" {
		return goerr.New("protocol must be udp or tcp", goerr.V("protocol", c.Protocol))
	}
	return nil
}

// NewRuntime connects to the Docker daemon
func (c *Docker) NewRuntime() (interfaces.ContainerRuntime, error) {
	return docker.New(c.Host)
}

// Apply copies the container settings into cfg
func (c *Docker) Apply(cfg *usecase.Config) {
	cfg.Image = c.Image
	cfg.Cmd = c.Cmd
	cfg.ContainerPrefix = c.ContainerPrefix
	cfg.DataPath = c.DataPath
	cfg.GamePort = c.GamePort
	cfg.Protocol = c.Protocol
	cfg.PublicHost = c.PublicHost
	cfg.StopGrace = c.StopGrace
}
