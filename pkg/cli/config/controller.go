package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Controller holds command handling configuration
type Controller struct {
	AllowedOwners []string
	ArtifactName  string
}

// Flags returns CLI flags for controller configuration
func (c *Controller) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "allowed-owner",
			Usage:       "Repository owner whose pull requests may start test servers (repeatable)",
			Value:       []string{"GeyserMC"},
			Destination: &c.AllowedOwners,
			Sources:     cli.EnvVars("TESTBED_ALLOWED_OWNERS"),
		},
		&cli.StringFlag{
			Name:        "artifact-name",
			Usage:       "Name of the CI artifact holding the server build",
			Value:       usecase.DefaultConfig().ArtifactName,
			Destination: &c.ArtifactName,
			Sources:     cli.EnvVars("TESTBED_ARTIFACT_NAME"),
		},
	}
}

// Validate checks the controller settings
func (c *Controller) Validate() error {
	if len(c.AllowedOwners) == 0 {
		return goerr.New("at least one allowed-owner is required")
	}
	if c.ArtifactName == "" {
		return goerr.New("artifact-name is required")
	}
	return nil
}

// Apply copies the controller settings into cfg
func (c *Controller) Apply(cfg *usecase.Config) {
	cfg.AllowedOwners = c.AllowedOwners
	cfg.ArtifactName = c.ArtifactName
}
