package usecase

import (
	"strings"
	"time"
)

// Config is the controller configuration, built once at startup and passed
// to NewCommand
type Config struct {
	// AllowedOwners lists repository owners whose comments are acted on
	AllowedOwners []string
	// ArtifactName is the CI artifact holding the server build
	ArtifactName string

	Image           string
	Cmd             []string
	ContainerPrefix string
	// DataPath is where the workspace is mounted inside the container
	DataPath  string
	GamePort  int
	Protocol  string
	StopGrace time.Duration

	// PublicHost is the hostname or IP players connect to
	PublicHost string
}

// DefaultConfig returns the configuration for Geyser Standalone test servers
func DefaultConfig() Config {
	return Config{
		ArtifactName:    "Geyser Standalone",
		Image:           "eclipse-temurin:21-jre",
		Cmd:             []string{"java", "-jar", "Geyser-Standalone.jar"},
		ContainerPrefix: "testbed-pr-",
		DataPath:        "/data",
		GamePort:        19132,
		Protocol:        "udp",
		StopGrace:       10 * time.Second,
		PublicHost:      "localhost",
	}
}

// IsAllowedOwner reports whether owner is allow-listed, ignoring case
func (c *Config) IsAllowedOwner(owner string) bool {
	for _, allowed := range c.AllowedOwners {
		if strings.EqualFold(strings.TrimSpace(allowed), owner) {
			return true
		}
	}
	return false
}
