package config

import "github.com/urfave/cli/v3"

// Server holds server configuration
type Server struct {
	Addr        string
	WebhookPath string
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("TESTBED_ADDR"),
		},
		&cli.StringFlag{
			Name:        "webhook-path",
			Usage:       "Path GitHub delivers webhooks to",
			Value:       "/hooks/github/app",
			Destination: &c.WebhookPath,
			Sources:     cli.EnvVars("TESTBED_WEBHOOK_PATH"),
		},
	}
}
