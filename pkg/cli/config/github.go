package config

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/infra/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub configuration. Either Token or the App credentials
// must be set.
type GitHub struct {
	WebhookSecret  string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKey     string `masq:"secret"`
	PrivateKeyFile string
	Token          string `masq:"secret"`
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("TESTBED_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("TESTBED_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("TESTBED_GITHUB_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("TESTBED_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-private-key-file",
			Usage:       "Path to the GitHub App private key",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("TESTBED_GITHUB_PRIVATE_KEY_FILE"),
		},
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub token, used instead of App authentication",
			Destination: &c.Token,
			Sources:     cli.EnvVars("TESTBED_GITHUB_TOKEN", "GITHUB_TOKEN"),
		},
	}
}

// Validate checks that one authentication method is fully configured
func (c *GitHub) Validate() error {
	if c.Token != "" {
		return nil
	}
	if c.AppID == 0 || c.InstallationID == 0 {
		return goerr.New("either github-token or github-app-id and github-installation-id are required")
	}
	if c.PrivateKey == "" && c.PrivateKeyFile == "" {
		return goerr.New("github-private-key or github-private-key-file is required for App authentication",
			goerr.V("app_id", c.AppID))
	}
	return nil
}

// NewClient builds the GitHub client for the configured authentication method
func (c *GitHub) NewClient(ctx context.Context) (interfaces.GitHubClient, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if c.Token != "" {
		return github.NewClientWithToken(ctx, c.Token)
	}

	key := []byte(c.PrivateKey)
	if len(key) == 0 {
		data, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key", goerr.V("path", c.PrivateKeyFile))
		}
		key = data
	}

	return github.NewClient(c.AppID, c.InstallationID, key)
}
