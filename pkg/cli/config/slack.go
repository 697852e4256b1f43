package config

import (
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds operator notification configuration
type Slack struct {
	WebhookURL string `masq:"secret"`
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook notified when test servers start and stop",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("TESTBED_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel overriding the webhook default",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("TESTBED_SLACK_CHANNEL"),
		},
	}
}

// Notifier returns nil when no webhook is configured
func (c *Slack) Notifier() interfaces.Notifier {
	if c.WebhookURL == "" {
		return nil
	}

	var opts []slack.Option
	if c.Channel != "" {
		opts = append(opts, slack.WithChannel(c.Channel))
	}
	return slack.New(c.WebhookURL, opts...)
}
