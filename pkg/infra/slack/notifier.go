package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
	"github.com/slack-go/slack"
)

type notifier struct {
	webhookURL string
	channel    string
	username   string
	post       func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

// Option configures the notifier
type Option func(*notifier)

// WithChannel overrides the channel of the incoming webhook
func WithChannel(channel string) Option {
	return func(n *notifier) { n.channel = channel }
}

// WithUsername sets the bot username
func WithUsername(username string) Option {
	return func(n *notifier) { n.username = username }
}

// WithPostFunc replaces the HTTP poster. Used by tests.
func WithPostFunc(f func(ctx context.Context, url string, msg *slack.WebhookMessage) error) Option {
	return func(n *notifier) { n.post = f }
}

// New creates a notifier posting to a Slack incoming webhook
func New(webhookURL string, opts ...Option) interfaces.Notifier {
	n := &notifier{
		webhookURL: webhookURL,
		username:   "testbed",
		post:       slack.PostWebhookContext,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyStarted posts the address of a freshly started test server
func (n *notifier) NotifyStarted(ctx context.Context, repo model.Repository, server *model.TestServer) error {
	msg := &slack.WebhookMessage{
		Channel:  n.channel,
		Username: n.username,
		Attachments: []slack.Attachment{
			{
				Color: "good",
				Title: fmt.Sprintf("Test server started for %s#%d", repo.FullName(), server.PRNumber),
				Fields: []slack.AttachmentField{
					{Title: "Address", Value: server.Address(), Short: true},
					{Title: "Container", Value: server.ContainerName, Short: true},
				},
			},
		},
	}

	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("pr", server.PRNumber))
	}
	return nil
}

// NotifyStopped posts that a pull request's test server is gone
func (n *notifier) NotifyStopped(ctx context.Context, repo model.Repository, pr types.PRNumber, reason string) error {
	msg := &slack.WebhookMessage{
		Channel:  n.channel,
		Username: n.username,
		Attachments: []slack.Attachment{
			{
				Color: "warning",
				Title: fmt.Sprintf("Test server stopped for %s#%d", repo.FullName(), pr),
				Text:  reason,
			},
		},
	}

	if err := n.post(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("pr", pr))
	}
	return nil
}
