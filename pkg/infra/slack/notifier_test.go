package slack_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	goslack "github.com/slack-go/slack"

	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/infra/slack"
)

var repo = model.Repository{Owner: "GeyserMC", Name: "Geyser"}

func TestNotifier_NotifyStarted(t *testing.T) {
	var got goslack.WebhookMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := slack.New(server.URL, slack.WithChannel("#testbed"))
	err := n.NotifyStarted(context.Background(), repo, &model.TestServer{
		PRNumber:      42,
		ContainerName: "testbed-pr-42",
		Host:          "test.example.com",
		Port:          49153,
	})
	gt.NoError(t, err)

	gt.Value(t, got.Channel).Equal("#testbed")
	gt.Value(t, got.Username).Equal("testbed")
	gt.Number(t, len(got.Attachments)).Equal(1)
	gt.String(t, got.Attachments[0].Title).Contains("GeyserMC/Geyser#42")
	gt.Value(t, got.Attachments[0].Fields[0].Value).Equal("test.example.com:49153")
}

func TestNotifier_NotifyStopped_Error(t *testing.T) {
	var calls int
	n := slack.New("https://hooks.example.com/x",
		slack.WithUsername("bot"),
		slack.WithPostFunc(func(ctx context.Context, url string, msg *goslack.WebhookMessage) error {
			calls++
			gt.Value(t, msg.Username).Equal("bot")
			gt.Value(t, msg.Attachments[0].Text).Equal("pull request closed")
			return errors.New("slack down")
		}),
	)

	err := n.NotifyStopped(context.Background(), repo, 10, "pull request closed")
	gt.Error(t, err)
	gt.String(t, err.Error()).Contains("failed to post slack message")
	gt.Number(t, calls).Equal(1)
}
