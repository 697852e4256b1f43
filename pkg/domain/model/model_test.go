package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		body string
		want model.Command
	}{
		{body: "!start-test-server", want: model.CommandStart},
		{body: "  !start-test-server\r\n", want: model.CommandStart},
		{body: "!stop-test-server", want: model.CommandStop},
		{body: "\t!stop-test-server ", want: model.CommandStop},
		{body: "please !start-test-server", want: model.CommandNone},
		{body: "!start-test-server now", want: model.CommandNone},
		{body: "!START-TEST-SERVER", want: model.CommandNone},
		{body: "", want: model.CommandNone},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			gt.Value(t, model.ParseCommand(tt.body)).Equal(tt.want)
		})
	}
}

func TestTestServer_DeepLink(t *testing.T) {
	srv := &model.TestServer{
		PRNumber: types.PRNumber(42),
		Host:     "test.example.com",
		Port:     49153,
	}

	gt.Value(t, srv.Address()).Equal("test.example.com:49153")
	gt.Value(t, srv.DeepLink()).Equal("minecraft://?addExternalServer=Test PR%2342|test.example.com:49153")
}

func TestWorkflowRun_HasPullRequest(t *testing.T) {
	run := &model.WorkflowRun{ID: 1, PullRequests: []types.PRNumber{3, 7}}
	gt.True(t, run.HasPullRequest(7))
	gt.Value(t, run.HasPullRequest(8)).Equal(false)

	empty := &model.WorkflowRun{ID: 2}
	gt.Value(t, empty.HasPullRequest(7)).Equal(false)
}

func TestTransferError(t *testing.T) {
	t.Run("status failure", func(t *testing.T) {
		err := &model.TransferError{StatusCode: 404, Status: "Not Found"}
		gt.Value(t, err.Error()).Equal("unexpected download status: 404 - Not Found")
	})

	t.Run("transport failure unwraps", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &model.TransferError{Err: cause}
		gt.Value(t, err.Error()).Equal("connection refused")
		gt.True(t, errors.Is(err, cause))
	})
}

func TestContainerStateFromRuntime(t *testing.T) {
	tests := map[string]model.ContainerState{
		"created":    model.ContainerCreating,
		"running":    model.ContainerRunning,
		"paused":     model.ContainerRunning,
		"removing":   model.ContainerStopping,
		"exited":     model.ContainerStopping,
		"":           model.ContainerAbsent,
		"whatever":   model.ContainerAbsent,
		"restarting": model.ContainerCreating,
	}
	for status, want := range tests {
		gt.Value(t, model.ContainerStateFromRuntime(status)).Equal(want)
	}
}

func TestPullRequest_IsOpen(t *testing.T) {
	gt.True(t, (&model.PullRequest{State: "open"}).IsOpen())
	gt.Value(t, (&model.PullRequest{State: "closed"}).IsOpen()).Equal(false)
	gt.Value(t, (&model.PullRequest{}).IsOpen()).Equal(false)
}
