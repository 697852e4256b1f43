package interfaces

//go:generate moq -out mocks/usecase_mock.go -pkg mocks . CommandUseCase EventProcessor

import (
	"context"

	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// EventProcessor turns parsed webhook payloads into use case calls
type EventProcessor interface {
	// ProcessEvent processes a webhook event. payload is the go-github typed payload.
	ProcessEvent(ctx context.Context, event *model.WebhookEvent, payload any) error
}

// CommandUseCase defines the test server command handling
type CommandUseCase interface {
	// HandleComment authorizes and executes a chat command
	HandleComment(ctx context.Context, event *model.CommentEvent) error

	// HandlePullRequestClosed tears down everything provisioned for a closed PR
	HandlePullRequestClosed(ctx context.Context, event *model.PullRequestEvent) error

	// Teardown removes the container and workspace of a pull request
	Teardown(ctx context.Context, repo model.Repository, pr types.PRNumber) (*model.TeardownResult, error)
}
