package github

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
	"github.com/m-mizutani/testbed/pkg/utils/async"
)

// DispatchFunc runs handler, usually in the background
type DispatchFunc func(ctx context.Context, handler func(ctx context.Context) error)

// EventProcessor processes GitHub webhook events
type EventProcessor struct {
	commandUC interfaces.CommandUseCase
	dispatch  DispatchFunc
}

var _ interfaces.EventProcessor = (*EventProcessor)(nil)

// Option configures the EventProcessor
type Option func(*EventProcessor)

// WithDispatcher runs use cases on d instead of the default dispatcher
func WithDispatcher(d *async.Dispatcher) Option {
	return func(p *EventProcessor) {
		p.dispatch = d.Dispatch
	}
}

// WithDispatchFunc replaces how use cases are run
func WithDispatchFunc(fn DispatchFunc) Option {
	return func(p *EventProcessor) {
		p.dispatch = fn
	}
}

// NewEventProcessor creates a new GitHub event processor. Use cases run
// asynchronously so the webhook is acknowledged before a test server is
// provisioned.
func NewEventProcessor(commandUC interfaces.CommandUseCase, opts ...Option) *EventProcessor {
	p := &EventProcessor{
		commandUC: commandUC,
		dispatch:  async.Dispatch,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessEvent processes a GitHub webhook event
func (p *EventProcessor) ProcessEvent(ctx context.Context, event *model.WebhookEvent, payload any) error {
	logger := ctxlog.From(ctx)

	switch e := payload.(type) {
	case *github.IssueCommentEvent:
		return p.processIssueCommentEvent(ctx, event, e)
	case *github.PullRequestEvent:
		return p.processPullRequestEvent(ctx, event, e)
	default:
		logger.Info("Ignoring unsupported event type", "event_type", event.Type)
		return nil
	}
}

func (p *EventProcessor) processIssueCommentEvent(ctx context.Context, event *model.WebhookEvent, e *github.IssueCommentEvent) error {
	logger := ctxlog.From(ctx)

	if e.GetAction() != "created" {
		logger.Debug("Ignoring issue comment event", "action", e.GetAction())
		return nil
	}

	comment, err := extractCommentEvent(event.ID, e)
	if err != nil {
		logger.Error("Failed to extract comment event", "error", err)
		return err
	}

	// Most comments are conversation, drop them before going async
	if comment.Command() == model.CommandNone {
		return nil
	}

	logger.Info("Received command",
		"repo", comment.Repo.FullName(),
		"pr", comment.PRNumber,
		"author", comment.Author,
		"command", string(comment.Command()),
	)

	p.dispatch(ctx, func(ctx context.Context) error {
		return p.commandUC.HandleComment(ctx, comment)
	})
	return nil
}

func (p *EventProcessor) processPullRequestEvent(ctx context.Context, event *model.WebhookEvent, e *github.PullRequestEvent) error {
	logger := ctxlog.From(ctx)

	if e.GetAction() != "closed" {
		logger.Debug("Ignoring pull request event", "action", e.GetAction())
		return nil
	}

	owner := e.GetRepo().GetOwner().GetLogin()
	name := e.GetRepo().GetName()
	number := types.PRNumber(e.GetNumber())
	if number == 0 {
		number = types.PRNumber(e.GetPullRequest().GetNumber())
	}
	if owner == "" || name == "" || !number.Valid() {
		return goerr.New("missing required fields in pull request event",
			goerr.V("owner", owner),
			goerr.V("repo", name),
			goerr.V("number", number),
		)
	}

	prEvent := &model.PullRequestEvent{
		DeliveryID: event.ID,
		Repo:       model.Repository{Owner: owner, Name: name},
		PRNumber:   number,
		Action:     e.GetAction(),
		Merged:     e.GetPullRequest().GetMerged(),
	}

	p.dispatch(ctx, func(ctx context.Context) error {
		return p.commandUC.HandlePullRequestClosed(ctx, prEvent)
	})
	return nil
}

// extractCommentEvent extracts the comment from a GitHub issue comment event
func extractCommentEvent(deliveryID string, e *github.IssueCommentEvent) (*model.CommentEvent, error) {
	if e.GetRepo() == nil {
		return nil, goerr.New("missing repository information in issue comment event")
	}
	if e.GetIssue() == nil || e.GetComment() == nil {
		return nil, goerr.New("missing issue or comment in issue comment event")
	}

	owner := e.GetRepo().GetOwner().GetLogin()
	name := e.GetRepo().GetName()
	number := types.PRNumber(e.GetIssue().GetNumber())
	author := e.GetComment().GetUser().GetLogin()

	if owner == "" || name == "" || !number.Valid() || author == "" {
		return nil, goerr.New("missing required fields in issue comment event",
			goerr.V("owner", owner),
			goerr.V("repo", name),
			goerr.V("number", number),
			goerr.V("author", author),
		)
	}

	return &model.CommentEvent{
		DeliveryID:    deliveryID,
		Repo:          model.Repository{Owner: owner, Name: name},
		PRNumber:      number,
		IsPullRequest: e.GetIssue().IsPullRequest(),
		Author:        author,
		Body:          e.GetComment().GetBody(),
	}, nil
}
