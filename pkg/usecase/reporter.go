package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// Reporter maintains the tracking comment of a command invocation
type Reporter struct {
	githubClient interfaces.GitHubClient
}

// NewReporter creates a Reporter
func NewReporter(githubClient interfaces.GitHubClient) *Reporter {
	return &Reporter{githubClient: githubClient}
}

// PostInitial creates the tracking comment
func (r *Reporter) PostInitial(ctx context.Context, repo model.Repository, pr types.PRNumber, message string) (*model.TrackingComment, error) {
	comment, err := r.githubClient.CreateComment(ctx, repo, pr, message)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to post tracking comment", goerr.V("pr", pr))
	}
	return comment, nil
}

// Append adds text to the end of comment and returns the updated comment.
// The body is taken from comment, not fetched again, so callers must pass
// the value returned by the previous call.
func (r *Reporter) Append(ctx context.Context, repo model.Repository, comment *model.TrackingComment, text string) (*model.TrackingComment, error) {
	updated, err := r.githubClient.EditComment(ctx, repo, comment.ID, comment.Body+text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to append to tracking comment", goerr.V("comment_id", comment.ID))
	}
	return updated, nil
}
