package interfaces

import (
	"context"

	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// GitHubClient defines operations for interacting with GitHub API
type GitHubClient interface {
	// IsCollaborator reports whether user has collaborator access to repo
	IsCollaborator(ctx context.Context, repo model.Repository, user string) (bool, error)

	// GetPullRequest fetches the current state of a pull request
	GetPullRequest(ctx context.Context, repo model.Repository, number types.PRNumber) (*model.PullRequest, error)

	// ListWorkflowRuns lists CI runs of the repository. headSHA narrows the
	// listing when non-empty.
	ListWorkflowRuns(ctx context.Context, repo model.Repository, headSHA string) ([]*model.WorkflowRun, error)

	// ListWorkflowRunArtifacts lists artifacts attached to a workflow run
	ListWorkflowRunArtifacts(ctx context.Context, repo model.Repository, runID int64) ([]*model.Artifact, error)

	// GetArtifactDownloadURL resolves the short-lived download URL of an artifact zip
	GetArtifactDownloadURL(ctx context.Context, repo model.Repository, artifactID int64) (string, error)

	// CreateComment creates a comment on a pull request or issue
	CreateComment(ctx context.Context, repo model.Repository, number types.PRNumber, body string) (*model.TrackingComment, error)

	// EditComment replaces the body of an existing comment
	EditComment(ctx context.Context, repo model.Repository, commentID int64, body string) (*model.TrackingComment, error)
}
