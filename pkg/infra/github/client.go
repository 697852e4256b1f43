package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
	"golang.org/x/oauth2"
)

// maxRedirects is passed to the artifact download link lookup
const maxRedirects = 3

// runsPerPage bounds the workflow run listing; the newest runs come first
const runsPerPage = 100

type client struct {
	githubClient *github.Client
}

var _ interfaces.GitHubClient = (*client)(nil)

// NewClient creates a new GitHub client with App authentication
func NewClient(appID, installationID int64, privateKey []byte) (interfaces.GitHubClient, error) {
	// Create GitHub App transport
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("app_id", appID),
			goerr.V("installation_id", installationID),
		)
	}

	return &client{
		githubClient: github.NewClient(&http.Client{Transport: itr}),
	}, nil
}

// NewClientWithToken creates a new GitHub client authenticated by a personal
// access token or a pre-minted installation token
func NewClientWithToken(ctx context.Context, token string) (interfaces.GitHubClient, error) {
	if token == "" {
		return nil, goerr.New("GitHub token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &client{
		githubClient: github.NewClient(oauth2.NewClient(ctx, ts)),
	}, nil
}

// NewClientWithBaseURL creates a client talking to baseURL with httpClient.
// It is used against GitHub Enterprise and test servers.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) (interfaces.GitHubClient, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid GitHub base URL", goerr.V("url", baseURL))
	}

	githubClient := github.NewClient(httpClient)
	githubClient.BaseURL = u

	return &client{
		githubClient: githubClient,
	}, nil
}

// IsCollaborator reports whether user has collaborator access to repo
func (c *client) IsCollaborator(ctx context.Context, repo model.Repository, user string) (bool, error) {
	ok, _, err := c.githubClient.Repositories.IsCollaborator(ctx, repo.Owner, repo.Name, user)
	if err != nil {
		return false, goerr.Wrap(err, "failed to check collaborator",
			goerr.V("repo", repo.FullName()),
			goerr.V("user", user),
		)
	}
	return ok, nil
}

// GetPullRequest fetches the current state of a pull request
func (c *client) GetPullRequest(ctx context.Context, repo model.Repository, number types.PRNumber) (*model.PullRequest, error) {
	pr, _, err := c.githubClient.PullRequests.Get(ctx, repo.Owner, repo.Name, int(number))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get pull request",
			goerr.V("repo", repo.FullName()),
			goerr.V("number", number),
		)
	}

	return &model.PullRequest{
		Repo:    repo,
		Number:  types.PRNumber(pr.GetNumber()),
		State:   pr.GetState(),
		Merged:  pr.GetMerged(),
		HeadSHA: pr.GetHead().GetSHA(),
	}, nil
}

// ListWorkflowRuns lists the newest CI runs of the repository
func (c *client) ListWorkflowRuns(ctx context.Context, repo model.Repository, headSHA string) ([]*model.WorkflowRun, error) {
	opts := &github.ListWorkflowRunsOptions{
		HeadSHA:     headSHA,
		ListOptions: github.ListOptions{PerPage: runsPerPage},
	}

	runs, _, err := c.githubClient.Actions.ListRepositoryWorkflowRuns(ctx, repo.Owner, repo.Name, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list workflow runs",
			goerr.V("repo", repo.FullName()),
			goerr.V("head_sha", headSHA),
		)
	}

	result := make([]*model.WorkflowRun, 0, len(runs.WorkflowRuns))
	for _, run := range runs.WorkflowRuns {
		r := &model.WorkflowRun{
			ID:      run.GetID(),
			HeadSHA: run.GetHeadSHA(),
		}
		// pull_requests is empty for runs from forks and for push events
		for _, pr := range run.PullRequests {
			if pr.GetNumber() > 0 {
				r.PullRequests = append(r.PullRequests, types.PRNumber(pr.GetNumber()))
			}
		}
		result = append(result, r)
	}

	return result, nil
}

// ListWorkflowRunArtifacts lists artifacts attached to a workflow run
func (c *client) ListWorkflowRunArtifacts(ctx context.Context, repo model.Repository, runID int64) ([]*model.Artifact, error) {
	list, _, err := c.githubClient.Actions.ListWorkflowRunArtifacts(ctx, repo.Owner, repo.Name, runID, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list workflow run artifacts",
			goerr.V("repo", repo.FullName()),
			goerr.V("run_id", runID),
		)
	}

	result := make([]*model.Artifact, 0, len(list.Artifacts))
	for _, a := range list.Artifacts {
		result = append(result, &model.Artifact{
			ID:   a.GetID(),
			Name: a.GetName(),
		})
	}
	return result, nil
}

// GetArtifactDownloadURL resolves the redirect target of an artifact download
func (c *client) GetArtifactDownloadURL(ctx context.Context, repo model.Repository, artifactID int64) (string, error) {
	u, _, err := c.githubClient.Actions.DownloadArtifact(ctx, repo.Owner, repo.Name, artifactID, maxRedirects)
	if err != nil {
		return "", goerr.Wrap(err, "failed to get artifact download URL",
			goerr.V("repo", repo.FullName()),
			goerr.V("artifact_id", artifactID),
		)
	}
	return u.String(), nil
}

// CreateComment creates a comment on a pull request or issue
func (c *client) CreateComment(ctx context.Context, repo model.Repository, number types.PRNumber, body string) (*model.TrackingComment, error) {
	comment, _, err := c.githubClient.Issues.CreateComment(ctx, repo.Owner, repo.Name, int(number), &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create comment",
			goerr.V("repo", repo.FullName()),
			goerr.V("number", number),
		)
	}

	return &model.TrackingComment{ID: comment.GetID(), Body: comment.GetBody()}, nil
}

// EditComment replaces the body of an existing comment
func (c *client) EditComment(ctx context.Context, repo model.Repository, commentID int64, body string) (*model.TrackingComment, error) {
	comment, _, err := c.githubClient.Issues.EditComment(ctx, repo.Owner, repo.Name, commentID, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to edit comment",
			goerr.V("repo", repo.FullName()),
			goerr.V("comment_id", commentID),
		)
	}

	return &model.TrackingComment{ID: comment.GetID(), Body: comment.GetBody()}, nil
}
