package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
)

// ArtifactResolver finds the CI artifact built for a pull request
type ArtifactResolver struct {
	githubClient interfaces.GitHubClient
	artifactName string
}

// NewArtifactResolver creates an ArtifactResolver looking for artifactName
func NewArtifactResolver(githubClient interfaces.GitHubClient, artifactName string) *ArtifactResolver {
	return &ArtifactResolver{
		githubClient: githubClient,
		artifactName: artifactName,
	}
}

// Resolve returns the artifact of the first workflow run matching pr.
// It fails with model.ErrNoWorkflowRun or model.ErrNoArtifact.
func (r *ArtifactResolver) Resolve(ctx context.Context, pr *model.PullRequest) (*model.ArtifactReference, error) {
	logger := ctxlog.From(ctx)

	runs, err := r.githubClient.ListWorkflowRuns(ctx, pr.Repo, pr.HeadSHA)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list workflow runs")
	}

	var run *model.WorkflowRun
	for _, candidate := range runs {
		if matchRun(candidate, pr) {
			run = candidate
			break
		}
	}
	if run == nil {
		logger.Info("No workflow run matches pull request",
			"pr", pr.Number,
			"head_sha", pr.HeadSHA,
			"run_count", len(runs),
		)
		return nil, goerr.Wrap(model.ErrNoWorkflowRun, "artifact resolution failed", goerr.V("pr", pr.Number))
	}

	artifacts, err := r.githubClient.ListWorkflowRunArtifacts(ctx, pr.Repo, run.ID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list artifacts", goerr.V("run_id", run.ID))
	}

	for _, artifact := range artifacts {
		if artifact.Name == r.artifactName {
			logger.Info("Resolved artifact",
				"pr", pr.Number,
				"run_id", run.ID,
				"artifact_id", artifact.ID,
			)
			return &model.ArtifactReference{
				RunID:      run.ID,
				ArtifactID: artifact.ID,
				Name:       artifact.Name,
			}, nil
		}
	}

	return nil, goerr.Wrap(model.ErrNoArtifact, "artifact resolution failed",
		goerr.V("pr", pr.Number),
		goerr.V("run_id", run.ID),
		goerr.V("artifact_name", r.artifactName),
	)
}

// matchRun compares head revisions, which survives force-pushes. Only when the
// head revision is unknown does it fall back to the run's PR references, which
// are empty for runs triggered from forks.
func matchRun(run *model.WorkflowRun, pr *model.PullRequest) bool {
	if run == nil {
		return false
	}
	if pr.HeadSHA != "" {
		return run.HeadSHA == pr.HeadSHA
	}
	return run.HasPullRequest(pr.Number)
}
