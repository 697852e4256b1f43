package model

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

var (
	// ErrNoWorkflowRun is returned when no CI run matches the pull request
	ErrNoWorkflowRun = goerr.New("no workflow run matches pull request")
	// ErrNoArtifact is returned when the matching run lacks the configured artifact
	ErrNoArtifact = goerr.New("workflow run has no matching artifact")
)

// WorkflowRun is a CI run as listed by the hosting platform
type WorkflowRun struct {
	ID           int64
	HeadSHA      string
	PullRequests []types.PRNumber // may be empty
}

// HasPullRequest reports whether pr is among the run's associated pull requests
func (r *WorkflowRun) HasPullRequest(pr types.PRNumber) bool {
	for _, n := range r.PullRequests {
		if n == pr {
			return true
		}
	}
	return false
}

// Artifact is a named build output attached to a workflow run
type Artifact struct {
	ID   int64
	Name string
}

// ArtifactReference points at one downloadable artifact. It is resolved for
// every start command and never cached.
type ArtifactReference struct {
	RunID       int64
	ArtifactID  int64
	Name        string
	DownloadURL string
}

// TransferError describes a failed artifact download. StatusCode is zero for
// transport level failures, in which case Err holds the cause.
type TransferError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected download status: %d - %s", e.StatusCode, e.Status)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "artifact transfer failed"
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// FetchResult summarizes an artifact extracted into a workspace
type FetchResult struct {
	Dir   string
	Files []string
	Size  int64
}
