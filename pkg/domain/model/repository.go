package model

import (
	"strings"

	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// Repository identifies a GitHub repository
type Repository struct {
	Owner string
	Name  string
}

// FullName returns "owner/name"
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// PullRequest is the fresh state of a pull request as fetched from GitHub
type PullRequest struct {
	Repo    Repository
	Number  types.PRNumber
	State   string // "open" or "closed"
	Merged  bool
	HeadSHA string
}

// IsOpen reports whether commands may act on the pull request
func (pr *PullRequest) IsOpen() bool {
	return strings.EqualFold(pr.State, "open")
}

// PermissionResult is the outcome of a collaborator check
type PermissionResult int

const (
	PermissionDenied PermissionResult = iota
	PermissionGranted
	// PermissionFailed means the check itself failed. It is never treated as granted.
	PermissionFailed
)

func (p PermissionResult) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionFailed:
		return "failed"
	default:
		return "denied"
	}
}
