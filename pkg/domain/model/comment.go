package model

import (
	"strings"

	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// TrackingComment is the single comment created for a command invocation.
// Each append returns a new value carrying the accumulated body.
type TrackingComment struct {
	ID   int64
	Body string
}

// Command is a recognized chat command
type Command string

const (
	CommandNone  Command = ""
	CommandStart Command = "!start-test-server"
	CommandStop  Command = "!stop-test-server"
)

// ParseCommand maps a comment body onto a Command. The whole trimmed body
// must equal the command text.
func ParseCommand(body string) Command {
	switch Command(strings.TrimSpace(body)) {
	case CommandStart:
		return CommandStart
	case CommandStop:
		return CommandStop
	default:
		return CommandNone
	}
}

// CommentEvent is a newly created comment on an issue or pull request
type CommentEvent struct {
	DeliveryID    string
	Repo          Repository
	PRNumber      types.PRNumber
	IsPullRequest bool
	Author        string
	Body          string
}

// Command returns the command carried by the comment body
func (e *CommentEvent) Command() Command {
	return ParseCommand(e.Body)
}

// PullRequestEvent is a lifecycle event of a pull request
type PullRequestEvent struct {
	DeliveryID string
	Repo       Repository
	PRNumber   types.PRNumber
	Action     string
	Merged     bool
}
