package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypeIssueComment WebhookEventType = "issue_comment"
	EventTypePullRequest  WebhookEventType = "pull_request"
	EventTypePing         WebhookEventType = "ping"
	EventTypeUnknown      WebhookEventType = "unknown"
)

// WebhookEvent represents a webhook event received from GitHub
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Action     string           // Event action (e.g., created, closed)
	Repository string           // Repository full name
	Sender     string           // Sender username
	ReceivedAt time.Time        // Time when the event was received
	RawPayload []byte           // Raw JSON payload
}

// IsSupportedEvent checks if the event is supported
func (e *WebhookEvent) IsSupportedEvent() bool {
	switch e.Type {
	case EventTypeIssueComment:
		return e.Action == "created"
	case EventTypePullRequest:
		return e.Action == "closed"
	default:
		return false
	}
}
