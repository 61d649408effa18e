package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIssueCreated         EventType = "issue_created"
	EventIssueStatusChanged   EventType = "issue_status_changed"
	EventIssuePriorityChanged EventType = "issue_priority_changed"
	EventIssueAssigned        EventType = "issue_assigned"
	EventIssueCommentAdded    EventType = "issue_comment_added"
	EventIssueUpvoteToggled   EventType = "issue_upvote_toggled"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	IssueID   string      `json:"issue_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, issueID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		IssueID:   issueID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// IssueCreatedPayload payload.
type IssueCreatedPayload struct {
	Title      string               `json:"title"`
	Category   domain.Category      `json:"category"`
	Department domain.Department    `json:"department"`
	Priority   domain.IssuePriority `json:"priority"`
	Address    string               `json:"address"`
}

// IssueStatusChangedPayload payload.
type IssueStatusChangedPayload struct {
	OldStatus       domain.IssueStatus `json:"old_status"`
	NewStatus       domain.IssueStatus `json:"new_status"`
	ResolutionNotes string             `json:"resolution_notes,omitempty"`
}

// IssuePriorityChangedPayload payload.
type IssuePriorityChangedPayload struct {
	OldPriority domain.IssuePriority `json:"old_priority"`
	NewPriority domain.IssuePriority `json:"new_priority"`
}

// IssueAssignedPayload payload. A nil assignee means the assignment was cleared.
type IssueAssignedPayload struct {
	AssigneeID              *string `json:"assignee_id,omitempty"`
	EstimatedResolutionDays *int    `json:"estimated_resolution_days,omitempty"`
}

// IssueCommentAddedPayload payload.
type IssueCommentAddedPayload struct {
	CommentCount int    `json:"comment_count"`
	BodyPreview  string `json:"body_preview"`
}

// IssueUpvoteToggledPayload payload.
type IssueUpvoteToggledPayload struct {
	Upvoted      bool `json:"upvoted"`
	UpvotesCount int  `json:"upvotes_count"`
}
