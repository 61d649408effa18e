package domain

import (
	"strings"
	"time"
)

// IssueStatus enumerates lifecycle states for issues.
type IssueStatus string

const (
	IssueStatusPending    IssueStatus = "pending"
	IssueStatusInProgress IssueStatus = "in-progress"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusRejected   IssueStatus = "rejected"
)

// IssuePriority enumerates triage urgency.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "low"
	IssuePriorityMedium IssuePriority = "medium"
	IssuePriorityHigh   IssuePriority = "high"
	IssuePriorityUrgent IssuePriority = "urgent"
)

var priorityWeights = map[IssuePriority]int{
	IssuePriorityLow:    1,
	IssuePriorityMedium: 2,
	IssuePriorityHigh:   3,
	IssuePriorityUrgent: 4,
}

// Weight orders priorities so that urgent sorts first when descending.
func (p IssuePriority) Weight() int {
	return priorityWeights[p]
}

// Valid reports whether p is a known priority.
func (p IssuePriority) Valid() bool {
	_, ok := priorityWeights[p]
	return ok
}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusResolved, IssueStatusRejected:
		return true
	}
	return false
}

// Field limits shared by validation and persistence.
const (
	TitleMinLength           = 5
	TitleMaxLength           = 100
	DescriptionMinLength     = 10
	DescriptionMaxLength     = 1000
	CommentMaxLength         = 300
	ResolutionNotesMaxLength = 500

	// ReporterRewardPoints is credited to a user for every issue they report.
	ReporterRewardPoints = 10
)

// Location pins an issue to a street address and coordinates.
type Location struct {
	Address   string
	Latitude  float64
	Longitude float64
}

// Image references an uploaded photo held by external storage.
type Image struct {
	URL        string
	PublicID   string
	UploadedAt time.Time
}

// Upvote is a single user's endorsement.
type Upvote struct {
	UserID    string
	CreatedAt time.Time
}

// Comment is an append-only remark on an issue.
type Comment struct {
	UserID    string
	Content   string
	CreatedAt time.Time
}

// Issue is the aggregate for citizen-reported problems.
type Issue struct {
	ID                      string
	Title                   string
	Description             string
	Category                Category
	Priority                IssuePriority
	Status                  IssueStatus
	Department              Department
	Location                Location
	Images                  []Image
	ReporterID              string
	AssigneeID              *string
	EstimatedResolutionDays *int
	ResolutionNotes         string
	ResolvedAt              *time.Time
	Upvotes                 []Upvote
	Comments                []Comment
	Tags                    []string
	IsPublic                bool
	ViewCount               int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// UpvotesCount returns the number of active upvotes.
func (i *Issue) UpvotesCount() int {
	return len(i.Upvotes)
}

// HasUpvoted reports whether userID currently endorses the issue.
func (i *Issue) HasUpvoted(userID string) bool {
	for _, vote := range i.Upvotes {
		if vote.UserID == userID {
			return true
		}
	}
	return false
}

// AgeInDays returns whole days elapsed since creation.
func (i *Issue) AgeInDays(now time.Time) int {
	if i.CreatedAt.IsZero() || now.Before(i.CreatedAt) {
		return 0
	}
	return int(now.Sub(i.CreatedAt) / (24 * time.Hour))
}

// OwnedBy reports whether userID reported the issue.
func (i *Issue) OwnedBy(userID string) bool {
	return userID != "" && i.ReporterID == userID
}

// ApplyDefaults fills unset classification fields and derives the department.
func (i *Issue) ApplyDefaults() {
	if i.Priority == "" {
		i.Priority = IssuePriorityMedium
	}
	if i.Status == "" {
		i.Status = IssueStatusPending
	}
	if i.Department == "" {
		i.Department = DepartmentOther
	}
	if i.Images == nil {
		i.Images = []Image{}
	}
	if i.Upvotes == nil {
		i.Upvotes = []Upvote{}
	}
	if i.Comments == nil {
		i.Comments = []Comment{}
	}
	i.Tags = NormalizeTags(i.Tags)
	i.Department = ResolveDepartment(i.Category, i.Department)
}

// IssuePatch lists the fields a reporter may change after creation.
// Nil fields are left untouched.
type IssuePatch struct {
	Title       *string
	Description *string
	Category    *Category
	Priority    *IssuePriority
	Tags        *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p IssuePatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Priority == nil && p.Tags == nil
}

// Assignment is an official's routing change. With AssigneeID nil and
// Unassign false the current assignee is kept.
type Assignment struct {
	AssigneeID    *string
	Unassign      bool
	EstimatedDays *int
}

// NormalizeTags trims and lowercases tags, dropping blanks.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	return out
}
