package repository

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

// IssueSort selects the ordering of list results.
type IssueSort string

const (
	SortNewest   IssueSort = "newest"
	SortOldest   IssueSort = "oldest"
	SortPriority IssueSort = "priority"
	SortUpvotes  IssueSort = "upvotes"
)

// ParseIssueSort maps a query value to a sort, defaulting to newest first.
func ParseIssueSort(val string) IssueSort {
	switch IssueSort(strings.ToLower(strings.TrimSpace(val))) {
	case SortOldest:
		return SortOldest
	case SortPriority:
		return SortPriority
	case SortUpvotes:
		return SortUpvotes
	default:
		return SortNewest
	}
}

// IssueFilter captures list predicates. All set predicates are AND-ed.
type IssueFilter struct {
	ReporterID *string
	Category   *domain.Category
	Status     *domain.IssueStatus
	Priority   *domain.IssuePriority
	SearchTerm *string
	PublicOnly bool
	Sort       IssueSort
	Limit      int
	Offset     int
}

// IssueChanges lists field assignments applied in a single atomic update.
// Nil fields are not touched.
type IssueChanges struct {
	Title                   *string
	Description             *string
	Category                *domain.Category
	Department              *domain.Department
	Priority                *domain.IssuePriority
	Tags                    *[]string
	Status                  *domain.IssueStatus
	ResolvedAt              *time.Time
	ResolutionNotes         *string
	AssigneeID              *string
	ClearAssignee           bool
	EstimatedResolutionDays *int
}

// IsEmpty reports whether no field would change.
func (c IssueChanges) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Category == nil && c.Department == nil &&
		c.Priority == nil && c.Tags == nil && c.Status == nil && c.ResolvedAt == nil &&
		c.ResolutionNotes == nil && c.AssigneeID == nil && !c.ClearAssignee && c.EstimatedResolutionDays == nil
}

const defaultListLimit = 10

func buildIssueFilter(filter IssueFilter) bson.M {
	query := bson.M{}
	if filter.PublicOnly {
		query["isPublic"] = true
	}
	if filter.ReporterID != nil {
		query["reporterId"] = *filter.ReporterID
	}
	if filter.Category != nil {
		query["category"] = string(*filter.Category)
	}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}
	if filter.Priority != nil {
		query["priority"] = string(*filter.Priority)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(strings.TrimSpace(*filter.SearchTerm)), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
			bson.M{"location.address": pattern},
		}
	}
	return query
}

func issueSortFor(sort IssueSort) bson.D {
	switch sort {
	case SortOldest:
		return bson.D{{Key: "createdAt", Value: 1}}
	case SortPriority:
		return bson.D{{Key: "priorityWeight", Value: -1}, {Key: "createdAt", Value: -1}}
	case SortUpvotes:
		return bson.D{{Key: "upvotesCount", Value: -1}, {Key: "createdAt", Value: -1}}
	default:
		return bson.D{{Key: "createdAt", Value: -1}}
	}
}

func normalizePaging(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func buildIssueUpdate(changes IssueChanges, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.Category != nil {
		set["category"] = string(*changes.Category)
	}
	if changes.Department != nil {
		set["department"] = string(*changes.Department)
	}
	if changes.Priority != nil {
		set["priority"] = string(*changes.Priority)
		set["priorityWeight"] = changes.Priority.Weight()
	}
	if changes.Tags != nil {
		tags := *changes.Tags
		if tags == nil {
			tags = []string{}
		}
		set["tags"] = tags
	}
	if changes.Status != nil {
		set["status"] = string(*changes.Status)
	}
	if changes.ResolvedAt != nil {
		set["resolvedAt"] = *changes.ResolvedAt
	}
	if changes.ResolutionNotes != nil {
		set["resolutionNotes"] = *changes.ResolutionNotes
	}
	if changes.EstimatedResolutionDays != nil {
		set["estimatedResolutionTime"] = *changes.EstimatedResolutionDays
	}

	update := bson.M{}
	switch {
	case changes.ClearAssignee:
		update["$unset"] = bson.M{"assignedTo": ""}
	case changes.AssigneeID != nil:
		set["assignedTo"] = *changes.AssigneeID
	}
	update["$set"] = set
	return update
}
