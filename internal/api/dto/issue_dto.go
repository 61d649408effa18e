package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

// CoordinatesRequest pins a point on the map.
type CoordinatesRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// LocationRequest is the address and coordinates of an issue.
type LocationRequest struct {
	Address     string             `json:"address" validate:"required,max=300"`
	Coordinates CoordinatesRequest `json:"coordinates" validate:"required"`
}

// ImageRequest references an already uploaded photo.
type ImageRequest struct {
	URL      string `json:"url" validate:"required,url"`
	PublicID string `json:"publicId" validate:"required,max=200"`
}

// CreateIssueRequest payload.
type CreateIssueRequest struct {
	Title       string               `json:"title" validate:"required,min=5,max=100"`
	Description string               `json:"description" validate:"required,min=10,max=1000"`
	Category    domain.Category      `json:"category" validate:"required,category"`
	Priority    domain.IssuePriority `json:"priority" validate:"omitempty,priority"`
	Location    LocationRequest      `json:"location" validate:"required"`
	Images      []ImageRequest       `json:"images" validate:"max=10,dive"`
	Tags        []string             `json:"tags" validate:"max=20,dive,max=30"`
	IsPublic    *bool                `json:"isPublic"`
}

// Normalize trims free-text fields before validation.
func (r *CreateIssueRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location.Address = strings.TrimSpace(r.Location.Address)
}

// ToLocation converts the validated location.
func (r *CreateIssueRequest) ToLocation() domain.Location {
	loc := domain.Location{Address: r.Location.Address}
	if r.Location.Coordinates.Latitude != nil {
		loc.Latitude = *r.Location.Coordinates.Latitude
	}
	if r.Location.Coordinates.Longitude != nil {
		loc.Longitude = *r.Location.Coordinates.Longitude
	}
	return loc
}

// ToImages stamps the upload time on each image reference.
func (r *CreateIssueRequest) ToImages(now time.Time) []domain.Image {
	images := make([]domain.Image, 0, len(r.Images))
	for _, img := range r.Images {
		images = append(images, domain.Image{URL: img.URL, PublicID: img.PublicID, UploadedAt: now})
	}
	return images
}

// UpdateIssueRequest payload. Fields outside this set are ignored.
type UpdateIssueRequest struct {
	Title       *string               `json:"title" validate:"omitempty,min=5,max=100"`
	Description *string               `json:"description" validate:"omitempty,min=10,max=1000"`
	Category    *domain.Category      `json:"category" validate:"omitempty,category"`
	Priority    *domain.IssuePriority `json:"priority" validate:"omitempty,priority"`
	Tags        []string              `json:"tags" validate:"omitempty,max=20,dive,max=30"`
}

// Normalize trims free-text fields before validation.
func (r *UpdateIssueRequest) Normalize() {
	if r.Title != nil {
		title := strings.TrimSpace(*r.Title)
		r.Title = &title
	}
	if r.Description != nil {
		description := strings.TrimSpace(*r.Description)
		r.Description = &description
	}
}

// ToPatch converts the request. A present but empty tags array clears tags.
func (r *UpdateIssueRequest) ToPatch() domain.IssuePatch {
	patch := domain.IssuePatch{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Priority:    r.Priority,
	}
	if r.Tags != nil {
		tags := r.Tags
		patch.Tags = &tags
	}
	return patch
}

// CommentRequest payload.
type CommentRequest struct {
	Content string `json:"content" validate:"required,max=300"`
}

// Normalize trims the comment body.
func (r *CommentRequest) Normalize() {
	r.Content = strings.TrimSpace(r.Content)
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status          domain.IssueStatus `json:"status" validate:"required,status"`
	ResolutionNotes *string            `json:"resolutionNotes" validate:"omitempty,max=500"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.IssuePriority `json:"priority" validate:"required,priority"`
}

// AssignIssueRequest payload. A null assigneeId clears the assignment and a
// missing one keeps it.
type AssignIssueRequest struct {
	AssigneeID              *string `json:"assigneeId" validate:"omitempty,uuid"`
	EstimatedResolutionTime *int    `json:"estimatedResolutionTime" validate:"omitempty,min=1,max=365"`

	assigneeSet bool
}

// UnmarshalJSON records whether assigneeId was sent at all.
func (r *AssignIssueRequest) UnmarshalJSON(data []byte) error {
	type plain AssignIssueRequest
	var body plain
	if err := json.Unmarshal(data, &body); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*r = AssignIssueRequest(body)
	_, r.assigneeSet = keys["assigneeId"]
	return nil
}

// ToAssignment converts the request into a domain.Assignment.
func (r AssignIssueRequest) ToAssignment() domain.Assignment {
	return domain.Assignment{
		AssigneeID:    r.AssigneeID,
		Unassign:      r.assigneeSet && r.AssigneeID == nil,
		EstimatedDays: r.EstimatedResolutionTime,
	}
}

// ListIssuesQuery captures list filters. "all" disables a filter.
type ListIssuesQuery struct {
	Category string `query:"category" validate:"omitempty,eq=all|category"`
	Status   string `query:"status" validate:"omitempty,eq=all|status"`
	Priority string `query:"priority" validate:"omitempty,eq=all|priority"`
	Search   string `query:"search" validate:"max=100"`
	Sort     string `query:"sort" validate:"omitempty,oneof=newest oldest priority upvotes"`
	Page     int    `query:"page" validate:"min=0"`
	Limit    int    `query:"limit" validate:"min=0"`
}

// ReporterIssuesQuery pages through one reporter's issues.
type ReporterIssuesQuery struct {
	Sort  string `query:"sort" validate:"omitempty,oneof=newest oldest priority upvotes"`
	Page  int    `query:"page" validate:"min=0"`
	Limit int    `query:"limit" validate:"min=0"`
}

// CategoryFilter returns the category predicate, if any.
func (q ListIssuesQuery) CategoryFilter() *domain.Category {
	if q.Category == "" || q.Category == "all" {
		return nil
	}
	category := domain.Category(q.Category)
	return &category
}

// StatusFilter returns the status predicate, if any.
func (q ListIssuesQuery) StatusFilter() *domain.IssueStatus {
	if q.Status == "" || q.Status == "all" {
		return nil
	}
	status := domain.IssueStatus(q.Status)
	return &status
}

// PriorityFilter returns the priority predicate, if any.
func (q ListIssuesQuery) PriorityFilter() *domain.IssuePriority {
	if q.Priority == "" || q.Priority == "all" {
		return nil
	}
	priority := domain.IssuePriority(q.Priority)
	return &priority
}

// UserSummary is the public projection of a referenced user.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Email  string `json:"email,omitempty"`
}

// CoordinatesResponse mirrors CoordinatesRequest.
type CoordinatesResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationResponse mirrors LocationRequest.
type LocationResponse struct {
	Address     string              `json:"address"`
	Coordinates CoordinatesResponse `json:"coordinates"`
}

// ImageResponse describes a stored photo.
type ImageResponse struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"publicId"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// UpvoteEntry is one endorsement.
type UpvoteEntry struct {
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentResponse is one comment with its author.
type CommentResponse struct {
	User      UserSummary `json:"user"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"createdAt"`
}

// IssueResponse is the wire view of an issue.
type IssueResponse struct {
	ID                      string               `json:"id"`
	Title                   string               `json:"title"`
	Description             string               `json:"description"`
	Category                domain.Category      `json:"category"`
	Priority                domain.IssuePriority `json:"priority"`
	Status                  domain.IssueStatus   `json:"status"`
	Department              domain.Department    `json:"department"`
	Location                LocationResponse     `json:"location"`
	Images                  []ImageResponse      `json:"images"`
	Reporter                UserSummary          `json:"reporter"`
	AssignedTo              *UserSummary         `json:"assignedTo,omitempty"`
	EstimatedResolutionTime *int                 `json:"estimatedResolutionTime,omitempty"`
	ResolutionNotes         string               `json:"resolutionNotes,omitempty"`
	ResolvedAt              *time.Time           `json:"resolvedAt,omitempty"`
	Upvotes                 []UpvoteEntry        `json:"upvotes"`
	UpvotesCount            int                  `json:"upvotesCount"`
	HasUpvoted              *bool                `json:"hasUpvoted,omitempty"`
	Comments                []CommentResponse    `json:"comments"`
	CommentsCount           int                  `json:"commentsCount"`
	Tags                    []string             `json:"tags"`
	IsPublic                bool                 `json:"isPublic"`
	ViewCount               int64                `json:"viewCount"`
	AgeInDays               int                  `json:"ageInDays"`
	CreatedAt               time.Time            `json:"createdAt"`
	UpdatedAt               time.Time            `json:"updatedAt"`
}

// IssueView carries what the mapper needs beyond the issue itself.
type IssueView struct {
	Reporter       *domain.UserProfile
	Assignee       *domain.UserProfile
	CommentAuthors map[string]domain.UserProfile
	// IncludeContact exposes reporter and assignee e-mail addresses.
	IncludeContact bool
	// ViewerID, when set, fills HasUpvoted.
	ViewerID string
	Now      time.Time
}

// NewIssueResponse maps an issue to its wire view.
func NewIssueResponse(issue domain.Issue, view IssueView) IssueResponse {
	now := view.Now
	if now.IsZero() {
		now = time.Now()
	}
	resp := IssueResponse{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Category:    issue.Category,
		Priority:    issue.Priority,
		Status:      issue.Status,
		Department:  issue.Department,
		Location: LocationResponse{
			Address: issue.Location.Address,
			Coordinates: CoordinatesResponse{
				Latitude:  issue.Location.Latitude,
				Longitude: issue.Location.Longitude,
			},
		},
		Images:                  make([]ImageResponse, 0, len(issue.Images)),
		Reporter:                summarize(issue.ReporterID, view.Reporter, view.IncludeContact),
		EstimatedResolutionTime: issue.EstimatedResolutionDays,
		ResolutionNotes:         issue.ResolutionNotes,
		ResolvedAt:              issue.ResolvedAt,
		Upvotes:                 make([]UpvoteEntry, 0, len(issue.Upvotes)),
		UpvotesCount:            issue.UpvotesCount(),
		Comments:                make([]CommentResponse, 0, len(issue.Comments)),
		CommentsCount:           len(issue.Comments),
		Tags:                    nonNilStrings(issue.Tags),
		IsPublic:                issue.IsPublic,
		ViewCount:               issue.ViewCount,
		AgeInDays:               issue.AgeInDays(now),
		CreatedAt:               issue.CreatedAt,
		UpdatedAt:               issue.UpdatedAt,
	}
	if issue.AssigneeID != nil {
		assignee := summarize(*issue.AssigneeID, view.Assignee, view.IncludeContact)
		resp.AssignedTo = &assignee
	}
	if view.ViewerID != "" {
		upvoted := issue.HasUpvoted(view.ViewerID)
		resp.HasUpvoted = &upvoted
	}
	for _, img := range issue.Images {
		resp.Images = append(resp.Images, ImageResponse{URL: img.URL, PublicID: img.PublicID, UploadedAt: img.UploadedAt})
	}
	for _, vote := range issue.Upvotes {
		resp.Upvotes = append(resp.Upvotes, UpvoteEntry{UserID: vote.UserID, CreatedAt: vote.CreatedAt})
	}
	for _, comment := range issue.Comments {
		var author *domain.UserProfile
		if profile, ok := view.CommentAuthors[comment.UserID]; ok {
			author = &profile
		}
		resp.Comments = append(resp.Comments, CommentResponse{
			User:      summarize(comment.UserID, author, false),
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt,
		})
	}
	return resp
}

func summarize(id string, profile *domain.UserProfile, includeContact bool) UserSummary {
	summary := UserSummary{ID: id}
	if profile == nil {
		return summary
	}
	summary.Name = profile.Name
	summary.Avatar = profile.Avatar
	if includeContact {
		summary.Email = profile.Email
	}
	return summary
}

// PaginationResponse describes the page returned.
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// IssueListResponse is a page of issues.
type IssueListResponse struct {
	Issues     []IssueResponse    `json:"issues"`
	Pagination PaginationResponse `json:"pagination"`
}

// UpvoteResponse reports the caller's vote after a toggle.
type UpvoteResponse struct {
	Upvoted      bool `json:"upvoted"`
	UpvotesCount int  `json:"upvotesCount"`
}

// IssueStatsBody holds status counters.
type IssueStatsBody struct {
	TotalIssues      int64 `json:"totalIssues"`
	ResolvedIssues   int64 `json:"resolvedIssues"`
	PendingIssues    int64 `json:"pendingIssues"`
	InProgressIssues int64 `json:"inProgressIssues"`
}

// CategoryStat is one category bucket.
type CategoryStat struct {
	Category domain.Category `json:"category"`
	Count    int64           `json:"count"`
}

// StatsResponse is the dashboard summary.
type StatsResponse struct {
	Stats         IssueStatsBody `json:"stats"`
	CategoryStats []CategoryStat `json:"categoryStats"`
}

// NewStatsResponse maps aggregator output.
func NewStatsResponse(stats domain.IssueStats, categories []domain.CategoryCount) StatsResponse {
	resp := StatsResponse{
		Stats: IssueStatsBody{
			TotalIssues:      stats.TotalIssues,
			ResolvedIssues:   stats.ResolvedIssues,
			PendingIssues:    stats.PendingIssues,
			InProgressIssues: stats.InProgressIssues,
		},
		CategoryStats: make([]CategoryStat, 0, len(categories)),
	}
	for _, c := range categories {
		resp.CategoryStats = append(resp.CategoryStats, CategoryStat{Category: c.Category, Count: c.Count})
	}
	return resp
}
