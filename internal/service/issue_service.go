package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-reporter/internal/domain"
	"github.com/spec-kit/civic-reporter/internal/events"
	"github.com/spec-kit/civic-reporter/internal/repository"
	apperrors "github.com/spec-kit/civic-reporter/pkg/util/errorutil"
)

const (
	// DefaultNearbyDistanceMeters bounds FindNearby when no distance is given.
	DefaultNearbyDistanceMeters = 5000
	nearbyResultLimit           = 50
	maxToggleAttempts           = 5
	commentPreviewLength        = 80
)

// Actor identifies the caller of a mutating operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the actor acts as an official.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.RoleAdmin
}

func (a Actor) event() events.Actor {
	return events.Actor{UserID: a.UserID, Role: a.Role}
}

// PopulatedIssue is an issue together with the public profiles it references.
type PopulatedIssue struct {
	Issue          domain.Issue
	Reporter       *domain.UserProfile
	Assignee       *domain.UserProfile
	CommentAuthors map[string]domain.UserProfile
}

// IssuePage is one page of list results.
type IssuePage struct {
	Issues []PopulatedIssue
	Page   int
	Limit  int
	Total  int64
	Pages  int
}

// CreateIssueInput describes issue creation payload.
type CreateIssueInput struct {
	Title       string
	Description string
	Category    domain.Category
	Priority    domain.IssuePriority
	Location    domain.Location
	Images      []domain.Image
	Tags        []string
	IsPublic    *bool
}

// IssueQuery describes public list filters. Zero values match everything.
type IssueQuery struct {
	Category *domain.Category
	Status   *domain.IssueStatus
	Priority *domain.IssuePriority
	Search   string
	Sort     repository.IssueSort
	Page     int
	Limit    int
}

// UpvoteResult reports the state after a toggle.
type UpvoteResult struct {
	Issue   domain.Issue
	Upvoted bool
}

// IssueService coordinates issue lifecycle and social interactions.
type IssueService struct {
	issues       repository.IssueRepository
	users        repository.UserRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	maxListLimit int
	now          func() time.Time
}

// IssueDependencies bundles collaborators for the issue service.
type IssueDependencies struct {
	IssueRepo    repository.IssueRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	MaxListLimit int
}

// NewIssueService constructs the service.
func NewIssueService(deps IssueDependencies) *IssueService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxLimit := deps.MaxListLimit
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &IssueService{
		issues:       deps.IssueRepo,
		users:        deps.UserRepo,
		dispatcher:   deps.Dispatcher,
		logger:       logger,
		maxListLimit: maxLimit,
		now:          time.Now,
	}
}

// Create persists a new issue owned by reporterID and credits the reporter.
// The point award is a separate write; its failure is logged and does not
// undo the insert.
func (s *IssueService) Create(ctx context.Context, reporterID string, input CreateIssueInput) (*PopulatedIssue, error) {
	issue := &domain.Issue{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Priority:    input.Priority,
		Location: domain.Location{
			Address:   strings.TrimSpace(input.Location.Address),
			Latitude:  input.Location.Latitude,
			Longitude: input.Location.Longitude,
		},
		Images:     input.Images,
		ReporterID: reporterID,
		Tags:       input.Tags,
		IsPublic:   true,
	}
	if input.IsPublic != nil {
		issue.IsPublic = *input.IsPublic
	}
	issue.ApplyDefaults()

	if err := s.issues.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	if err := s.users.AddPoints(ctx, reporterID, domain.ReporterRewardPoints); err != nil {
		s.logger.Warn("award reporter points failed",
			zap.String("issue_id", issue.ID),
			zap.String("user_id", reporterID),
			zap.Error(err))
	}

	s.publishEvent(ctx, events.NewEvent(events.EventIssueCreated, issue.ID, events.Actor{UserID: reporterID}, events.IssueCreatedPayload{
		Title:      issue.Title,
		Category:   issue.Category,
		Department: issue.Department,
		Priority:   issue.Priority,
		Address:    issue.Location.Address,
	}))

	return s.populate(ctx, *issue, false)
}

// GetByID returns a fully populated issue. Each call increments the issue's
// view count.
func (s *IssueService) GetByID(ctx context.Context, id string) (*PopulatedIssue, error) {
	issue, err := s.issues.IncrementViews(ctx, id)
	if err != nil {
		return nil, issueErr(err, id)
	}
	return s.populate(ctx, *issue, true)
}

// Update applies the whitelisted patch fields. Only the reporter or an admin
// may update; a category change re-derives the department.
func (s *IssueService) Update(ctx context.Context, id string, actor Actor, patch domain.IssuePatch) (*PopulatedIssue, error) {
	current, err := s.authorizedIssue(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.populate(ctx, *current, false)
	}

	changes := repository.IssueChanges{
		Priority: patch.Priority,
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		changes.Title = &title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		changes.Description = &description
	}
	if patch.Category != nil {
		category := *patch.Category
		department := domain.ResolveDepartment(category, current.Department)
		changes.Category = &category
		changes.Department = &department
	}
	if patch.Tags != nil {
		tags := domain.NormalizeTags(*patch.Tags)
		changes.Tags = &tags
	}

	updated, err := s.issues.ApplyChanges(ctx, id, changes)
	if err != nil {
		return nil, issueErr(err, id)
	}
	return s.populate(ctx, *updated, false)
}

// Delete permanently removes an issue. Only the reporter or an admin may delete.
func (s *IssueService) Delete(ctx context.Context, id string, actor Actor) error {
	if _, err := s.authorizedIssue(ctx, id, actor); err != nil {
		return err
	}
	if err := s.issues.Delete(ctx, id); err != nil {
		return issueErr(err, id)
	}
	return nil
}

// ToggleUpvote removes userID's upvote if present and adds one otherwise.
// Both directions are conditional atomic updates; when a concurrent toggle by
// the same user makes both miss, the toggle is retried.
func (s *IssueService) ToggleUpvote(ctx context.Context, id, userID string) (*UpvoteResult, error) {
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		issue, removed, err := s.issues.RemoveUpvote(ctx, id, userID)
		if err != nil {
			return nil, issueErr(err, id)
		}
		if removed {
			return s.upvoteToggled(ctx, issue, userID, false), nil
		}

		issue, added, err := s.issues.AddUpvote(ctx, id, domain.Upvote{UserID: userID, CreatedAt: s.now().UTC()})
		if err != nil {
			return nil, issueErr(err, id)
		}
		if added {
			return s.upvoteToggled(ctx, issue, userID, true), nil
		}

		exists, err := s.issues.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperrors.NewNotFound("issue", map[string]any{"id": id})
		}
	}
	return nil, apperrors.NewConflict("upvote changed concurrently, retry", map[string]any{"id": id})
}

func (s *IssueService) upvoteToggled(ctx context.Context, issue *domain.Issue, userID string, upvoted bool) *UpvoteResult {
	s.publishEvent(ctx, events.NewEvent(events.EventIssueUpvoteToggled, issue.ID, events.Actor{UserID: userID}, events.IssueUpvoteToggledPayload{
		Upvoted:      upvoted,
		UpvotesCount: issue.UpvotesCount(),
	}))
	return &UpvoteResult{Issue: *issue, Upvoted: upvoted}
}

// AddComment appends a comment. Content is trimmed; emptiness and length are
// checked at the API boundary.
func (s *IssueService) AddComment(ctx context.Context, id, userID, content string) (*PopulatedIssue, error) {
	comment := domain.Comment{
		UserID:    userID,
		Content:   strings.TrimSpace(content),
		CreatedAt: s.now().UTC(),
	}
	issue, err := s.issues.AddComment(ctx, id, comment)
	if err != nil {
		return nil, issueErr(err, id)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventIssueCommentAdded, issue.ID, events.Actor{UserID: userID}, events.IssueCommentAddedPayload{
		CommentCount: len(issue.Comments),
		BodyPreview:  preview(comment.Content, commentPreviewLength),
	}))
	return s.populate(ctx, *issue, true)
}

// UpdateStatus sets the status unconditionally. Entering "resolved" stamps
// resolvedAt and stores the notes; leaving it keeps both untouched.
func (s *IssueService) UpdateStatus(ctx context.Context, id string, actor Actor, status domain.IssueStatus, notes *string) (*PopulatedIssue, error) {
	current, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, issueErr(err, id)
	}

	changes := repository.IssueChanges{Status: &status}
	resolutionNotes := ""
	if status == domain.IssueStatusResolved {
		resolvedAt := s.now().UTC()
		if notes != nil {
			resolutionNotes = strings.TrimSpace(*notes)
		}
		changes.ResolvedAt = &resolvedAt
		changes.ResolutionNotes = &resolutionNotes
	}

	updated, err := s.issues.ApplyChanges(ctx, id, changes)
	if err != nil {
		return nil, issueErr(err, id)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventIssueStatusChanged, id, actor.event(), events.IssueStatusChangedPayload{
		OldStatus:       current.Status,
		NewStatus:       status,
		ResolutionNotes: resolutionNotes,
	}))
	return s.populate(ctx, *updated, false)
}

// UpdatePriority sets the priority unconditionally.
func (s *IssueService) UpdatePriority(ctx context.Context, id string, actor Actor, priority domain.IssuePriority) (*PopulatedIssue, error) {
	current, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, issueErr(err, id)
	}
	updated, err := s.issues.ApplyChanges(ctx, id, repository.IssueChanges{Priority: &priority})
	if err != nil {
		return nil, issueErr(err, id)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventIssuePriorityChanged, id, actor.event(), events.IssuePriorityChangedPayload{
		OldPriority: current.Priority,
		NewPriority: priority,
	}))
	return s.populate(ctx, *updated, false)
}

// Assign routes the issue to an existing user or clears the assignment. The
// estimate is stored when provided.
func (s *IssueService) Assign(ctx context.Context, id string, actor Actor, assignment domain.Assignment) (*PopulatedIssue, error) {
	exists, err := s.issues.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.NewNotFound("issue", map[string]any{"id": id})
	}

	changes := repository.IssueChanges{EstimatedResolutionDays: assignment.EstimatedDays}
	switch assigneeID := assignment.AssigneeID; {
	case assigneeID != nil:
		if _, err := s.users.GetByID(ctx, *assigneeID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("assignee", map[string]any{"id": *assigneeID})
			}
			return nil, err
		}
		changes.AssigneeID = assigneeID
	case assignment.Unassign:
		changes.ClearAssignee = true
	}

	updated, err := s.issues.ApplyChanges(ctx, id, changes)
	if err != nil {
		return nil, issueErr(err, id)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventIssueAssigned, id, actor.event(), events.IssueAssignedPayload{
		AssigneeID:              updated.AssigneeID,
		EstimatedResolutionDays: updated.EstimatedResolutionDays,
	}))
	return s.populate(ctx, *updated, false)
}

// List returns one page of public issues.
func (s *IssueService) List(ctx context.Context, query IssueQuery) (*IssuePage, error) {
	filter := repository.IssueFilter{
		Category:   query.Category,
		Status:     query.Status,
		Priority:   query.Priority,
		PublicOnly: true,
		Sort:       query.Sort,
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		filter.SearchTerm = &search
	}
	return s.listPage(ctx, filter, query.Page, query.Limit)
}

// ListByReporter returns one page of the issues reported by reporterID.
// Private issues are listed only for the reporter and for officials.
func (s *IssueService) ListByReporter(ctx context.Context, reporterID string, viewer Actor, sort repository.IssueSort, page, limit int) (*IssuePage, error) {
	filter := repository.IssueFilter{
		ReporterID: &reporterID,
		PublicOnly: viewer.UserID != reporterID && !viewer.IsAdmin(),
		Sort:       sort,
	}
	return s.listPage(ctx, filter, page, limit)
}

// FindNearby returns public issues within maxDistanceMeters of the point,
// nearest first. A non-positive distance uses DefaultNearbyDistanceMeters.
func (s *IssueService) FindNearby(ctx context.Context, longitude, latitude, maxDistanceMeters float64) ([]PopulatedIssue, error) {
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = DefaultNearbyDistanceMeters
	}
	issues, err := s.issues.FindNearby(ctx, longitude, latitude, maxDistanceMeters, nearbyResultLimit)
	if err != nil {
		return nil, err
	}
	return s.populateMany(ctx, issues)
}

func (s *IssueService) listPage(ctx context.Context, filter repository.IssueFilter, page, limit int) (*IssuePage, error) {
	page, limit = s.normalizePage(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	issues, total, err := s.issues.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	populated, err := s.populateMany(ctx, issues)
	if err != nil {
		return nil, err
	}
	return &IssuePage{
		Issues: populated,
		Page:   page,
		Limit:  limit,
		Total:  total,
		Pages:  pageCount(total, limit),
	}, nil
}

func (s *IssueService) normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxListLimit {
		limit = s.maxListLimit
	}
	return page, limit
}

func pageCount(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

func (s *IssueService) authorizedIssue(ctx context.Context, id string, actor Actor) (*domain.Issue, error) {
	issue, err := s.issues.GetByID(ctx, id)
	if err != nil {
		return nil, issueErr(err, id)
	}
	if !issue.OwnedBy(actor.UserID) && !actor.IsAdmin() {
		return nil, apperrors.NewForbidden("not authorized to modify this issue")
	}
	return issue, nil
}

func (s *IssueService) populate(ctx context.Context, issue domain.Issue, withComments bool) (*PopulatedIssue, error) {
	ids := []string{issue.ReporterID}
	if issue.AssigneeID != nil {
		ids = append(ids, *issue.AssigneeID)
	}
	if withComments {
		for _, comment := range issue.Comments {
			ids = append(ids, comment.UserID)
		}
	}
	profiles, err := s.users.ProfilesByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	populated := attachProfiles(issue, profiles)
	if withComments {
		populated.CommentAuthors = make(map[string]domain.UserProfile, len(issue.Comments))
		for _, comment := range issue.Comments {
			if profile, ok := profiles[comment.UserID]; ok {
				populated.CommentAuthors[comment.UserID] = profile
			}
		}
	}
	return &populated, nil
}

func (s *IssueService) populateMany(ctx context.Context, issues []domain.Issue) ([]PopulatedIssue, error) {
	ids := make([]string, 0, len(issues)*2)
	for _, issue := range issues {
		ids = append(ids, issue.ReporterID)
		if issue.AssigneeID != nil {
			ids = append(ids, *issue.AssigneeID)
		}
	}
	profiles := map[string]domain.UserProfile{}
	if len(ids) > 0 {
		var err error
		profiles, err = s.users.ProfilesByIDs(ctx, uniqueIDs(ids))
		if err != nil {
			return nil, err
		}
	}
	out := make([]PopulatedIssue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, attachProfiles(issue, profiles))
	}
	return out, nil
}

func attachProfiles(issue domain.Issue, profiles map[string]domain.UserProfile) PopulatedIssue {
	populated := PopulatedIssue{Issue: issue}
	if profile, ok := profiles[issue.ReporterID]; ok {
		populated.Reporter = &profile
	}
	if issue.AssigneeID != nil {
		if profile, ok := profiles[*issue.AssigneeID]; ok {
			populated.Assignee = &profile
		}
	}
	return populated
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func issueErr(err error, id string) error {
	if errors.Is(err, repository.ErrIssueNotFound) {
		return apperrors.NewNotFound("issue", map[string]any{"id": id})
	}
	return err
}

func preview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}

func (s *IssueService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("issue_id", event.IssueID),
			zap.Error(err))
	}
}
