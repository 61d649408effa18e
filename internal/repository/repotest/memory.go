// Package repotest provides in-memory repository implementations for tests.
package repotest

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/spec-kit/civic-reporter/internal/domain"
	"github.com/spec-kit/civic-reporter/internal/repository"
)

// IssueStore is a mutex-guarded IssueRepository. Mutations are applied under
// the lock so the conditional semantics of the Mongo implementation hold.
type IssueStore struct {
	mu     sync.Mutex
	issues map[string]*domain.Issue
	order  []string

	// Now overrides the clock used for timestamps.
	Now func() time.Time
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

// NewIssueStore returns an empty store.
func NewIssueStore() *IssueStore {
	return &IssueStore{issues: make(map[string]*domain.Issue), Now: time.Now}
}

var _ repository.IssueRepository = (*IssueStore)(nil)

func (s *IssueStore) now() time.Time {
	return s.Now().UTC()
}

func (s *IssueStore) Create(_ context.Context, issue *domain.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	now := s.now()
	issue.ID = primitive.NewObjectID().Hex()
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = now
	}
	issue.UpdatedAt = now
	stored := cloneIssue(issue)
	s.issues[issue.ID] = &stored
	s.order = append(s.order, issue.ID)
	return nil
}

func (s *IssueStore) GetByID(_ context.Context, id string) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, repository.ErrIssueNotFound
	}
	out := cloneIssue(issue)
	return &out, nil
}

func (s *IssueStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.issues[id]
	return ok, nil
}

func (s *IssueStore) IncrementViews(_ context.Context, id string) (*domain.Issue, error) {
	return s.mutate(id, func(issue *domain.Issue) {
		issue.ViewCount++
	}, false)
}

func (s *IssueStore) ApplyChanges(_ context.Context, id string, changes repository.IssueChanges) (*domain.Issue, error) {
	return s.mutate(id, func(issue *domain.Issue) {
		if changes.Title != nil {
			issue.Title = *changes.Title
		}
		if changes.Description != nil {
			issue.Description = *changes.Description
		}
		if changes.Category != nil {
			issue.Category = *changes.Category
		}
		if changes.Department != nil {
			issue.Department = *changes.Department
		}
		if changes.Priority != nil {
			issue.Priority = *changes.Priority
		}
		if changes.Tags != nil {
			issue.Tags = append([]string{}, (*changes.Tags)...)
		}
		if changes.Status != nil {
			issue.Status = *changes.Status
		}
		if changes.ResolvedAt != nil {
			at := *changes.ResolvedAt
			issue.ResolvedAt = &at
		}
		if changes.ResolutionNotes != nil {
			issue.ResolutionNotes = *changes.ResolutionNotes
		}
		if changes.EstimatedResolutionDays != nil {
			days := *changes.EstimatedResolutionDays
			issue.EstimatedResolutionDays = &days
		}
		switch {
		case changes.ClearAssignee:
			issue.AssigneeID = nil
		case changes.AssigneeID != nil:
			assignee := *changes.AssigneeID
			issue.AssigneeID = &assignee
		}
	}, true)
}

func (s *IssueStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.issues[id]; !ok {
		return repository.ErrIssueNotFound
	}
	delete(s.issues, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *IssueStore) AddUpvote(_ context.Context, id string, vote domain.Upvote) (*domain.Issue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok || issue.HasUpvoted(vote.UserID) {
		return nil, false, nil
	}
	issue.Upvotes = append(issue.Upvotes, vote)
	issue.UpdatedAt = s.now()
	out := cloneIssue(issue)
	return &out, true, nil
}

func (s *IssueStore) RemoveUpvote(_ context.Context, id, userID string) (*domain.Issue, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok || !issue.HasUpvoted(userID) {
		return nil, false, nil
	}
	kept := issue.Upvotes[:0]
	for _, vote := range issue.Upvotes {
		if vote.UserID != userID {
			kept = append(kept, vote)
		}
	}
	issue.Upvotes = kept
	issue.UpdatedAt = s.now()
	out := cloneIssue(issue)
	return &out, true, nil
}

func (s *IssueStore) AddComment(_ context.Context, id string, comment domain.Comment) (*domain.Issue, error) {
	return s.mutate(id, func(issue *domain.Issue) {
		issue.Comments = append(issue.Comments, comment)
	}, true)
}

func (s *IssueStore) List(_ context.Context, filter repository.IssueFilter) ([]domain.Issue, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var search *regexp.Regexp
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search = regexp.MustCompile("(?i)" + regexp.QuoteMeta(strings.TrimSpace(*filter.SearchTerm)))
	}

	matched := make([]domain.Issue, 0, len(s.order))
	for _, id := range s.order {
		issue := s.issues[id]
		if !matches(issue, filter, search) {
			continue
		}
		matched = append(matched, cloneIssue(issue))
	}
	sortIssues(matched, filter.Sort)

	total := int64(len(matched))
	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Issue{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (s *IssueStore) FindNearby(_ context.Context, longitude, latitude, maxDistanceMeters float64, limit int) ([]domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type hit struct {
		issue    domain.Issue
		distance float64
	}
	var hits []hit
	for _, id := range s.order {
		issue := s.issues[id]
		if !issue.IsPublic {
			continue
		}
		d := haversineMeters(latitude, longitude, issue.Location.Latitude, issue.Location.Longitude)
		if d <= maxDistanceMeters {
			hits = append(hits, hit{issue: cloneIssue(issue), distance: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Issue, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.issue)
	}
	return out, nil
}

func (s *IssueStore) CountByStatus(_ context.Context) ([]domain.StatusCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[domain.IssueStatus]int64{}
	var keys []domain.IssueStatus
	for _, id := range s.order {
		status := s.issues[id].Status
		if _, seen := counts[status]; !seen {
			keys = append(keys, status)
		}
		counts[status]++
	}
	out := make([]domain.StatusCount, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.StatusCount{Status: key, Count: counts[key]})
	}
	return out, nil
}

func (s *IssueStore) CountByCategory(_ context.Context) ([]domain.CategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[domain.Category]int64{}
	var keys []domain.Category
	for _, id := range s.order {
		category := s.issues[id].Category
		if _, seen := counts[category]; !seen {
			keys = append(keys, category)
		}
		counts[category]++
	}
	out := make([]domain.CategoryCount, 0, len(keys))
	for _, key := range keys {
		out = append(out, domain.CategoryCount{Category: key, Count: counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Len returns the number of stored issues.
func (s *IssueStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issues)
}

func (s *IssueStore) mutate(id string, fn func(*domain.Issue), touch bool) (*domain.Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.issues[id]
	if !ok {
		return nil, repository.ErrIssueNotFound
	}
	fn(issue)
	if touch {
		issue.UpdatedAt = s.now()
	}
	out := cloneIssue(issue)
	return &out, nil
}

func matches(issue *domain.Issue, filter repository.IssueFilter, search *regexp.Regexp) bool {
	if filter.PublicOnly && !issue.IsPublic {
		return false
	}
	if filter.ReporterID != nil && issue.ReporterID != *filter.ReporterID {
		return false
	}
	if filter.Category != nil && issue.Category != *filter.Category {
		return false
	}
	if filter.Status != nil && issue.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && issue.Priority != *filter.Priority {
		return false
	}
	if search != nil {
		return search.MatchString(issue.Title) ||
			search.MatchString(issue.Description) ||
			search.MatchString(issue.Location.Address)
	}
	return true
}

func sortIssues(issues []domain.Issue, by repository.IssueSort) {
	newestFirst := func(a, b domain.Issue) bool { return a.CreatedAt.After(b.CreatedAt) }
	var less func(a, b domain.Issue) bool
	switch by {
	case repository.SortOldest:
		less = func(a, b domain.Issue) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case repository.SortPriority:
		less = func(a, b domain.Issue) bool {
			if a.Priority.Weight() != b.Priority.Weight() {
				return a.Priority.Weight() > b.Priority.Weight()
			}
			return newestFirst(a, b)
		}
	case repository.SortUpvotes:
		less = func(a, b domain.Issue) bool {
			if len(a.Upvotes) != len(b.Upvotes) {
				return len(a.Upvotes) > len(b.Upvotes)
			}
			return newestFirst(a, b)
		}
	default:
		less = newestFirst
	}
	sort.SliceStable(issues, func(i, j int) bool { return less(issues[i], issues[j]) })
}

func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadius * math.Asin(math.Sqrt(a))
}

func cloneIssue(issue *domain.Issue) domain.Issue {
	out := *issue
	out.Images = append([]domain.Image{}, issue.Images...)
	out.Upvotes = append([]domain.Upvote{}, issue.Upvotes...)
	out.Comments = append([]domain.Comment{}, issue.Comments...)
	out.Tags = append([]string{}, issue.Tags...)
	if issue.AssigneeID != nil {
		assignee := *issue.AssigneeID
		out.AssigneeID = &assignee
	}
	if issue.ResolvedAt != nil {
		at := *issue.ResolvedAt
		out.ResolvedAt = &at
	}
	if issue.EstimatedResolutionDays != nil {
		days := *issue.EstimatedResolutionDays
		out.EstimatedResolutionDays = &days
	}
	return out
}

// errDuplicateEmail mirrors the unique violation Postgres raises on users.email.
var errDuplicateEmail = &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}

// UserStore is a mutex-guarded UserRepository. Missing users surface as
// pgx.ErrNoRows like the Postgres implementation.
type UserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User

	// AddPointsErr, when set, is returned by AddPoints.
	AddPointsErr error
}

// NewUserStore returns an empty store.
func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

var _ repository.UserRepository = (*UserStore)(nil)

// Put stores user, assigning an id when missing, and returns the id.
func (s *UserStore) Put(user domain.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
		user.UpdatedAt = user.CreatedAt
	}
	stored := user
	s.users[user.ID] = &stored
	return user.ID
}

func (s *UserStore) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return errDuplicateEmail
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *user
	return &out, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			out := *user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *UserStore) AddPoints(_ context.Context, id string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AddPointsErr != nil {
		return s.AddPointsErr
	}
	user, ok := s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.Points += points
	return nil
}

func (s *UserStore) ProfilesByIDs(_ context.Context, ids []string) (map[string]domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make(map[string]domain.UserProfile, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			profiles[id] = domain.UserProfile{ID: user.ID, Name: user.Name, Avatar: user.Avatar, Email: user.Email}
		}
	}
	return profiles, nil
}

func (s *UserStore) TopByPoints(_ context.Context, limit int) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 10
	}
	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if user.IsActive {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// Points returns the current balance for id, or -1 when unknown.
func (s *UserStore) Points(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		return user.Points
	}
	return -1
}
