package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-reporter/internal/api/http/handlers"
	"github.com/spec-kit/civic-reporter/internal/auth"
	"github.com/spec-kit/civic-reporter/internal/config"
	"github.com/spec-kit/civic-reporter/internal/domain"
	"github.com/spec-kit/civic-reporter/internal/events"
	"github.com/spec-kit/civic-reporter/internal/observability"
	"github.com/spec-kit/civic-reporter/internal/repository/repotest"
	"github.com/spec-kit/civic-reporter/internal/service"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (f *fakeCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(ctx context.Context, key string, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(90*time.Minute, nil)
}

type testServer struct {
	app    *fiber.App
	users  *repotest.UserStore
	issues *repotest.IssueStore
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T, issueLimit int) *testServer {
	t.Helper()
	users := repotest.NewUserStore()
	issues := repotest.NewIssueStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	authSvc := service.NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}, users)
	issueSvc := service.NewIssueService(service.IssueDependencies{
		IssueRepo:  issues,
		UserRepo:   users,
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("civic-reporter", "test", metrics),
		Users:          handlers.NewUsersHandler(authSvc, service.NewUserService(users)),
		Issues:         handlers.NewIssuesHandler(issueSvc, service.NewStatsService(issues)),
		AuthMiddleware: auth.NewAuthMiddleware(authSvc.TokenManager(), users),
		IssueLimiter:   IssueRateLimiter(&fakeCounter{counts: map[string]int64{}}, "issue_limit", issueLimit, logger),
	})
	return &testServer{app: app, users: users, issues: issues, tokens: authSvc.TokenManager()}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Errors  map[string]any  `json:"errors"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, apiResponse, string) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out apiResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out, resp.Header.Get(fiber.HeaderRetryAfter)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
	return out
}

func (s *testServer) register(t *testing.T, name, email string) (string, string) {
	t.Helper()
	status, resp, _ := s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("register status %d: %+v", status, resp)
	}
	data := decode[struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}](t, resp.Data)
	return data.User.ID, data.Token
}

func (s *testServer) official(t *testing.T) string {
	t.Helper()
	id := s.users.Put(domain.User{Name: "Ada Official", Email: "ada@city.gov", Role: domain.RoleAdmin, IsActive: true})
	token, _, err := s.tokens.GenerateToken(id, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return token
}

func issueBody(title string) map[string]any {
	return map[string]any{
		"title":       title,
		"description": "The light on the corner has been out for a week.",
		"category":    "streetlight",
		"location": map[string]any{
			"address":     "1 Elm St",
			"coordinates": map[string]any{"latitude": 40.7128, "longitude": -74.0060},
		},
		"tags": []string{"night"},
	}
}

type issueData struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	Department    string `json:"department"`
	ViewCount     int64  `json:"viewCount"`
	UpvotesCount  int    `json:"upvotesCount"`
	CommentsCount int    `json:"commentsCount"`
	Reporter      struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"reporter"`
}

func (s *testServer) createIssue(t *testing.T, token, title string) issueData {
	t.Helper()
	status, resp, _ := s.do(t, fiber.MethodPost, "/issues", token, issueBody(title))
	if status != fiber.StatusCreated {
		t.Fatalf("create status %d: %+v", status, resp)
	}
	return decode[struct {
		Issue issueData `json:"issue"`
	}](t, resp.Data).Issue
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, 0)
	id, token := s.register(t, "Jane Citizen", "jane@example.com")

	status, resp, _ := s.do(t, fiber.MethodGet, "/auth/me", token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("me status %d", status)
	}
	me := decode[struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}](t, resp.Data)
	if me.User.ID != id || me.User.Role != "user" {
		t.Fatalf("unexpected me %+v", me)
	}

	status, resp, _ = s.do(t, fiber.MethodGet, "/auth/me", "", nil)
	if status != fiber.StatusUnauthorized || resp.Success {
		t.Fatalf("expected 401 envelope, got %d %+v", status, resp)
	}

	status, _, _ = s.do(t, fiber.MethodPost, "/auth/register", "", map[string]string{
		"name": "Jane Again", "email": "JANE@example.com", "password": "secret123",
	})
	if status != fiber.StatusConflict {
		t.Fatalf("expected duplicate email conflict, got %d", status)
	}

	status, _, _ = s.do(t, fiber.MethodPost, "/auth/login", "", map[string]string{
		"email": "jane@example.com", "password": "wrong-password",
	})
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected bad credentials 401, got %d", status)
	}
}

func TestCreateIssueValidation(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register(t, "Jane Citizen", "jane@example.com")

	body := issueBody("   Hi   ")
	body["category"] = "volcano"
	status, resp, _ := s.do(t, fiber.MethodPost, "/issues", token, body)
	if status != fiber.StatusBadRequest || resp.Success {
		t.Fatalf("expected 400, got %d %+v", status, resp)
	}
	for _, field := range []string{"title", "category"} {
		if _, ok := resp.Errors[field]; !ok {
			t.Fatalf("expected error for %s, got %+v", field, resp.Errors)
		}
	}

	status, _, _ = s.do(t, fiber.MethodPost, "/issues", "", issueBody("Broken streetlight"))
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected anonymous create to be rejected, got %d", status)
	}
	if s.issues.Len() != 0 {
		t.Fatalf("no issue should have been stored")
	}
}

func TestIssueLifecycle(t *testing.T) {
	s := newTestServer(t, 0)
	reporterID, token := s.register(t, "Jane Citizen", "jane@example.com")
	_, voterToken := s.register(t, "Val Voter", "val@example.com")

	created := s.createIssue(t, token, "Broken streetlight")
	if created.Status != "pending" || created.Priority != "medium" || created.Department != "electricity" {
		t.Fatalf("unexpected defaults %+v", created)
	}
	if created.Reporter.ID != reporterID || created.Reporter.Email != "" {
		t.Fatalf("summary reporter should omit contact: %+v", created.Reporter)
	}
	if points := s.users.Points(reporterID); points != 10 {
		t.Fatalf("expected 10 points, got %d", points)
	}

	status, resp, _ := s.do(t, fiber.MethodGet, "/issues/"+created.ID, "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("get status %d", status)
	}
	detail := decode[struct {
		Issue issueData `json:"issue"`
	}](t, resp.Data).Issue
	if detail.ViewCount != 1 || detail.Reporter.Email != "jane@example.com" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	type vote struct {
		Upvoted      bool `json:"upvoted"`
		UpvotesCount int  `json:"upvotesCount"`
	}
	_, resp, _ = s.do(t, fiber.MethodPost, "/issues/"+created.ID+"/upvote", voterToken, nil)
	if v := decode[vote](t, resp.Data); !v.Upvoted || v.UpvotesCount != 1 {
		t.Fatalf("first toggle %+v", v)
	}
	_, resp, _ = s.do(t, fiber.MethodPost, "/issues/"+created.ID+"/upvote", voterToken, nil)
	if v := decode[vote](t, resp.Data); v.Upvoted || v.UpvotesCount != 0 {
		t.Fatalf("second toggle %+v", v)
	}

	status, resp, _ = s.do(t, fiber.MethodPost, "/issues/"+created.ID+"/comments", voterToken, map[string]string{"content": "  Same here  "})
	if status != fiber.StatusCreated {
		t.Fatalf("comment status %d: %+v", status, resp)
	}
	comments := decode[struct {
		Comments []struct {
			Content string `json:"content"`
			User    struct {
				Name string `json:"name"`
			} `json:"user"`
		} `json:"comments"`
		CommentsCount int `json:"commentsCount"`
	}](t, resp.Data)
	if comments.CommentsCount != 1 || comments.Comments[0].Content != "Same here" || comments.Comments[0].User.Name != "Val Voter" {
		t.Fatalf("unexpected comments %+v", comments)
	}

	status, _, _ = s.do(t, fiber.MethodPut, "/issues/"+created.ID, voterToken, map[string]any{"title": "Hijacked title"})
	if status != fiber.StatusForbidden {
		t.Fatalf("expected non-owner update to be forbidden, got %d", status)
	}
	status, resp, _ = s.do(t, fiber.MethodPut, "/issues/"+created.ID, token, map[string]any{"category": "water"})
	if status != fiber.StatusOK {
		t.Fatalf("owner update status %d: %+v", status, resp)
	}
	if updated := decode[struct {
		Issue issueData `json:"issue"`
	}](t, resp.Data).Issue; updated.Department != "water" {
		t.Fatalf("expected department to follow category, got %s", updated.Department)
	}

	status, _, _ = s.do(t, fiber.MethodDelete, "/issues/"+created.ID, token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("delete status %d", status)
	}
	status, resp, _ = s.do(t, fiber.MethodGet, "/issues/"+created.ID, "", nil)
	if status != fiber.StatusNotFound || resp.Success || resp.Code != "NOT_FOUND" {
		t.Fatalf("expected 404 after delete, got %d %+v", status, resp)
	}
}

func TestTriageRequiresOfficial(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register(t, "Jane Citizen", "jane@example.com")
	adminToken := s.official(t)
	created := s.createIssue(t, token, "Broken streetlight")

	path := "/issues/" + created.ID + "/status"
	status, _, _ := s.do(t, fiber.MethodPatch, path, token, map[string]any{"status": "resolved"})
	if status != fiber.StatusForbidden {
		t.Fatalf("expected citizen to be forbidden, got %d", status)
	}

	status, resp, _ := s.do(t, fiber.MethodPatch, path, adminToken, map[string]any{"status": "closed"})
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected invalid status to be rejected, got %d %+v", status, resp)
	}

	status, resp, _ = s.do(t, fiber.MethodPatch, path, adminToken, map[string]any{"status": "resolved", "resolutionNotes": "Bulb replaced"})
	if status != fiber.StatusOK {
		t.Fatalf("status update %d: %+v", status, resp)
	}
	if got := decode[struct {
		Issue issueData `json:"issue"`
	}](t, resp.Data).Issue; got.Status != "resolved" {
		t.Fatalf("expected resolved, got %s", got.Status)
	}

	status, _, _ = s.do(t, fiber.MethodPatch, "/issues/"+created.ID+"/priority", adminToken, map[string]any{"priority": "urgent"})
	if status != fiber.StatusOK {
		t.Fatalf("priority update %d", status)
	}
	status, _, _ = s.do(t, fiber.MethodPatch, "/issues/"+created.ID+"/assign", adminToken, map[string]any{"assigneeId": "00000000-0000-0000-0000-000000000000"})
	if status != fiber.StatusNotFound {
		t.Fatalf("expected unknown assignee 404, got %d", status)
	}
}

func TestUpdateIgnoresFieldsOutsideAllowList(t *testing.T) {
	s := newTestServer(t, 0)
	reporterID, token := s.register(t, "Jane Citizen", "jane@example.com")
	intruderID, _ := s.register(t, "Ivan Intruder", "ivan@example.com")
	created := s.createIssue(t, token, "Broken streetlight")

	status, resp, _ := s.do(t, fiber.MethodPut, "/issues/"+created.ID, token, map[string]any{
		"title":      "Broken streetlight on Elm",
		"priority":   "high",
		"status":     "resolved",
		"reporterId": intruderID,
		"resolvedAt": "2024-01-01T00:00:00Z",
		"upvotes":    []map[string]string{{"user": intruderID}},
		"viewCount":  99,
	})
	if status != fiber.StatusOK {
		t.Fatalf("update status %d: %+v", status, resp)
	}

	stored, err := s.issues.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("load issue: %v", err)
	}
	if stored.Title != "Broken streetlight on Elm" || stored.Priority != domain.IssuePriorityHigh {
		t.Fatalf("allowed fields not applied: %q %s", stored.Title, stored.Priority)
	}
	if stored.Status != domain.IssueStatusPending || stored.ResolvedAt != nil {
		t.Fatalf("status must not change through update, got %s %v", stored.Status, stored.ResolvedAt)
	}
	if stored.ReporterID != reporterID {
		t.Fatalf("reporter changed to %s", stored.ReporterID)
	}
	if len(stored.Upvotes) != 0 || stored.ViewCount != 0 {
		t.Fatalf("engagement must not change through update: upvotes=%d views=%d", len(stored.Upvotes), stored.ViewCount)
	}
}

func TestAssignEstimateOnlyKeepsAssignee(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register(t, "Jane Citizen", "jane@example.com")
	crewID, _ := s.register(t, "Sam Crew", "sam@example.com")
	adminToken := s.official(t)
	created := s.createIssue(t, token, "Broken streetlight")
	path := "/issues/" + created.ID + "/assign"
	ctx := context.Background()

	status, resp, _ := s.do(t, fiber.MethodPatch, path, adminToken, map[string]any{"assigneeId": crewID, "estimatedResolutionTime": 3})
	if status != fiber.StatusOK {
		t.Fatalf("assign status %d: %+v", status, resp)
	}

	status, resp, _ = s.do(t, fiber.MethodPatch, path, adminToken, map[string]any{"estimatedResolutionTime": 7})
	if status != fiber.StatusOK {
		t.Fatalf("reschedule status %d: %+v", status, resp)
	}
	stored, err := s.issues.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("load issue: %v", err)
	}
	if stored.AssigneeID == nil || *stored.AssigneeID != crewID {
		t.Fatalf("estimate-only change dropped the assignee: %v", stored.AssigneeID)
	}
	if stored.EstimatedResolutionDays == nil || *stored.EstimatedResolutionDays != 7 {
		t.Fatalf("expected estimate of 7 days, got %v", stored.EstimatedResolutionDays)
	}

	status, resp, _ = s.do(t, fiber.MethodPatch, path, adminToken, map[string]any{"assigneeId": nil})
	if status != fiber.StatusOK {
		t.Fatalf("unassign status %d: %+v", status, resp)
	}
	stored, err = s.issues.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("load issue: %v", err)
	}
	if stored.AssigneeID != nil {
		t.Fatalf("explicit null should clear the assignee, got %s", *stored.AssigneeID)
	}
}

func TestListByUserVisibilityAndSort(t *testing.T) {
	s := newTestServer(t, 0)
	reporterID, token := s.register(t, "Jane Citizen", "jane@example.com")
	_, otherToken := s.register(t, "Oscar Other", "oscar@example.com")
	adminToken := s.official(t)

	first := s.createIssue(t, token, "Broken streetlight")
	private := issueBody("Leaking hydrant")
	private["isPublic"] = false
	if status, resp, _ := s.do(t, fiber.MethodPost, "/issues", token, private); status != fiber.StatusCreated {
		t.Fatalf("create private status %d: %+v", status, resp)
	}

	tests := []struct {
		name  string
		token string
		want  int64
	}{
		{name: "anonymous", want: 1},
		{name: "other citizen", token: otherToken, want: 1},
		{name: "reporter", token: token, want: 2},
		{name: "official", token: adminToken, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp, _ := s.do(t, fiber.MethodGet, "/issues/user/"+reporterID+"?sort=oldest", tt.token, nil)
			if status != fiber.StatusOK {
				t.Fatalf("status %d: %+v", status, resp)
			}
			list := decode[struct {
				Issues     []issueData `json:"issues"`
				Pagination struct {
					Total int64 `json:"total"`
				} `json:"pagination"`
			}](t, resp.Data)
			if list.Pagination.Total != tt.want {
				t.Fatalf("expected %d issues, got %d", tt.want, list.Pagination.Total)
			}
			if list.Issues[0].ID != first.ID {
				t.Fatalf("expected oldest issue first, got %s", list.Issues[0].ID)
			}
		})
	}

	status, _, _ := s.do(t, fiber.MethodGet, "/issues/user/"+reporterID+"?sort=loudest", "", nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected invalid sort to be rejected, got %d", status)
	}
}

func TestListStatsAndNearby(t *testing.T) {
	s := newTestServer(t, 0)
	reporterID, token := s.register(t, "Jane Citizen", "jane@example.com")
	for _, title := range []string{"Broken streetlight", "Flickering streetlight", "Dark corner lamp"} {
		s.createIssue(t, token, title)
	}

	status, resp, _ := s.do(t, fiber.MethodGet, "/issues?limit=2&category=all&sort=oldest", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("list status %d: %+v", status, resp)
	}
	list := decode[struct {
		Issues     []issueData `json:"issues"`
		Pagination struct {
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
			Total int64 `json:"total"`
			Pages int   `json:"pages"`
		} `json:"pagination"`
	}](t, resp.Data)
	if len(list.Issues) != 2 || list.Pagination.Total != 3 || list.Pagination.Pages != 2 || list.Pagination.Page != 1 {
		t.Fatalf("unexpected page %+v", list.Pagination)
	}

	status, _, _ = s.do(t, fiber.MethodGet, "/issues?status=bogus", "", nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected invalid filter to be rejected, got %d", status)
	}

	status, resp, _ = s.do(t, fiber.MethodGet, "/issues/user/"+reporterID, "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("user list status %d", status)
	}

	status, resp, _ = s.do(t, fiber.MethodGet, "/issues/stats", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("stats status %d: %+v", status, resp)
	}
	stats := decode[struct {
		Stats struct {
			TotalIssues   int64 `json:"totalIssues"`
			PendingIssues int64 `json:"pendingIssues"`
		} `json:"stats"`
		CategoryStats []struct {
			Category string `json:"category"`
			Count    int64  `json:"count"`
		} `json:"categoryStats"`
	}](t, resp.Data)
	if stats.Stats.TotalIssues != 3 || stats.Stats.PendingIssues != 3 {
		t.Fatalf("unexpected stats %+v", stats.Stats)
	}
	if len(stats.CategoryStats) != 1 || stats.CategoryStats[0].Category != "streetlight" || stats.CategoryStats[0].Count != 3 {
		t.Fatalf("unexpected category stats %+v", stats.CategoryStats)
	}

	status, resp, _ = s.do(t, fiber.MethodGet, "/issues/nearby?lng=-74.0060", "", nil)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected missing lat to be rejected, got %d", status)
	}
	if _, ok := resp.Errors["lat"]; !ok {
		t.Fatalf("expected lat error, got %+v", resp.Errors)
	}

	status, resp, _ = s.do(t, fiber.MethodGet, "/issues/nearby?lng=-74.0061&lat=40.7129&maxDistance=500", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("nearby status %d: %+v", status, resp)
	}
	nearby := decode[struct {
		Issues []issueData `json:"issues"`
	}](t, resp.Data)
	if len(nearby.Issues) != 3 {
		t.Fatalf("expected 3 nearby issues, got %d", len(nearby.Issues))
	}
}

func TestIssueRateLimit(t *testing.T) {
	s := newTestServer(t, 1)
	_, token := s.register(t, "Jane Citizen", "jane@example.com")
	s.createIssue(t, token, "Broken streetlight")

	status, resp, retryAfter := s.do(t, fiber.MethodPost, "/issues", token, issueBody("Another streetlight"))
	if status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	if retryAfter != "5400" || resp.Errors["retry_after"] != float64(5400) {
		t.Fatalf("unexpected retry hint %q %+v", retryAfter, resp.Errors)
	}
	if s.issues.Len() != 1 {
		t.Fatalf("limited request must not create an issue")
	}
}

func TestUsersAndHealthRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	reporterID, token := s.register(t, "Jane Citizen", "jane@example.com")
	s.createIssue(t, token, "Broken streetlight")

	status, resp, _ := s.do(t, fiber.MethodGet, "/users/leaderboard?limit=5", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("leaderboard status %d", status)
	}
	board := decode[struct {
		Users []struct {
			ID     string `json:"id"`
			Points int    `json:"points"`
		} `json:"users"`
	}](t, resp.Data)
	if len(board.Users) != 1 || board.Users[0].ID != reporterID || board.Users[0].Points != 10 {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	status, _, _ = s.do(t, fiber.MethodGet, "/users/missing-user", "", nil)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected unknown user 404, got %d", status)
	}

	status, _, _ = s.do(t, fiber.MethodGet, "/health/live", "", nil)
	if status != fiber.StatusOK {
		t.Fatalf("live status %d", status)
	}
	status, _, _ = s.do(t, fiber.MethodGet, "/health/metrics", token, nil)
	if status != fiber.StatusForbidden {
		t.Fatalf("expected metrics to be official only, got %d", status)
	}
	status, _, _ = s.do(t, fiber.MethodGet, "/health/metrics", s.official(t), nil)
	if status != fiber.StatusOK {
		t.Fatalf("metrics status %d", status)
	}

	status, resp, _ = s.do(t, fiber.MethodGet, "/nowhere", "", nil)
	if status != fiber.StatusNotFound || resp.Success {
		t.Fatalf("expected unmatched route 404 envelope, got %d %+v", status, resp)
	}
}
