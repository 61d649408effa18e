package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/civic-reporter/internal/api/dto"
	"github.com/spec-kit/civic-reporter/internal/repository"
	"github.com/spec-kit/civic-reporter/internal/service"
	apperrors "github.com/spec-kit/civic-reporter/pkg/util/errorutil"
)

const maxNearbyDistanceMeters = 50000

// IssuesHandler exposes the issue lifecycle over HTTP.
type IssuesHandler struct {
	issues *service.IssueService
	stats  *service.StatsService
}

// NewIssuesHandler constructs handler.
func NewIssuesHandler(issues *service.IssueService, stats *service.StatsService) *IssuesHandler {
	return &IssuesHandler{issues: issues, stats: stats}
}

// List GET /issues.
func (h *IssuesHandler) List(c *fiber.Ctx) error {
	var q dto.ListIssuesQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	page, err := h.issues.List(c.UserContext(), service.IssueQuery{
		Category: q.CategoryFilter(),
		Status:   q.StatusFilter(),
		Priority: q.PriorityFilter(),
		Search:   q.Search,
		Sort:     repository.ParseIssueSort(q.Sort),
		Page:     q.Page,
		Limit:    q.Limit,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", issueList(page, viewerID(c)))
}

// ListByUser GET /issues/user/:userId.
func (h *IssuesHandler) ListByUser(c *fiber.Ctx) error {
	var q dto.ReporterIssuesQuery
	if err := bindQuery(c, &q); err != nil {
		return err
	}
	page, err := h.issues.ListByReporter(c.UserContext(), c.Params("userId"), viewerActor(c), repository.ParseIssueSort(q.Sort), q.Page, q.Limit)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", issueList(page, viewerID(c)))
}

// Get GET /issues/:id. Every successful call counts as a view.
func (h *IssuesHandler) Get(c *fiber.Ctx) error {
	issue, err := h.issues.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", fiber.Map{"issue": detailView(issue, viewerID(c))})
}

// Stats GET /issues/stats.
func (h *IssuesHandler) Stats(c *fiber.Ctx) error {
	ctx := c.UserContext()
	stats, err := h.stats.GetStats(ctx)
	if err != nil {
		return err
	}
	categories, err := h.stats.GetCategoryStats(ctx)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", dto.NewStatsResponse(stats, categories))
}

// Nearby GET /issues/nearby?lng=&lat=&maxDistance=.
func (h *IssuesHandler) Nearby(c *fiber.Ctx) error {
	details := map[string]any{}
	lng, lngErr := queryFloat(c, "lng", -180, 180)
	if lngErr != "" {
		details["lng"] = lngErr
	}
	lat, latErr := queryFloat(c, "lat", -90, 90)
	if latErr != "" {
		details["lat"] = latErr
	}
	var maxDistance float64
	if c.Query("maxDistance") != "" {
		var distErr string
		maxDistance, distErr = queryFloat(c, "maxDistance", 1, maxNearbyDistanceMeters)
		if distErr != "" {
			details["maxDistance"] = distErr
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details)
	}

	issues, err := h.issues.FindNearby(c.UserContext(), lng, lat, maxDistance)
	if err != nil {
		return err
	}
	viewer := viewerID(c)
	out := make([]dto.IssueResponse, 0, len(issues))
	for i := range issues {
		out = append(out, summaryView(&issues[i], viewer))
	}
	return respond(c, http.StatusOK, "", fiber.Map{"issues": out})
}

// Create POST /issues.
func (h *IssuesHandler) Create(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateIssueRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}

	created, err := h.issues.Create(c.UserContext(), principal.UserID(), service.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Location:    req.ToLocation(),
		Images:      req.ToImages(time.Now().UTC()),
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Issue created successfully", fiber.Map{"issue": summaryView(created, principal.UserID())})
}

// Update PUT /issues/:id.
func (h *IssuesHandler) Update(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIssueRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.issues.Update(c.UserContext(), c.Params("id"), actorOf(principal), req.ToPatch())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Issue updated successfully", fiber.Map{"issue": summaryView(updated, principal.UserID())})
}

// Delete DELETE /issues/:id.
func (h *IssuesHandler) Delete(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	if err := h.issues.Delete(c.UserContext(), c.Params("id"), actorOf(principal)); err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Issue deleted successfully", nil)
}

// Upvote POST /issues/:id/upvote.
func (h *IssuesHandler) Upvote(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	result, err := h.issues.ToggleUpvote(c.UserContext(), c.Params("id"), principal.UserID())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Vote updated successfully", dto.UpvoteResponse{
		Upvoted:      result.Upvoted,
		UpvotesCount: result.Issue.UpvotesCount(),
	})
}

// AddComment POST /issues/:id/comments.
func (h *IssuesHandler) AddComment(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	issue, err := h.issues.AddComment(c.UserContext(), c.Params("id"), principal.UserID(), req.Content)
	if err != nil {
		return err
	}
	view := detailView(issue, principal.UserID())
	return respond(c, http.StatusCreated, "Comment added successfully", fiber.Map{
		"comments":      view.Comments,
		"commentsCount": view.CommentsCount,
	})
}

// UpdateStatus PATCH /issues/:id/status.
func (h *IssuesHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.issues.UpdateStatus(c.UserContext(), c.Params("id"), actorOf(principal), req.Status, req.ResolutionNotes)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Status updated successfully", fiber.Map{"issue": summaryView(updated, principal.UserID())})
}

// UpdatePriority PATCH /issues/:id/priority.
func (h *IssuesHandler) UpdatePriority(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdatePriorityRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.issues.UpdatePriority(c.UserContext(), c.Params("id"), actorOf(principal), req.Priority)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Priority updated successfully", fiber.Map{"issue": summaryView(updated, principal.UserID())})
}

// Assign PATCH /issues/:id/assign.
func (h *IssuesHandler) Assign(c *fiber.Ctx) error {
	principal, err := requirePrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignIssueRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	updated, err := h.issues.Assign(c.UserContext(), c.Params("id"), actorOf(principal), req.ToAssignment())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Assignment updated successfully", fiber.Map{"issue": detailView(updated, principal.UserID())})
}

func issueList(page *service.IssuePage, viewer string) dto.IssueListResponse {
	items := make([]dto.IssueResponse, 0, len(page.Issues))
	for i := range page.Issues {
		items = append(items, summaryView(&page.Issues[i], viewer))
	}
	return dto.IssueListResponse{
		Issues: items,
		Pagination: dto.PaginationResponse{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	}
}

// summaryView exposes name and avatar only for referenced users.
func summaryView(p *service.PopulatedIssue, viewer string) dto.IssueResponse {
	return dto.NewIssueResponse(p.Issue, dto.IssueView{
		Reporter:       p.Reporter,
		Assignee:       p.Assignee,
		CommentAuthors: p.CommentAuthors,
		ViewerID:       viewer,
	})
}

func detailView(p *service.PopulatedIssue, viewer string) dto.IssueResponse {
	return dto.NewIssueResponse(p.Issue, dto.IssueView{
		Reporter:       p.Reporter,
		Assignee:       p.Assignee,
		CommentAuthors: p.CommentAuthors,
		IncludeContact: true,
		ViewerID:       viewer,
	})
}

func queryFloat(c *fiber.Ctx, key string, min, max float64) (float64, string) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, "is required"
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, "must be a number"
	}
	if val < min || val > max {
		return 0, "must be between " + strconv.FormatFloat(min, 'f', -1, 64) + " and " + strconv.FormatFloat(max, 'f', -1, 64)
	}
	return val, ""
}
