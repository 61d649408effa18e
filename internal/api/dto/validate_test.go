package dto

import (
	"encoding/json"
	"testing"

	"github.com/spec-kit/civic-reporter/internal/domain"
)

func float(v float64) *float64 { return &v }

func validCreate() CreateIssueRequest {
	return CreateIssueRequest{
		Title:       "Broken streetlight",
		Description: "The lamp on the corner has been out for a week.",
		Category:    domain.CategoryStreetlight,
		Location: LocationRequest{
			Address:     "5 Elm St",
			Coordinates: CoordinatesRequest{Latitude: float(51.5), Longitude: float(-0.12)},
		},
	}
}

func TestValidateCreateIssue(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateIssueRequest)
		field  string
	}{
		{"valid", func(*CreateIssueRequest) {}, ""},
		{"short title", func(r *CreateIssueRequest) { r.Title = "abc" }, "title"},
		{"short description", func(r *CreateIssueRequest) { r.Description = "short" }, "description"},
		{"unknown category", func(r *CreateIssueRequest) { r.Category = "volcano" }, "category"},
		{"client category", func(r *CreateIssueRequest) { r.Category = domain.CategoryParks }, ""},
		{"bad priority", func(r *CreateIssueRequest) { r.Priority = "critical" }, "priority"},
		{"missing address", func(r *CreateIssueRequest) { r.Location.Address = "" }, "location.address"},
		{"missing latitude", func(r *CreateIssueRequest) { r.Location.Coordinates.Latitude = nil }, "location.coordinates.latitude"},
		{"latitude out of range", func(r *CreateIssueRequest) { r.Location.Coordinates.Latitude = float(91) }, "location.coordinates.latitude"},
		{"longitude out of range", func(r *CreateIssueRequest) { r.Location.Coordinates.Longitude = float(-181) }, "location.coordinates.longitude"},
		{"zero coordinates allowed", func(r *CreateIssueRequest) {
			r.Location.Coordinates = CoordinatesRequest{Latitude: float(0), Longitude: float(0)}
		}, ""},
		{"bad image url", func(r *CreateIssueRequest) { r.Images = []ImageRequest{{URL: "nope", PublicID: "x"}} }, "images[0].url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(&req)
			req.Normalize()
			errs, err := Validate(&req)
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if tt.field == "" {
				if errs != nil {
					t.Fatalf("expected valid, got %v", errs)
				}
				return
			}
			if _, ok := errs[tt.field]; !ok {
				t.Fatalf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestNormalizeTrimsBeforeLengthCheck(t *testing.T) {
	req := validCreate()
	req.Title = "   abc    "
	req.Normalize()
	errs, _ := Validate(&req)
	if _, ok := errs["title"]; !ok {
		t.Fatalf("padded short title must fail, got %v", errs)
	}
}

func TestValidateComment(t *testing.T) {
	req := CommentRequest{Content: "    "}
	req.Normalize()
	errs, _ := Validate(&req)
	if errs["content"] != "is required" {
		t.Fatalf("expected required error, got %v", errs)
	}

	long := make([]byte, 301)
	for i := range long {
		long[i] = 'a'
	}
	req = CommentRequest{Content: string(long)}
	errs, _ = Validate(&req)
	if _, ok := errs["content"]; !ok {
		t.Fatalf("expected max length error")
	}
}

func TestValidateListQueryAcceptsAll(t *testing.T) {
	q := ListIssuesQuery{Category: "all", Status: "in-progress", Priority: "all", Sort: "upvotes"}
	if errs, _ := Validate(&q); errs != nil {
		t.Fatalf("expected valid query, got %v", errs)
	}
	if q.CategoryFilter() != nil || q.PriorityFilter() != nil {
		t.Fatalf("all must disable the filter")
	}
	if s := q.StatusFilter(); s == nil || *s != domain.IssueStatusInProgress {
		t.Fatalf("expected in-progress filter")
	}

	bad := ListIssuesQuery{Status: "closed", Sort: "random"}
	errs, _ := Validate(&bad)
	if _, ok := errs["status"]; !ok {
		t.Fatalf("expected status error, got %v", errs)
	}
	if _, ok := errs["sort"]; !ok {
		t.Fatalf("expected sort error, got %v", errs)
	}
}

func TestUpdateRequestToPatch(t *testing.T) {
	req := UpdateIssueRequest{}
	if !req.ToPatch().IsEmpty() {
		t.Fatalf("empty request must produce an empty patch")
	}
	req.Tags = []string{}
	patch := req.ToPatch()
	if patch.Tags == nil || len(*patch.Tags) != 0 {
		t.Fatalf("present empty tags must clear tags")
	}
}

func TestValidateAssign(t *testing.T) {
	bad := "not-a-uuid"
	days := 400
	errs, _ := Validate(&AssignIssueRequest{AssigneeID: &bad, EstimatedResolutionTime: &days})
	if _, ok := errs["assigneeId"]; !ok {
		t.Fatalf("expected assignee error, got %v", errs)
	}
	if _, ok := errs["estimatedResolutionTime"]; !ok {
		t.Fatalf("expected estimate error, got %v", errs)
	}
	if errs, _ := Validate(&AssignIssueRequest{}); errs != nil {
		t.Fatalf("clearing assignment must be valid, got %v", errs)
	}
}

func TestAssignRequestDistinguishesNullFromMissing(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantUnassign bool
		wantAssignee bool
		wantEstimate bool
	}{
		{name: "estimate only", body: `{"estimatedResolutionTime":7}`, wantEstimate: true},
		{name: "explicit null", body: `{"assigneeId":null}`, wantUnassign: true},
		{name: "null with estimate", body: `{"assigneeId":null,"estimatedResolutionTime":3}`, wantUnassign: true, wantEstimate: true},
		{name: "assignee", body: `{"assigneeId":"6f1c2b1e-4b7a-4f55-9a77-0c3c2f0b5d11"}`, wantAssignee: true},
		{name: "empty", body: `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req AssignIssueRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got := req.ToAssignment()
			if got.Unassign != tt.wantUnassign {
				t.Fatalf("unassign = %v, want %v", got.Unassign, tt.wantUnassign)
			}
			if (got.AssigneeID != nil) != tt.wantAssignee {
				t.Fatalf("assignee = %v, want set=%v", got.AssigneeID, tt.wantAssignee)
			}
			if (got.EstimatedDays != nil) != tt.wantEstimate {
				t.Fatalf("estimate = %v, want set=%v", got.EstimatedDays, tt.wantEstimate)
			}
		})
	}
}
