package service

import (
	"context"
	"testing"

	"github.com/spec-kit/civic-reporter/internal/domain"
	"github.com/spec-kit/civic-reporter/internal/repository/repotest"
)

func TestGetStatsEmpty(t *testing.T) {
	svc := NewStatsService(repotest.NewIssueStore())
	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats != (domain.IssueStats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
	categories, err := svc.GetCategoryStats(context.Background())
	if err != nil {
		t.Fatalf("category stats: %v", err)
	}
	if categories == nil || len(categories) != 0 {
		t.Fatalf("expected empty non-nil category stats, got %v", categories)
	}
}

func TestGetStatsCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	official := actor(f.admin, domain.RoleAdmin)

	ids := make([]string, 0, 6)
	for _, category := range []domain.Category{
		domain.CategoryPothole, domain.CategoryPothole, domain.CategoryPothole,
		domain.CategoryWater, domain.CategoryWater, domain.CategoryTraffic,
	} {
		ids = append(ids, f.create(t, category).Issue.ID)
	}
	transitions := map[string]domain.IssueStatus{
		ids[0]: domain.IssueStatusResolved,
		ids[1]: domain.IssueStatusInProgress,
		ids[2]: domain.IssueStatusInProgress,
		ids[3]: domain.IssueStatusRejected,
	}
	for id, status := range transitions {
		if _, err := f.svc.UpdateStatus(ctx, id, official, status, nil); err != nil {
			t.Fatalf("update status: %v", err)
		}
	}

	svc := NewStatsService(f.issues)
	stats, err := svc.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := domain.IssueStats{TotalIssues: 6, ResolvedIssues: 1, PendingIssues: 2, InProgressIssues: 2}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}

	categories, err := svc.GetCategoryStats(ctx)
	if err != nil {
		t.Fatalf("category stats: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %v", categories)
	}
	if categories[0].Category != domain.CategoryPothole || categories[0].Count != 3 {
		t.Fatalf("expected pothole first, got %+v", categories[0])
	}
	for i := 1; i < len(categories); i++ {
		if categories[i].Count > categories[i-1].Count {
			t.Fatalf("expected descending counts, got %v", categories)
		}
	}
}
