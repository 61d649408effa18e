package service

import (
	"context"
	"sort"

	"github.com/spec-kit/civic-reporter/internal/domain"
	"github.com/spec-kit/civic-reporter/internal/repository"
)

// StatsService aggregates dashboard counters over the whole issue set.
// Results are recomputed on every call.
type StatsService struct {
	issues repository.IssueRepository
}

// NewStatsService constructs the service.
func NewStatsService(issues repository.IssueRepository) *StatsService {
	return &StatsService{issues: issues}
}

// GetStats returns total and per-status counts. An empty set yields zeros.
func (s *StatsService) GetStats(ctx context.Context) (domain.IssueStats, error) {
	counts, err := s.issues.CountByStatus(ctx)
	if err != nil {
		return domain.IssueStats{}, err
	}
	var stats domain.IssueStats
	for _, row := range counts {
		stats.TotalIssues += row.Count
		switch row.Status {
		case domain.IssueStatusResolved:
			stats.ResolvedIssues += row.Count
		case domain.IssueStatusPending:
			stats.PendingIssues += row.Count
		case domain.IssueStatusInProgress:
			stats.InProgressIssues += row.Count
		}
	}
	return stats, nil
}

// GetCategoryStats returns issue counts per category, largest first.
func (s *StatsService) GetCategoryStats(ctx context.Context) ([]domain.CategoryCount, error) {
	counts, err := s.issues.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = []domain.CategoryCount{}
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts, nil
}
