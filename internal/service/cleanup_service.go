package service

import (
	"context"
	"fmt"
)

// CleanupStore is the storage surface the cleanup sweep needs
type CleanupStore interface {
	HardDeleteOrphanedSurveys(ctx context.Context) (int, error)
	DeactivateSurveysWithInactiveCreators(ctx context.Context) (int, error)
	DeactivateEmptySurveys(ctx context.Context) (int, error)
	DeactivateStaleSurveys(ctx context.Context, maxAgeDays int) (int, error)
	CloseExpiredSurveys(ctx context.Context) (int, error)
	ActivateDueSurveys(ctx context.Context) (int, error)
}

// CleanupReport counts what a sweep touched, per category. Errors lists the
// categories that failed; categories run independently, so earlier actions
// stand even when a later one fails.
type CleanupReport struct {
	OrphanedDeleted            int      `json:"orphanedDeleted"`
	InactiveCreatorDeactivated int      `json:"inactiveCreatorDeactivated"`
	EmptyDeactivated           int      `json:"emptyDeactivated"`
	StaleDeactivated           int      `json:"staleDeactivated"`
	AutoClosed                 int      `json:"autoClosed"`
	AutoActivated              int      `json:"autoActivated"`
	Success                    bool     `json:"success"`
	Errors                     []string `json:"errors,omitempty"`
}

// DefaultStaleAgeDays is used when the caller supplies no age threshold
const DefaultStaleAgeDays = 90

// CleanupService runs the on-demand data-hygiene sweep
type CleanupService struct {
	store CleanupStore
}

// NewCleanupService creates a CleanupService
func NewCleanupService(store CleanupStore) *CleanupService {
	return &CleanupService{store: store}
}

// Sweep scans for the four problem categories (creator-orphaned surveys,
// surveys of deactivated creators, surveys with zero questions, stale
// surveys with zero responses older than maxAgeDays) and performs the two
// routine maintenance transitions (auto-close past end date, auto-activate
// due drafts). Each category is one independent statement.
func (s *CleanupService) Sweep(ctx context.Context, maxAgeDays int) (*CleanupReport, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultStaleAgeDays
	}

	report := &CleanupReport{Success: true}

	run := func(name string, count *int, fn func() (int, error)) {
		n, err := fn()
		if err != nil {
			report.Success = false
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*count = n
	}

	run("orphaned surveys", &report.OrphanedDeleted, func() (int, error) {
		return s.store.HardDeleteOrphanedSurveys(ctx)
	})
	run("inactive creators", &report.InactiveCreatorDeactivated, func() (int, error) {
		return s.store.DeactivateSurveysWithInactiveCreators(ctx)
	})
	run("empty surveys", &report.EmptyDeactivated, func() (int, error) {
		return s.store.DeactivateEmptySurveys(ctx)
	})
	run("stale surveys", &report.StaleDeactivated, func() (int, error) {
		return s.store.DeactivateStaleSurveys(ctx, maxAgeDays)
	})
	run("expired surveys", &report.AutoClosed, func() (int, error) {
		return s.store.CloseExpiredSurveys(ctx)
	})
	run("due drafts", &report.AutoActivated, func() (int, error) {
		return s.store.ActivateDueSurveys(ctx)
	})

	return report, nil
}
