package meal

import (
	"context"
	"fmt"
	"time"
)

// FreeTierMonthlyLimit caps analyses per calendar month for free users.
const FreeTierMonthlyLimit = 3

// ErrQuotaExceeded is returned when a free-tier user has used up the
// current month's analyses.
var ErrQuotaExceeded = fmt.Errorf("free tier monthly analysis limit reached")

// AnalysisCounter counts existing analyses for the quota check.
type AnalysisCounter interface {
	CountAnalysesSince(ctx context.Context, ownerID string, since time.Time) (int, error)
}

// QuotaGate decides whether a new analysis may proceed for a user. The
// check counts persisted analyses and is not atomic with the later insert:
// two requests racing at the boundary can both pass. That best-effort
// behavior is intentional; callers must not rely on a strict cap.
type QuotaGate struct {
	counter AnalysisCounter
}

// NewQuotaGate creates a QuotaGate backed by counter.
func NewQuotaGate(counter AnalysisCounter) *QuotaGate {
	return &QuotaGate{counter: counter}
}

// Check returns ErrQuotaExceeded if ownerID with the given subscription may
// not run another analysis at time now. Premium users are unbounded.
func (g *QuotaGate) Check(ctx context.Context, ownerID, subscription string, now time.Time) error {
	if subscription != "free" {
		return nil
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	count, err := g.counter.CountAnalysesSince(ctx, ownerID, monthStart)
	if err != nil {
		return fmt.Errorf("failed to count analyses for quota: %w", err)
	}
	if count >= FreeTierMonthlyLimit {
		return ErrQuotaExceeded
	}
	return nil
}
