package ledger

import (
	"context"
	"fmt"
	"time"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/relationships"
)

// Store is the persistence surface the ledger needs. Writes are
// append-only; nothing here updates or deletes a contribution row.
type Store interface {
	CreateContribution(ctx context.Context, c *relationships.Contribution) error
	ContributionsByRelationship(ctx context.Context, relationshipID uint, since time.Time) ([]relationships.Contribution, error)
	SetContributionThanked(ctx context.Context, contributionID uint) (bool, error)
}

// Stats summarizes a relationship's full contribution history. Month
// keys are "<year>-<month>" in UTC, e.g. "2026-3".
type Stats struct {
	Total      float64            `json:"total"`
	ByCategory map[string]float64 `json:"by_category"`
	ByMonth    map[string]float64 `json:"by_month"`
}

// Ledger is the append-only contribution record for a relationship, and
// the source of truth spending-limit checks aggregate over.
type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// Record appends a contribution. Existing entries are never touched;
// the history doubles as the audit trail for limit checks and thank-you
// flows.
func (l *Ledger) Record(ctx context.Context, relationshipID uint, amount float64, sourceID uint, category, message string) (*relationships.Contribution, error) {
	if amount <= 0 {
		return nil, apperr.Validation("contribution amount must be greater than zero")
	}
	if category == "" {
		return nil, apperr.Validation("contribution category is required")
	}
	c := &relationships.Contribution{
		RelationshipID: relationshipID,
		Amount:         amount,
		SourceID:       sourceID,
		Category:       category,
		Message:        message,
	}
	if err := l.store.CreateContribution(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Aggregate sums contributions recorded at or after since.
func (l *Ledger) Aggregate(ctx context.Context, relationshipID uint, since time.Time) (float64, error) {
	contributions, err := l.store.ContributionsByRelationship(ctx, relationshipID, since)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, c := range contributions {
		total += c.Amount
	}
	return total, nil
}

// Window returns the raw contributions needed for a spending-limit
// evaluation (everything since start of month covers all three windows).
func (l *Ledger) Window(ctx context.Context, relationshipID uint, since time.Time) ([]relationships.Contribution, error) {
	return l.store.ContributionsByRelationship(ctx, relationshipID, since)
}

// StatsFor computes total / by-category / by-month aggregates over the
// full history.
func (l *Ledger) StatsFor(ctx context.Context, relationshipID uint) (*Stats, error) {
	contributions, err := l.store.ContributionsByRelationship(ctx, relationshipID, time.Time{})
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		ByCategory: map[string]float64{},
		ByMonth:    map[string]float64{},
	}
	for _, c := range contributions {
		stats.Total += c.Amount
		stats.ByCategory[c.Category] += c.Amount
		stats.ByMonth[MonthKey(c.CreatedAt)] += c.Amount
	}
	return stats, nil
}

// MarkThanked flips the thanked flag, the one mutation the ledger allows.
func (l *Ledger) MarkThanked(ctx context.Context, contributionID uint) error {
	found, err := l.store.SetContributionThanked(ctx, contributionID)
	if err != nil {
		return err
	}
	if !found {
		return apperr.NotFound("contribution")
	}
	return nil
}

// MonthKey buckets a timestamp as "<year>-<month>" in UTC. Read and
// write paths must agree on the timezone or month boundaries drift by a
// day.
func MonthKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month()))
}
