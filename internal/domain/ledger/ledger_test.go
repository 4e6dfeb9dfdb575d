package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billsponsor-app/internal/domain/apperr"
	"billsponsor-app/internal/domain/relationships"
)

type fakeContributionStore struct {
	rows   []relationships.Contribution
	nextID uint
}

func (s *fakeContributionStore) CreateContribution(_ context.Context, c *relationships.Contribution) error {
	s.nextID++
	c.ID = s.nextID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, *c)
	return nil
}

func (s *fakeContributionStore) ContributionsByRelationship(_ context.Context, relationshipID uint, since time.Time) ([]relationships.Contribution, error) {
	var out []relationships.Contribution
	for _, c := range s.rows {
		if c.RelationshipID != relationshipID {
			continue
		}
		if !since.IsZero() && c.CreatedAt.Before(since) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeContributionStore) SetContributionThanked(_ context.Context, contributionID uint) (bool, error) {
	for i := range s.rows {
		if s.rows[i].ID == contributionID {
			s.rows[i].Thanked = true
			return true, nil
		}
	}
	return false, nil
}

func seeded(t *testing.T) (*Ledger, *fakeContributionStore) {
	t.Helper()
	store := &fakeContributionStore{}
	l := New(store)

	entries := []struct {
		at       time.Time
		amount   float64
		category string
	}{
		{time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC), 1000, "rent"},
		{time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC), 500, "utility"},
		{time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC), 250, "rent"},
	}
	for _, e := range entries {
		store.rows = append(store.rows, relationships.Contribution{
			ID:             uint(len(store.rows) + 1),
			RelationshipID: 7,
			Amount:         e.amount,
			SourceID:       1,
			Category:       e.category,
			CreatedAt:      e.at,
		})
		store.nextID++
	}
	return l, store
}

func TestRecordValidation(t *testing.T) {
	l := New(&fakeContributionStore{})

	_, err := l.Record(context.Background(), 7, 0, 1, "rent", "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = l.Record(context.Background(), 7, 100, 1, "", "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestRecordAppends(t *testing.T) {
	store := &fakeContributionStore{}
	l := New(store)

	c, err := l.Record(context.Background(), 7, 300, 42, "health", "get well soon")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
	assert.False(t, c.Thanked)
	require.Len(t, store.rows, 1)
	assert.Equal(t, uint(42), store.rows[0].SourceID)
}

func TestAggregateSince(t *testing.T) {
	l, _ := seeded(t)

	total, err := l.Aggregate(context.Background(), 7, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 750.0, total)

	total, err = l.Aggregate(context.Background(), 7, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1750.0, total)
}

func TestStatsBuckets(t *testing.T) {
	l, _ := seeded(t)

	stats, err := l.StatsFor(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1750.0, stats.Total)
	assert.Equal(t, 1250.0, stats.ByCategory["rent"])
	assert.Equal(t, 500.0, stats.ByCategory["utility"])
	assert.Equal(t, 1000.0, stats.ByMonth["2026-2"])
	assert.Equal(t, 750.0, stats.ByMonth["2026-3"])
}

func TestMarkThanked(t *testing.T) {
	l, store := seeded(t)

	require.NoError(t, l.MarkThanked(context.Background(), 1))
	assert.True(t, store.rows[0].Thanked)

	err := l.MarkThanked(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2026-3", MonthKey(time.Date(2026, time.March, 31, 23, 0, 0, 0, time.UTC)))
	// Month bucketing is UTC on both paths; a late-evening local
	// timestamp lands in the UTC month.
	lagos := time.FixedZone("WAT", 3600)
	assert.Equal(t, "2026-3", MonthKey(time.Date(2026, time.April, 1, 0, 30, 0, 0, lagos)))
}
