package spending

import (
	"fmt"
	"time"

	"billsponsor-app/internal/domain/relationships"
)

// Decision is the outcome of a spending-limit check. A denial is data,
// not an error: the caller decides whether to block the contribution.
type Decision struct {
	Allowed      bool     `json:"allowed"`
	Reason       string   `json:"reason,omitempty"`
	AutoApproved bool     `json:"auto_approved"`
	Warnings     []string `json:"warnings,omitempty"`
}

func allow() Decision          { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// All window math runs in UTC and weeks start on Sunday, matching how
// contributions are stamped on the write path. Changing either side
// alone shifts limit boundaries by up to a day.

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns the most recent Sunday midnight UTC at or before t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// StartOfMonth returns the first of t's month, midnight UTC.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func sumSince(history []relationships.Contribution, since time.Time) float64 {
	var total float64
	for _, c := range history {
		if !c.CreatedAt.UTC().Before(since) {
			total += c.Amount
		}
	}
	return total
}

// Evaluate decides whether a proposed contribution is allowed under the
// relationship's spending control, and whether it qualifies for
// auto-approval. Pure: the caller fetches the control and the
// contribution history (anything at or after start of month is enough).
//
// Checks run per-request first, then daily, weekly, monthly; the first
// window that would be exceeded wins. Evaluation is advisory at decision
// time: a concurrent contribution through the same relationship can
// still land first, and that small over-limit window is accepted rather
// than serializing contributions.
func Evaluate(control *relationships.SpendingControl, amount float64, history []relationships.Contribution, now time.Time) Decision {
	if control == nil || !control.IsActive {
		return allow()
	}

	if control.PerRequestLimit != nil && amount > *control.PerRequestLimit {
		return deny(fmt.Sprintf("amount exceeds per request limit of %.2f", *control.PerRequestLimit))
	}

	windows := []struct {
		name  string
		limit *float64
		spent float64
	}{
		{"daily", control.DailyLimit, sumSince(history, StartOfDay(now))},
		{"weekly", control.WeeklyLimit, sumSince(history, StartOfWeek(now))},
		{"monthly", control.MonthlyLimit, sumSince(history, StartOfMonth(now))},
	}

	for _, w := range windows {
		if w.limit == nil {
			continue
		}
		if w.spent+amount > *w.limit {
			return deny(fmt.Sprintf("amount would exceed %s limit of %.2f", w.name, *w.limit))
		}
	}

	decision := allow()

	if control.NotifyOnApproach {
		pct := control.ApproachPercentage
		if pct >= 1 && pct <= 99 {
			for _, w := range windows {
				if w.limit == nil {
					continue
				}
				threshold := *w.limit * float64(pct) / 100
				if w.spent+amount >= threshold {
					decision.Warnings = append(decision.Warnings,
						fmt.Sprintf("approaching %s limit: %.2f of %.2f after this contribution", w.name, w.spent+amount, *w.limit))
				}
			}
		}
	}

	// Auto-approval only skips the manual confirmation step; it never
	// overrides the checks above.
	if control.AutoApproveLimit != nil && amount <= *control.AutoApproveLimit {
		decision.AutoApproved = true
	}

	return decision
}
