// Package triage computes statute-of-limitations deadlines and urgency
// scores for incoming matters. All functions are pure so they can run
// inside ingestion transactions and in the knowledge compiler alike.
package triage

import (
	"math"
	"time"
)

// DefaultLimitationYears is applied when a matter has no explicit
// deadline and only an incident date is known.
const DefaultLimitationYears = 3

// RiskBadge buckets a deadline into an operator-facing severity.
type RiskBadge string

const (
	RiskHigh   RiskBadge = "HIGH"
	RiskMedium RiskBadge = "MEDIUM"
	RiskLow    RiskBadge = "LOW"
)

// Deadline is the computed limitation state for a matter.
type Deadline struct {
	Date          *time.Time `json:"sol_date,omitempty"`
	DaysRemaining *int       `json:"days_to_sol,omitempty"`
	Within        bool       `json:"within_sol"`
}

// ComputeDeadline resolves the limitation deadline for a matter.
// An explicit deadline always wins. Otherwise the incident date plus
// the default limitation period is used. With neither date known the
// matter is treated as within limitation and no deadline is reported.
//
// Days remaining are counted from the start of today, rounding up, so
// a deadline at today's midnight reports zero days, any later instant
// today reports one, and a deadline yesterday reports minus one.
// Negative values are valid and mean the window has lapsed.
func ComputeDeadline(explicit, incident *time.Time, now time.Time) Deadline {
	var deadline *time.Time
	switch {
	case explicit != nil:
		d := *explicit
		deadline = &d
	case incident != nil:
		d := incident.AddDate(DefaultLimitationYears, 0, 0)
		deadline = &d
	default:
		return Deadline{Within: true}
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(math.Ceil(deadline.Sub(midnight).Seconds() / 86400))

	return Deadline{
		Date:          deadline,
		DaysRemaining: &days,
		Within:        days >= 0,
	}
}

// Badge maps days remaining to a risk badge. Unknown deadlines are
// treated as low risk.
func Badge(daysRemaining *int) RiskBadge {
	if daysRemaining == nil {
		return RiskLow
	}
	switch {
	case *daysRemaining <= 30:
		return RiskHigh
	case *daysRemaining <= 90:
		return RiskMedium
	default:
		return RiskLow
	}
}
