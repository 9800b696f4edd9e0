package triage

import (
	"fmt"
	"math"
	"strings"
)

// Urgency scores run 1 (routine) to 5 (immediate). The score only
// ever ratchets upward as signals accumulate.
const (
	UrgencyMin = 1
	UrgencyMax = 5
)

// Urgency is the computed priority for a matter plus the reasons that
// produced it.
type Urgency struct {
	Score     int    `json:"urgency_score"`
	Rationale string `json:"urgency_rationale"`
}

// UrgencyInput carries the signals urgency scoring considers.
type UrgencyInput struct {
	// Hint is an optional caller-provided urgency, clamped into range.
	Hint *float64
	// DaysToDeadline is the limitation window, when known.
	DaysToDeadline *int
	// Category is the matter category code.
	Category string
}

// ComputeUrgency derives an urgency score from the provided signals.
// Signals never lower the score below an earlier signal's floor.
func ComputeUrgency(in UrgencyInput) Urgency {
	score := UrgencyMin
	var reasons []string

	if in.Hint != nil {
		hinted := int(math.Round(*in.Hint))
		if hinted < UrgencyMin {
			hinted = UrgencyMin
		}
		if hinted > UrgencyMax {
			hinted = UrgencyMax
		}
		score = hinted
		reasons = append(reasons, "Provided urgency_hint")
	}

	if in.DaysToDeadline != nil {
		switch {
		case *in.DaysToDeadline <= 30:
			if score < 5 {
				score = 5
			}
			reasons = append(reasons, fmt.Sprintf("SOL in %d days", *in.DaysToDeadline))
		case *in.DaysToDeadline <= 90:
			if score < 4 {
				score = 4
			}
			reasons = append(reasons, fmt.Sprintf("SOL in %d days", *in.DaysToDeadline))
		}
	}

	switch in.Category {
	case "MEDICAL", "WORKLOSS":
		if score < 3 {
			score = 3
		}
		reasons = append(reasons, "Scenario weighting")
	}

	return Urgency{
		Score:     score,
		Rationale: strings.Join(reasons, "; "),
	}
}
