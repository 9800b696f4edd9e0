package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatp(v float64) *float64 { return &v }

func TestComputeUrgency_Baseline(t *testing.T) {
	out := ComputeUrgency(UrgencyInput{Category: "OTHER"})

	assert.Equal(t, 1, out.Score)
	assert.Empty(t, out.Rationale)
}

func TestComputeUrgency_HintClampedAndRounded(t *testing.T) {
	cases := []struct {
		name string
		hint float64
		want int
	}{
		{"below range", 0, 1},
		{"negative", -3, 1},
		{"rounds up", 3.6, 4},
		{"rounds down", 3.4, 3},
		{"above range", 9, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ComputeUrgency(UrgencyInput{Hint: floatp(tc.hint)})
			assert.Equal(t, tc.want, out.Score)
			assert.Equal(t, "Provided urgency_hint", out.Rationale)
		})
	}
}

func TestComputeUrgency_DeadlinePressure(t *testing.T) {
	out := ComputeUrgency(UrgencyInput{DaysToDeadline: intp(90)})
	assert.Equal(t, 4, out.Score)
	assert.Equal(t, "SOL in 90 days", out.Rationale)

	out = ComputeUrgency(UrgencyInput{DaysToDeadline: intp(14)})
	assert.Equal(t, 5, out.Score)
	assert.Equal(t, "SOL in 14 days", out.Rationale)

	// Comfortable windows contribute nothing.
	out = ComputeUrgency(UrgencyInput{DaysToDeadline: intp(200)})
	assert.Equal(t, 1, out.Score)
	assert.Empty(t, out.Rationale)
}

func TestComputeUrgency_CategoryFloor(t *testing.T) {
	out := ComputeUrgency(UrgencyInput{Category: "MEDICAL"})
	assert.Equal(t, 3, out.Score)
	assert.Equal(t, "Scenario weighting", out.Rationale)

	out = ComputeUrgency(UrgencyInput{Category: "WORKLOSS"})
	assert.Equal(t, 3, out.Score)

	// Category never lowers a higher score from another signal.
	out = ComputeUrgency(UrgencyInput{Category: "MEDICAL", DaysToDeadline: intp(10)})
	assert.Equal(t, 5, out.Score)
	assert.Equal(t, "SOL in 10 days; Scenario weighting", out.Rationale)
}

func TestComputeUrgency_SignalsAccumulate(t *testing.T) {
	out := ComputeUrgency(UrgencyInput{
		Hint:           floatp(2),
		DaysToDeadline: intp(45),
		Category:       "WORKLOSS",
	})

	assert.Equal(t, 4, out.Score)
	assert.Equal(t, "Provided urgency_hint; SOL in 45 days; Scenario weighting", out.Rationale)
}
