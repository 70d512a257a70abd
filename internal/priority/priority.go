// Package priority converts raw case attributes into a deterministic
// priority score and tier.
package priority

import (
	"fmt"
	"math"
)

// Tiers, coarsest to finest urgency.
const (
	TierNormal   = "NORMAL"
	TierHigh     = "HIGH"
	TierCritical = "CRITICAL"
)

const (
	// DefaultUrgency applies when no urgency score was supplied.
	DefaultUrgency = 5

	maxAgePoints         = 40
	maxAdjournmentPoints = 30
	maxScore             = 100
)

// Input holds the case attributes the scorer reads. A nil UrgencyScore
// means "not supplied" and falls back to DefaultUrgency.
type Input struct {
	FilingAgeYears   float64
	UrgencyScore     *int
	AdjournmentCount int
	HasSeniorCitizen bool
	HasMinor         bool
	HealthEmergency  bool
}

// Breakdown reports the individual score components.
type Breakdown struct {
	AgePoints         float64 `json:"age_points"`
	UrgencyPoints     float64 `json:"urgency_points"`
	AdjournmentPoints float64 `json:"adjournment_points"`
	SocialBonus       float64 `json:"social_bonus"`
}

// Result is the scored outcome. Score is capped at 100; Tier reflects the
// uncapped total so a case can report CRITICAL while displaying 100.
type Result struct {
	Score     float64   `json:"score"`
	Tier      string    `json:"tier" enum:"NORMAL,HIGH,CRITICAL"`
	Breakdown Breakdown `json:"breakdown"`
}

// Score computes the priority of a case. Pure and deterministic: identical
// input always yields identical output. Out-of-domain input is rejected, not
// silently corrected.
func Score(in Input) (Result, error) {
	if in.FilingAgeYears < 0 {
		return Result{}, fmt.Errorf("filing age years must be non-negative, got %v", in.FilingAgeYears)
	}
	if in.AdjournmentCount < 0 {
		return Result{}, fmt.Errorf("adjournment count must be non-negative, got %d", in.AdjournmentCount)
	}
	urgency := DefaultUrgency
	if in.UrgencyScore != nil {
		urgency = *in.UrgencyScore
		if urgency < 1 || urgency > 10 {
			return Result{}, fmt.Errorf("urgency score must be in [1,10], got %d", urgency)
		}
	}

	age := math.Min(in.FilingAgeYears*4, maxAgePoints)
	urgencyPoints := float64(urgency) * 3
	adjournment := math.Min(float64(in.AdjournmentCount)*3, maxAdjournmentPoints)

	var social float64
	if in.HasSeniorCitizen {
		social += 10
	}
	if in.HasMinor {
		social += 5
	}
	if in.HealthEmergency {
		social += 15
	}

	total := age + urgencyPoints + adjournment + social
	return Result{
		Score: math.Min(math.Round(total*10)/10, maxScore),
		Tier:  tierFor(total),
		Breakdown: Breakdown{
			AgePoints:         age,
			UrgencyPoints:     urgencyPoints,
			AdjournmentPoints: adjournment,
			SocialBonus:       social,
		},
	}, nil
}

// tierFor buckets the pre-clamp total: the cap is a display limit, not a
// signal limit.
func tierFor(total float64) string {
	switch {
	case total >= 75:
		return TierCritical
	case total >= 50:
		return TierHigh
	default:
		return TierNormal
	}
}
