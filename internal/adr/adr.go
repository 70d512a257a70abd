// Package adr evaluates alternative-dispute-resolution eligibility and the
// projected benefit of resolving a case out of court.
package adr

import (
	"math"

	"docketline/internal/config"
)

// ADR tracks.
const (
	TrackMediation            = "mediation"
	TrackArbitration          = "arbitration"
	TrackLokAdalat            = "lok_adalat"
	TrackFamilyCourtMediation = "family_court_mediation"
)

const (
	defaultCourtTimelineDays  = 730
	defaultSuccessProbability = 0.70
	ineligibleReason          = "Criminal matters or specific case types are not suitable for ADR."
)

// Tables is the immutable lookup configuration the evaluator is built with.
type Tables struct {
	EligibleTypes     map[string]bool
	ClaimThreshold    float64
	SuccessRates      map[string]float64
	CourtTimelineDays map[string]int
	ADRTimelineDays   map[string]int
}

// Evaluator applies the eligibility gate, track selection and benefit
// calculation. Safe for concurrent use; it never mutates its tables.
type Evaluator struct {
	tables Tables
}

// CaseFacts are the only case attributes the evaluator reads.
type CaseFacts struct {
	Type        string
	ClaimAmount float64
}

type Benefits struct {
	CourtTimelineDays   int    `json:"court_timeline_days"`
	ADRTimelineDays     int    `json:"adr_timeline_days"`
	TimeSavedDays       int    `json:"time_saved_days"`
	TimeSavedPercentage int    `json:"time_saved_percentage"`
	EmotionalBenefit    string `json:"emotional_benefit"`
}

type Result struct {
	Eligible              bool      `json:"eligible"`
	Reason                string    `json:"reason,omitempty"`
	Track                 string    `json:"track,omitempty" enum:"mediation,arbitration,lok_adalat,family_court_mediation"`
	EstimatedTimelineDays int       `json:"estimated_timeline_days,omitempty"`
	SuccessProbability    float64   `json:"success_probability,omitempty"`
	Benefits              *Benefits `json:"benefits,omitempty"`
}

// New builds an evaluator from the config tables.
func New(cfg *config.Config) Evaluator {
	eligible := make(map[string]bool, len(cfg.ADR.EligibleTypes))
	for _, t := range cfg.ADR.EligibleTypes {
		eligible[t] = true
	}
	return Evaluator{tables: Tables{
		EligibleTypes:     eligible,
		ClaimThreshold:    cfg.ADR.ClaimThreshold,
		SuccessRates:      cfg.ADR.SuccessRates,
		CourtTimelineDays: cfg.ADR.CourtTimelineDays,
		ADRTimelineDays:   cfg.ADR.ADRTimelineDays,
	}}
}

// Evaluate runs the gate, picks a track and computes benefits. Pure: same
// type and claim amount always produce the same result.
func (e Evaluator) Evaluate(facts CaseFacts) Result {
	if !e.tables.EligibleTypes[facts.Type] {
		return Result{Eligible: false, Reason: ineligibleReason}
	}
	track := e.track(facts)
	benefits := e.benefits(facts.Type, track)
	successRate, ok := e.tables.SuccessRates[facts.Type]
	if !ok {
		successRate = defaultSuccessProbability
	}
	return Result{
		Eligible:              true,
		Track:                 track,
		EstimatedTimelineDays: e.tables.ADRTimelineDays[track],
		SuccessProbability:    successRate,
		Benefits:              &benefits,
	}
}

// track selects the ADR track, first match wins.
func (e Evaluator) track(facts CaseFacts) string {
	switch {
	case facts.Type == "Family":
		return TrackFamilyCourtMediation
	case facts.Type == "Motor Accident":
		return TrackLokAdalat
	case facts.ClaimAmount > e.tables.ClaimThreshold:
		return TrackArbitration
	default:
		return TrackMediation
	}
}

func (e Evaluator) benefits(caseType, track string) Benefits {
	courtDays, ok := e.tables.CourtTimelineDays[caseType]
	if !ok {
		courtDays = defaultCourtTimelineDays
	}
	adrDays := e.tables.ADRTimelineDays[track]
	saved := courtDays - adrDays
	return Benefits{
		CourtTimelineDays:   courtDays,
		ADRTimelineDays:     adrDays,
		TimeSavedDays:       saved,
		TimeSavedPercentage: int(math.Round(float64(saved) / float64(courtDays) * 100)),
		EmotionalBenefit:    "Reduced stress and confidential proceedings",
	}
}
