package main

import (
	"docketline/internal/adr"
	"docketline/internal/engine"
	"docketline/internal/predict"
	"docketline/internal/priority"
)

type priorityInput struct {
	ageYears     float64
	urgency      int
	adjournments int
	senior       bool
	minor        bool
	health       bool
}

func priorityScore(in priorityInput, urgency *int) (priority.Result, error) {
	return priority.Score(priority.Input{
		FilingAgeYears:   in.ageYears,
		UrgencyScore:     urgency,
		AdjournmentCount: in.adjournments,
		HasSeniorCitizen: in.senior,
		HasMinor:         in.minor,
		HealthEmergency:  in.health,
	})
}

func adrEvaluate(e engine.Engine, caseType string, claim *float64) adr.Result {
	facts := adr.CaseFacts{Type: caseType}
	if claim != nil {
		facts.ClaimAmount = *claim
	}
	return adr.New(e.Config).Evaluate(facts)
}

func resolutionPredict(e engine.Engine, caseType string, adjournments, urgency int) (predict.ResolutionResult, error) {
	return predict.New(e.Config).Resolution(predict.CaseFacts{
		Type:             caseType,
		AdjournmentCount: adjournments,
		UrgencyScore:     urgency,
	})
}

func noShowPredict(absenceRate float64, recentNoShows int) (predict.NoShowResult, error) {
	return predict.NoShow(predict.History{
		AbsenceRate:   absenceRate,
		RecentNoShows: recentNoShows,
	})
}
