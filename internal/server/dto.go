package server

import (
	"docketline/internal/adr"
	"docketline/internal/domain"
	"docketline/internal/engine"
	"docketline/internal/predict"
	"docketline/internal/priority"
)

// Request payloads

type CreateCaseRequest struct {
	ID               *string  `json:"id,omitempty"`
	Title            string   `json:"title"`
	Type             string   `json:"type"`
	FilingDate       string   `json:"filing_date" format:"date"`
	UrgencyScore     *int     `json:"urgency_score,omitempty" minimum:"1" maximum:"10"`
	HasSeniorCitizen bool     `json:"has_senior_citizen,omitempty"`
	HasMinor         bool     `json:"has_minor,omitempty"`
	HealthEmergency  bool     `json:"health_emergency,omitempty"`
	ClaimAmount      *float64 `json:"claim_amount,omitempty"`
	CounselID        *string  `json:"counsel_id,omitempty"`
}

type AdjournCaseRequest struct {
	Reason string `json:"reason,omitempty"`
}

type DisposeCaseRequest struct {
	Outcome string `json:"outcome,omitempty"`
}

type PriorityInsightRequest struct {
	FilingAgeYears   float64 `json:"filing_age_years" minimum:"0"`
	UrgencyScore     *int    `json:"urgency_score,omitempty"`
	AdjournmentCount int     `json:"adjournment_count,omitempty"`
	HasSeniorCitizen bool    `json:"has_senior_citizen,omitempty"`
	HasMinor         bool    `json:"has_minor,omitempty"`
	HealthEmergency  bool    `json:"health_emergency,omitempty"`
}

type ADRInsightRequest struct {
	Type        string   `json:"type"`
	ClaimAmount *float64 `json:"claim_amount,omitempty"`
}

type ResolutionInsightRequest struct {
	Type             string `json:"type"`
	AdjournmentCount int    `json:"adjournment_count,omitempty"`
	UrgencyScore     int    `json:"urgency_score,omitempty"`
}

// NoShowInsightRequest evaluates either a stored counsel record (by id) or
// an inline history.
type NoShowInsightRequest struct {
	CounselID     *string  `json:"counsel_id,omitempty"`
	AbsenceRate   *float64 `json:"absence_rate,omitempty"`
	RecentNoShows *int     `json:"recent_no_shows,omitempty"`
}

type AutoScheduleRequest struct {
	MaxBatch int `json:"max_batch,omitempty" minimum:"0"`
}

// Response payloads

// CaseInsights bundles the advisory computations for one case.
type CaseInsights struct {
	Priority   priority.Result          `json:"priority"`
	ADR        adr.Result               `json:"adr"`
	Resolution predict.ResolutionResult `json:"resolution"`
	NoShow     *predict.NoShowResult    `json:"no_show,omitempty"`
}

type CaseDetailResponse struct {
	Case     domain.Case      `json:"case"`
	Hearings []domain.Hearing `json:"hearings"`
	Insights CaseInsights     `json:"insights"`
}

type CaseListResponse struct {
	Items []domain.Case `json:"items"`
	Count int           `json:"count"`
}

type HearingListResponse struct {
	Items []domain.Hearing `json:"items"`
	Count int              `json:"count"`
}

type AutoScheduleResponse struct {
	ScheduledCount int                 `json:"scheduled_count"`
	Hearings       []engine.Allocation `json:"hearings"`
}

func mapCases(items []domain.Case) []domain.Case {
	if items == nil {
		return []domain.Case{}
	}
	return items
}

func mapHearings(items []domain.Hearing) []domain.Hearing {
	if items == nil {
		return []domain.Hearing{}
	}
	return items
}
