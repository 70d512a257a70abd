// Package predict estimates resolution horizons for cases and no-show risk
// for counsel. The models are fixed formulas, not learned parameters.
package predict

import (
	"fmt"
	"math"
	"time"

	"docketline/internal/config"
)

// Risk levels shared by both predictions.
const (
	RiskLow    = "LOW"
	RiskMedium = "MEDIUM"
	RiskHigh   = "HIGH"
	RiskNormal = "NORMAL"
)

const (
	recommendHighRisk = "Suggest alternate counsel or virtual appearance"
	recommendDefault  = "Send automated reminder"
)

// History is a counsel's appearance record.
type History struct {
	AbsenceRate   float64
	RecentNoShows int
}

type NoShowResult struct {
	Probability    float64 `json:"probability"`
	RiskLevel      string  `json:"risk_level" enum:"LOW,MEDIUM,HIGH"`
	Recommendation string  `json:"recommendation"`
}

// NoShow runs a logistic transform over the counsel history:
// z = -2.5 + 5*absenceRate + 1.5*recentNoShows.
func NoShow(h History) (NoShowResult, error) {
	if h.AbsenceRate < 0 || h.AbsenceRate > 1 {
		return NoShowResult{}, fmt.Errorf("absence rate must be in [0,1], got %v", h.AbsenceRate)
	}
	if h.RecentNoShows < 0 {
		return NoShowResult{}, fmt.Errorf("recent no-shows must be non-negative, got %d", h.RecentNoShows)
	}
	z := -2.5 + h.AbsenceRate*5 + float64(h.RecentNoShows)*1.5
	probability := 1 / (1 + math.Exp(-z))

	level := RiskLow
	recommendation := recommendDefault
	switch {
	case probability > 0.6:
		level = RiskHigh
		recommendation = recommendHighRisk
	case probability > 0.3:
		level = RiskMedium
	}
	return NoShowResult{
		Probability:    math.Round(probability*100) / 100,
		RiskLevel:      level,
		Recommendation: recommendation,
	}, nil
}

// CaseFacts are the attributes the resolution predictor reads.
type CaseFacts struct {
	Type             string
	AdjournmentCount int
	UrgencyScore     int
}

type ResolutionResult struct {
	PredictedDays int    `json:"predicted_days"`
	TargetDate    string `json:"target_date" format:"date"`
	DelayRisk     string `json:"delay_risk" enum:"NORMAL,HIGH"`
}

// Predictor estimates resolution duration from per-type baselines.
type Predictor struct {
	baselines       map[string]int
	defaultBaseline int
	Now             func() time.Time
}

// New builds a predictor from the config baselines.
func New(cfg *config.Config) Predictor {
	return Predictor{
		baselines:       cfg.Prediction.ResolutionBaselineDays,
		defaultBaseline: cfg.Prediction.DefaultBaselineDays,
		Now:             time.Now,
	}
}

// Resolution predicts how long a case will take to resolve. Adjournment
// drag and urgency fast-tracking stack independently on the baseline.
func (p Predictor) Resolution(facts CaseFacts) (ResolutionResult, error) {
	if facts.AdjournmentCount < 0 {
		return ResolutionResult{}, fmt.Errorf("adjournment count must be non-negative, got %d", facts.AdjournmentCount)
	}
	base, ok := p.baselines[facts.Type]
	if !ok {
		base = p.defaultBaseline
	}
	multiplier := 1.0
	if facts.AdjournmentCount > 5 {
		multiplier += 0.2
	}
	if facts.UrgencyScore > 8 {
		multiplier -= 0.1
	}
	predicted := float64(base) * multiplier

	risk := RiskNormal
	if predicted > float64(base)*1.2 {
		risk = RiskHigh
	}
	days := int(math.Round(predicted))
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return ResolutionResult{
		PredictedDays: days,
		TargetDate:    now().AddDate(0, 0, days).Format("2006-01-02"),
		DelayRisk:     risk,
	}, nil
}
