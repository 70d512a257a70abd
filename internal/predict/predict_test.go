package predict_test

import (
	"testing"
	"time"

	"docketline/internal/config"
	"docketline/internal/predict"
)

func TestNoShowLowRisk(t *testing.T) {
	res, err := predict.NoShow(predict.History{AbsenceRate: 0.1, RecentNoShows: 0})
	if err != nil {
		t.Fatal(err)
	}
	if res.Probability >= 0.3 {
		t.Fatalf("probability = %v, want < 0.3", res.Probability)
	}
	if res.RiskLevel != predict.RiskLow {
		t.Fatalf("risk = %s, want LOW", res.RiskLevel)
	}
	if res.Recommendation != "Send automated reminder" {
		t.Fatalf("unexpected recommendation %q", res.Recommendation)
	}
}

func TestNoShowHighRisk(t *testing.T) {
	res, err := predict.NoShow(predict.History{AbsenceRate: 0.5, RecentNoShows: 2})
	if err != nil {
		t.Fatal(err)
	}
	// z = -2.5 + 2.5 + 3 = 3 -> sigmoid ~ 0.95
	if res.Probability != 0.95 {
		t.Fatalf("probability = %v, want 0.95", res.Probability)
	}
	if res.RiskLevel != predict.RiskHigh {
		t.Fatalf("risk = %s, want HIGH", res.RiskLevel)
	}
	if res.Recommendation != "Suggest alternate counsel or virtual appearance" {
		t.Fatalf("unexpected recommendation %q", res.Recommendation)
	}
}

func TestNoShowProbabilityRounded(t *testing.T) {
	res, err := predict.NoShow(predict.History{AbsenceRate: 0.2, RecentNoShows: 1})
	if err != nil {
		t.Fatal(err)
	}
	// z = -2.5 + 1 + 1.5 = 0 -> exactly 0.5, MEDIUM
	if res.Probability != 0.5 {
		t.Fatalf("probability = %v, want 0.5", res.Probability)
	}
	if res.RiskLevel != predict.RiskMedium {
		t.Fatalf("risk = %s, want MEDIUM", res.RiskLevel)
	}
}

func TestNoShowRejectsInvalidHistory(t *testing.T) {
	if _, err := predict.NoShow(predict.History{AbsenceRate: -0.1}); err == nil {
		t.Fatal("expected error for negative absence rate")
	}
	if _, err := predict.NoShow(predict.History{AbsenceRate: 1.5}); err == nil {
		t.Fatal("expected error for absence rate above 1")
	}
	if _, err := predict.NoShow(predict.History{RecentNoShows: -1}); err == nil {
		t.Fatal("expected error for negative no-show count")
	}
}

func newPredictor(t *testing.T) predict.Predictor {
	t.Helper()
	p := predict.New(config.Default("test-court"))
	p.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestResolutionBaseline(t *testing.T) {
	p := newPredictor(t)
	res, err := p.Resolution(predict.CaseFacts{Type: "Civil", AdjournmentCount: 2, UrgencyScore: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.PredictedDays != 365 {
		t.Fatalf("predicted = %d, want 365", res.PredictedDays)
	}
	if res.TargetDate != "2027-03-01" {
		t.Fatalf("target date = %s, want 2027-03-01", res.TargetDate)
	}
	if res.DelayRisk != predict.RiskNormal {
		t.Fatalf("delay risk = %s, want NORMAL", res.DelayRisk)
	}
}

func TestResolutionMultipliersStack(t *testing.T) {
	p := newPredictor(t)
	// adjournment drag and urgency fast-track both apply: 730 * (1.0 + 0.2 - 0.1)
	res, err := p.Resolution(predict.CaseFacts{Type: "Criminal", AdjournmentCount: 6, UrgencyScore: 9})
	if err != nil {
		t.Fatal(err)
	}
	if res.PredictedDays != 803 {
		t.Fatalf("predicted = %d, want 803", res.PredictedDays)
	}
	if res.DelayRisk != predict.RiskNormal {
		t.Fatalf("delay risk = %s, want NORMAL (1.1x is under the 1.2x line)", res.DelayRisk)
	}
}

func TestResolutionDelayRiskRequiresExceedingLine(t *testing.T) {
	p := newPredictor(t)
	// +0.2 alone lands exactly on baseline*1.2, which does not exceed it
	res, err := p.Resolution(predict.CaseFacts{Type: "Family", AdjournmentCount: 7, UrgencyScore: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.PredictedDays != 438 {
		t.Fatalf("predicted = %d, want 438", res.PredictedDays)
	}
	if res.DelayRisk != predict.RiskNormal {
		t.Fatalf("delay risk = %s, want NORMAL at exactly 1.2x", res.DelayRisk)
	}
}

func TestResolutionUnmappedTypeUsesDefault(t *testing.T) {
	p := newPredictor(t)
	res, err := p.Resolution(predict.CaseFacts{Type: "Tenancy", UrgencyScore: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.PredictedDays != 365 {
		t.Fatalf("predicted = %d, want default baseline 365", res.PredictedDays)
	}
}
