package adr_test

import (
	"testing"

	"docketline/internal/adr"
	"docketline/internal/config"
)

func newEvaluator() adr.Evaluator {
	return adr.New(config.Default("test-court"))
}

func TestCriminalAndBailIneligible(t *testing.T) {
	e := newEvaluator()
	for _, caseType := range []string{"Criminal", "Bail"} {
		res := e.Evaluate(adr.CaseFacts{Type: caseType})
		if res.Eligible {
			t.Fatalf("%s should be ineligible", caseType)
		}
		if res.Reason == "" {
			t.Fatalf("%s: expected a reason", caseType)
		}
		if res.Benefits != nil {
			t.Fatalf("%s: ineligible result must not carry benefits", caseType)
		}
	}
}

func TestTrackSelectionOrder(t *testing.T) {
	e := newEvaluator()
	tests := []struct {
		facts adr.CaseFacts
		want  string
	}{
		// Family wins over claim amount
		{adr.CaseFacts{Type: "Family", ClaimAmount: 1_000_000}, adr.TrackFamilyCourtMediation},
		{adr.CaseFacts{Type: "Motor Accident", ClaimAmount: 1_000_000}, adr.TrackLokAdalat},
		{adr.CaseFacts{Type: "Civil", ClaimAmount: 600_000}, adr.TrackArbitration},
		// threshold is strict: exactly 500000 stays mediation
		{adr.CaseFacts{Type: "Civil", ClaimAmount: 500_000}, adr.TrackMediation},
		{adr.CaseFacts{Type: "Consumer"}, adr.TrackMediation},
	}
	for _, tt := range tests {
		res := e.Evaluate(tt.facts)
		if !res.Eligible {
			t.Fatalf("%+v: expected eligible", tt.facts)
		}
		if res.Track != tt.want {
			t.Fatalf("%+v: track = %s, want %s", tt.facts, res.Track, tt.want)
		}
	}
}

func TestBenefitCalculation(t *testing.T) {
	e := newEvaluator()
	res := e.Evaluate(adr.CaseFacts{Type: "Civil"})
	b := res.Benefits
	if b.CourtTimelineDays != 730 || b.ADRTimelineDays != 45 {
		t.Fatalf("timelines = %d/%d, want 730/45", b.CourtTimelineDays, b.ADRTimelineDays)
	}
	if b.TimeSavedDays != 685 {
		t.Fatalf("time saved = %d, want 685", b.TimeSavedDays)
	}
	if b.TimeSavedPercentage != 94 {
		t.Fatalf("time saved pct = %d, want 94", b.TimeSavedPercentage)
	}
	if res.SuccessProbability != 0.72 {
		t.Fatalf("success probability = %v, want 0.72", res.SuccessProbability)
	}
	if res.EstimatedTimelineDays != 45 {
		t.Fatalf("estimated timeline = %d, want 45", res.EstimatedTimelineDays)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	e := newEvaluator()
	facts := adr.CaseFacts{Type: "Contract", ClaimAmount: 750_000}
	first := e.Evaluate(facts)
	for i := 0; i < 3; i++ {
		again := e.Evaluate(facts)
		if again.Track != first.Track || again.Eligible != first.Eligible ||
			again.SuccessProbability != first.SuccessProbability ||
			*again.Benefits != *first.Benefits {
			t.Fatalf("evaluation not stable: %+v vs %+v", again, first)
		}
	}
}

func TestUnmappedEligibleTypeUsesDefaults(t *testing.T) {
	cfg := config.Default("test-court")
	cfg.ADR.EligibleTypes = append(cfg.ADR.EligibleTypes, "Tenancy")
	e := adr.New(cfg)
	res := e.Evaluate(adr.CaseFacts{Type: "Tenancy"})
	if !res.Eligible {
		t.Fatal("expected eligible")
	}
	if res.SuccessProbability != 0.70 {
		t.Fatalf("success probability = %v, want default 0.70", res.SuccessProbability)
	}
	if res.Benefits.CourtTimelineDays != 730 {
		t.Fatalf("court timeline = %d, want default 730", res.Benefits.CourtTimelineDays)
	}
}
