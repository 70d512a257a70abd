package priority_test

import (
	"testing"

	"docketline/internal/priority"
)

func intPtr(v int) *int { return &v }

func TestScoreWorkedExample(t *testing.T) {
	res, err := priority.Score(priority.Input{
		FilingAgeYears:   10,
		UrgencyScore:     intPtr(8),
		AdjournmentCount: 6,
		HasSeniorCitizen: true,
	})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if res.Breakdown.AgePoints != 40 {
		t.Fatalf("age points = %v, want 40", res.Breakdown.AgePoints)
	}
	if res.Breakdown.UrgencyPoints != 24 {
		t.Fatalf("urgency points = %v, want 24", res.Breakdown.UrgencyPoints)
	}
	if res.Breakdown.AdjournmentPoints != 18 {
		t.Fatalf("adjournment points = %v, want 18", res.Breakdown.AdjournmentPoints)
	}
	if res.Breakdown.SocialBonus != 10 {
		t.Fatalf("social bonus = %v, want 10", res.Breakdown.SocialBonus)
	}
	if res.Score != 92.0 {
		t.Fatalf("score = %v, want 92.0", res.Score)
	}
	if res.Tier != priority.TierCritical {
		t.Fatalf("tier = %s, want CRITICAL", res.Tier)
	}
}

func TestScoreDeterministic(t *testing.T) {
	in := priority.Input{FilingAgeYears: 3.5, UrgencyScore: intPtr(7), AdjournmentCount: 2, HasMinor: true}
	first, err := priority.Score(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := priority.Score(in)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestScoreCapsAtHundredTierFromUncapped(t *testing.T) {
	// 40 + 30 + 30 + 30 = 130 uncapped
	res, err := priority.Score(priority.Input{
		FilingAgeYears:   20,
		UrgencyScore:     intPtr(10),
		AdjournmentCount: 15,
		HasSeniorCitizen: true,
		HasMinor:         true,
		HealthEmergency:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Score != 100 {
		t.Fatalf("score = %v, want 100", res.Score)
	}
	if res.Tier != priority.TierCritical {
		t.Fatalf("tier = %s, want CRITICAL from uncapped total", res.Tier)
	}
}

func TestScoreDefaultUrgency(t *testing.T) {
	res, err := priority.Score(priority.Input{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Breakdown.UrgencyPoints != 15 {
		t.Fatalf("urgency points = %v, want 15 (default urgency 5)", res.Breakdown.UrgencyPoints)
	}
	if res.Score != 15 || res.Tier != priority.TierNormal {
		t.Fatalf("got score=%v tier=%s, want 15 NORMAL", res.Score, res.Tier)
	}
}

func TestScoreTierBoundaries(t *testing.T) {
	res, _ := priority.Score(priority.Input{FilingAgeYears: 8.75}) // 35 + 15 = 50
	if res.Tier != priority.TierHigh {
		t.Fatalf("total 50 should be HIGH, got %s", res.Tier)
	}
	res, _ = priority.Score(priority.Input{FilingAgeYears: 8.7}) // 34.8 + 15 = 49.8
	if res.Tier != priority.TierNormal {
		t.Fatalf("total 49.8 should be NORMAL, got %s", res.Tier)
	}
	res, _ = priority.Score(priority.Input{FilingAgeYears: 15, UrgencyScore: intPtr(10), HealthEmergency: true}) // 40+30+15 = 85
	if res.Tier != priority.TierCritical {
		t.Fatalf("total 85 should be CRITICAL, got %s", res.Tier)
	}
}

func TestAdjournmentMonotoneUpToCap(t *testing.T) {
	prev := -1.0
	for count := 0; count <= 12; count++ {
		res, err := priority.Score(priority.Input{AdjournmentCount: count})
		if err != nil {
			t.Fatal(err)
		}
		if res.Breakdown.AdjournmentPoints < prev {
			t.Fatalf("adjournment points decreased at count=%d: %v < %v", count, res.Breakdown.AdjournmentPoints, prev)
		}
		prev = res.Breakdown.AdjournmentPoints
	}
	res, _ := priority.Score(priority.Input{AdjournmentCount: 10})
	if res.Breakdown.AdjournmentPoints != 30 {
		t.Fatalf("adjournment cap = %v, want 30 at count 10", res.Breakdown.AdjournmentPoints)
	}
}

func TestScoreRejectsInvalidInput(t *testing.T) {
	if _, err := priority.Score(priority.Input{FilingAgeYears: -1}); err == nil {
		t.Fatal("expected error for negative filing age")
	}
	if _, err := priority.Score(priority.Input{AdjournmentCount: -1}); err == nil {
		t.Fatal("expected error for negative adjournment count")
	}
	if _, err := priority.Score(priority.Input{UrgencyScore: intPtr(0)}); err == nil {
		t.Fatal("expected error for urgency below domain")
	}
	if _, err := priority.Score(priority.Input{UrgencyScore: intPtr(11)}); err == nil {
		t.Fatal("expected error for urgency above domain")
	}
}
