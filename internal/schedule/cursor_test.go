package schedule_test

import (
	"testing"
	"time"

	"docketline/internal/schedule"
)

var slots = []string{"10:00 AM", "11:00 AM", "12:00 PM", "02:00 PM", "03:00 PM", "04:00 PM"}

func TestCursorFillsOneDayThenRollsOver(t *testing.T) {
	// Monday start; cursor begins Tuesday.
	start := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	c, err := schedule.NewCursor(slots, time.Sunday, start)
	if err != nil {
		t.Fatal(err)
	}
	tuesday := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	for i, want := range slots {
		s := c.Next()
		if !s.Date.Equal(tuesday) {
			t.Fatalf("slot %d: date = %v, want %v", i, s.Date, tuesday)
		}
		if s.Label != want {
			t.Fatalf("slot %d: label = %s, want %s", i, s.Label, want)
		}
	}
	// seventh slot rolls to Wednesday, first label again
	s := c.Next()
	if !s.Date.Equal(tuesday.AddDate(0, 0, 1)) || s.Label != slots[0] {
		t.Fatalf("rollover slot = %v %s, want Wednesday %s", s.Date, s.Label, slots[0])
	}
}

func TestCursorSkipsSunday(t *testing.T) {
	// Saturday start; "tomorrow" is Sunday, which must be skipped.
	start := time.Date(2026, 3, 7, 9, 0, 0, 0, time.UTC)
	c, err := schedule.NewCursor(slots, time.Sunday, start)
	if err != nil {
		t.Fatal(err)
	}
	s := c.Next()
	if s.Date.Weekday() != time.Monday {
		t.Fatalf("first slot on %v, want Monday", s.Date.Weekday())
	}
}

func TestCursorMultiWeekRollover(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday
	c, err := schedule.NewCursor(slots, time.Sunday, start)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	var last schedule.Slot
	// 15 business days' worth of slots spans two Sundays
	for i := 0; i < len(slots)*15; i++ {
		last = c.Next()
		if last.Date.Weekday() == time.Sunday {
			t.Fatalf("slot %d allocated on Sunday (%v)", i, last.Date)
		}
		key := last.Date.Format("2006-01-02") + "|" + last.Label
		seen[key]++
		if seen[key] > 1 {
			t.Fatalf("duplicate slot %s", key)
		}
	}
	// Tue Mar 3 .. skipping Mar 8 and Mar 15 and Mar 22 -> 15th business day is Mar 19
	want := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)
	if !last.Date.Equal(want) {
		t.Fatalf("last slot date = %v, want %v", last.Date, want)
	}
}

func TestCursorRequiresSlots(t *testing.T) {
	if _, err := schedule.NewCursor(nil, time.Sunday, time.Now()); err == nil {
		t.Fatal("expected error for empty slot set")
	}
}
