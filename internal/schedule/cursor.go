// Package schedule generates hearing slot assignments: a fixed ordered set
// of daily slot labels walked round-robin, advancing the date when a day is
// exhausted and skipping the configured non-business weekday.
package schedule

import (
	"errors"
	"time"
)

// Slot is one assignable calendar position.
type Slot struct {
	Date  time.Time
	Label string
}

// Cursor walks slots in order. Not safe for concurrent use; each allocation
// run owns its own cursor.
type Cursor struct {
	slots     []string
	skipDay   time.Weekday
	date      time.Time
	slotIndex int
}

// NewCursor starts at the first slot of the first business day strictly
// after start (i.e. "tomorrow" from the caller's point of view).
func NewCursor(slots []string, skipDay time.Weekday, start time.Time) (*Cursor, error) {
	if len(slots) == 0 {
		return nil, errors.New("at least one slot label required")
	}
	date := truncateDay(start).AddDate(0, 0, 1)
	for date.Weekday() == skipDay {
		date = date.AddDate(0, 0, 1)
	}
	return &Cursor{slots: slots, skipDay: skipDay, date: date}, nil
}

// Next returns the current slot and advances the cursor by one position.
func (c *Cursor) Next() Slot {
	s := Slot{Date: c.date, Label: c.slots[c.slotIndex]}
	c.slotIndex++
	if c.slotIndex >= len(c.slots) {
		c.slotIndex = 0
		c.date = c.date.AddDate(0, 0, 1)
		for c.date.Weekday() == c.skipDay {
			c.date = c.date.AddDate(0, 0, 1)
		}
	}
	return s
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
