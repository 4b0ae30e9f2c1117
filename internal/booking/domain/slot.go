package domain

import (
	"errors"
	"iter"
	"time"
)

// ErrOutOfWindow rejects availability queries for past dates or dates
// beyond the booking type's advance horizon.
var ErrOutOfWindow = errors.New("date is outside the bookable window")

// Slot is one half-open candidate interval [Start, End).
type Slot struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Touching
// intervals (a.End == b.Start) do not overlap.
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.Start.Before(end) && s.End.After(start)
}

// ValidateDate checks that the requested date is bookable: not in the
// past and within MaxAdvanceDays of now. Comparison is by calendar day in
// the date's location.
func (bt *BookingType) ValidateDate(date, now time.Time) error {
	today := startOfDay(now.In(date.Location()))
	day := startOfDay(date)

	if day.Before(today) {
		return ErrOutOfWindow
	}
	horizon := today.AddDate(0, 0, bt.MaxAdvanceDays)
	if day.After(horizon) {
		return ErrOutOfWindow
	}
	return nil
}

// GenerateSlots walks the booking type's availability rules for the
// date's weekday and yields candidate slots lazily. Within one rule,
// slots start at the window start and advance by duration+buffer; a slot
// is yielded only if it ends at or before the window end. Slots from
// multiple rules are concatenated in rule order; the generator does not
// deduplicate overlapping rule windows.
func (bt *BookingType) GenerateSlots(date time.Time) iter.Seq[Slot] {
	day := startOfDay(date)
	duration := bt.Duration()
	step := bt.Step()

	return func(yield func(Slot) bool) {
		for _, rule := range bt.RulesFor(day) {
			windowEnd := day.Add(time.Duration(rule.EndMinute) * time.Minute)
			start := day.Add(time.Duration(rule.StartMinute) * time.Minute)

			for {
				end := start.Add(duration)
				if end.After(windowEnd) {
					break
				}
				if !yield(Slot{Start: start, End: end}) {
					return
				}
				start = start.Add(step)
			}
		}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
