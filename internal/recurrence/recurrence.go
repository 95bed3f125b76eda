// Package recurrence computes the next date an auto-repeat should fire.
//
// All values are calendar dates: results are midnight in the location of the
// "today" argument.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration reports an unsupported frequency or a Weekly
	// configuration without repeat days.
	ErrConfiguration = errors.New("invalid auto repeat configuration")
	// ErrValidation reports a next schedule date past the configured end date.
	ErrValidation = errors.New("auto repeat validation failed")
)

// Config is the part of an auto-repeat the calculator needs.
type Config struct {
	Frequency Frequency
	Weekdays  []time.Weekday
}

// ReferenceDates are the start/end dates of the reference document.
type ReferenceDates struct {
	Start time.Time
	End   time.Time
}

// ReferenceDatesOf applies the document fallbacks: a missing start falls back
// to the creation time and a missing end falls back to the start.
func ReferenceDatesOf(start *time.Time, created time.Time, end *time.Time) ReferenceDates {
	ref := ReferenceDates{Start: created}
	if start != nil && !start.IsZero() {
		ref.Start = *start
	}
	ref.End = ref.Start
	if end != nil && !end.IsZero() {
		ref.End = *end
	}
	return ref
}

// Duration is the span between the reference start and end dates.
func (r ReferenceDates) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// ComputeNext returns the next date a recurrence should fire.
//
// Daily and Weekly are anchored to today. The monthly family is anchored to
// the reference start date and stepped forward until it is not before today.
func ComputeNext(cfg Config, ref ReferenceDates, today time.Time) (time.Time, error) {
	today = DateOf(today)

	switch cfg.Frequency {
	case Daily:
		return today.AddDate(0, 0, 1), nil
	case Weekly:
		if len(cfg.Weekdays) == 0 {
			return time.Time{}, fmt.Errorf("%w: repeat on days required for weekly frequency", ErrConfiguration)
		}
		return nextWeekday(today, cfg.Weekdays), nil
	case Monthly, Quarterly, HalfYearly, Yearly:
		step := cfg.Frequency.Months()
		next := dateIn(ref.Start, today.Location())
		for next.Before(today) {
			next = AddMonths(next, step)
		}
		return next, nil
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported frequency %q", ErrConfiguration, cfg.Frequency)
	}
}

// CheckEndDate rejects a next date later than the configured end date.
func CheckEndDate(end *time.Time, next time.Time) error {
	if end == nil || end.IsZero() {
		return nil
	}
	if dateIn(*end, next.Location()).Before(DateOf(next)) {
		return fmt.Errorf("%w: next schedule date %s cannot be later than the end date %s",
			ErrValidation, next.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return nil
}

func nextWeekday(today time.Time, targets []time.Weekday) time.Time {
	want := make(map[time.Weekday]bool, len(targets))
	for _, d := range targets {
		want[d] = true
	}
	current := today
	for i := 0; i < 7; i++ {
		current = current.AddDate(0, 0, 1)
		if want[current.Weekday()] {
			return current
		}
	}
	return current
}

// AddMonths adds n calendar months, clamping the day to the last day of a
// shorter target month (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	if last := DaysInMonth(first.Month(), first.Year()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return dateIn(t, t.Location())
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}
