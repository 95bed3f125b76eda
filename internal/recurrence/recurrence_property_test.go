package recurrence

import (
	"testing"
	"time"

	"pgregory.net/rapid"
)

func drawDate(rt *rapid.T, label string) time.Time {
	year := rapid.IntRange(1990, 2100).Draw(rt, label+"_year")
	month := time.Month(rapid.IntRange(1, 12).Draw(rt, label+"_month"))
	day := rapid.IntRange(1, DaysInMonth(month, year)).Draw(rt, label+"_day")
	return date(year, month, day)
}

// Daily always fires the day after today, whatever the reference says.
func TestProperty_DailyIsTomorrow(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		today := drawDate(rt, "today")
		start := drawDate(rt, "start")

		got, err := ComputeNext(Config{Frequency: Daily}, ReferenceDates{Start: start, End: start}, today)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if want := today.AddDate(0, 0, 1); !got.Equal(want) {
			rt.Fatalf("expected %s, got %s", want, got)
		}
	})
}

// Weekly lands on a configured weekday within the next seven days, never today.
func TestProperty_WeeklyWithinAWeek(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		today := drawDate(rt, "today")
		days := rapid.SliceOfNDistinct(rapid.IntRange(0, 6), 1, 7, rapid.ID[int]).Draw(rt, "days")
		weekdays := make([]time.Weekday, len(days))
		want := make(map[time.Weekday]bool)
		for i, d := range days {
			weekdays[i] = time.Weekday(d)
			want[time.Weekday(d)] = true
		}

		got, err := ComputeNext(Config{Frequency: Weekly, Weekdays: weekdays}, ReferenceDates{}, today)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if !got.After(today) || got.After(today.AddDate(0, 0, 7)) {
			rt.Fatalf("%s is outside (%s, %s]", got, today, today.AddDate(0, 0, 7))
		}
		if !want[got.Weekday()] {
			rt.Fatalf("%s is a %s, not one of %v", got, got.Weekday(), weekdays)
		}
	})
}

// The monthly family never returns a date before today, and never lands more
// than one step past it unless the reference start is already in the future.
func TestProperty_MonthlyFamilyNotBeforeToday(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		freq := rapid.SampledFrom([]Frequency{Monthly, Quarterly, HalfYearly, Yearly}).Draw(rt, "freq")
		start := drawDate(rt, "start")
		today := drawDate(rt, "today")

		got, err := ComputeNext(Config{Frequency: freq}, ReferenceDates{Start: start, End: start}, today)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		if got.Before(today) {
			rt.Fatalf("%s is before today %s", got, today)
		}
		if start.Before(today) && got.After(AddMonths(today, freq.Months())) {
			rt.Fatalf("%s is more than one %s step after %s", got, freq, today)
		}
	})
}

// AddMonths always lands in the intended calendar month.
func TestProperty_AddMonthsStaysInTargetMonth(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		in := drawDate(rt, "in")
		n := rapid.IntRange(-36, 36).Draw(rt, "n")

		got := AddMonths(in, n)
		wantIndex := in.Year()*12 + int(in.Month()) - 1 + n
		gotIndex := got.Year()*12 + int(got.Month()) - 1
		if gotIndex != wantIndex {
			rt.Fatalf("AddMonths(%s, %d) = %s overflowed", in, n, got)
		}
		if got.Day() > in.Day() {
			rt.Fatalf("AddMonths(%s, %d) = %s moved the day forward", in, n, got)
		}
	})
}
