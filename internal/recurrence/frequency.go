package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is how often a reference document is repeated.
type Frequency string

const (
	Daily      Frequency = "Daily"
	Weekly     Frequency = "Weekly"
	Monthly    Frequency = "Monthly"
	Quarterly  Frequency = "Quarterly"
	HalfYearly Frequency = "Half-yearly"
	Yearly     Frequency = "Yearly"
)

// Frequencies lists every supported frequency in display order.
var Frequencies = []Frequency{Daily, Weekly, Monthly, Quarterly, HalfYearly, Yearly}

// ParseFrequency accepts frequency names case-insensitively.
func ParseFrequency(raw string) (Frequency, error) {
	clean := strings.TrimSpace(raw)
	for _, f := range Frequencies {
		if strings.EqualFold(clean, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported frequency %q", ErrConfiguration, raw)
}

// Months returns the month step of the monthly family, or 0 for Daily and Weekly.
func (f Frequency) Months() int {
	switch f {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case HalfYearly:
		return 6
	case Yearly:
		return 12
	default:
		return 0
	}
}

// ParseWeekday maps an English day name ("Monday", "thursday") to time.Weekday.
func ParseWeekday(name string) (time.Weekday, error) {
	clean := strings.TrimSpace(name)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(clean, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrConfiguration, name)
}

// ParseWeekdays parses a list of day names, keeping the input order.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}
