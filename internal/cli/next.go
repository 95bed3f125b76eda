package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"auto-repeat/internal/recurrence"
)

var (
	nextFrequency string
	nextDays      []string
	nextStart     string
	nextEnd       string
	nextToday     string
	nextCount     int
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute next schedule dates without touching storage",
	Long: `Compute the next schedule date for a frequency, the way a stored auto
repeat would.

Examples:
  autorepeat next --frequency Weekly --days Monday,Thursday --today 2025-08-25
  autorepeat next --frequency Monthly --start 2025-01-31 --today 2025-03-01 --count 3`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dates, err := nextDates(nextFrequency, nextDays, nextStart, nextEnd, nextToday, nextCount, time.Local)
		for _, d := range dates {
			fmt.Fprintln(cmd.OutOrStdout(), d.Format(time.DateOnly))
		}
		return err
	},
}

// nextDates returns up to count consecutive schedule dates. Each following
// date is what the schedule rolls forward to after firing on the previous
// one. Dates already returned are kept when a later one passes the end date.
func nextDates(frequency string, days []string, start, end, today string, count int, loc *time.Location) ([]time.Time, error) {
	freq, err := recurrence.ParseFrequency(frequency)
	if err != nil {
		return nil, err
	}
	weekdays, err := recurrence.ParseWeekdays(days)
	if err != nil {
		return nil, err
	}

	at := time.Now().In(loc)
	if strings.TrimSpace(today) != "" {
		if at, err = parseDate(today, loc); err != nil {
			return nil, err
		}
	}
	startDate, err := parseOptionalDate(start, loc)
	if err != nil {
		return nil, err
	}
	endDate, err := parseOptionalDate(end, loc)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 1
	}

	cfg := recurrence.Config{Frequency: freq, Weekdays: weekdays}
	ref := recurrence.ReferenceDatesOf(startDate, recurrence.DateOf(at), nil)
	out := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		next, err := recurrence.ComputeNext(cfg, ref, at)
		if err != nil {
			return out, err
		}
		if i > 0 && !next.After(at) {
			if next, err = recurrence.ComputeNext(cfg, ref, at.AddDate(0, 0, 1)); err != nil {
				return out, err
			}
		}
		if err := recurrence.CheckEndDate(endDate, next); err != nil {
			return out, err
		}
		out = append(out, next)
		at = next
	}
	return out, nil
}

func init() {
	nextCmd.Flags().StringVar(&nextFrequency, "frequency", "", "Daily, Weekly, Monthly, Quarterly, Half-yearly or Yearly")
	nextCmd.Flags().StringSliceVar(&nextDays, "days", nil, "weekdays for Weekly, e.g. Monday,Thursday")
	nextCmd.Flags().StringVar(&nextStart, "start", "", "reference start date (YYYY-MM-DD), defaults to today")
	nextCmd.Flags().StringVar(&nextEnd, "end", "", "end date (YYYY-MM-DD)")
	nextCmd.Flags().StringVar(&nextToday, "today", "", "evaluate as of this date (YYYY-MM-DD)")
	nextCmd.Flags().IntVar(&nextCount, "count", 1, "how many consecutive dates to print")
	_ = nextCmd.MarkFlagRequired("frequency")
	rootCmd.AddCommand(nextCmd)
}
