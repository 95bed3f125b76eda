package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"auto-repeat/internal/model"
	"auto-repeat/internal/service"
)

var repeatCmd = &cobra.Command{
	Use:     "repeat",
	Aliases: []string{"ar"},
	Short:   "Manage auto repeats",
}

var (
	repeatFrequency string
	repeatDays      []string
	repeatStart     string
	repeatEnd       string
	repeatDisabled  bool
	repeatSubmit    bool
	repeatNotify    bool
	repeatClearEnd  bool
)

var repeatCreateCmd = &cobra.Command{
	Use:   "create <doctype> <document>",
	Short: "Create an auto repeat for a reference document",
	Long: `Create an auto repeat for a reference document.

An active auto repeat generates its first copy right away.

Examples:
  autorepeat repeat create Task TASK-1 --frequency Weekly --days Monday,Thursday
  autorepeat repeat create Invoice INV-7 --frequency Monthly --end 2026-12-31 --submit`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		input := service.AutoRepeatInput{
			ReferenceDoctype:  args[0],
			ReferenceDocument: args[1],
			Frequency:         repeatFrequency,
			RepeatOnDays:      repeatDays,
			Disabled:          repeatDisabled,
			SubmitOnCreation:  repeatSubmit,
			Notify:            repeatNotify,
		}
		if repeatStart != "" {
			if input.StartDate, err = parseDate(repeatStart, a.loc); err != nil {
				return err
			}
		}
		if input.EndDate, err = parseOptionalDate(repeatEnd, a.loc); err != nil {
			return err
		}

		ar, err := a.autoRepeats.Create(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("creating auto repeat: %w", err)
		}
		printAutoRepeat(cmd.OutOrStdout(), ar)
		return nil
	},
}

var repeatUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the schedule of an auto repeat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRepeatID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var patch service.AutoRepeatPatch
		flags := cmd.Flags()
		if flags.Changed("frequency") {
			patch.Frequency = &repeatFrequency
		}
		if flags.Changed("days") {
			patch.RepeatOnDays = &repeatDays
		}
		if flags.Changed("start") {
			start, err := parseDate(repeatStart, a.loc)
			if err != nil {
				return err
			}
			patch.StartDate = &start
		}
		if flags.Changed("end") {
			if patch.EndDate, err = parseOptionalDate(repeatEnd, a.loc); err != nil {
				return err
			}
		}
		patch.ClearEndDate = repeatClearEnd
		if flags.Changed("submit") {
			patch.SubmitOnCreation = &repeatSubmit
		}
		if flags.Changed("notify") {
			patch.Notify = &repeatNotify
		}

		ar, err := a.autoRepeats.Update(cmd.Context(), id, patch)
		if err != nil {
			return fmt.Errorf("updating auto repeat: %w", err)
		}
		printAutoRepeat(cmd.OutOrStdout(), ar)
		return nil
	},
}

var repeatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List auto repeats with their next schedule dates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.autoRepeats.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No auto repeats.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tREFERENCE\tFREQUENCY\tSTATUS\tNEXT\tEND\tLAST")
		for _, ar := range list {
			last := "-"
			if ar.LastGeneratedDocument != nil {
				last = *ar.LastGeneratedDocument
			}
			fmt.Fprintf(w, "%d\t%s %s\t%s\t%s\t%s\t%s\t%s\n", ar.ID, ar.ReferenceDoctype, ar.ReferenceDocument,
				describeFrequency(&ar), describeStatus(&ar), formatDate(ar.NextScheduleDate), formatDate(ar.EndDate), last)
		}
		return w.Flush()
	},
}

var repeatShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one auto repeat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRepeatID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ar, err := a.autoRepeats.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		printAutoRepeat(cmd.OutOrStdout(), ar)
		return nil
	},
}

func toggleCmd(use, short string, disabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRepeatID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ar, err := a.autoRepeats.SetDisabled(cmd.Context(), id, disabled)
			if err != nil {
				return err
			}
			printAutoRepeat(cmd.OutOrStdout(), ar)
			return nil
		},
	}
}

var repeatDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an auto repeat; generated documents are kept",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRepeatID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.autoRepeats.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted auto repeat %d\n", id)
		return nil
	},
}

func parseRepeatID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid auto repeat id %q", raw)
	}
	return uint(id), nil
}

func describeFrequency(ar *model.AutoRepeat) string {
	if days := ar.DayNames(); len(days) > 0 {
		return fmt.Sprintf("%s (%s)", ar.Frequency, strings.Join(days, ","))
	}
	return ar.Frequency
}

func describeStatus(ar *model.AutoRepeat) string {
	if ar.Disabled {
		return model.StatusDisabled
	}
	return ar.Status
}

func printAutoRepeat(w io.Writer, ar *model.AutoRepeat) {
	fmt.Fprintf(w, "Auto repeat %d (%s)\n", ar.ID, ar.Name)
	fmt.Fprintf(w, "  reference: %s %s\n", ar.ReferenceDoctype, ar.ReferenceDocument)
	fmt.Fprintf(w, "  frequency: %s\n", describeFrequency(ar))
	fmt.Fprintf(w, "  status:    %s\n", describeStatus(ar))
	fmt.Fprintf(w, "  start:     %s\n", formatDate(&ar.StartDate))
	fmt.Fprintf(w, "  end:       %s\n", formatDate(ar.EndDate))
	fmt.Fprintf(w, "  next:      %s\n", formatDate(ar.NextScheduleDate))
	if ar.LastGeneratedDocument != nil {
		fmt.Fprintf(w, "  last:      %s\n", *ar.LastGeneratedDocument)
	}
}

func init() {
	for _, c := range []*cobra.Command{repeatCreateCmd, repeatUpdateCmd} {
		c.Flags().StringVar(&repeatFrequency, "frequency", "", "Daily, Weekly, Monthly, Quarterly, Half-yearly or Yearly")
		c.Flags().StringSliceVar(&repeatDays, "days", nil, "weekdays for Weekly, e.g. Monday,Thursday")
		c.Flags().StringVar(&repeatStart, "start", "", "start date (YYYY-MM-DD), defaults to today")
		c.Flags().StringVar(&repeatEnd, "end", "", "end date (YYYY-MM-DD)")
		c.Flags().BoolVar(&repeatSubmit, "submit", false, "submit generated documents")
		c.Flags().BoolVar(&repeatNotify, "notify", false, "notify assignment owners about generated documents")
	}
	repeatCreateCmd.Flags().BoolVar(&repeatDisabled, "disabled", false, "create without scheduling")
	_ = repeatCreateCmd.MarkFlagRequired("frequency")
	repeatUpdateCmd.Flags().BoolVar(&repeatClearEnd, "clear-end", false, "remove the end date")

	repeatCmd.AddCommand(repeatCreateCmd, repeatUpdateCmd, repeatListCmd, repeatShowCmd,
		toggleCmd("enable", "Resume an auto repeat", false),
		toggleCmd("disable", "Stop an auto repeat", true),
		repeatDeleteCmd)
	rootCmd.AddCommand(repeatCmd)
}
