package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "autorepeat",
	Short: "Recurring documents: compute schedules and generate copies",
	Long: `autorepeat keeps recurring documents on schedule.

An auto repeat points at a reference document and a frequency. Every day the
scheduler copies the reference document for each auto repeat that is due,
carries its open assignments over to the copy and moves the schedule forward.

Settings come from environment variables (DATABASE_URL, TICK_TIME, TIMEZONE,
TELEGRAM_TOKEN, ADMIN_IDS, LOG_LEVEL, LOG_FORMAT, NO_COPY_FIELDS, NOTIFY_RATE_PER_SEC)
and, optionally, a YAML file passed with --config.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "autorepeat %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
