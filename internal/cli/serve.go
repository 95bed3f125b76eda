package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"auto-repeat/internal/bot"
	"auto-repeat/internal/service"
)

const tickTimeout = 5 * time.Minute

var (
	serveEvery   time.Duration
	serveCatchUp bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily scheduler and, when TELEGRAM_TOKEN is set, the bot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var telegramBot *bot.Bot
		if a.cfg.TelegramToken != "" {
			telegramBot, err = bot.New(a.cfg.TelegramToken, a.users, a.autoRepeats, a.cfg.AdminIDs, a.cfg.NotifyRatePerSec, a.log.With().Str("component", "bot").Logger())
			if err != nil {
				return err
			}
			a.autoRepeats.SetNotifier(telegramBot.Notifier())
		}

		runDue := func() {
			jobCtx, cancel := context.WithTimeout(ctx, tickTimeout)
			defer cancel()
			n, err := a.autoRepeats.RunDue(jobCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Error().Err(err).Int("generated", n).Msg("due run finished with errors")
				return
			}
			a.log.Info().Int("generated", n).Msg("due run finished")
		}

		scheduler := service.NewSchedulerService(a.loc, a.log)
		id, err := scheduler.ScheduleDaily(a.cfg.TickTime, runDue)
		if err != nil {
			return err
		}
		if serveEvery > 0 {
			if _, err := scheduler.ScheduleInterval(serveEvery, runDue); err != nil {
				return err
			}
		}
		if serveCatchUp {
			runDue()
		}
		scheduler.Start()
		defer scheduler.Stop()
		a.log.Info().Str("tick", a.cfg.TickTime).Time("next", scheduler.Next(id)).Msg("auto repeat scheduler started")

		if telegramBot != nil {
			if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		} else {
			<-ctx.Done()
		}

		a.log.Info().Msg("shutdown complete")
		return nil
	},
}

var tickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Generate every document that is due today and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), tickTimeout)
		defer cancel()
		n, err := a.autoRepeats.RunDue(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "generated %d document(s)\n", n)
		return err
	},
}

func init() {
	serveCmd.Flags().DurationVar(&serveEvery, "every", 0, "also check for due auto repeats at this interval (e.g. 1h)")
	serveCmd.Flags().BoolVar(&serveCatchUp, "catch-up", true, "run the due check once on startup")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tickCmd)
}
