package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mp-daytype/internal/app"
	"mp-daytype/internal/slogx"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mpdaytype",
		Short: "Market Profile day-type statistics for NSE indices",
		Long: `mpdaytype fetches intraday candles for NIFTY 50 and NIFTY BANK, classifies every
session into a Market Profile day type and reports Year x DayType and Month x DayType
percentages as terminal and SVG heatmaps.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				return os.Setenv("CONFIG_PATH", path)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newClassifyCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().String("config", "", "YAML config file (default configs/config.yaml)")
	return rootCmd
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func setLogger(cfg *app.Config) {
	slog.SetDefault(slogx.NewDefault(cfg.LogLevel, cfg.LogFormat))
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch new candles, classify sessions and render reports",
		Long: `Fetch candles for every instrument from the last recorded day (or the full
YEARS_BACK window) through yesterday, classify each session, write the stats CSV,
recorder rows, metrics and heatmaps. With --schedule the command stays up and repeats
on SCHEDULE_CRON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			schedule, _ := cmd.Flags().GetBool("schedule")
			a, cleanup, err := InitializeApp()
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			setLogger(a.Config)
			if err := os.MkdirAll(a.Config.DataDir, 0755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			slog.Info("using data provider", "provider", a.Provider.GetName(), "instruments", len(a.Instruments),
				"workers", a.Config.Workers, "save_dir", a.Config.SaveBaseDir(), "format", a.Config.SaveFormat)

			ctx, stop := signalContext()
			defer stop()
			return app.RunFlow(ctx, a, schedule, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("schedule", false, "Keep running and repeat on SCHEDULE_CRON")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify",
		Short: "Classify sessions from saved packets without fetching",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cleanup, err := InitializeOfflineApp()
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer cleanup()
			setLogger(a.Config)

			ctx, stop := signalContext()
			defer stop()
			return app.RunClassify(ctx, a, cmd.OutOrStdout())
		},
	}
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render heatmaps from stats CSV files or the recorder",
		Example: `  mpdaytype report --csv data/mp_daytype_stats_2025-01-02.csv
  mpdaytype report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetStringSlice("csv")
			cfg, err := app.ProvideConfig()
			if err != nil {
				return err
			}
			setLogger(cfg)
			rec, closeRecorder := app.ProvideRecorder(cfg)
			defer closeRecorder()
			return app.RunReport(cmd.Context(), cfg, rec, files, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSlice("csv", nil, "Stats CSV file(s); the recorder is used when omitted")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mpdaytype %s\n", version)
		},
	}
}
