// Package main is the costanews CLI: it aggregates regional Spanish news
// feeds and publishes translated summaries to Telegram channels.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/deusflow/costanews/internal/app"
	"github.com/deusflow/costanews/internal/config"
	"github.com/deusflow/costanews/internal/logger"
	"github.com/deusflow/costanews/internal/metrics"
	"github.com/deusflow/costanews/internal/translate"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "costanews",
		Short:        "Regional news from Spanish RSS feeds to Telegram channels",
		Version:      version,
		SilenceUsage: true,
		RunE:         runServe,
	}

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newOnceCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newTranslateCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Process every region once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, log, _, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			report := a.RunOnce(cmd.Context())
			for _, r := range report.Regions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: fetched %d, kept %d, published %d, failed %d\n",
					r.Region, r.Fetched, r.Filter.Kept, r.Published, r.Failed)
			}
			log.Info("done", "run_id", report.RunID, "published", report.Published())
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the size of the published set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if err := cfg.ValidateStore(); err != nil {
				return err
			}
			log := logger.New(cfg.Debug, cfg.LogFormat)

			store, err := app.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return fmt.Errorf("count published set: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\npublished items: %d\n", cfg.StoreBackend, n)
			return nil
		},
	}
}

func newTranslateCmd() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate text with the configured provider chain",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if lang == "" {
				lang = cfg.TargetLanguage
			}
			log := logger.New(cfg.Debug, cfg.LogFormat)

			tr, cleanup := app.NewTranslator(cmd.Context(), cfg, log)
			defer cleanup()

			res := translate.OrOriginal(cmd.Context(), tr, strings.Join(args, " "), lang, log)
			if !res.Translated {
				return fmt.Errorf("no provider could translate the text")
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "target language (default TARGET_LANGUAGE)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, log, cfg, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.MonitoringEnabled {
		go func() {
			if err := app.ServeMonitoring(ctx, ":"+cfg.MonitoringPort, app.MonitoringHandler(a.Metrics()), log); err != nil {
				log.Error("monitoring server stopped", "error", err)
			}
		}()
	}

	return a.Serve(ctx)
}

func setup(ctx context.Context) (*app.App, *slog.Logger, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Debug, cfg.LogFormat)
	log.Info("starting costanews", "version", version, "regions", len(cfg.Regions), "store", cfg.StoreBackend)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, cleanup, err := app.FromConfig(ctx, cfg, log, metrics.New(reg))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return a, log, cfg, cleanup, nil
}
