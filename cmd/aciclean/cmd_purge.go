package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HerbHall/aciclean/internal/apic"
	"github.com/HerbHall/aciclean/internal/config"
	"github.com/HerbHall/aciclean/internal/metrics"
	"github.com/HerbHall/aciclean/internal/purge"
	"github.com/HerbHall/aciclean/internal/report"
	"github.com/HerbHall/aciclean/internal/store"
	"github.com/HerbHall/aciclean/internal/webhook"
)

func (a *app) newPurgeCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every learned endpoint of an EPG",
		Example: `  aciclean purge --controller https://apic1 -u admin -t prod -a web -e frontend
  ACICLEAN_CONTROLLER_PASSWORD=... aciclean purge --dry-run -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runPurge(cmd.Context(), output)
		},
	}
	fs := cmd.Flags()
	addControllerFlags(fs)
	addScopeFlags(fs)
	fs.Bool("dry-run", false, "list what would be deleted without deleting")
	fs.StringVarP(&output, "output", "o", report.FormatText, "output format: text or json")
	fs.Float64("rate-limit", 0, "maximum deletions per second (0 = unlimited)")
	fs.Int("burst", 1, "deletions allowed back to back when rate limited")
	fs.String("history", "", "SQLite file journaling every run")
	fs.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	fs.String("webhook-url", "", "POST a run summary to this URL")
	return cmd
}

func (a *app) runPurge(ctx context.Context, output string) error {
	if output != report.FormatText && output != report.FormatJSON {
		return usageError(fmt.Errorf("unknown output format %q", output))
	}
	s, err := a.settings()
	if err != nil {
		return err
	}
	client, err := apic.NewClient(s.ClientConfig(), a.logger.Named("apic"))
	if err != nil {
		return usageError(err)
	}
	creds, err := a.credentials(s)
	if err != nil {
		return err
	}

	var history *store.History
	if s.History.Path != "" {
		db, h, err := openHistory(ctx, s.History.Path)
		if err != nil {
			return failureError(err)
		}
		defer db.Close()
		history = h
	}

	opts := a.purgeOptions(s)
	var console *report.Console
	if output == report.FormatText {
		console = report.NewConsole(a.stdout)
		opts = append(opts, purge.WithObserver(console))
	}
	var collector *metrics.Collector
	if s.Metrics.Textfile != "" {
		collector = metrics.New()
		opts = append(opts, purge.WithMetrics(collector))
	}

	logger := a.logger.With(zap.String("epg", apic.ResolveDN(s.Scope).String()))
	r, runErr := purge.New(logger.Named("purge"), opts...).Execute(ctx, client, creds, s.Scope)

	if history != nil && r != nil {
		if err := history.RecordRun(context.WithoutCancel(ctx), r, runErr); err != nil {
			logger.Warn("failed to journal run", zap.Error(err))
		}
	}
	if collector != nil {
		if err := collector.WriteTextfile(s.Metrics.Textfile); err != nil {
			logger.Warn("failed to write metrics textfile", zap.Error(err))
		}
	}
	notifier := webhook.New(s.Webhook, a.logger.Named("webhook"))
	if err := notifier.NotifyRun(context.WithoutCancel(ctx), r, runErr); err != nil {
		logger.Warn("failed to send run notification", zap.Error(err))
	}

	if output == report.FormatJSON {
		if err := report.WriteJSON(a.stdout, r, runErr); err != nil {
			return failureError(err)
		}
		if runErr != nil {
			return &exitError{code: exitFailure, err: runErr, silent: true}
		}
		return nil
	}
	if r != nil {
		console.Summary(r)
	}
	if runErr != nil {
		return failureError(runErr)
	}
	return nil
}

func (a *app) purgeOptions(s *config.Settings) []purge.Option {
	opts := []purge.Option{purge.WithDryRun(s.Purge.DryRun)}
	if s.Purge.RateLimit > 0 {
		opts = append(opts, purge.WithRateLimit(s.Purge.RateLimit, s.Purge.Burst))
	}
	return opts
}
