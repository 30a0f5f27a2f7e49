package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/browser"
	"github.com/jobsweep/jobsweep/internal/clock/system"
	"github.com/jobsweep/jobsweep/internal/config"
	"github.com/jobsweep/jobsweep/internal/diag"
	"github.com/jobsweep/jobsweep/internal/extract"
	"github.com/jobsweep/jobsweep/internal/ingest"
	"github.com/jobsweep/jobsweep/internal/logging"
	"github.com/jobsweep/jobsweep/internal/metrics"
	"github.com/jobsweep/jobsweep/internal/navigate"
	"github.com/jobsweep/jobsweep/internal/orchestrator"
	"github.com/jobsweep/jobsweep/internal/scraper"
	"github.com/jobsweep/jobsweep/internal/session"
	"github.com/jobsweep/jobsweep/internal/storage/local"
	"github.com/jobsweep/jobsweep/internal/throttle"
)

// newRunCmd creates and configures the 'run' subcommand, which executes
// the whole scraping batch described by the configuration file.
func newRunCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the scraping batch",
		Long: `Processes every (search term, location) pair from the configuration,
one pair at a time on a single browser session, and dispatches each
pair's extracted records to the configured ingestion endpoint.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd.Context(), dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the unit matrix and exit without launching a browser")

	return cmd
}

func runBatch(ctx context.Context, dryRun bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if dryRun {
		for _, term := range cfg.Search.Terms {
			for _, loc := range cfg.Search.Locations {
				fmt.Printf("%s @ %s (geoId=%d)\n", term, loc.Name, loc.GeoID)
			}
		}
		return nil
	}

	base, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = base.Sync() }()

	runID := uuid.NewString()
	logger := logging.WithRun(base, runID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logger)
	}

	clk := system.New()

	capturer, err := buildCapturer(cfg.Diagnostics, runID, clk, logger)
	if err != nil {
		return err
	}

	chrome := browser.New(browser.Config{
		Headless:       cfg.Browser.Headless,
		UserAgent:      cfg.Browser.UserAgent,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	}, logger)

	sessions := session.New(chrome, session.Config{
		DisconnectMarkers: cfg.Browser.DisconnectMarkers,
	}, logger)

	loader := navigate.New(navigate.Config{
		BaseURL:         cfg.Target.BaseURL,
		ResultsPath:     cfg.Target.ResultsPath,
		TimeWindow:      cfg.Search.TimeWindow,
		ResultsSelector: cfg.Target.ResultsSelector,
		ItemSelector:    cfg.Target.ItemSelector,
		OverlaySelector: cfg.Target.OverlaySelector,
		NavTimeout:      cfg.Target.NavTimeout(),
		ReadyTimeout:    cfg.Target.ReadyTimeout(),
		OverlayTimeout:  time.Duration(cfg.Target.OverlayTimeoutMs) * time.Millisecond,
		SettleDelay:     time.Duration(cfg.Target.SettleDelayMs) * time.Millisecond,
		StabilizeDelay:  time.Duration(cfg.Target.StabilizeDelayMs) * time.Millisecond,
		EmptySettle:     time.Duration(cfg.Target.EmptySettleMs) * time.Millisecond,
	}, capturer, logger)

	builder := extract.New(
		extract.NewLinkedIn(cfg.Target.ItemSelector),
		clk,
		cfg.Search.TimeWindow,
		logger,
	)

	ingestor := ingest.New(ingest.Config{
		Endpoint:    cfg.Ingest.Endpoint,
		BearerToken: cfg.Ingest.BearerToken,
		APIKey:      cfg.Ingest.APIKey,
		Timeout:     time.Duration(cfg.Ingest.TimeoutSec) * time.Second,
	}, logger)

	limiter := throttle.New(throttle.Config{
		MinDelay:        time.Duration(cfg.Throttle.DelayMinMs) * time.Millisecond,
		MaxDelay:        time.Duration(cfg.Throttle.DelayMaxMs) * time.Millisecond,
		MemoryCeilingMB: cfg.Throttle.MemoryCeilingMB,
	}, logger)

	orch := orchestrator.New(sessions, loader, builder, ingestor, capturer, limiter, clk, logger)

	started := clk.Now()
	summary, err := orch.Run(ctx, cfg.Search.Terms, cfg.Search.Locations)
	logSummary(logger, summary, clk.Now().Sub(started))
	if err != nil {
		return fmt.Errorf("run batch: %w", err)
	}
	return nil
}

// buildCapturer returns a working screenshot capturer, or the no-op one
// when diagnostics are disabled.
func buildCapturer(cfg config.DiagConfig, runID string, clk scraper.Clock, logger *zap.Logger) (scraper.Capturer, error) {
	if !cfg.Enabled {
		return diag.Nop{}, nil
	}
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "jobsweep")
	}
	store, err := local.New(filepath.Join(dir, runID))
	if err != nil {
		return nil, fmt.Errorf("init screenshot store: %w", err)
	}
	return diag.New(store, clk, logger), nil
}

func logSummary(logger *zap.Logger, summary scraper.RunSummary, elapsed time.Duration) {
	logger.Info("run summary",
		zap.Duration("elapsed", elapsed),
		zap.Int("extracted", summary.TotalExtracted),
		zap.Int("ingested", summary.TotalIngested),
		zap.Int("errors", len(summary.Errors)),
		zap.Int("screenshots", len(summary.Screenshots)),
	)
	for _, rec := range summary.Errors {
		logger.Warn("unit error",
			zap.String("unit", rec.Unit.String()),
			zap.String("phase", string(rec.Phase)),
			zap.String("session_state", string(rec.SessionState)),
			zap.Duration("duration", rec.Duration),
			zap.String("message", rec.Message),
		)
	}
}

func serveMetrics(addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics endpoint stopped", zap.Error(err))
	}
}
