// Package orchestrator iterates the unit matrix and drives the per-unit
// pipeline: session health, navigation, extraction, ingestion dispatch,
// diagnostics, and throttling.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/metrics"
	"github.com/jobsweep/jobsweep/internal/navigate"
	"github.com/jobsweep/jobsweep/internal/scraper"
)

// UnitLoader navigates one unit through the readiness gates.
type UnitLoader interface {
	LoadUnit(ctx context.Context, p scraper.Page, unit scraper.SearchUnit) (navigate.Outcome, error)
}

// RecordBuilder extracts and stamps one unit's records.
type RecordBuilder interface {
	Unit(ctx context.Context, p scraper.Page, unit scraper.SearchUnit) ([]scraper.JobRecord, error)
}

// Orchestrator runs the batch. One unit is in flight at a time; units
// execute strictly in nested (term, location) input order.
type Orchestrator struct {
	sessions scraper.SessionManager
	loader   UnitLoader
	builder  RecordBuilder
	ingestor scraper.Ingestor
	diag     scraper.Capturer
	limiter  scraper.Limiter
	clock    scraper.Clock
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	sessions scraper.SessionManager,
	loader UnitLoader,
	builder RecordBuilder,
	ingestor scraper.Ingestor,
	diag scraper.Capturer,
	limiter scraper.Limiter,
	clock scraper.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &Orchestrator{
		sessions: sessions,
		loader:   loader,
		builder:  builder,
		ingestor: ingestor,
		diag:     diag,
		limiter:  limiter,
		clock:    clock,
		logger:   logger,
	}
}

// Run processes every (term, location) pair and returns a best-effort
// summary. It raises only for invalid input or a total inability to
// obtain a working session on the very first unit; every other failure
// is recorded on the summary and the run continues.
func (o *Orchestrator) Run(ctx context.Context, terms []string, locations []scraper.Location) (scraper.RunSummary, error) {
	summary := scraper.RunSummary{}
	if len(terms) == 0 {
		return summary, fmt.Errorf("%w: no search terms", scraper.ErrInvalidInput)
	}
	if len(locations) == 0 {
		return summary, fmt.Errorf("%w: no locations", scraper.ErrInvalidInput)
	}
	defer o.sessions.Close()

	o.logger.Info("starting batch run",
		zap.Int("terms", len(terms)),
		zap.Int("locations", len(locations)),
		zap.Int("units", len(terms)*len(locations)),
	)

	first := true
	for _, term := range terms {
		for _, loc := range locations {
			unit := scraper.SearchUnit{Term: term, LocationName: loc.Name, LocationID: loc.GeoID}

			if o.limiter.BudgetExceeded() {
				o.logger.Warn("resource budget exceeded, ending run early",
					zap.String("next_unit", unit.String()))
				return summary, nil
			}

			if err := o.runUnit(ctx, unit, first, &summary); err != nil {
				return summary, err
			}
			first = false

			// Unconditional: a failed unit never skips the throttle.
			o.limiter.Delay(ctx)
		}
	}

	o.logger.Info("batch run finished",
		zap.Int("extracted", summary.TotalExtracted),
		zap.Int("ingested", summary.TotalIngested),
		zap.Int("errors", len(summary.Errors)),
	)
	return summary, nil
}

// runUnit executes one unit end to end. It returns a non-nil error only
// when the very first session launch fails; everything else is converted
// into an ErrorRecord at this boundary.
func (o *Orchestrator) runUnit(ctx context.Context, unit scraper.SearchUnit, first bool, summary *scraper.RunSummary) error {
	start := o.clock.Now()
	log := o.logger.With(zap.String("unit", unit.String()))

	page, err := o.sessions.EnsureReady(ctx)
	if err != nil {
		if first {
			return fmt.Errorf("obtain initial session: %w", err)
		}
		log.Error("no session for unit", zap.Error(err))
		o.recordError(summary, unit, scraper.PhaseNavigation, err, start)
		metrics.ObserveUnitError(string(scraper.PhaseNavigation))
		metrics.ObserveUnit("error")
		return nil
	}

	outcome, err := o.loader.LoadUnit(ctx, page, unit)
	o.collectShots(summary, outcome.Shots)
	if err != nil {
		o.failUnit(ctx, summary, unit, page, err, start)
		return nil
	}

	if outcome.Kind == navigate.KindEmpty {
		log.Info("unit finished with no results",
			zap.Duration("duration", o.clock.Now().Sub(start)))
		metrics.ObserveUnit("empty")
		return nil
	}

	records, err := o.builder.Unit(ctx, page, unit)
	if err != nil {
		o.failUnit(ctx, summary, unit, page, err, start)
		return nil
	}

	result := scraper.UnitResult{
		Unit:            unit,
		Records:         records,
		ScreenshotPaths: outcome.Shots,
	}
	summary.TotalExtracted += len(result.Records)

	// Streaming dispatch: each unit's records go out immediately so a
	// later crash cannot lose already-ingested data.
	inserted := 0
	ingestFailed := false
	if len(result.Records) > 0 {
		inserted, err = o.ingestor.Ingest(ctx, unit, result.Records)
		if err != nil {
			ingestFailed = true
			log.Error("ingest dispatch failed", zap.Error(err))
			o.recordError(summary, unit, scraper.PhaseIngest, err, start)
			metrics.ObserveUnitError(string(scraper.PhaseIngest))
		} else {
			summary.TotalIngested += inserted
		}
	}
	metrics.ObserveRecords(len(result.Records), inserted)
	if ingestFailed {
		metrics.ObserveUnit("error")
	} else {
		metrics.ObserveUnit("ok")
	}

	result.Duration = o.clock.Now().Sub(start)
	log.Info("unit complete",
		zap.Int("extracted", len(result.Records)),
		zap.Int("ingested", inserted),
		zap.Duration("duration", result.Duration),
	)
	return nil
}

// failUnit handles a navigation/readiness/extraction failure: diagnostic
// capture, error recording, and session recovery when the failure looks
// like a disconnect. A failed recovery is logged and leaves the session
// fatal; subsequent units then fail fast with their own error records.
func (o *Orchestrator) failUnit(
	ctx context.Context,
	summary *scraper.RunSummary,
	unit scraper.SearchUnit,
	page scraper.Page,
	err error,
	start time.Time,
) {
	if shot := o.diag.Capture(ctx, page, unit, "unit-error"); shot != "" {
		summary.Screenshots = append(summary.Screenshots, shot)
		metrics.ObserveScreenshots(1)
	}

	phase := scraper.PhaseOf(err)
	o.logger.Error("unit failed",
		zap.String("unit", unit.String()),
		zap.String("phase", string(phase)),
		zap.Error(err),
	)
	o.recordError(summary, unit, phase, err, start)
	metrics.ObserveUnitError(string(phase))
	metrics.ObserveUnit("error")

	if o.sessions.IsDisconnect(err) {
		o.logger.Warn("disconnect signal detected, recovering session")
		metrics.ObserveRecovery()
		if _, rerr := o.sessions.Recover(ctx); rerr != nil {
			o.logger.Error("session recovery failed, subsequent units will fail fast",
				zap.Error(rerr))
		}
	}
}

func (o *Orchestrator) recordError(
	summary *scraper.RunSummary,
	unit scraper.SearchUnit,
	phase scraper.Phase,
	err error,
	start time.Time,
) {
	now := o.clock.Now()
	summary.Errors = append(summary.Errors, scraper.ErrorRecord{
		Unit:         unit,
		Phase:        phase,
		Message:      err.Error(),
		SessionState: o.sessions.State(),
		Timestamp:    now,
		Duration:     now.Sub(start),
	})
}

func (o *Orchestrator) collectShots(summary *scraper.RunSummary, shots []string) {
	if len(shots) == 0 {
		return
	}
	summary.Screenshots = append(summary.Screenshots, shots...)
	metrics.ObserveScreenshots(len(shots))
}
