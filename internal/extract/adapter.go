// Package extract invokes the pluggable site extraction routine and turns
// raw tuples into validated, stamped job records.
package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// Adapter wraps a site-specific extractor with validation, URL
// canonicalization, and batch metadata stamping.
type Adapter struct {
	site       scraper.Extractor
	clock      scraper.Clock
	timeWindow string
	logger     *zap.Logger
}

// New creates an Adapter.
func New(site scraper.Extractor, clock scraper.Clock, timeWindow string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{site: site, clock: clock, timeWindow: timeWindow, logger: logger}
}

// Unit extracts all listings currently in the DOM and stamps each with
// the unit's metadata. ScrapedAt is fixed once for the whole unit.
// Partial extractions without an id or title are dropped silently.
func (a *Adapter) Unit(ctx context.Context, p scraper.Page, unit scraper.SearchUnit) ([]scraper.JobRecord, error) {
	raws, err := a.site.Extract(ctx, p)
	if err != nil {
		return nil, scraper.NewUnitError(scraper.PhaseExtraction, fmt.Errorf("site extract: %w", err))
	}

	stamp := scraper.RecordMeta{
		Term:         unit.Term,
		LocationName: unit.LocationName,
		LocationID:   unit.LocationID,
		TimeWindow:   a.timeWindow,
		ScrapedAt:    a.clock.Now(),
	}

	records := make([]scraper.JobRecord, 0, len(raws))
	dropped := 0
	for _, raw := range raws {
		if raw.ID == "" || raw.Title == "" {
			dropped++
			continue
		}
		records = append(records, scraper.JobRecord{
			ID:                  raw.ID,
			Title:               raw.Title,
			Company:             raw.Company,
			Location:            raw.Location,
			URL:                 scraper.NormalizeJobURL(raw.URL),
			ImageURL:            raw.ImageURL,
			PostingDate:         raw.PostingDate,
			PostingTimeRelative: raw.PostingTimeRelative,
			Meta:                stamp,
		})
	}
	if dropped > 0 {
		a.logger.Debug("dropped partial extractions",
			zap.String("unit", unit.String()),
			zap.Int("dropped", dropped),
		)
	}
	return records, nil
}
