// Package scraper defines core types shared across subsystems.
package scraper

import (
	"fmt"
	"time"
)

// SessionState represents the lifecycle state of the browser session.
type SessionState string

// Session states owned by the lifecycle manager.
const (
	StateUninitialized SessionState = "uninitialized"
	StateReady         SessionState = "ready"
	StateDisconnected  SessionState = "disconnected"
	StateRecovering    SessionState = "recovering"
	StateFatal         SessionState = "fatal"
)

// Location pairs a human-readable location name with the site's numeric
// geography identifier. Locations are supplied as an ordered list so the
// unit matrix is processed in input order.
type Location struct {
	Name  string `mapstructure:"name" json:"name"`
	GeoID int    `mapstructure:"geo_id" json:"geo_id"`
}

// SearchUnit is one (search term, location) pair to be scraped.
type SearchUnit struct {
	Term         string
	LocationName string
	LocationID   int
}

func (u SearchUnit) String() string {
	return fmt.Sprintf("%s @ %s", u.Term, u.LocationName)
}

// RecordMeta is the batch metadata stamped onto every record of a unit.
// ScrapedAt is fixed once per unit, not recomputed per record.
type RecordMeta struct {
	Term         string    `json:"term"`
	LocationName string    `json:"location_name"`
	LocationID   int       `json:"location_id"`
	TimeWindow   string    `json:"time_window"`
	ScrapedAt    time.Time `json:"scraped_at"`
}

// RawRecord is the untyped tuple returned by the site-specific extraction
// routine, before validation and canonicalization.
type RawRecord struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Company             string `json:"company"`
	Location            string `json:"location"`
	URL                 string `json:"url"`
	ImageURL            string `json:"imageUrl"`
	PostingDate         string `json:"postingDate"`
	PostingTimeRelative string `json:"postingTimeRelative"`
}

// JobRecord is one validated, canonicalized listing ready for ingestion.
type JobRecord struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Company             string     `json:"company"`
	Location            string     `json:"location"`
	URL                 string     `json:"url"`
	ImageURL            string     `json:"image_url,omitempty"`
	PostingDate         string     `json:"posting_date,omitempty"`
	PostingTimeRelative string     `json:"posting_time_relative,omitempty"`
	Meta                RecordMeta `json:"metadata"`
}

// UnitResult holds everything produced by one unit. It is dispatched to
// ingestion immediately and then discarded to bound memory over a long run.
type UnitResult struct {
	Unit            SearchUnit
	Records         []JobRecord
	Duration        time.Duration
	ScreenshotPaths []string
}

// Phase identifies where in the per-unit pipeline a failure occurred.
type Phase string

// Failure phases recorded against a unit.
const (
	PhaseNavigation Phase = "navigation"
	PhaseReadiness  Phase = "readiness"
	PhaseExtraction Phase = "extraction"
	PhaseIngest     Phase = "ingest"
)

// ErrorRecord captures one unit failure. Failures never propagate past the
// unit boundary; they accumulate on the run summary instead.
type ErrorRecord struct {
	Unit         SearchUnit
	Phase        Phase
	Message      string
	SessionState SessionState
	Timestamp    time.Time
	Duration     time.Duration
}

// RunSummary is built incrementally across the run and returned once at
// the end, complete even when the run terminated early.
type RunSummary struct {
	TotalExtracted int
	TotalIngested  int
	Errors         []ErrorRecord
	Screenshots    []string
}
