package scraper

import (
	"context"
	"time"
)

// Page is the single open page context of the live browser session.
// Implementations bound each operation by the caller's context deadline.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	CountNodes(ctx context.Context, selector string) (int, error)
	Evaluate(ctx context.Context, expression string, out any) error
	Screenshot(ctx context.Context) ([]byte, error)
	Alive() bool
	Close() error
}

// Browser launches a fresh process with one open page. Only one live
// process/page pair exists at a time; the session manager enforces that.
type Browser interface {
	Launch(ctx context.Context) (Page, error)
}

// SessionManager owns the browser process and its page context. No other
// component mutates session state; callers only read page handles.
type SessionManager interface {
	// EnsureReady returns a connected page, recovering first if necessary.
	EnsureReady(ctx context.Context) (Page, error)
	// Recover tears down any existing process and launches a fresh one.
	Recover(ctx context.Context) (Page, error)
	// IsDisconnect reports whether err looks like a session-level
	// disconnect that warrants recovery rather than a page-level failure.
	IsDisconnect(err error) bool
	State() SessionState
	Close()
}

// Extractor runs the site-specific parsing routine against a ready page.
type Extractor interface {
	Extract(ctx context.Context, p Page) ([]RawRecord, error)
}

// Ingestor receives one unit's records and reports how many were stored.
type Ingestor interface {
	Ingest(ctx context.Context, unit SearchUnit, records []JobRecord) (int, error)
}

// Capturer persists a diagnostic snapshot at a named checkpoint. It
// returns the stored path, or "" when capture failed or is disabled;
// it never returns an error.
type Capturer interface {
	Capture(ctx context.Context, p Page, unit SearchUnit, tag string) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Limiter throttles the run between units and guards the resource budget.
type Limiter interface {
	// Delay blocks for the randomized inter-unit pause, waking early only
	// when ctx finishes.
	Delay(ctx context.Context)
	// BudgetExceeded samples the resource signal and reports whether the
	// run should stop issuing further units.
	BudgetExceeded() bool
}
