// Package navigate drives one unit of work through the navigation and
// readiness gates and classifies the outcome.
package navigate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// Kind classifies a loaded unit. Empty results are a valid outcome, not a
// failure: they must never trigger session recovery.
type Kind int

const (
	// KindReady means the results container rendered with at least one item.
	KindReady Kind = iota
	// KindEmpty means the page rendered correctly but holds no listings.
	KindEmpty
)

// Outcome is the tagged result of a successful LoadUnit call.
type Outcome struct {
	Kind  Kind
	Items int
	// Shots are diagnostic snapshot paths captured along the way.
	Shots []string
}

// ErrPageGone marks a page that died between navigation and validation.
var ErrPageGone = errors.New("page closed during load")

// Config holds the site-specific URL shape, selectors, and stage budgets.
type Config struct {
	BaseURL         string
	ResultsPath     string
	TimeWindow      string
	ResultsSelector string
	ItemSelector    string
	OverlaySelector string
	NavTimeout      time.Duration
	ReadyTimeout    time.Duration
	OverlayTimeout  time.Duration
	SettleDelay     time.Duration
	StabilizeDelay  time.Duration
	EmptySettle     time.Duration
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = 20 * time.Second
	}
	if c.OverlayTimeout <= 0 {
		c.OverlayTimeout = 3 * time.Second
	}
	if c.ResultsPath == "" {
		c.ResultsPath = "/jobs/search"
	}
}

// Verifier performs the staged navigation-and-readiness protocol.
type Verifier struct {
	cfg    Config
	diag   scraper.Capturer
	logger *zap.Logger
}

// New creates a Verifier.
func New(cfg Config, diag scraper.Capturer, logger *zap.Logger) *Verifier {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{cfg: cfg, diag: diag, logger: logger}
}

// SearchURL builds the deterministic results URL for a unit.
func (v *Verifier) SearchURL(unit scraper.SearchUnit) string {
	q := url.Values{}
	q.Set("keywords", unit.Term)
	q.Set("f_TPR", v.cfg.TimeWindow)
	q.Set("geoId", strconv.Itoa(unit.LocationID))
	return strings.TrimRight(v.cfg.BaseURL, "/") + "/?" + q.Encode()
}

// LoadUnit navigates to the unit's results page and waits through the
// readiness gates. Failures come back phase-tagged; the caller owns
// diagnostics and error recording for them.
func (v *Verifier) LoadUnit(ctx context.Context, p scraper.Page, unit scraper.SearchUnit) (Outcome, error) {
	target := v.SearchURL(unit)
	log := v.logger.With(zap.String("unit", unit.String()))
	log.Debug("navigating", zap.String("url", target))

	navCtx, cancel := context.WithTimeout(ctx, v.cfg.NavTimeout)
	err := p.Navigate(navCtx, target)
	cancel()
	if err != nil {
		return Outcome{}, scraper.NewUnitError(scraper.PhaseNavigation, fmt.Errorf("navigate: %w", err))
	}

	var shots []string
	if shot := v.diag.Capture(ctx, p, unit, "post-navigation"); shot != "" {
		shots = append(shots, shot)
	}

	if err := sleep(ctx, v.cfg.SettleDelay); err != nil {
		return Outcome{}, scraper.NewUnitError(scraper.PhaseNavigation, err)
	}
	if err := v.validateLanding(ctx, p); err != nil {
		return Outcome{}, scraper.NewUnitError(scraper.PhaseNavigation, err)
	}

	v.dismissOverlay(ctx, p, log)

	if err := p.WaitVisible(ctx, v.cfg.ResultsSelector, v.cfg.ReadyTimeout); err != nil {
		return Outcome{}, scraper.NewUnitError(scraper.PhaseReadiness,
			fmt.Errorf("results container %q: %w", v.cfg.ResultsSelector, err))
	}

	if err := sleep(ctx, v.cfg.StabilizeDelay); err != nil {
		return Outcome{}, scraper.NewUnitError(scraper.PhaseReadiness, err)
	}
	items, err := p.CountNodes(ctx, v.cfg.ItemSelector)
	if err != nil {
		return Outcome{}, scraper.NewUnitError(scraper.PhaseReadiness, fmt.Errorf("count items: %w", err))
	}

	if items == 0 {
		log.Info("no jobs found")
		if shot := v.diag.Capture(ctx, p, unit, "empty-result"); shot != "" {
			shots = append(shots, shot)
		}
		if err := sleep(ctx, v.cfg.EmptySettle); err != nil {
			return Outcome{}, scraper.NewUnitError(scraper.PhaseReadiness, err)
		}
		return Outcome{Kind: KindEmpty, Shots: shots}, nil
	}

	log.Debug("results ready", zap.Int("items", items))
	return Outcome{Kind: KindReady, Items: items, Shots: shots}, nil
}

// validateLanding re-checks the session after the settle delay: the page
// must still be open and sitting on the expected results path. Anti-bot
// redirects land here.
func (v *Verifier) validateLanding(ctx context.Context, p scraper.Page) error {
	if !p.Alive() {
		return ErrPageGone
	}
	loc, err := p.Location(ctx)
	if err != nil {
		return fmt.Errorf("read location: %w", err)
	}
	if !strings.Contains(loc, v.cfg.ResultsPath) {
		return fmt.Errorf("landed off the results path: %s", loc)
	}
	return nil
}

// dismissOverlay tries to close a login/interstitial modal. Its absence
// is the normal case and is swallowed.
func (v *Verifier) dismissOverlay(ctx context.Context, p scraper.Page, log *zap.Logger) {
	if v.cfg.OverlaySelector == "" {
		return
	}
	if err := p.Click(ctx, v.cfg.OverlaySelector, v.cfg.OverlayTimeout); err != nil {
		log.Debug("no overlay to dismiss", zap.Error(err))
		return
	}
	log.Debug("overlay dismissed")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
