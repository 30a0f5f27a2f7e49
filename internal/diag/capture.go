// Package diag captures best-effort screenshots at named checkpoints.
// Capture never fails the caller: problems are logged and an empty path
// is returned.
package diag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/scraper"
	"github.com/jobsweep/jobsweep/internal/storage/local"
)

// captureTimeout bounds a single screenshot so diagnostics can never
// hang a unit.
const captureTimeout = 10 * time.Second

// Capturer writes screenshots into a run-scoped directory, named by unit,
// checkpoint tag, and timestamp.
type Capturer struct {
	store  *local.BlobStore
	clock  scraper.Clock
	logger *zap.Logger
}

// New creates a Capturer over the given blob store.
func New(store *local.BlobStore, clock scraper.Clock, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{store: store, clock: clock, logger: logger}
}

// Capture takes a screenshot of the page. It returns the stored path, or
// "" when anything went wrong.
func (c *Capturer) Capture(ctx context.Context, p scraper.Page, unit scraper.SearchUnit, tag string) string {
	if p == nil || !p.Alive() {
		c.logger.Debug("skipping screenshot, page gone",
			zap.String("unit", unit.String()), zap.String("tag", tag))
		return ""
	}

	shotCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	data, err := p.Screenshot(shotCtx)
	if err != nil {
		c.logger.Warn("screenshot failed",
			zap.String("unit", unit.String()), zap.String("tag", tag), zap.Error(err))
		return ""
	}

	name := fmt.Sprintf("%s_%s_%s_%s.png",
		slug(unit.Term), slug(unit.LocationName), slug(tag),
		c.clock.Now().Format("20060102T150405"))
	path, err := c.store.Put(name, data)
	if err != nil {
		c.logger.Warn("screenshot write failed",
			zap.String("unit", unit.String()), zap.String("tag", tag), zap.Error(err))
		return ""
	}

	c.logger.Debug("screenshot captured", zap.String("path", path))
	return path
}

// Nop is a no-op capturer for tests and disabled diagnostics.
type Nop struct{}

// Capture does nothing and reports no path.
func (Nop) Capture(context.Context, scraper.Page, scraper.SearchUnit, string) string {
	return ""
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unnamed"
	}
	return out
}
