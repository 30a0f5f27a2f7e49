// Package throttle paces the run between units and guards the resource
// budget of the long-lived process.
package throttle

import (
	"context"
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Config controls the delay window and memory ceiling.
type Config struct {
	// MinDelay and MaxDelay bound the uniform inter-unit pause.
	MinDelay time.Duration
	MaxDelay time.Duration
	// MemoryCeilingMB stops the run when the process grows past it.
	// Zero disables the guard.
	MemoryCeilingMB int
}

// Guard implements scraper.Limiter over math/rand and runtime.MemStats.
type Guard struct {
	cfg     Config
	rng     *rand.Rand
	readMem func() uint64
	logger  *zap.Logger
}

// New creates a Guard. The delay window defaults to 2 to 5 seconds.
func New(cfg Config, logger *zap.Logger) *Guard {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 2 * time.Second
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay + 3*time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		readMem: sampleProcessBytes,
		logger:  logger,
	}
}

// Delay blocks for a duration drawn uniformly from [MinDelay, MaxDelay],
// waking early only when ctx finishes. It runs after every unit, success
// or failure alike.
func (g *Guard) Delay(ctx context.Context) {
	d := g.cfg.MinDelay
	if window := g.cfg.MaxDelay - g.cfg.MinDelay; window > 0 {
		d += time.Duration(g.rng.Int63n(int64(window)))
	}
	g.logger.Debug("inter-unit delay", zap.Duration("delay", d))

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// BudgetExceeded samples process memory against the configured ceiling.
func (g *Guard) BudgetExceeded() bool {
	if g.cfg.MemoryCeilingMB <= 0 {
		return false
	}
	usedMB := int(g.readMem() / (1 << 20))
	if usedMB <= g.cfg.MemoryCeilingMB {
		return false
	}
	g.logger.Warn("memory budget exceeded",
		zap.Int("used_mb", usedMB),
		zap.Int("ceiling_mb", g.cfg.MemoryCeilingMB),
	)
	return true
}

func sampleProcessBytes() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Sys
}
