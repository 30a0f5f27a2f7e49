// Package session owns the browser process lifecycle and recovery.
package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// defaultDisconnectMarkers cover the teardown text chromedp and its
// websocket transport produce when the process dies underneath us.
var defaultDisconnectMarkers = []string{
	"target closed",
	"browser has been closed",
	"websocket",
	"connection reset",
	"context canceled",
	"process exited",
}

// Config controls disconnect classification.
type Config struct {
	// DisconnectMarkers are matched as substrings against error text.
	// Empty means the default marker set.
	DisconnectMarkers []string
}

// Manager owns the single browser process/page pair. It is driven by one
// goroutine; the orchestrator never mutates session state directly.
type Manager struct {
	browser scraper.Browser
	page    scraper.Page
	state   scraper.SessionState
	markers []string
	logger  *zap.Logger
}

// New creates a Manager in the uninitialized state. No process is
// launched until the first EnsureReady call.
func New(b scraper.Browser, cfg Config, logger *zap.Logger) *Manager {
	markers := make([]string, 0, len(cfg.DisconnectMarkers))
	for _, marker := range cfg.DisconnectMarkers {
		markers = append(markers, strings.ToLower(marker))
	}
	if len(markers) == 0 {
		markers = defaultDisconnectMarkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		browser: b,
		state:   scraper.StateUninitialized,
		markers: markers,
		logger:  logger,
	}
}

// State returns the current session state.
func (m *Manager) State() scraper.SessionState {
	return m.state
}

// IsHealthy is a cheap non-blocking check of process connectivity and
// page-open state.
func (m *Manager) IsHealthy() bool {
	return m.state == scraper.StateReady && m.page != nil && m.page.Alive()
}

// EnsureReady returns a connected page, recovering first if necessary.
// Once the session is fatal every call fails fast.
func (m *Manager) EnsureReady(ctx context.Context) (scraper.Page, error) {
	if m.state == scraper.StateFatal {
		return nil, scraper.ErrSessionFatal
	}
	if m.IsHealthy() {
		return m.page, nil
	}
	if m.state == scraper.StateReady {
		m.logger.Warn("session health check failed, marking disconnected")
		m.state = scraper.StateDisconnected
	}
	return m.Recover(ctx)
}

// Recover closes any existing process without letting close errors
// propagate, then launches a fresh one. A launch failure is the one
// unrecoverable condition: the session moves to the fatal state.
func (m *Manager) Recover(ctx context.Context) (scraper.Page, error) {
	m.state = scraper.StateRecovering
	if m.page != nil {
		if err := m.page.Close(); err != nil {
			m.logger.Debug("closing broken session", zap.Error(err))
		}
		m.page = nil
	}

	p, err := m.browser.Launch(ctx)
	if err != nil {
		m.state = scraper.StateFatal
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	m.page = p
	m.state = scraper.StateReady
	m.logger.Info("browser session ready")
	return p, nil
}

// IsDisconnect reports whether err carries one of the configured
// disconnect markers.
func (m *Manager) IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range m.markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Close tears down the live process, if any.
func (m *Manager) Close() {
	if m.page != nil {
		if err := m.page.Close(); err != nil {
			m.logger.Debug("closing session", zap.Error(err))
		}
		m.page = nil
	}
	if m.state != scraper.StateFatal {
		m.state = scraper.StateUninitialized
	}
}
