// Package browser drives headless Chrome via chromedp.
package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jobsweep/jobsweep/internal/scraper"
)

// Config fixes the launch identity of every browser process. The same
// configuration is reused across recoveries so relaunched sessions are
// indistinguishable from the first one.
type Config struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
}

// Chrome launches headless Chrome processes, one page per process.
type Chrome struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a Chrome launcher.
func New(cfg Config, logger *zap.Logger) *Chrome {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1366
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 768
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chrome{cfg: cfg, logger: logger}
}

// Launch starts a fresh process, opens one page, and applies the viewport
// and identity settings. The returned page stays valid until Close or a
// process crash.
func (c *Chrome) Launch(ctx context.Context) (scraper.Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(c.cfg.UserAgent),
	)
	if c.cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	warmup := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(c.cfg.UserAgent),
		chromedp.EmulateViewport(int64(c.cfg.ViewportWidth), int64(c.cfg.ViewportHeight)),
	}
	if err := runWithDeadline(ctx, tabCtx, warmup); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	c.logger.Debug("browser launched",
		zap.Bool("headless", c.cfg.Headless),
		zap.Int("viewport_w", c.cfg.ViewportWidth),
		zap.Int("viewport_h", c.cfg.ViewportHeight),
	)

	return &page{
		ctx:         tabCtx,
		cancelTab:   tabCancel,
		cancelAlloc: allocCancel,
	}, nil
}

// page wraps the single chromedp tab context of a live process.
type page struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// run executes actions on the tab, honoring the caller's deadline without
// killing the tab context itself.
func (p *page) run(ctx context.Context, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("chromedp run: %w", ctx.Err())
		}
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

// Navigate loads the URL, waiting only for the main frame so slow
// sub-resources cannot hang the unit.
func (p *page) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, chromedp.Navigate(url))
}

// Location reports the page's current URL.
func (p *page) Location(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// WaitVisible blocks until the selector is visible or the timeout elapses.
func (p *page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Click clicks the selector, bounded by timeout. Absent elements surface
// as a deadline error for the caller to swallow.
func (p *page) Click(ctx context.Context, selector string, timeout time.Duration) error {
	clickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.run(clickCtx, chromedp.Click(selector, chromedp.ByQuery))
}

// CountNodes counts DOM nodes matching the selector.
func (p *page) CountNodes(ctx context.Context, selector string) (int, error) {
	var count int
	expr := "document.querySelectorAll(" + strconv.Quote(selector) + ").length"
	if err := p.run(ctx, chromedp.Evaluate(expr, &count)); err != nil {
		return 0, err
	}
	return count, nil
}

// Evaluate runs the expression and unmarshals its JSON result into out.
func (p *page) Evaluate(ctx context.Context, expression string, out any) error {
	return p.run(ctx, chromedp.Evaluate(expression, out))
}

// Screenshot captures the viewport as PNG bytes.
func (p *page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	action := chromedp.ActionFunc(func(ctx context.Context) error {
		data, err := cdppage.CaptureScreenshot().Do(ctx)
		if err != nil {
			return fmt.Errorf("capture screenshot: %w", err)
		}
		buf = data
		return nil
	})
	if err := p.run(ctx, action); err != nil {
		return nil, err
	}
	return buf, nil
}

// Alive is a cheap, non-blocking connectivity check.
func (p *page) Alive() bool {
	return p.ctx.Err() == nil
}

// Close tears down the tab and the browser process.
func (p *page) Close() error {
	p.cancelTab()
	p.cancelAlloc()
	return nil
}

// runWithDeadline executes actions against tabCtx while honoring the
// caller's deadline, without cancelling the tab itself on return.
func runWithDeadline(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	taskCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
