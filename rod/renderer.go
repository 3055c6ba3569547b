// Package rod renders pages through a headless Chrome browser. Sources whose
// listing pages are assembled by scripts use it in place of a plain GET.
package rod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lexcorpus/lexcorpus"
)

// Ensure Renderer implements lexcorpus.Renderer at compile time.
var _ lexcorpus.Renderer = (*Renderer)(nil)

// DefaultPagesPerBrowser is the number of pages rendered before the browser
// process is replaced. Chrome accumulates memory under sustained load and
// never returns to its baseline even when every page is closed, so listing
// walks covering thousands of result pages need the periodic restart.
const DefaultPagesPerBrowser = 75

// DefaultRenderTimeout bounds a single page render. Court search pages
// occasionally never fire their load event.
const DefaultRenderTimeout = 2 * time.Minute

// Renderer retrieves rendered HTML from URLs using a headless Chrome
// browser. Renderer is safe for concurrent use by multiple goroutines; each
// render runs in its own browser tab.
type Renderer struct {
	timeout time.Duration

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	pages    int
	maxPages int
	closed   bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPagesPerBrowser sets how many pages are rendered before the browser is
// replaced. Defaults to DefaultPagesPerBrowser.
func WithPagesPerBrowser(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

// WithRenderTimeout caps the time spent rendering a single page. Defaults to
// DefaultRenderTimeout.
func WithRenderTimeout(d time.Duration) Option {
	return func(r *Renderer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewRenderer launches a headless Chrome browser. Close must be called when
// the Renderer is no longer needed.
//
// Returns an error if Chrome or Chromium cannot be found or launched.
func NewRenderer(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		timeout:  DefaultRenderTimeout,
		maxPages: DefaultPagesPerBrowser,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.launch(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render navigates to the URL and returns the page HTML once the load event
// has fired.
func (r *Renderer) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	page, err := r.page()
	if err != nil {
		return "", err
	}
	// Close the unwrapped page so cleanup still works when ctx is done.
	defer page.Close()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	p := page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return "", err
	}
	if err := p.WaitLoad(); err != nil {
		return "", err
	}
	return p.HTML()
}

// Close releases browser resources. Close is safe to call multiple times.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.shutdown()
}

// BrowserPID returns the process id of the browser launcher, or zero after
// Close. Tests use it to observe recycling and cleanup.
func (r *Renderer) BrowserPID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.launcher == nil {
		return 0
	}
	return r.launcher.PID()
}

// page opens a tab on the current browser, replacing the browser first when
// the page budget is spent.
func (r *Renderer) page() (*rod.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, lexcorpus.Errorf(lexcorpus.EINVALID, "renderer is closed")
	}
	if r.pages >= r.maxPages {
		r.recycle()
	}

	page, err := r.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("opening page: %w", err)
	}
	r.pages++
	return page, nil
}

// launch starts a browser with flags that keep background tabs from being
// throttled or discarded during long walks. Must be called with mu held, or
// before the Renderer is shared.
func (r *Renderer) launch() error {
	l := launcher.New().
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("connecting to browser: %w", err)
	}

	r.browser = browser
	r.launcher = l
	return nil
}

// shutdown closes the current browser and kills its launcher. Must be called
// with mu held.
func (r *Renderer) shutdown() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

// recycle replaces the browser with a fresh one and resets the page count.
// The old browser is kept when the new launch fails. Must be called with mu
// held.
func (r *Renderer) recycle() {
	oldBrowser, oldLauncher := r.browser, r.launcher
	r.browser, r.launcher = nil, nil

	if err := r.launch(); err != nil {
		r.browser, r.launcher = oldBrowser, oldLauncher
		return
	}

	if oldBrowser != nil {
		_ = oldBrowser.Close()
	}
	if oldLauncher != nil {
		oldLauncher.Kill()
	}
	r.pages = 0
}
