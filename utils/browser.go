package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"maps-scraper/internal/types"
	scrapeerrors "maps-scraper/pkg/errors"
)

// gracefulCloseTimeout bounds how long Close waits for the browser to exit
const gracefulCloseTimeout = 5 * time.Second

// browserCandidates are looked up on PATH when the configured binary is missing
var browserCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// crashSignatures are lower-cased fragments of errors raised when the
// browser process or its devtools connection is gone.
var crashSignatures = []string{
	"tab crashed",
	"target crashed",
	"target closed",
	"invalid session id",
	"session deleted",
	"session closed",
	"websocket",
	"inspector.detached",
	"broken pipe",
	"connection reset",
	"use of closed network connection",
}

var _ types.Session = (*BrowserSession)(nil)

// BrowserSession owns one headless Chrome process driven through chromedp.
// It is not safe for concurrent use.
type BrowserSession struct {
	config   *types.Config
	logger   types.Logger
	provider string
	execPath string

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// OpenBrowserSession resolves the browser binary and launches it.
func OpenBrowserSession(config *types.Config, logger types.Logger, provider string) (*BrowserSession, error) {
	execPath, err := ResolveBrowserPath(config)
	if err != nil {
		return nil, err
	}

	s := &BrowserSession{
		config:   config,
		logger:   logger,
		provider: provider,
		execPath: execPath,
	}
	if err := s.start(); err != nil {
		return nil, scrapeerrors.NewConfiguration("failed to launch browser "+execPath, err)
	}

	logger.Debugf("Browser session started for %s using %s", provider, execPath)
	return s, nil
}

// ResolveBrowserPath returns the configured Chrome binary if it exists,
// otherwise the first well-known browser found on PATH.
func ResolveBrowserPath(config *types.Config) (string, error) {
	if config.ChromePath != "" {
		if info, err := os.Stat(config.ChromePath); err == nil && !info.IsDir() {
			return config.ChromePath, nil
		}
	}
	for _, name := range browserCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", scrapeerrors.NewConfiguration("no compatible browser found, install Chrome or Chromium or set CHROME_PATH", nil)
}

// IsCrashSignature reports whether err looks like a dead browser rather than
// a slow or broken page.
func IsCrashSignature(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, chromedp.ErrInvalidContext) ||
		errors.Is(err, chromedp.ErrChannelClosed) ||
		errors.Is(err, chromedp.ErrInvalidTarget) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range crashSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func (s *BrowserSession) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-software-rasterizer", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(s.config.UserAgent),
		chromedp.WindowSize(s.config.WindowWidth, s.config.WindowHeight),
	)
	if s.config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if s.execPath != "" {
		opts = append(opts, chromedp.ExecPath(s.execPath))
	}
	return opts
}

func (s *BrowserSession) start() error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(s.logger.Debugf),
		chromedp.WithErrorf(s.logger.Debugf),
	)

	// An empty Run launches the browser and opens the first tab
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	return nil
}

// shutdown tears down the current browser. A graceful shutdown asks Chrome
// to close first; otherwise the process is killed with the allocator.
func (s *BrowserSession) shutdown(graceful bool) error {
	var err error
	if ctx := s.browserCtx; ctx != nil && graceful {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(ctx) }()
		select {
		case err = <-done:
		case <-time.After(gracefulCloseTimeout):
			err = fmt.Errorf("browser did not close within %v", gracefulCloseTimeout)
		}
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.browserCtx, s.browserCancel, s.allocCancel = nil, nil, nil
	return err
}

func (s *BrowserSession) run(timeout time.Duration, actions ...chromedp.Action) error {
	if s.browserCtx == nil {
		return scrapeerrors.NewSession(s.provider, "browser session is closed", nil)
	}

	ctx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()

	err := chromedp.Run(ctx, actions...)
	if err == nil {
		return nil
	}
	if s.browserCtx.Err() != nil || IsCrashSignature(err) {
		return scrapeerrors.NewSession(s.provider, "browser session lost", err)
	}
	return err
}

// NavigateAndSettle loads url and then waits a fixed settle duration for
// client-side rendering.
func (s *BrowserSession) NavigateAndSettle(url string, settle time.Duration) error {
	if err := s.run(s.config.PageLoadTimeout, chromedp.Navigate(url)); err != nil {
		if scrapeerrors.IsSessionFatal(err) {
			return err
		}
		return scrapeerrors.NewNavigation(s.provider, "failed to load "+url, err)
	}
	time.Sleep(settle)
	return nil
}

// ScrollHeight reports the scrollHeight of the first element matching selector.
func (s *BrowserSession) ScrollHeight(selector string) (int64, bool, error) {
	script := fmt.Sprintf(`(function () {
  const el = document.querySelector(%s);
  return el ? el.scrollHeight : -1;
})()`, jsString(selector))

	var height int64
	if err := s.run(s.config.ScriptTimeout, chromedp.Evaluate(script, &height)); err != nil {
		return 0, false, err
	}
	if height < 0 {
		return 0, false, nil
	}
	return height, true, nil
}

// ScrollToBottom scrolls the first element matching selector to its end.
func (s *BrowserSession) ScrollToBottom(selector string) error {
	script := fmt.Sprintf(`(function () {
  const el = document.querySelector(%s);
  if (!el) {
    return false;
  }
  el.scrollTop = el.scrollHeight;
  return true;
})()`, jsString(selector))

	var found bool
	if err := s.run(s.config.ScriptTimeout, chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("scroll container %s: %w", selector, scrapeerrors.ErrElementNotFound)
	}
	return nil
}

// ScrollWindowTo scrolls the top-level window to vertical offset y.
func (s *BrowserSession) ScrollWindowTo(y int) error {
	return s.run(s.config.ScriptTimeout, chromedp.Evaluate(fmt.Sprintf("window.scrollTo(0, %d);", y), nil))
}

// PageHTML returns the outer HTML of the current document.
func (s *BrowserSession) PageHTML() (string, error) {
	var html string
	if err := s.run(s.config.ScriptTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Restart kills the current browser, waits the configured cooldown and
// launches a replacement with the same options.
func (s *BrowserSession) Restart() error {
	s.logger.Warnf("Restarting browser session for %s", s.provider)
	_ = s.shutdown(false)
	time.Sleep(s.config.RestartCooldown)

	if err := s.start(); err != nil {
		return scrapeerrors.NewSession(s.provider, "failed to restart browser", err)
	}
	return nil
}

// Close shuts the browser down. Errors are logged and swallowed.
func (s *BrowserSession) Close() error {
	if s.browserCtx == nil {
		return nil
	}
	if err := s.shutdown(true); err != nil {
		s.logger.Debugf("Browser close for %s: %v", s.provider, err)
	}
	return nil
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
