package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

// DefaultActionTimeout bounds page calls that take no explicit timeout
const DefaultActionTimeout = 30 * time.Second

// Options configures the launched Chromium instance
type Options struct {
	Headless      bool
	Bin           string // Browser binary; searched in the usual locations when empty
	UserDataDir   string // Profile directory; a temporary one is used when empty
	ActionTimeout time.Duration
}

// DefaultOptions returns headless options with the default action timeout
func DefaultOptions() Options {
	return Options{
		Headless:      true,
		ActionTimeout: DefaultActionTimeout,
	}
}

var chromePaths = []string{
	"/usr/bin/google-chrome",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/snap/bin/chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// RodBrowser implements Browser with rod. All tabs live in one incognito
// browsing context.
type RodBrowser struct {
	browser       *rod.Browser
	context       *rod.Browser
	actionTimeout time.Duration
	logger        logrus.FieldLogger
}

// Launch starts Chromium and opens the shared browsing context
func Launch(opts Options, logger logrus.FieldLogger) (*RodBrowser, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}

	l := launcher.New().
		Headless(opts.Headless).
		Set("disable-blink-features", "AutomationControlled").
		NoSandbox(true).
		Leakless(false). // leakless trips some antivirus products
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-backgrounding-occluded-windows").
		Set("mute-audio").
		Set("disable-features", "TranslateUI")

	if bin := resolveBin(opts.Bin, chromePaths, fileExists); bin != "" {
		logger.WithField("bin", bin).Debug("using system browser")
		l = l.Bin(bin)
	}

	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			logger.WithError(err).Warnf("failed to create user data dir %s, using a temporary profile", opts.UserDataDir)
		} else {
			l = l.UserDataDir(opts.UserDataDir)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	incognito, err := browser.Incognito()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create browsing context: %w", err)
	}

	logger.WithField("headless", opts.Headless).Info("browser launched")

	return &RodBrowser{
		browser:       browser,
		context:       incognito,
		actionTimeout: opts.ActionTimeout,
		logger:        logger,
	}, nil
}

// NewPage implements Browser. The tab is not bound to ctx, so it can still be
// closed after ctx is cancelled; each page action takes its own ctx.
func (rb *RodBrowser) NewPage(ctx context.Context) (PageHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	page, err := rb.context.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	return &RodPage{page: page, actionTimeout: rb.actionTimeout}, nil
}

// Close disposes the browsing context and shuts the browser down
func (rb *RodBrowser) Close() error {
	if rb.context != nil {
		if err := rb.context.Close(); err != nil {
			rb.logger.WithError(err).Warn("failed to close browsing context")
		}
	}
	if rb.browser != nil {
		return rb.browser.Close()
	}
	return nil
}

// RodPage implements PageHandle for a rod tab
type RodPage struct {
	page          *rod.Page
	actionTimeout time.Duration
}

// Navigate loads url and waits for the load event
func (rp *RodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page := rp.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

// Click waits for selector to appear and clicks it
func (rp *RodPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := rp.page.Context(ctx).Element(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Fill implements PageHandle
func (rp *RodPage) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := rp.page.Context(ctx).Element(selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	if err := el.Input(""); err != nil {
		return err
	}
	return el.Input(text)
}

// PressKey implements PageHandle
func (rp *RodPage) PressKey(ctx context.Context, key Key) error {
	k, ok := rodKey(key)
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}

	ctx, cancel := context.WithTimeout(ctx, rp.actionTimeout)
	defer cancel()

	return rp.page.Context(ctx).KeyActions().Press(k).Do()
}

// Evaluate implements PageHandle
func (rp *RodPage) Evaluate(ctx context.Context, expr string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, rp.actionTimeout)
	defer cancel()

	res, err := rp.page.Context(ctx).Eval(fmt.Sprintf("() => JSON.stringify(%s)", expr))
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Content implements PageHandle
func (rp *RodPage) Content(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, rp.actionTimeout)
	defer cancel()

	return rp.page.Context(ctx).HTML()
}

// Close implements PageHandle
func (rp *RodPage) Close() error {
	return rp.page.Close()
}

func rodKey(key Key) (input.Key, bool) {
	switch key {
	case KeyEnter:
		return input.Enter, true
	case KeyEscape:
		return input.Escape, true
	case KeyTab:
		return input.Tab, true
	}
	return 0, false
}

// resolveBin returns explicit when set, otherwise the first existing candidate
func resolveBin(explicit string, candidates []string, exists func(string) bool) string {
	if explicit != "" {
		return explicit
	}
	for _, path := range candidates {
		if exists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
