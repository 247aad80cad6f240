package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Engine rasterizes a complete HTML document.
type Engine interface {
	Render(ctx context.Context, html string) ([]byte, error)
	Close() error
}

var launchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-gpu",
}

const (
	deviceScaleFactor = 2
	defaultWidth      = 960
	defaultHeight     = 600
)

// PlaywrightEngine renders with a Chromium instance that is started on first
// use and kept for later renders. Pages are opened per render, so concurrent
// renders share the browser.
type PlaywrightEngine struct {
	TempDir string
	Logger  *slog.Logger

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

// NewPlaywrightEngine creates an engine writing its page files under tempDir
// (the system temp dir when empty).
func NewPlaywrightEngine(tempDir string, logger *slog.Logger) *PlaywrightEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaywrightEngine{TempDir: tempDir, Logger: logger}
}

func (e *PlaywrightEngine) ensureBrowser() (playwright.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil && e.browser.IsConnected() {
		return e.browser, nil
	}
	if e.browser != nil {
		e.Logger.Warn("browser disconnected, relaunching")
		e.browser = nil
	}

	if e.pw == nil {
		pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
		if err != nil {
			return nil, &RenderError{Kind: NotInstalled, Err: fmt.Errorf("could not start playwright: %w", err)}
		}
		e.pw = pw
	}

	browser, err := e.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     launchArgs,
	})
	if err != nil {
		if isMissingExecutable(err) {
			return nil, &RenderError{Kind: NotInstalled, Err: fmt.Errorf("could not launch browser: %w", err)}
		}
		return nil, &RenderError{Kind: Failed, Err: fmt.Errorf("could not launch browser: %w", err)}
	}
	e.browser = browser
	e.Logger.Info("browser launched")
	return browser, nil
}

// Render loads html from a temporary file, waits for network idle and web
// fonts, sizes the viewport to the body and takes a full page PNG.
func (e *PlaywrightEngine) Render(ctx context.Context, html string) ([]byte, error) {
	browser, err := e.ensureBrowser()
	if err != nil {
		return nil, err
	}

	timeout := 30 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, &RenderError{Kind: Timeout, Err: ctx.Err()}
		}
	}
	ms := playwright.Float(float64(timeout.Milliseconds()))

	f, err := os.CreateTemp(e.TempDir, "helpmenu-*.html")
	if err != nil {
		return nil, &RenderError{Kind: Failed, Err: fmt.Errorf("create page file: %w", err)}
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, &RenderError{Kind: Failed, Err: fmt.Errorf("write page file: %w", err)}
	}
	if err := f.Close(); err != nil {
		return nil, &RenderError{Kind: Failed, Err: fmt.Errorf("write page file: %w", err)}
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		DeviceScaleFactor: playwright.Float(deviceScaleFactor),
		Viewport:          &playwright.Size{Width: defaultWidth, Height: defaultHeight},
	})
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("could not create page: %w", err))
	}
	defer page.Close()

	stop := context.AfterFunc(ctx, func() { page.Close() })
	defer stop()

	if _, err := page.Goto(fileURL(path), playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   ms,
	}); err != nil {
		return nil, classify(ctx, fmt.Errorf("load page: %w", err))
	}

	if _, err := page.WaitForFunction("() => document.fonts.ready.then(() => true)", nil,
		playwright.PageWaitForFunctionOptions{Timeout: ms}); err != nil {
		return nil, classify(ctx, fmt.Errorf("wait for fonts: %w", err))
	}

	dims, err := page.Evaluate(`() => ({
		width: parseInt(document.body.style.width, 10) || document.body.scrollWidth,
		height: document.body.scrollHeight
	})`)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("measure page: %w", err))
	}
	width, height := dimensions(dims)
	if err := page.SetViewportSize(width, height); err != nil {
		return nil, classify(ctx, fmt.Errorf("resize viewport: %w", err))
	}

	img, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  ms,
	})
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("screenshot: %w", err))
	}
	return img, nil
}

// Close shuts the browser and the driver down.
func (e *PlaywrightEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.browser != nil {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		e.browser = nil
	}
	if e.pw != nil {
		if err := e.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		e.pw = nil
	}
	return errors.Join(errs...)
}

// Install downloads the playwright driver and Chromium.
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, playwright.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &RenderError{Kind: Timeout, Err: err}
	}
	if isMissingExecutable(err) {
		return &RenderError{Kind: NotInstalled, Err: err}
	}
	return &RenderError{Kind: Failed, Err: err}
}

func isMissingExecutable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "executable doesn't exist") ||
		strings.Contains(msg, "please install") ||
		strings.Contains(msg, "playwright install")
}

func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs)
}

func dimensions(v any) (int, int) {
	width, height := defaultWidth, defaultHeight
	m, ok := v.(map[string]any)
	if !ok {
		return width, height
	}
	if w := number(m["width"]); w > 0 {
		width = w
	}
	if h := number(m["height"]); h > 0 {
		height = h
	}
	return width, height
}

func number(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(math.Ceil(n))
	default:
		return 0
	}
}
