// Package rod implements the Browser, Page and Element ports with go-rod
// driving a local Chrome over the DevTools protocol.
package rod

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Browser = (*Browser)(nil)

// Options configures the launched browser.
type Options struct {
	Headless bool
	// Bin is an optional Chrome binary; empty lets the launcher find or fetch one.
	Bin string
	// NavTimeout bounds every navigation and element action.
	NavTimeout time.Duration
}

// Browser owns one Chrome process. Every page lives in its own incognito
// context, so accounts never share cookies.
type Browser struct {
	browser    *rod.Browser
	launcher   *launcher.Launcher
	navTimeout time.Duration
}

// Launch starts Chrome and connects to it.
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080")
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	navTimeout := opts.NavTimeout
	if navTimeout <= 0 {
		navTimeout = 60 * time.Second
	}

	slog.Debug("browser started", "headless", opts.Headless)
	return &Browser{browser: browser, launcher: l, navTimeout: navTimeout}, nil
}

// NewPage opens a blank page in a fresh incognito context with the
// anti-automation script, viewport and user agent installed.
func (b *Browser) NewPage(ctx context.Context) (driven.Page, error) {
	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	p := &Page{page: page, navTimeout: b.navTimeout}
	// An empty context id would make Close shut the whole browser down.
	if incognito.BrowserContextID != "" {
		p.browserContext = incognito
	}

	if err := harden(page); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

// Close shuts the browser down and removes the launcher's profile directory.
func (b *Browser) Close() error {
	err := b.browser.Close()
	b.launcher.Kill()
	b.launcher.Cleanup()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
