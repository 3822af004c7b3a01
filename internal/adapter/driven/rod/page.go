package rod

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Page = (*Page)(nil)

// requestIdleWindow is how long the network must stay quiet for a
// networkidle navigation to count as finished.
const requestIdleWindow = 500 * time.Millisecond

// Page wraps one rod page.
type Page struct {
	page           *rod.Page
	browserContext closer
	navTimeout     time.Duration
}

type closer interface {
	Close() error
}

// bounded returns the page bound to ctx with the navigation timeout applied.
// Expiry surfaces as context.DeadlineExceeded.
func (p *Page) bounded(ctx context.Context) (*rod.Page, context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(ctx, p.navTimeout)
	return p.page.Context(tctx), tctx, cancel
}

// Navigate loads url and waits according to wait.
func (p *Page) Navigate(ctx context.Context, url string, wait model.WaitPolicy) error {
	pg, tctx, cancel := p.bounded(ctx)
	defer cancel()

	if wait == model.WaitNetworkIdle {
		idle := pg.WaitRequestIdle(requestIdleWindow, nil, nil, nil)
		if err := pg.Navigate(url); err != nil {
			return navError(tctx, err)
		}
		idle()
		if err := tctx.Err(); err != nil {
			return fmt.Errorf("navigate: %w", err)
		}
		return nil
	}

	if err := pg.Navigate(url); err != nil {
		return navError(tctx, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return navError(tctx, err)
	}
	return nil
}

// navError prefers the context error so a timeout reads as one.
func navError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("navigate: %w", ctxErr)
	}
	return fmt.Errorf("navigate: %w", err)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// Locate returns the first element matching sel without waiting.
func (p *Page) Locate(ctx context.Context, sel model.Selector) (driven.Element, error) {
	pg, _, cancel := p.bounded(ctx)
	defer cancel()

	els, err := pg.Elements(sel.CSS)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}

	for _, el := range els {
		if sel.Text != "" {
			text, err := el.Text()
			if err != nil || !textMatches(text, sel.Text) {
				continue
			}
		}
		return &Element{el: el, timeout: p.navTimeout}, nil
	}
	return nil, nil
}

func (p *Page) InsertText(ctx context.Context, text string) error {
	pg, _, cancel := p.bounded(ctx)
	defer cancel()

	if err := pg.InsertText(text); err != nil {
		return fmt.Errorf("insert text: %w", err)
	}
	return nil
}

func (p *Page) PressEnter(ctx context.Context) error {
	pg, _, cancel := p.bounded(ctx)
	defer cancel()

	if err := pg.Keyboard.Type(input.Enter); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}
	return nil
}

// Screenshot writes a full-page PNG to path.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	pg, _, cancel := p.bounded(ctx)
	defer cancel()

	data, err := pg.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}

// SetTokens installs tokens as cookies in the page's browser context.
func (p *Page) SetTokens(ctx context.Context, tokens []model.Token) error {
	params := make([]*proto.NetworkCookieParam, 0, len(tokens))
	for _, t := range tokens {
		params = append(params, &proto.NetworkCookieParam{
			Name:     t.Name,
			Value:    t.Value,
			Domain:   t.Domain,
			Path:     t.Path,
			HTTPOnly: t.HTTPOnly,
			Secure:   t.Secure,
			SameSite: toProtoSameSite(t.SameSite),
		})
	}

	if err := p.page.Context(ctx).SetCookies(params); err != nil {
		return fmt.Errorf("set cookies: %w", err)
	}
	return nil
}

// Tokens returns the cookies visible to the current page URL.
func (p *Page) Tokens(ctx context.Context) ([]model.Token, error) {
	cookies, err := p.page.Context(ctx).Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	tokens := make([]model.Token, 0, len(cookies))
	for _, c := range cookies {
		tokens = append(tokens, model.Token{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: fromProtoSameSite(c.SameSite),
		})
	}
	return tokens, nil
}

// ObserveResponses subscribes to network events. A body is fetched once the
// matching response has finished loading, then passed to handle.
func (p *Page) ObserveResponses(ctx context.Context, match driven.ResponseMatcher, handle func(driven.Response)) func() {
	octx, cancel := context.WithCancel(ctx)
	pg := p.page.Context(octx)

	if err := (proto.NetworkEnable{}).Call(pg); err != nil {
		slog.Warn("enable network events failed", "error", err)
	}

	type observed struct {
		url    string
		status int
	}
	pending := make(map[proto.NetworkRequestID]observed)

	wait := pg.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if e.Response == nil || !match(e.Response.URL, e.Response.Status) {
				return
			}
			pending[e.RequestID] = observed{url: e.Response.URL, status: e.Response.Status}
		},
		func(e *proto.NetworkLoadingFinished) {
			resp, ok := pending[e.RequestID]
			if !ok {
				return
			}
			delete(pending, e.RequestID)

			res, err := proto.NetworkGetResponseBody{RequestID: e.RequestID}.Call(pg)
			if err != nil {
				slog.Debug("response body unavailable", "error", err)
				return
			}
			body, err := decodeBody(res.Body, res.Base64Encoded)
			if err != nil {
				slog.Debug("response body undecodable", "error", err)
				return
			}
			handle(driven.Response{URL: resp.url, Status: resp.status, Body: body})
		},
	)
	go wait()

	return sync.OnceFunc(cancel)
}

func (p *Page) Close() error {
	return closeSession(p.page, p.browserContext)
}

// closeSession closes the page, then disposes the incognito context that
// owns its cookies and storage. Both are attempted; the page error wins.
func closeSession(page, browserContext closer) error {
	pageErr := page.Close()
	var ctxErr error
	if browserContext != nil {
		ctxErr = browserContext.Close()
	}
	if pageErr != nil {
		return fmt.Errorf("close page: %w", pageErr)
	}
	if ctxErr != nil {
		return fmt.Errorf("dispose browser context: %w", ctxErr)
	}
	return nil
}

func textMatches(text, want string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(want))
}

func decodeBody(body string, encoded bool) ([]byte, error) {
	if !encoded {
		return []byte(body), nil
	}
	return base64.StdEncoding.DecodeString(body)
}

func toProtoSameSite(s model.SameSite) proto.NetworkCookieSameSite {
	switch s {
	case model.SameSiteStrict:
		return proto.NetworkCookieSameSiteStrict
	case model.SameSiteNone:
		return proto.NetworkCookieSameSiteNone
	case model.SameSiteLax:
		return proto.NetworkCookieSameSiteLax
	default:
		return ""
	}
}

func fromProtoSameSite(s proto.NetworkCookieSameSite) model.SameSite {
	switch s {
	case proto.NetworkCookieSameSiteStrict:
		return model.SameSiteStrict
	case proto.NetworkCookieSameSiteNone:
		return model.SameSiteNone
	default:
		return model.SameSiteLax
	}
}
