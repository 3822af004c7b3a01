package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Authenticator establishes an authenticated session for one account on a
// fresh page. On success the page is on the console landing page.
type Authenticator interface {
	Authenticate(ctx context.Context, page driven.Page, account model.Account) error
}

// navigateWithRetry loads url, retrying navigation failures with a constant
// delay up to timing's attempt bound. Cancellation is never retried.
func navigateWithRetry(ctx context.Context, page driven.Page, url string, wait model.WaitPolicy, timing Timing) error {
	attempts := timing.attempts()
	attempt := 0

	op := func() error {
		attempt++
		err := page.Navigate(ctx, url, wait)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		slog.Warn("navigation attempt failed", "attempt", attempt, "max", attempts, "error", err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(timing.NavRetryDelay), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return Categorize(CategoryTransient, fmt.Errorf("navigate after %d attempts: %w", attempt, err))
	}
	return nil
}

// ensureAuthenticated fails with an authentication error when the page is
// still on the login surface.
func ensureAuthenticated(ctx context.Context, page driven.Page, profile model.SiteProfile, onLogin error) error {
	addr, err := page.URL(ctx)
	if err != nil {
		return fmt.Errorf("read page address: %w", err)
	}
	if profile.IsLoginSurface(addr) {
		return Categorize(CategoryAuthentication, onLogin)
	}
	return nil
}

// CookieAuthenticator injects a stored session credential and confirms the
// console accepts it.
type CookieAuthenticator struct {
	profile model.SiteProfile
	timing  Timing
	sleep   Sleeper
}

// NewCookieAuthenticator creates a CookieAuthenticator.
func NewCookieAuthenticator(profile model.SiteProfile, timing Timing, sleep Sleeper) *CookieAuthenticator {
	return &CookieAuthenticator{profile: profile, timing: timing, sleep: sleep}
}

var _ Authenticator = (*CookieAuthenticator)(nil)

// Authenticate parses the account secret as a cookie string, injects every
// token, loads the landing page and checks it did not bounce to login.
func (a *CookieAuthenticator) Authenticate(ctx context.Context, page driven.Page, account model.Account) error {
	raw, err := account.Secret.Reveal()
	if err != nil {
		return fmt.Errorf("reveal cookie string: %w", err)
	}

	tokens := ParseCookieString(raw, a.profile.Host(), a.rules())
	if len(tokens) == 0 {
		return Categorize(CategoryConfiguration, errors.New("cookie string holds no tokens"))
	}
	if err := page.SetTokens(ctx, tokens); err != nil {
		return fmt.Errorf("inject tokens: %w", err)
	}
	slog.Info("session tokens injected", "count", len(tokens))

	if err := navigateWithRetry(ctx, page, a.profile.URL(a.profile.Paths.Landing), model.WaitNetworkIdle, a.timing); err != nil {
		return err
	}
	if err := settle(ctx, a.sleep, a.timing.LandingSettle); err != nil {
		return err
	}

	return ensureAuthenticated(ctx, page, a.profile, ErrSessionExpired)
}

func (a *CookieAuthenticator) rules() []model.TokenRule {
	if len(a.profile.TokenRules) == 0 {
		return DefaultTokenRules()
	}
	return a.profile.TokenRules
}

// LoginAuthenticator signs in through the console's login form.
type LoginAuthenticator struct {
	profile model.SiteProfile
	timing  Timing
	sleep   Sleeper
}

// NewLoginAuthenticator creates a LoginAuthenticator.
func NewLoginAuthenticator(profile model.SiteProfile, timing Timing, sleep Sleeper) *LoginAuthenticator {
	return &LoginAuthenticator{profile: profile, timing: timing, sleep: sleep}
}

var _ Authenticator = (*LoginAuthenticator)(nil)

// Authenticate fills and submits the login form, then loads the landing
// page. Rejections are reported with the console's inline error text when
// one is shown.
func (a *LoginAuthenticator) Authenticate(ctx context.Context, page driven.Page, account model.Account) error {
	sel := a.profile.Selectors

	if err := navigateWithRetry(ctx, page, a.profile.URL(a.profile.Paths.Login), model.WaitNetworkIdle, a.timing); err != nil {
		return err
	}
	if err := settle(ctx, a.sleep, a.timing.PageSettle); err != nil {
		return err
	}

	username, err := locateFirst(ctx, page, sel.Username)
	if err != nil {
		return err
	}
	if username == nil {
		return Categorize(CategoryAuthentication, errors.New("username field not found"))
	}
	if err := username.Fill(ctx, account.Identity); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	password, err := locateFirst(ctx, page, sel.Password)
	if err != nil {
		return err
	}
	if password == nil {
		return Categorize(CategoryAuthentication, errors.New("password field not found"))
	}
	secret, err := account.Secret.Reveal()
	if err != nil {
		return fmt.Errorf("reveal password: %w", err)
	}
	if err := password.Fill(ctx, secret); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submit, err := locateFirst(ctx, page, sel.Submit)
	if err != nil {
		return err
	}
	if submit == nil {
		return Categorize(CategoryAuthentication, errors.New("submit control not found"))
	}
	if err := submit.Click(ctx); err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	if err := settle(ctx, a.sleep, a.timing.PageSettle); err != nil {
		return err
	}

	addr, err := page.URL(ctx)
	if err != nil {
		return fmt.Errorf("read page address: %w", err)
	}
	if a.profile.IsLoginSurface(addr) {
		text, err := readFirstText(ctx, page, sel.LoginError)
		if err != nil {
			return err
		}
		if text != "" {
			return Categorize(CategoryAuthentication, fmt.Errorf("login rejected: %s", text))
		}
		return Categorize(CategoryAuthentication, ErrStillOnLogin)
	}
	slog.Info("login accepted")

	if err := navigateWithRetry(ctx, page, a.profile.URL(a.profile.Paths.Landing), model.WaitNetworkIdle, a.timing); err != nil {
		return err
	}
	if err := settle(ctx, a.sleep, a.timing.LandingSettle); err != nil {
		return err
	}
	return ensureAuthenticated(ctx, page, a.profile, ErrSessionExpired)
}

// SessionManager owns how pages are opened and authenticated for one
// deployment mode.
type SessionManager struct {
	mode    model.AuthMode
	auth    Authenticator
	profile model.SiteProfile
	timing  Timing
	sleep   Sleeper
}

// NewSessionManager picks the authenticator for mode.
func NewSessionManager(mode model.AuthMode, profile model.SiteProfile, timing Timing, sleep Sleeper) (*SessionManager, error) {
	m := &SessionManager{mode: mode, profile: profile, timing: timing, sleep: sleep}
	switch mode {
	case model.AuthModeCookie:
		m.auth = NewCookieAuthenticator(profile, timing, sleep)
	case model.AuthModeLogin:
		m.auth = NewLoginAuthenticator(profile, timing, sleep)
	default:
		return nil, Categorize(CategoryConfiguration, fmt.Errorf("unknown auth mode %q", mode))
	}
	return m, nil
}

// Mode returns the deployment's authentication mode.
func (m *SessionManager) Mode() model.AuthMode {
	return m.mode
}

// Establish authenticates page for account.
func (m *SessionManager) Establish(ctx context.Context, page driven.Page, account model.Account) error {
	if err := m.auth.Authenticate(ctx, page, account); err != nil {
		return err
	}
	if m.mode == model.AuthModeCookie {
		m.dismissBanner(ctx, page)
	}
	return nil
}

// dismissBanner closes an announcement overlay when one is visible.
func (m *SessionManager) dismissBanner(ctx context.Context, page driven.Page) {
	el, _, err := firstMatch(ctx, page, probesFor(m.profile.Selectors.DismissBanner, isVisible))
	if err != nil || el == nil {
		return
	}
	if err := el.Click(ctx); err != nil {
		slog.Debug("dismiss banner failed", "error", err)
		return
	}
	slog.Info("announcement dismissed")
	_ = settle(ctx, m.sleep, m.timing.DismissSettle)
}

// Logout signs out of an interactive session. Errors are ignored.
func (m *SessionManager) Logout(ctx context.Context, page driven.Page) {
	if m.mode != model.AuthModeLogin {
		return
	}
	el, err := locateFirst(ctx, page, m.profile.Selectors.Logout)
	if err != nil || el == nil {
		return
	}
	if err := el.Click(ctx); err != nil {
		slog.Debug("logout failed", "error", err)
		return
	}
	slog.Info("logged out")
}
