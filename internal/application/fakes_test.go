package application_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/application"
	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

const testBaseURL = "https://panel.example.test"

func testProfile() model.SiteProfile {
	return model.SiteProfile{
		Name:        "Example",
		BaseURL:     testBaseURL,
		LoginMarker: "/auth/login",
		Paths: model.SitePaths{
			Login:          "/auth/login",
			Landing:        "/",
			ResourceDetail: "/server/{id}",
			SettingsSuffix: "/settings",
		},
		Inventory: model.InventoryPattern{PathFragment: "/api/client", QueryMarker: "page=", ObjectType: "server"},
		Selectors: model.Selectors{
			Username:       model.SelectorChain{{CSS: `input[name="username"]`}, {CSS: `input[type="text"]`}},
			Password:       model.SelectorChain{{CSS: `input[type="password"]`}},
			Submit:         model.SelectorChain{{CSS: `button[type="submit"]`}},
			LoginError:     model.SelectorChain{{CSS: ".error"}, {CSS: ".alert-danger"}},
			StartControl:   model.SelectorChain{{CSS: "#power-start"}},
			StopControl:    model.SelectorChain{{CSS: "#power-stop"}},
			RestartControl: model.SelectorChain{{CSS: "#power-restart"}},
			Balance:        model.SelectorChain{{CSS: "code.balance"}},
			Expiration:     model.SelectorChain{{CSS: "code.expiration"}},
			RenewControl:   model.SelectorChain{{CSS: "button", Text: "Renew Server"}},
			ConfirmControl: model.SelectorChain{{CSS: "button", Text: "Yes, Renew Server"}, {CSS: ".confirm"}},
			DismissBanner:  model.SelectorChain{{CSS: "button", Text: "Dismiss"}},
			TerminalInput:  model.SelectorChain{{CSS: "#terminal"}},
			Logout:         model.SelectorChain{{CSS: "a", Text: "Logout"}},
		},
		TokenRules: application.DefaultTokenRules(),
	}
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// --- element ---

type fakeElement struct {
	attrs    map[string]string
	text     string
	hidden   bool
	clickErr error
	attrErr  error
	onClick  func()

	clicks  int
	filled  string
	entered bool
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	if e.attrErr != nil {
		return "", false, e.attrErr
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Text(context.Context) (string, error) { return e.text, nil }

func (e *fakeElement) Visible(context.Context) (bool, error) { return !e.hidden, nil }

func (e *fakeElement) Click(context.Context) error {
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) Fill(_ context.Context, value string) error {
	e.filled = value
	return nil
}

func (e *fakeElement) PressEnter(context.Context) error {
	e.entered = true
	return nil
}

func disabled() map[string]string { return map[string]string{"disabled": ""} }

// --- page ---

type observer struct {
	match  driven.ResponseMatcher
	handle func(driven.Response)
	active bool
}

type fakePage struct {
	mu sync.Mutex

	url       string
	elements  map[string]*fakeElement
	navErrs   map[string][]error
	redirects map[string]string
	responses map[string][]driven.Response
	tokens    []model.Token
	panicOn   string

	observers   []*observer
	navigated   []string
	injected    []model.Token
	screenshots []string
	inserted    string
	entered     bool
	closed      bool
}

func newFakePage() *fakePage {
	return &fakePage{
		elements:  make(map[string]*fakeElement),
		navErrs:   make(map[string][]error),
		redirects: make(map[string]string),
		responses: make(map[string][]driven.Response),
	}
}

// set registers el under the selector's string form.
func (p *fakePage) set(sel model.Selector, el *fakeElement) *fakeElement {
	p.elements[sel.String()] = el
	return el
}

func (p *fakePage) Navigate(_ context.Context, url string, _ model.WaitPolicy) error {
	if p.panicOn == url {
		panic("renderer crashed")
	}
	p.mu.Lock()
	p.navigated = append(p.navigated, url)
	if errs := p.navErrs[url]; len(errs) > 0 {
		p.navErrs[url] = errs[1:]
		p.mu.Unlock()
		return errs[0]
	}
	p.url = url
	if to, ok := p.redirects[url]; ok {
		p.url = to
	}
	responses := p.responses[url]
	observers := append([]*observer(nil), p.observers...)
	p.mu.Unlock()

	for _, r := range responses {
		for _, o := range observers {
			if o.active && o.match(r.URL, r.Status) {
				o.handle(r)
			}
		}
	}
	return nil
}

func (p *fakePage) URL(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *fakePage) Locate(_ context.Context, sel model.Selector) (driven.Element, error) {
	if p.panicOn == sel.String() {
		panic("locate exploded")
	}
	if el, ok := p.elements[sel.String()]; ok {
		return el, nil
	}
	return nil, nil
}

func (p *fakePage) InsertText(_ context.Context, text string) error {
	p.inserted = text
	return nil
}

func (p *fakePage) PressEnter(context.Context) error {
	p.entered = true
	return nil
}

func (p *fakePage) Screenshot(_ context.Context, path string) error {
	p.screenshots = append(p.screenshots, path)
	return os.WriteFile(path, []byte("png"), 0o600)
}

func (p *fakePage) SetTokens(_ context.Context, tokens []model.Token) error {
	p.injected = append(p.injected, tokens...)
	return nil
}

func (p *fakePage) Tokens(context.Context) ([]model.Token, error) {
	return p.tokens, nil
}

func (p *fakePage) ObserveResponses(_ context.Context, match driven.ResponseMatcher, handle func(driven.Response)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	o := &observer{match: match, handle: handle, active: true}
	p.observers = append(p.observers, o)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		o.active = false
	}
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

// --- browser ---

type fakeBrowser struct {
	pages      []*fakePage
	newPageErr error
	opened     int
	closed     bool
}

func (b *fakeBrowser) NewPage(context.Context) (driven.Page, error) {
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	if b.opened >= len(b.pages) {
		return nil, errors.New("no more pages")
	}
	p := b.pages[b.opened]
	b.opened++
	return p, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

// --- messenger ---

type sentPhoto struct {
	path    string
	caption string
}

type mockMessenger struct {
	texts    []string
	photos   []sentPhoto
	photoErr error
	textErr  error
}

func (m *mockMessenger) SendText(_ context.Context, text string) error {
	if m.textErr != nil {
		return m.textErr
	}
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockMessenger) SendPhoto(_ context.Context, path, caption string) error {
	if m.photoErr != nil {
		return m.photoErr
	}
	m.photos = append(m.photos, sentPhoto{path: path, caption: caption})
	return nil
}

// --- secret store ---

type mockSecretStore struct {
	puts   map[string]string
	err    error
	panics string
}

func (m *mockSecretStore) Put(_ context.Context, name, value string) error {
	if m.panics != "" {
		panic(m.panics)
	}
	if m.err != nil {
		return m.err
	}
	if m.puts == nil {
		m.puts = make(map[string]string)
	}
	m.puts[name] = value
	return nil
}

// --- journal ---

type mockJournal struct {
	checkpoints []model.Checkpoint
	outcomes    []model.OutcomeLine
}

func (m *mockJournal) RecordCheckpoint(_ context.Context, cp model.Checkpoint) error {
	m.checkpoints = append(m.checkpoints, cp)
	return nil
}

func (m *mockJournal) RecordOutcome(_ context.Context, _ string, line model.OutcomeLine) error {
	m.outcomes = append(m.outcomes, line)
	return nil
}

func (m *mockJournal) ListCheckpoints(context.Context) ([]model.Checkpoint, error) {
	return m.checkpoints, nil
}

func (m *mockJournal) ListOutcomes(context.Context) ([]model.OutcomeLine, error) {
	return m.outcomes, nil
}

// --- metrics ---

type mockMetrics struct {
	accounts  map[string]int
	resources map[string]int
	actions   map[string]int
	rotations int
	flushed   bool
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		accounts:  make(map[string]int),
		resources: make(map[string]int),
		actions:   make(map[string]int),
	}
}

func (m *mockMetrics) AccountProcessed(outcome string)  { m.accounts[outcome]++ }
func (m *mockMetrics) ResourceProcessed(outcome string) { m.resources[outcome]++ }

func (m *mockMetrics) ActionPerformed(action string, ok bool) {
	if ok {
		m.actions[action]++
	}
}

func (m *mockMetrics) RotationPerformed(ok bool) {
	if ok {
		m.rotations++
	}
}

func (m *mockMetrics) Flush(context.Context) error {
	m.flushed = true
	return nil
}
