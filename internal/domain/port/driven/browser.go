// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// Browser launches isolated sessions. Each call to NewPage returns a page in
// a fresh browser context with its own cookie jar.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Response is an observed network response.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

// ResponseMatcher decides, from the URL and status alone, whether a response
// body should be fetched and handed to the observer.
type ResponseMatcher func(url string, status int) bool

// Page is one authenticated-or-not browser tab. Implementations bound every
// navigation by their configured timeout.
type Page interface {
	Navigate(ctx context.Context, url string, wait model.WaitPolicy) error
	URL(ctx context.Context) (string, error)

	// Locate returns the first element matching sel, or nil when none exists.
	// It never waits for the element to appear.
	Locate(ctx context.Context, sel model.Selector) (Element, error)

	// InsertText types text into whatever element has focus.
	InsertText(ctx context.Context, text string) error
	// PressEnter sends an Enter key press to the focused element.
	PressEnter(ctx context.Context) error

	// Screenshot writes a full-page PNG to path.
	Screenshot(ctx context.Context, path string) error

	SetTokens(ctx context.Context, tokens []model.Token) error
	Tokens(ctx context.Context) ([]model.Token, error)

	// ObserveResponses calls handle for every response accepted by match
	// until stop is called or ctx ends. handle may run on another goroutine.
	ObserveResponses(ctx context.Context, match ResponseMatcher, handle func(Response)) (stop func())

	Close() error
}

// Element is a handle to one located DOM element.
type Element interface {
	// Attribute returns the attribute value and whether it is set at all.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Text(ctx context.Context) (string, error)
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// Fill replaces the element's current value with value.
	Fill(ctx context.Context, value string) error
	PressEnter(ctx context.Context) error
}
