package rod

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Element = (*Element)(nil)

// Element wraps one located rod element.
type Element struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *Element) bounded(ctx context.Context) (*rod.Element, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(ctx, e.timeout)
	return e.el.Context(tctx), cancel
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	el, cancel := e.bounded(ctx)
	defer cancel()

	v, err := el.Attribute(name)
	if err != nil {
		return "", false, fmt.Errorf("read attribute %s: %w", name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	el, cancel := e.bounded(ctx)
	defer cancel()

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	return text, nil
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	el, cancel := e.bounded(ctx)
	defer cancel()

	visible, err := el.Visible()
	if err != nil {
		return false, fmt.Errorf("check visibility: %w", err)
	}
	return visible, nil
}

func (e *Element) Click(ctx context.Context) error {
	el, cancel := e.bounded(ctx)
	defer cancel()

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

// Fill selects the current value and types over it.
func (e *Element) Fill(ctx context.Context, value string) error {
	el, cancel := e.bounded(ctx)
	defer cancel()

	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text: %w", err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	return nil
}

func (e *Element) PressEnter(ctx context.Context) error {
	el, cancel := e.bounded(ctx)
	defer cancel()

	if err := el.Type(input.Enter); err != nil {
		return fmt.Errorf("press enter: %w", err)
	}
	return nil
}
