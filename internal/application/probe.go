package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// acceptFunc decides whether a located element satisfies a probe.
type acceptFunc func(ctx context.Context, el driven.Element) (bool, error)

// probe pairs a selector candidate with the predicate an element must pass.
type probe struct {
	sel    model.Selector
	accept acceptFunc
}

// probesFor turns a selector chain into probes that share one predicate.
func probesFor(chain model.SelectorChain, accept acceptFunc) []probe {
	probes := make([]probe, 0, len(chain))
	for _, sel := range chain {
		probes = append(probes, probe{sel: sel, accept: accept})
	}
	return probes
}

// firstMatch evaluates probes in order and returns the first accepted element
// with the selector that found it. A probe that errors is skipped. It returns
// a nil element when nothing matches; only context cancellation is an error.
func firstMatch(ctx context.Context, page driven.Page, probes []probe) (driven.Element, model.Selector, error) {
	for _, p := range probes {
		if err := ctx.Err(); err != nil {
			return nil, model.Selector{}, err
		}

		el, err := page.Locate(ctx, p.sel)
		if err != nil {
			slog.Debug("probe failed", "selector", p.sel.String(), "error", err)
			continue
		}
		if el == nil {
			continue
		}

		if p.accept != nil {
			ok, err := p.accept(ctx, el)
			if err != nil {
				slog.Debug("probe predicate failed", "selector", p.sel.String(), "error", err)
				continue
			}
			if !ok {
				continue
			}
		}
		return el, p.sel, nil
	}
	return nil, model.Selector{}, nil
}

// locateFirst returns the first element present for any selector in chain.
func locateFirst(ctx context.Context, page driven.Page, chain model.SelectorChain) (driven.Element, error) {
	el, _, err := firstMatch(ctx, page, probesFor(chain, nil))
	return el, err
}

// readFirstText returns the trimmed text of the first present element in
// chain, or "" when no candidate matches.
func readFirstText(ctx context.Context, page driven.Page, chain model.SelectorChain) (string, error) {
	var text string
	_, _, err := firstMatch(ctx, page, probesFor(chain, func(ctx context.Context, el driven.Element) (bool, error) {
		t, err := el.Text(ctx)
		if err != nil {
			return false, err
		}
		text = strings.TrimSpace(t)
		return true, nil
	}))
	return text, err
}

// isVisible accepts elements that are rendered and visible.
func isVisible(ctx context.Context, el driven.Element) (bool, error) {
	return el.Visible(ctx)
}

// isEnabled accepts elements without a disabled attribute.
func isEnabled(ctx context.Context, el driven.Element) (bool, error) {
	_, disabled, err := el.Attribute(ctx, "disabled")
	if err != nil {
		return false, err
	}
	return !disabled, nil
}

// hasText accepts elements with non-blank text.
func hasText(ctx context.Context, el driven.Element) (bool, error) {
	t, err := el.Text(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(t) != "", nil
}
