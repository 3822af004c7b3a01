package application

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

const (
	priceSeparator = "-"
	zeroAmount     = "0.00"
)

var amountPattern = regexp.MustCompile(`(\d+\.?\d*)`)

// ParsePrice returns the segment after the last separator in a renewal
// control label, e.g. "0.00 USD" for "Renew Server - 0.00 USD". It returns
// "" when the label has no separator.
func ParsePrice(label string) string {
	i := strings.LastIndex(label, priceSeparator)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(label[i+len(priceSeparator):])
}

// IsFreeRenewal reports whether a renewal costs nothing. It is true when the
// label contains the literal zero amount, or when the first number in price
// parses to exactly zero. Anything unparseable is not free.
//
// Known weakness: the substring check also matches "0.00" inside a larger
// number such as "10.00".
func IsFreeRenewal(label, price string) bool {
	if strings.Contains(label, zeroAmount) {
		return true
	}
	if price == "" {
		return false
	}
	m := amountPattern.FindString(price)
	if m == "" {
		return false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return false
	}
	return v == 0
}

// Inspector reads a resource's live state from its console pages.
type Inspector struct {
	sel    model.Selectors
	timing Timing
	sleep  Sleeper
}

// NewInspector creates an Inspector.
func NewInspector(sel model.Selectors, timing Timing, sleep Sleeper) *Inspector {
	return &Inspector{sel: sel, timing: timing, sleep: sleep}
}

// ReadControls reads the start and stop controls of a resource's control
// page. Missing controls are recorded as absent. An enabled start control
// decides the state on its own, so the stop control is not read. When a
// control cannot be read the state is treated as unknown, which never
// triggers a restart.
func (i *Inspector) ReadControls(ctx context.Context, page driven.Page) (model.ControlState, error) {
	var state model.ControlState

	present, disabled, err := i.controlFlags(ctx, page, i.sel.StartControl)
	if err != nil {
		return i.unknownState(ctx, err)
	}
	state.StartPresent, state.StartDisabled = present, disabled
	if state.NeedsRestart() {
		return state, nil
	}

	present, disabled, err = i.controlFlags(ctx, page, i.sel.StopControl)
	if err != nil {
		return i.unknownState(ctx, err)
	}
	state.StopPresent, state.StopDisabled = present, disabled

	return state, nil
}

func (i *Inspector) unknownState(ctx context.Context, err error) (model.ControlState, error) {
	if ctx.Err() != nil {
		return model.ControlState{}, ctx.Err()
	}
	slog.Warn("failed to read power controls, assuming no action needed", "error", err)
	return model.ControlState{}, nil
}

func (i *Inspector) controlFlags(ctx context.Context, page driven.Page, chain model.SelectorChain) (present, disabled bool, err error) {
	el, err := locateFirst(ctx, page, chain)
	if err != nil || el == nil {
		return false, false, err
	}
	_, disabled, err = el.Attribute(ctx, "disabled")
	if err != nil {
		return true, false, err
	}
	return true, disabled, nil
}

// ReadRenewal reads balance, expiration and the renewal offer from a
// resource's settings page. It also returns the renewal control so the
// caller can act on the exact element that was priced; the control is nil
// when none was found.
func (i *Inspector) ReadRenewal(ctx context.Context, page driven.Page) (model.RenewalOffer, driven.Element, error) {
	var offer model.RenewalOffer

	if err := settle(ctx, i.sleep, i.timing.RenewPreRead); err != nil {
		return offer, nil, err
	}

	var err error
	if offer.Balance, err = readFirstText(ctx, page, i.sel.Balance); err != nil {
		return offer, nil, err
	}
	if offer.Expiration, err = readFirstText(ctx, page, i.sel.Expiration); err != nil {
		return offer, nil, err
	}

	control, _, err := firstMatch(ctx, page, probesFor(i.sel.RenewControl, hasText))
	if err != nil {
		return offer, nil, err
	}
	if control == nil {
		return offer, nil, nil
	}

	label, err := control.Text(ctx)
	if err != nil {
		return offer, nil, err
	}
	offer.ControlFound = true
	offer.Label = strings.TrimSpace(label)
	offer.Price = ParsePrice(offer.Label)
	offer.Free = IsFreeRenewal(offer.Label, offer.Price)

	slog.Info("renewal offer read",
		"balance", offer.Balance,
		"expiration", offer.Expiration,
		"price", offer.Price,
		"free", offer.Free,
	)
	return offer, control, nil
}
