package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Renewal messages surfaced in outcome lines.
const (
	MessageRenewed              = "free renewal completed"
	MessageConfirmationNotFound = "confirmation control not found"
	MessageRenewControlNotFound = "no renew control"
	MessagePaidRenewal          = "paid: "
)

// ActionOutcome is the result of one state-changing protocol. Failures are
// carried in Err instead of being returned, so one resource cannot stop the
// batch.
type ActionOutcome struct {
	Done    bool
	Message string
	Err     error
}

// Executor drives state-changing controls on a resource's console pages.
type Executor struct {
	sel    model.Selectors
	timing Timing
	sleep  Sleeper
}

// NewExecutor creates an Executor.
func NewExecutor(sel model.Selectors, timing Timing, sleep Sleeper) *Executor {
	return &Executor{sel: sel, timing: timing, sleep: sleep}
}

// Restart clicks the start control when it is enabled, else the restart
// control when that is enabled, then waits for the console to settle.
func (e *Executor) Restart(ctx context.Context, page driven.Page) ActionOutcome {
	probes := append(probesFor(e.sel.StartControl, isEnabled), probesFor(e.sel.RestartControl, isEnabled)...)

	control, sel, err := firstMatch(ctx, page, probes)
	if err != nil {
		return failed(fmt.Errorf("locate power control: %w", err))
	}
	if control == nil {
		slog.Warn("no enabled start or restart control")
		return failed(Categorize(CategoryAction, ErrNoActionableControl))
	}

	slog.Info("clicking power control", "selector", sel.String())
	if err := control.Click(ctx); err != nil {
		return failed(Categorize(CategoryAction, fmt.Errorf("click %s: %w", sel, err)))
	}
	if err := settle(ctx, e.sleep, e.timing.RestartSettle); err != nil {
		return failed(err)
	}
	return ActionOutcome{Done: true}
}

// Renew runs the two-step renewal handshake: click control, wait for the
// confirmation dialog, click the first visible confirmation control. The
// renewal only counts as done when the confirmation was clicked.
func (e *Executor) Renew(ctx context.Context, page driven.Page, control driven.Element) ActionOutcome {
	if control == nil {
		return ActionOutcome{Message: MessageRenewControlNotFound}
	}

	if err := control.Click(ctx); err != nil {
		return failed(Categorize(CategoryAction, fmt.Errorf("click renew control: %w", err)))
	}
	if err := settle(ctx, e.sleep, e.timing.RenewDialog); err != nil {
		return failed(err)
	}

	confirm, sel, err := firstMatch(ctx, page, probesFor(e.sel.ConfirmControl, isVisible))
	if err != nil {
		return failed(fmt.Errorf("locate confirmation control: %w", err))
	}
	if confirm == nil {
		slog.Warn("confirmation control not found, renewal not completed")
		return ActionOutcome{
			Message: MessageConfirmationNotFound,
			Err:     Categorize(CategoryAction, ErrConfirmationNotFound),
		}
	}

	slog.Info("confirming renewal", "selector", sel.String())
	if err := confirm.Click(ctx); err != nil {
		return failed(Categorize(CategoryAction, fmt.Errorf("click confirmation: %w", err)))
	}
	if err := settle(ctx, e.sleep, e.timing.ConfirmSettle); err != nil {
		return failed(err)
	}
	return ActionOutcome{Done: true, Message: MessageRenewed}
}

func failed(err error) ActionOutcome {
	return ActionOutcome{Message: err.Error(), Err: err}
}
