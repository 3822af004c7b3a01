package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// DirectiveRunner types an account's directive into the console terminal.
type DirectiveRunner struct {
	profile  model.SiteProfile
	evidence *EvidenceRecorder
	timing   Timing
	sleep    Sleeper
}

// NewDirectiveRunner creates a DirectiveRunner.
func NewDirectiveRunner(profile model.SiteProfile, evidence *EvidenceRecorder, timing Timing, sleep Sleeper) *DirectiveRunner {
	return &DirectiveRunner{profile: profile, evidence: evidence, timing: timing, sleep: sleep}
}

// Enabled reports whether the profile has a console to type directives into.
func (d *DirectiveRunner) Enabled() bool {
	return d.profile.Paths.Console != ""
}

// Run opens the console, submits the directive and captures the terminal.
// When no terminal input matches, the directive is typed into whatever has
// focus.
func (d *DirectiveRunner) Run(ctx context.Context, page driven.Page, directive string) error {
	if !d.Enabled() {
		return errors.New("profile has no console path")
	}

	if err := page.Navigate(ctx, d.profile.URL(d.profile.Paths.Console), model.WaitNetworkIdle); err != nil {
		return Categorize(CategoryTransient, fmt.Errorf("open console: %w", err))
	}

	input, err := locateFirst(ctx, page, d.profile.Selectors.TerminalInput)
	if err != nil {
		return err
	}
	if input != nil {
		if err := input.Fill(ctx, directive); err != nil {
			return fmt.Errorf("type directive: %w", err)
		}
		if err := input.PressEnter(ctx); err != nil {
			return fmt.Errorf("submit directive: %w", err)
		}
	} else {
		slog.Info("terminal input not found, typing into focused element")
		if err := page.InsertText(ctx, directive); err != nil {
			return fmt.Errorf("type directive: %w", err)
		}
		if err := page.PressEnter(ctx); err != nil {
			return fmt.Errorf("submit directive: %w", err)
		}
	}

	if err := settle(ctx, d.sleep, d.timing.DirectiveSettle); err != nil {
		return err
	}
	d.evidence.CaptureBestEffort(ctx, page, "terminal")
	return nil
}
