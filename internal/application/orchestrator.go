// Package application contains the maintenance workflow use cases.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/looplab/fsm"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

// Workflow states.
const (
	stateInit           = "init"
	stateAuthenticating = "authenticating"
	stateDiscovering    = "discovering"
	stateInspecting     = "inspecting"
	stateActing         = "acting"
	stateCapturing      = "capturing"
	stateRotating       = "rotating"
	stateReporting      = "reporting"
	stateDone           = "done"
	stateFailed         = "failed"
)

// Workflow events.
const (
	eventAuthenticate = "authenticate"
	eventDiscover     = "discover"
	eventInspect      = "inspect"
	eventAct          = "act"
	eventCapture      = "capture"
	eventRotate       = "rotate"
	eventReport       = "report"
	eventFinish       = "finish"
	eventAbort        = "abort"
)

// stageByState maps workflow states to the stage names shown to users.
var stageByState = map[string]model.Stage{
	stateInit:           model.StageInit,
	stateAuthenticating: model.StageAuth,
	stateDiscovering:    model.StageDiscover,
	stateInspecting:     model.StageInspect,
	stateActing:         model.StageAct,
	stateCapturing:      model.StageEvidence,
	stateRotating:       model.StageRotate,
	stateReporting:      model.StageReport,
}

// newWorkflowFSM builds the run state machine. Any per-account state may
// start the next account or move on to rotation, so one failed unit never
// strands the run.
func newWorkflowFSM() *fsm.FSM {
	perAccount := []string{stateInit, stateAuthenticating, stateDiscovering, stateInspecting, stateActing, stateCapturing}
	perResource := []string{stateDiscovering, stateInspecting, stateActing, stateCapturing}
	running := []string{
		stateInit, stateAuthenticating, stateDiscovering, stateInspecting,
		stateActing, stateCapturing, stateRotating, stateReporting,
	}

	return fsm.NewFSM(
		stateInit,
		fsm.Events{
			{Name: eventAuthenticate, Src: perAccount, Dst: stateAuthenticating},
			{Name: eventDiscover, Src: []string{stateAuthenticating}, Dst: stateDiscovering},
			{Name: eventInspect, Src: perResource, Dst: stateInspecting},
			{Name: eventAct, Src: []string{stateInspecting}, Dst: stateActing},
			{Name: eventCapture, Src: []string{stateInspecting, stateActing}, Dst: stateCapturing},
			{Name: eventRotate, Src: perAccount, Dst: stateRotating},
			{Name: eventReport, Src: []string{stateRotating}, Dst: stateReporting},
			{Name: eventFinish, Src: []string{stateReporting}, Dst: stateDone},
			{Name: eventAbort, Src: running, Dst: stateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				slog.Debug("workflow transition", "event", e.Event, "from", e.Src, "to", e.Dst)
			},
		},
	)
}

// OrchestratorConfig holds the run-wide settings of an Orchestrator.
type OrchestratorConfig struct {
	RunID          string
	Mode           model.AuthMode
	Profile        model.SiteProfile
	StaticResource string
	OutputDir      string
	SecretName     string
	Timing         Timing
	Sleep          Sleeper
}

// Orchestrator runs the maintenance workflow over a batch of accounts.
// Accounts and resources are processed strictly in order, one page at a
// time, and every unit failure is turned into a report line.
type Orchestrator struct {
	runID          string
	mode           model.AuthMode
	profile        model.SiteProfile
	staticResource string
	timing         Timing
	sleep          Sleeper

	browser   driven.Browser
	journal   driven.EvidenceJournal
	metrics   driven.RunMetrics
	scrubber  *redact.Scrubber
	session   *SessionManager
	inspector *Inspector
	executor  *Executor
	directive *DirectiveRunner
	rotator   *CredentialRotator
	notifier  *Notifier
	evidence  *EvidenceRecorder

	machine *fsm.FSM
	page    driven.Page
}

// NewOrchestrator wires an Orchestrator. messenger, secrets, journal and
// metrics may be nil; the matching concern is then skipped.
func NewOrchestrator(
	cfg OrchestratorConfig,
	browser driven.Browser,
	messenger driven.Messenger,
	secrets driven.SecretStore,
	journal driven.EvidenceJournal,
	metrics driven.RunMetrics,
) (*Orchestrator, error) {
	if browser == nil {
		return nil, Categorize(CategoryConfiguration, errors.New("browser is required"))
	}
	if journal == nil {
		journal = nopJournal{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}

	session, err := NewSessionManager(cfg.Mode, cfg.Profile, cfg.Timing, cfg.Sleep)
	if err != nil {
		return nil, err
	}

	scrubber := redact.NewScrubber()
	evidence := NewEvidenceRecorder(cfg.OutputDir, cfg.RunID, journal)

	title := "panelkeeper"
	if cfg.Profile.Name != "" {
		title = cfg.Profile.Name + " maintenance"
	}

	return &Orchestrator{
		runID:          cfg.RunID,
		mode:           cfg.Mode,
		profile:        cfg.Profile,
		staticResource: cfg.StaticResource,
		timing:         cfg.Timing,
		sleep:          cfg.Sleep,
		browser:        browser,
		journal:        journal,
		metrics:        metrics,
		scrubber:       scrubber,
		session:        session,
		inspector:      NewInspector(cfg.Profile.Selectors, cfg.Timing, cfg.Sleep),
		executor:       NewExecutor(cfg.Profile.Selectors, cfg.Timing, cfg.Sleep),
		directive:      NewDirectiveRunner(cfg.Profile, evidence, cfg.Timing, cfg.Sleep),
		rotator:        NewCredentialRotator(secrets, cfg.SecretName, cfg.OutputDir, cfg.Profile.TokenRules),
		notifier:       NewNotifier(messenger, title, scrubber),
		evidence:       evidence,
	}, nil
}

// Run processes accounts and returns the run report. The browser is closed
// before Run returns on every path. A nil error means the report phase
// completed and at least one account got past discovery.
func (o *Orchestrator) Run(ctx context.Context, accounts []model.Account) (report *model.RunReport, err error) {
	report = &model.RunReport{RunID: o.runID}
	o.machine = newWorkflowFSM()

	defer o.teardown(ctx)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workflow panicked", "panic", r, "stack", string(debug.Stack()))
			err = o.abort(ctx, report, fmt.Errorf("unexpected failure: %v", r))
		}
	}()

	err = o.run(ctx, accounts, report)
	if err != nil && o.machine.Current() != stateDone {
		err = o.abort(ctx, report, err)
	}
	return report, err
}

func (o *Orchestrator) run(ctx context.Context, accounts []model.Account, report *model.RunReport) error {
	if len(accounts) == 0 {
		return Categorize(CategoryConfiguration, ErrNoAccounts)
	}
	for _, a := range accounts {
		o.scrubber.Track(a.Identity)
	}

	var snapshot []model.Token
	for i, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		slog.Info("processing account", "index", i+1, "total", len(accounts), "account", redact.Mask(account.Identity))
		report.AccountsAttempted++

		tokens, err := o.processAccount(ctx, account, report)
		o.closePage()
		if err != nil {
			return err
		}
		if tokens != nil {
			snapshot = tokens
		}
	}

	if err := o.step(ctx, eventRotate); err != nil {
		return err
	}
	o.rotate(ctx, snapshot, report)

	if err := o.step(ctx, eventReport); err != nil {
		return err
	}
	o.publish(ctx, report)

	if err := o.step(ctx, eventFinish); err != nil {
		return err
	}

	slog.Info("run complete",
		"accounts", report.AccountsAttempted,
		"authenticated", report.AccountsAuthenticated,
		"completed", report.AccountsCompleted,
		"failures", report.Failures(),
		"rotated", report.Rotated,
	)
	if report.AccountsCompleted == 0 {
		return ErrAllAccountsFailed
	}
	return nil
}

// processAccount runs one account to completion. Unit failures are recorded
// in report; the returned error is reserved for failures that end the run.
// The returned tokens are the session's credential material, nil when the
// account never authenticated.
func (o *Orchestrator) processAccount(ctx context.Context, account model.Account, report *model.RunReport) (tokens []model.Token, err error) {
	masked := redact.Mask(account.Identity)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("account panicked", "account", masked, "panic", r, "stack", string(debug.Stack()))
			if o.page != nil {
				o.evidence.CaptureBestEffort(context.WithoutCancel(ctx), o.page, "account-error")
			}
			o.accountFailed(ctx, report, masked, o.stage(), fmt.Errorf("unexpected failure: %v", r))
			o.metrics.AccountProcessed("panicked")
			tokens, err = nil, nil
		}
	}()

	if err := o.step(ctx, eventAuthenticate); err != nil {
		return nil, err
	}

	page, err := o.browser.NewPage(ctx)
	if err != nil {
		o.accountFailed(ctx, report, masked, model.StageAuth, fmt.Errorf("open page: %w", err))
		o.metrics.AccountProcessed("auth_failed")
		return nil, nil
	}
	o.page = page
	o.trackSecret(account)

	discovery := NewDiscovery(o.profile)
	discovery.Arm(ctx, page)
	defer discovery.Stop()

	if err := o.session.Establish(ctx, page, account); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.evidence.CaptureBestEffort(ctx, page, "login-failed")
		o.accountFailed(ctx, report, masked, model.StageAuth, err)
		o.metrics.AccountProcessed("auth_failed")
		return nil, nil
	}
	report.AccountsAuthenticated++
	slog.Info("session established", "account", masked)
	o.evidence.CaptureBestEffort(ctx, page, "landing")
	defer o.session.Logout(ctx, page)

	if err := o.step(ctx, eventDiscover); err != nil {
		return nil, err
	}
	resources := o.discover(ctx, discovery)

	directiveRan := false
	if account.HasDirective() && o.directive.Enabled() {
		if err := o.directive.Run(ctx, page, account.Directive); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			o.evidence.CaptureBestEffort(ctx, page, "directive-failed")
			o.accountFailed(ctx, report, masked, model.StageDirective, err)
			o.metrics.AccountProcessed("directive_failed")
			return o.snapshot(ctx, page), nil
		}
		o.addLine(ctx, report, directiveLine(masked))
		directiveRan = true
	}

	if len(resources) == 0 {
		if directiveRan {
			report.AccountsCompleted++
			o.metrics.AccountProcessed("ok")
			return o.snapshot(ctx, page), nil
		}
		o.evidence.CaptureBestEffort(ctx, page, "no-resources")
		o.accountFailed(ctx, report, masked, model.StageDiscover, ErrNoResources)
		o.metrics.AccountProcessed("discovery_failed")
		return o.snapshot(ctx, page), nil
	}

	report.AccountsCompleted++
	slog.Info("resources to process", "account", masked, "count", len(resources))
	for i, res := range resources {
		if err := o.processResource(ctx, page, masked, i, res, report); err != nil {
			return nil, err
		}
		if i < len(resources)-1 {
			if err := settle(ctx, o.sleep, o.timing.BetweenResources); err != nil {
				return nil, err
			}
		}
	}

	o.metrics.AccountProcessed("ok")
	return o.snapshot(ctx, page), nil
}

// trackSecret registers the account's secret with the scrubber before the
// secret is used. In cookie mode every token value is tracked as well.
func (o *Orchestrator) trackSecret(account model.Account) {
	secret, err := account.Secret.Reveal()
	if err != nil || secret == "" {
		return
	}
	o.scrubber.Track(secret)
	if o.mode != model.AuthModeCookie {
		return
	}
	for _, t := range ParseCookieString(secret, o.profile.Host(), o.profile.TokenRules) {
		o.scrubber.Track(t.Value)
	}
}

// discover collects the observed inventory, falling back to the static
// resource when nothing was observed.
func (o *Orchestrator) discover(ctx context.Context, discovery *Discovery) []model.Resource {
	resources, captured := discovery.Collect(ctx, o.timing.DiscoveryGrace)
	if !captured && o.staticResource != "" {
		slog.Info("no inventory observed, using static resource", "id", redact.MaskID(o.staticResource))
		resources = []model.Resource{StaticResource(o.profile, o.staticResource)}
	}
	for _, r := range resources {
		o.scrubber.Track(r.ID)
	}
	return resources
}

// processResource inspects and maintains one resource. Failures become a
// report line; only run-ending failures are returned.
func (o *Orchestrator) processResource(ctx context.Context, page driven.Page, account string, index int, res model.Resource, report *model.RunReport) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("resource panicked", "name", res.DisplayName(), "id", redact.MaskID(res.ID), "panic", r, "stack", string(debug.Stack()))
			o.resourceFailed(ctx, page, account, index, res, report, fmt.Errorf("unexpected failure: %v", r))
			err = nil
		}
	}()

	if err := o.step(ctx, eventInspect); err != nil {
		return err
	}
	slog.Info("processing resource", "index", index+1, "name", res.DisplayName(), "id", redact.MaskID(res.ID))

	result, err := o.maintain(ctx, page, index, res)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Error("resource failed", "name", res.DisplayName(), "id", redact.MaskID(res.ID), "error", o.scrubber.Scrub(err.Error()))
		o.resourceFailed(ctx, page, account, index, res, report, err)
		return nil
	}

	line := resourceLine(account, res, result)
	o.addLine(ctx, report, line)
	o.metrics.ResourceProcessed(string(line.Status))
	return nil
}

// maintain reads the resource's state and performs whatever actions it
// warrants. Action failures are carried in the result, not returned.
func (o *Orchestrator) maintain(ctx context.Context, page driven.Page, index int, res model.Resource) (model.InspectionResult, error) {
	var result model.InspectionResult
	n := index + 1

	if err := page.Navigate(ctx, res.Address, model.WaitNetworkIdle); err != nil {
		return result, fmt.Errorf("open control page: %w", err)
	}
	if err := settle(ctx, o.sleep, o.timing.PageSettle); err != nil {
		return result, err
	}
	o.evidence.CaptureBestEffort(ctx, page, fmt.Sprintf("console-%d", n))

	state, err := o.inspector.ReadControls(ctx, page)
	if err != nil {
		return result, err
	}
	result.RestartNeeded = state.NeedsRestart()
	result.Running = !result.RestartNeeded

	if result.RestartNeeded {
		if err := o.step(ctx, eventAct); err != nil {
			return result, err
		}
		out := o.executor.Restart(ctx, page)
		result.Restarted = out.Done
		result.Running = out.Done
		if out.Err != nil {
			slog.Warn("restart failed", "id", redact.MaskID(res.ID), "error", o.scrubber.Scrub(out.Err.Error()))
		}
		o.metrics.ActionPerformed("restart", out.Done)
		o.evidence.CaptureBestEffort(ctx, page, fmt.Sprintf("after-restart-%d", n))
		if err := o.step(ctx, eventInspect); err != nil {
			return result, err
		}
	}

	if err := page.Navigate(ctx, res.Address+o.profile.Paths.SettingsSuffix, model.WaitNetworkIdle); err != nil {
		return result, fmt.Errorf("open settings page: %w", err)
	}
	if err := settle(ctx, o.sleep, o.timing.PageSettle); err != nil {
		return result, err
	}
	o.evidence.CaptureBestEffort(ctx, page, fmt.Sprintf("settings-%d", n))

	offer, control, err := o.inspector.ReadRenewal(ctx, page)
	if err != nil {
		return result, err
	}
	result.Balance = offer.Balance
	result.Expiration = offer.Expiration
	result.Price = offer.Price

	switch {
	case !offer.ControlFound:
		result.Message = MessageRenewControlNotFound
	case offer.Free:
		result.RenewalNeeded = true
		if err := o.step(ctx, eventAct); err != nil {
			return result, err
		}
		out := o.executor.Renew(ctx, page, control)
		result.Renewed = out.Done
		result.Message = out.Message
		if out.Err != nil {
			slog.Warn("renewal failed", "id", redact.MaskID(res.ID), "error", o.scrubber.Scrub(out.Err.Error()))
		}
		o.metrics.ActionPerformed("renew", out.Done)
	default:
		result.Message = MessagePaidRenewal + offer.Price
		slog.Info("renewal is not free, skipping", "price", offer.Price)
	}

	if err := o.step(ctx, eventCapture); err != nil {
		return result, err
	}
	if result.Renewed {
		o.evidence.CaptureBestEffort(ctx, page, fmt.Sprintf("after-renew-%d", n))
	}
	return result, nil
}

// snapshot reads the page's current credential material.
func (o *Orchestrator) snapshot(ctx context.Context, page driven.Page) []model.Token {
	tokens, err := page.Tokens(ctx)
	if err != nil {
		slog.Warn("failed to read session tokens", "error", err)
		return nil
	}
	return tokens
}

// rotate hands the last snapshot to the credential rotator.
func (o *Orchestrator) rotate(ctx context.Context, snapshot []model.Token, report *model.RunReport) {
	if snapshot == nil {
		slog.Warn("no authenticated session, skipping rotation")
		return
	}

	result, err := o.rotator.Rotate(ctx, snapshot)
	if err != nil {
		slog.Error("credential rotation failed", "error", err)
		o.metrics.RotationPerformed(false)
		return
	}
	if result.Persisted {
		report.Rotated = true
		o.metrics.RotationPerformed(true)
	}
}

// publish sends the final report.
func (o *Orchestrator) publish(ctx context.Context, report *model.RunReport) {
	report.Evidence = o.evidence.Last()
	o.notifier.Notify(ctx, Notification{
		OK:       report.Failures() == 0,
		Stage:    model.StageReport,
		Detail:   report.Text(),
		Evidence: report.Evidence,
	})
}

// abort records a run-ending failure: capture what the page shows, notify,
// and move the workflow to failed.
func (o *Orchestrator) abort(ctx context.Context, report *model.RunReport, cause error) error {
	cleanup := context.WithoutCancel(ctx)
	stage := o.stage()
	detail := redact.Truncate(o.scrubber.Scrub(cause.Error()), detailLimit)
	slog.Error("workflow aborted", "stage", stage, "error", detail)

	if o.page != nil {
		o.evidence.CaptureBestEffort(cleanup, o.page, "error")
	}
	if err := o.machine.Event(cleanup, eventAbort); err != nil {
		slog.Debug("abort transition rejected", "error", err)
	}

	report.Evidence = o.evidence.Last()
	o.notifier.Notify(cleanup, Notification{
		Stage:    stage,
		Detail:   detail,
		Evidence: report.Evidence,
	})
	return cause
}

// teardown releases the page and the browser and publishes metrics.
func (o *Orchestrator) teardown(ctx context.Context) {
	o.closePage()
	if err := o.browser.Close(); err != nil {
		slog.Warn("failed to close browser", "error", err)
	} else {
		slog.Info("browser closed")
	}
	if err := o.metrics.Flush(context.WithoutCancel(ctx)); err != nil {
		slog.Warn("failed to flush metrics", "error", err)
	}
}

func (o *Orchestrator) closePage() {
	if o.page == nil {
		return
	}
	if err := o.page.Close(); err != nil {
		slog.Warn("failed to close page", "error", err)
	}
	o.page = nil
}

// step fires a workflow event. Re-entering the current state is not an error.
func (o *Orchestrator) step(ctx context.Context, event string) error {
	err := o.machine.Event(ctx, event)
	if err == nil {
		return nil
	}
	var same fsm.NoTransitionError
	if errors.As(err, &same) {
		return nil
	}
	return fmt.Errorf("workflow %s from %s: %w", event, o.machine.Current(), err)
}

func (o *Orchestrator) stage() model.Stage {
	if o.machine == nil {
		return model.StageInit
	}
	if s, ok := stageByState[o.machine.Current()]; ok {
		return s
	}
	return model.Stage(o.machine.Current())
}

func (o *Orchestrator) addLine(ctx context.Context, report *model.RunReport, line model.OutcomeLine) {
	report.Add(line)
	slog.Info("outcome", "status", line.Status, "line", line.Text)
	if err := o.journal.RecordOutcome(ctx, o.runID, line); err != nil {
		slog.Warn("failed to journal outcome", "error", err)
	}
}

func (o *Orchestrator) accountFailed(ctx context.Context, report *model.RunReport, account string, stage model.Stage, err error) {
	slog.Error("account failed", "account", account, "stage", stage, "error", o.scrubber.Scrub(err.Error()))
	o.addLine(ctx, report, accountFailureLine(account, stage, err, o.scrubber))
}

func (o *Orchestrator) resourceFailed(ctx context.Context, page driven.Page, account string, index int, res model.Resource, report *model.RunReport, err error) {
	o.evidence.CaptureBestEffort(context.WithoutCancel(ctx), page, fmt.Sprintf("failed-%d", index+1))
	o.addLine(ctx, report, resourceFailureLine(account, res, err, o.scrubber))
	o.metrics.ResourceProcessed("failed")
}

// nopJournal discards everything.
type nopJournal struct{}

func (nopJournal) RecordCheckpoint(context.Context, model.Checkpoint) error { return nil }
func (nopJournal) RecordOutcome(context.Context, string, model.OutcomeLine) error { return nil }
func (nopJournal) ListCheckpoints(context.Context) ([]model.Checkpoint, error) { return nil, nil }
func (nopJournal) ListOutcomes(context.Context) ([]model.OutcomeLine, error) { return nil, nil }

// nopMetrics discards everything.
type nopMetrics struct{}

func (nopMetrics) AccountProcessed(string) {}
func (nopMetrics) ResourceProcessed(string) {}
func (nopMetrics) ActionPerformed(string, bool) {}
func (nopMetrics) RotationPerformed(bool) {}
func (nopMetrics) Flush(context.Context) error { return nil }
