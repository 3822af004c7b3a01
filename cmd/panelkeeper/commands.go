package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	githubadapter "github.com/ericfisherdev/panelkeeper/internal/adapter/driven/github"
	metricsadapter "github.com/ericfisherdev/panelkeeper/internal/adapter/driven/metrics"
	rodadapter "github.com/ericfisherdev/panelkeeper/internal/adapter/driven/rod"
	sqliteadapter "github.com/ericfisherdev/panelkeeper/internal/adapter/driven/sqlite"
	telegramadapter "github.com/ericfisherdev/panelkeeper/internal/adapter/driven/telegram"
	"github.com/ericfisherdev/panelkeeper/internal/application"
	"github.com/ericfisherdev/panelkeeper/internal/config"
	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

// cookieIdentity labels the single synthetic account of cookie mode.
const cookieIdentity = "cookie-session"

var (
	rootCmd = &cobra.Command{
		Use:   "panelkeeper",
		Short: "Keep hosted servers running and renewed through their web console",
		Long: `panelkeeper signs in to a hosting control panel, restarts stopped servers,
claims free renewals, rotates the session cookie and reports the result.
All settings are read from PANELKEEPER_* environment variables.`,
		SilenceUsage: true,
		RunE:         runMaintenance,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the maintenance workflow (default)",
		RunE:  runMaintenance,
	}
	accountsCmd = &cobra.Command{
		Use:   "accounts",
		Short: "Validate the configured credentials and print them masked",
		RunE:  runAccounts,
	}
	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Print the evidence journal of the last run",
		RunE:  runJournal,
	}
)

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(journalCmd)
}

// setupLogging installs the process-wide slog handler on stderr.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func runMaintenance(cmd *cobra.Command, _ []string) error {
	// 1. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Messenger first, so configuration failures can still be reported.
	messenger := newMessenger(config.LoadTelegram())

	// 3. Load configuration.
	cfg, err := loadConfig(ctx, messenger)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	runID := uuid.NewString()
	slog.Info("config loaded",
		"run_id", runID,
		"mode", cfg.Mode,
		"profile", cfg.Profile,
		"output_dir", cfg.OutputDir,
		"telegram", cfg.HasTelegram(),
		"secret_store", cfg.HasSecretStore(),
	)

	if messenger == nil {
		slog.Info("telegram not configured, notifications disabled")
	}

	profile, err := config.LoadProfile(cfg.Profile, cfg.BaseURL)
	if err != nil {
		return reportConfigFailure(ctx, messenger, "panelkeeper", err)
	}
	title := profile.Name + " maintenance"

	if err := cfg.RequireCredentials(); err != nil {
		return reportConfigFailure(ctx, messenger, title, err)
	}

	accounts := loadAccounts(cfg)
	if len(accounts) == 0 {
		return reportConfigFailure(ctx, messenger, title, application.ErrNoAccounts)
	}
	slog.Info("accounts parsed", "count", len(accounts))

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// 4. Evidence journal (reset per run).
	var journal driven.EvidenceJournal
	if cfg.JournalEnabled() {
		db, err := sqliteadapter.OpenJournal(cfg.JournalPath)
		if err != nil {
			slog.Warn("evidence journal unavailable", "path", cfg.JournalPath, "error", err)
		} else {
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					slog.Error("error closing journal", "error", closeErr)
				}
			}()
			journal = sqliteadapter.NewJournalRepo(db)
		}
	}

	// 5. Secret store for credential rotation.
	var secrets driven.SecretStore
	if cfg.HasSecretStore() {
		secrets = githubadapter.NewClient(cfg.RepoToken, cfg.Repository)
	} else {
		slog.Info("secret store not configured, rotation will only write the artifact")
	}

	metrics := metricsadapter.NewRecorder(runID, cfg.Profile, cfg.MetricsFile, cfg.Pushgateway)

	// 6. Browser.
	browser, err := rodadapter.Launch(ctx, rodadapter.Options{
		Headless:   cfg.Headless,
		Bin:        cfg.BrowserBin,
		NavTimeout: cfg.NavTimeout,
	})
	if err != nil {
		launchErr := application.Categorize(application.CategoryConfiguration, err)
		return reportFailure(ctx, messenger, title, model.StageInit, launchErr)
	}

	// 7. Run the workflow. The orchestrator closes the browser.
	orchestrator, err := application.NewOrchestrator(application.OrchestratorConfig{
		RunID:          runID,
		Mode:           cfg.Mode,
		Profile:        profile,
		StaticResource: cfg.StaticResource,
		OutputDir:      cfg.OutputDir,
		SecretName:     cfg.SecretName,
		Timing:         application.DefaultTiming(),
		Sleep:          application.SleepContext,
	}, browser, messenger, secrets, journal, metrics)
	if err != nil {
		_ = browser.Close()
		return reportConfigFailure(ctx, messenger, title, err)
	}

	report, err := orchestrator.Run(ctx, accounts)
	slog.Info("run finished",
		"run_id", runID,
		"accounts", report.AccountsAttempted,
		"authenticated", report.AccountsAuthenticated,
		"completed", report.AccountsCompleted,
		"failures", report.Failures(),
		"rotated", report.Rotated,
	)
	return err
}

// newMessenger returns the Telegram messenger, or nil when either value is
// empty.
func newMessenger(bot, chat string) driven.Messenger {
	if bot == "" || chat == "" {
		return nil
	}
	return telegramadapter.NewClient(bot, chat)
}

// loadConfig loads the configuration and reports a load failure through
// messenger before returning it.
func loadConfig(ctx context.Context, messenger driven.Messenger) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, reportConfigFailure(ctx, messenger, "panelkeeper", err)
	}
	return cfg, nil
}

// loadAccounts builds the batch for the configured mode. Cookie mode has
// exactly one synthetic account whose secret is the cookie string.
func loadAccounts(cfg *config.Config) []model.Account {
	if cfg.Mode == model.AuthModeCookie {
		return []model.Account{{
			Identity: cookieIdentity,
			Secret:   model.NewSealedSecret(cfg.Cookies),
		}}
	}
	return application.ParseAccounts(cfg.Accounts)
}

func reportConfigFailure(ctx context.Context, messenger driven.Messenger, title string, err error) error {
	return reportFailure(ctx, messenger, title, model.StageInit, application.Categorize(application.CategoryConfiguration, err))
}

// reportFailure sends a failure notification for errors raised before the
// orchestrator takes over, then returns err.
func reportFailure(ctx context.Context, messenger driven.Messenger, title string, stage model.Stage, err error) error {
	notifier := application.NewNotifier(messenger, title, redact.NewScrubber())
	notifier.Notify(ctx, application.Notification{
		OK:     false,
		Stage:  stage,
		Detail: err.Error(),
	})
	return err
}

func runAccounts(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if err := cfg.RequireCredentials(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if cfg.Mode == model.AuthModeCookie {
		profile, err := config.LoadProfile(cfg.Profile, cfg.BaseURL)
		if err != nil {
			return err
		}
		return printCookieSummary(out, cfg.Cookies, profile)
	}

	accounts := application.ParseAccounts(cfg.Accounts)
	if len(accounts) == 0 {
		return application.ErrNoAccounts
	}
	for i, a := range accounts {
		directive := "no"
		if a.HasDirective() {
			directive = "yes"
		}
		fmt.Fprintf(out, "%d. %s (directive: %s)\n", i+1, redact.Mask(a.Identity), directive)
	}
	return nil
}

func printCookieSummary(out io.Writer, raw string, profile model.SiteProfile) error {
	rules := profile.TokenRules
	if len(rules) == 0 {
		rules = application.DefaultTokenRules()
	}

	tokens := application.ParseCookieString(raw, profile.Host(), rules)
	if len(tokens) == 0 {
		return errors.New("cookie string holds no name=value pairs")
	}

	fmt.Fprintf(out, "%d tokens for %s\n", len(tokens), profile.Host())
	for _, t := range tokens {
		class := "unrecognized"
		if rule, ok := application.ClassifyToken(t.Name, rules); ok {
			class = string(rule.Class)
		}
		fmt.Fprintf(out, "  %s [%s] %s\n", t.Name, class, redact.Abbreviate(t.Value, 4))
	}
	return nil
}

func runJournal(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	if !cfg.JournalEnabled() {
		return errors.New("journal is disabled (PANELKEEPER_JOURNAL=off)")
	}
	db, err := sqliteadapter.OpenExisting(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer db.Close()

	journal := sqliteadapter.NewJournalRepo(db)

	ctx := cmd.Context()
	checkpoints, err := journal.ListCheckpoints(ctx)
	if err != nil {
		return err
	}
	outcomes, err := journal.ListOutcomes(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Checkpoints:")
	for _, cp := range checkpoints {
		fmt.Fprintf(out, "  %02d %-20s %s %s\n", cp.Ordinal, cp.Label, cp.CapturedAt.Local().Format("15:04:05"), cp.Path)
	}
	fmt.Fprintln(out, "Outcomes:")
	for _, line := range outcomes {
		fmt.Fprintf(out, "  %s\n", line.Text)
	}
	return nil
}
