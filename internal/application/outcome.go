package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

const (
	detailLimit       = 200
	outcomeErrorLimit = 30
	messageLimit      = 20
)

// resourceLine summarizes a fully processed resource.
func resourceLine(account string, res model.Resource, r model.InspectionResult) model.OutcomeLine {
	var parts []string
	switch {
	case r.RestartNeeded && r.Restarted:
		parts = append(parts, "🔄restarted")
	case r.RestartNeeded:
		parts = append(parts, "❌restart failed")
	default:
		parts = append(parts, "🟢running")
	}

	switch {
	case r.RenewalNeeded && r.Renewed:
		parts = append(parts, "✅renewed")
	case r.RenewalNeeded:
		parts = append(parts, "❌renew failed")
	case r.Message != "":
		parts = append(parts, "ℹ️"+redact.Truncate(r.Message, messageLimit))
	}

	if r.Expiration != "" {
		parts = append(parts, "📅"+r.Expiration)
	}

	status := model.OutcomeSuccess
	if (r.RestartNeeded && !r.Restarted) || (r.RenewalNeeded && !r.Renewed) {
		status = model.OutcomeResourceFailed
	}

	return model.OutcomeLine{
		Account:  account,
		Resource: redact.MaskID(res.ID),
		Status:   status,
		Text:     fmt.Sprintf("🖥️ %s: %s", res.DisplayName(), strings.Join(parts, " | ")),
	}
}

// resourceFailureLine records a resource whose processing raised.
func resourceFailureLine(account string, res model.Resource, err error, scrub *redact.Scrubber) model.OutcomeLine {
	msg := "timeout"
	if !errors.Is(err, context.DeadlineExceeded) {
		msg = redact.Truncate(scrub.Scrub(err.Error()), outcomeErrorLimit)
	}
	return model.OutcomeLine{
		Account:  account,
		Resource: redact.MaskID(res.ID),
		Status:   model.OutcomeResourceFailed,
		Text:     fmt.Sprintf("❌ %s: %s", res.DisplayName(), msg),
	}
}

// accountFailureLine records an account abandoned at stage.
func accountFailureLine(account string, stage model.Stage, err error, scrub *redact.Scrubber) model.OutcomeLine {
	return model.OutcomeLine{
		Account: account,
		Status:  model.OutcomeAccountFailed,
		Text: fmt.Sprintf("❌ account %s: %s failed: %s",
			account, stage, redact.Truncate(scrub.Scrub(err.Error()), detailLimit)),
	}
}

// directiveLine records a directive that was typed into the console.
func directiveLine(account string) model.OutcomeLine {
	return model.OutcomeLine{
		Account: account,
		Status:  model.OutcomeSuccess,
		Text:    fmt.Sprintf("✅ account %s: directive executed", account),
	}
}
