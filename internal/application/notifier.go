package application

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

// Notification is one summary to deliver.
type Notification struct {
	OK       bool
	Stage    model.Stage
	Detail   string
	Evidence string
}

// Notifier composes masked summaries and delivers them through a Messenger.
// Delivery never fails the run: every transport error is logged and dropped.
type Notifier struct {
	messenger driven.Messenger
	title     string
	scrubber  *redact.Scrubber
	now       func() time.Time
}

// NewNotifier creates a Notifier. A nil messenger turns Notify into a logged no-op.
func NewNotifier(messenger driven.Messenger, title string, scrubber *redact.Scrubber) *Notifier {
	return &Notifier{
		messenger: messenger,
		title:     title,
		scrubber:  scrubber,
		now:       time.Now,
	}
}

// Compose renders the markdown summary for n. Dynamic text is scrubbed and
// escaped so it cannot inject markup.
func (n *Notifier) Compose(note Notification) string {
	status := "✅ success"
	if !note.OK {
		status = "❌ failure"
	}

	var b strings.Builder
	b.WriteString("📋 **" + EscapeMarkdown(n.title) + "**\n\n")
	b.WriteString("Status: " + status + "\n")
	b.WriteString("Stage: " + EscapeMarkdown(string(note.Stage)) + "\n")
	if detail := strings.TrimSpace(n.scrubber.Scrub(note.Detail)); detail != "" {
		b.WriteString("\n" + EscapeMarkdown(detail) + "\n")
	}
	b.WriteString("\n⏰ " + EscapeMarkdown(n.now().Format("2006-01-02 15:04:05")))
	return b.String()
}

// Notify sends note, attaching the evidence image when it exists and
// falling back to text when the attachment cannot be sent.
func (n *Notifier) Notify(ctx context.Context, note Notification) {
	if n.messenger == nil {
		slog.Warn("notifications not configured, skipping", "stage", note.Stage)
		return
	}

	text := n.Compose(note)

	if note.Evidence != "" {
		if _, err := os.Stat(note.Evidence); err == nil {
			err := n.messenger.SendPhoto(ctx, note.Evidence, text)
			if err == nil {
				slog.Info("notification sent with evidence", "stage", note.Stage)
				return
			}
			slog.Warn("photo notification failed, falling back to text", "error", err)
		}
	}

	if err := n.messenger.SendText(ctx, text); err != nil {
		slog.Warn("notification failed", "stage", note.Stage, "error", err)
		return
	}
	slog.Info("notification sent", "stage", note.Stage)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`,
	`{`, `\{`, `}`, `\}`, `[`, `\[`, `]`, `\]`,
	`<`, `\<`, `>`, `\>`, `(`, `\(`, `)`, `\)`,
	`#`, `\#`, `+`, `\+`, `-`, `\-`, `.`, `\.`,
	`!`, `\!`, `|`, `\|`, `~`, `\~`,
)

// EscapeMarkdown backslash-escapes markdown punctuation in s.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
