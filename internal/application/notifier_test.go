package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/application"
	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

func writeEvidence(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "01-landing.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))
	return path
}

func TestNotifier_Compose(t *testing.T) {
	scrub := redact.NewScrubber()
	scrub.Track("alice@example.com")
	n := application.NewNotifier(nil, "Example maintenance", scrub)

	text := n.Compose(application.Notification{
		Stage:  model.StageAuth,
		Detail: "alice@example.com rejected, password=hunter2",
	})

	assert.Contains(t, text, "📋 **Example maintenance**")
	assert.Contains(t, text, "❌ failure")
	assert.Contains(t, text, "Stage: authentication")
	assert.NotContains(t, text, "alice@example.com")
	assert.NotContains(t, text, "hunter2")
	assert.Contains(t, text, "⏰ ")
}

func TestNotifier_SendsPhotoWithCaption(t *testing.T) {
	m := &mockMessenger{}
	n := application.NewNotifier(m, "Example", redact.NewScrubber())
	evidence := writeEvidence(t)

	n.Notify(context.Background(), application.Notification{OK: true, Stage: model.StageReport, Evidence: evidence})

	require.Len(t, m.photos, 1)
	assert.Equal(t, evidence, m.photos[0].path)
	assert.Contains(t, m.photos[0].caption, "✅ success")
	assert.Empty(t, m.texts)
}

func TestNotifier_FallsBackToText(t *testing.T) {
	m := &mockMessenger{photoErr: errors.New("413 request entity too large")}
	n := application.NewNotifier(m, "Example", redact.NewScrubber())

	n.Notify(context.Background(), application.Notification{OK: true, Stage: model.StageReport, Evidence: writeEvidence(t)})

	assert.Empty(t, m.photos)
	assert.Len(t, m.texts, 1)
}

func TestNotifier_MissingEvidenceSendsText(t *testing.T) {
	m := &mockMessenger{}
	n := application.NewNotifier(m, "Example", redact.NewScrubber())

	n.Notify(context.Background(), application.Notification{Stage: model.StageReport, Evidence: "/nonexistent/99-error.png"})

	assert.Empty(t, m.photos)
	assert.Len(t, m.texts, 1)
}

func TestNotifier_NeverPanicsOrFails(t *testing.T) {
	failing := &mockMessenger{photoErr: errors.New("down"), textErr: errors.New("down")}

	assert.NotPanics(t, func() {
		application.NewNotifier(failing, "Example", nil).Notify(context.Background(), application.Notification{Evidence: writeEvidence(t)})
		application.NewNotifier(nil, "Example", nil).Notify(context.Background(), application.Notification{})
	})
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\_b \*c\* \[d\]\(e\) 1\.5`, application.EscapeMarkdown("a_b *c* [d](e) 1.5"))
}
