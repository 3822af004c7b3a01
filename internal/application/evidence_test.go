package application_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/panelkeeper/internal/application"
)

func TestEvidenceRecorder_Capture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenshots")
	journal := &mockJournal{}
	rec := application.NewEvidenceRecorder(dir, "run-1", journal)
	page := newFakePage()

	first, err := rec.Capture(context.Background(), page, "landing")
	require.NoError(t, err)
	second, err := rec.Capture(context.Background(), page, "Console 1")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "01-landing.png"), first)
	assert.Equal(t, filepath.Join(dir, "02-console-1.png"), second)
	assert.FileExists(t, second)
	assert.Equal(t, second, rec.Last())

	require.Len(t, journal.checkpoints, 2)
	assert.Equal(t, "run-1", journal.checkpoints[1].RunID)
	assert.Equal(t, 2, journal.checkpoints[1].Ordinal)
	assert.Equal(t, "Console 1", journal.checkpoints[1].Label)
}

func TestEvidenceRecorder_LastEmptyBeforeCapture(t *testing.T) {
	rec := application.NewEvidenceRecorder(t.TempDir(), "run-1", nil)

	assert.Empty(t, rec.Last())
}
