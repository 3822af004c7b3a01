package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// EvidenceRecorder captures labeled full-page screenshots. File names are
// "<ordinal>-<label>.png" with a run-wide ordinal, so they sort in capture
// order and never collide within a run.
type EvidenceRecorder struct {
	dir     string
	runID   string
	journal driven.EvidenceJournal
	now     func() time.Time

	mu      sync.Mutex
	ordinal int
	last    string
}

// NewEvidenceRecorder creates a recorder writing into dir. journal may be nil.
func NewEvidenceRecorder(dir, runID string, journal driven.EvidenceJournal) *EvidenceRecorder {
	return &EvidenceRecorder{
		dir:     dir,
		runID:   runID,
		journal: journal,
		now:     time.Now,
	}
}

// Capture screenshots page under label and returns the file path. The
// output directory is created on first use.
func (r *EvidenceRecorder) Capture(ctx context.Context, page driven.Page, label string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create evidence dir: %w", err)
	}

	r.mu.Lock()
	r.ordinal++
	ordinal := r.ordinal
	r.mu.Unlock()

	path := filepath.Join(r.dir, fmt.Sprintf("%02d-%s.png", ordinal, sanitizeLabel(label)))
	if err := page.Screenshot(ctx, path); err != nil {
		return "", fmt.Errorf("capture %s: %w", label, err)
	}

	r.mu.Lock()
	r.last = path
	r.mu.Unlock()

	if r.journal != nil {
		cp := model.Checkpoint{
			RunID:      r.runID,
			Ordinal:    ordinal,
			Label:      label,
			Path:       path,
			CapturedAt: r.now(),
		}
		if err := r.journal.RecordCheckpoint(ctx, cp); err != nil {
			slog.Warn("failed to journal checkpoint", "label", label, "error", err)
		}
	}

	slog.Debug("evidence captured", "label", label, "path", path)
	return path, nil
}

// CaptureBestEffort is Capture with failures logged and swallowed.
func (r *EvidenceRecorder) CaptureBestEffort(ctx context.Context, page driven.Page, label string) string {
	path, err := r.Capture(ctx, page, label)
	if err != nil {
		slog.Warn("evidence capture failed", "label", label, "error", err)
		return ""
	}
	return path
}

// Last returns the path of the most recent successful capture, or "".
func (r *EvidenceRecorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// sanitizeLabel keeps labels safe as file name components.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" {
		return "checkpoint"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, label)
}
