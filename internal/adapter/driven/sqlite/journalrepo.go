package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EvidenceJournal = (*JournalRepo)(nil)

// JournalRepo is the SQLite implementation of the EvidenceJournal port. It
// holds the checkpoints and outcome lines of a single run.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a new JournalRepo.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// RecordCheckpoint stores one captured evidence image.
func (r *JournalRepo) RecordCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	capturedAt := cp.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	const query = `INSERT INTO checkpoints (run_id, ordinal, label, path, captured_at) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.conn.ExecContext(ctx, query,
		cp.RunID, cp.Ordinal, cp.Label, cp.Path, capturedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record checkpoint %q: %w", cp.Label, err)
	}
	return nil
}

// RecordOutcome appends one report line.
func (r *JournalRepo) RecordOutcome(ctx context.Context, runID string, line model.OutcomeLine) error {
	const query = `INSERT INTO outcomes (run_id, account, resource, status, text) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.conn.ExecContext(ctx, query, runID, line.Account, line.Resource, string(line.Status), line.Text)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// ListCheckpoints returns all checkpoints in capture order.
func (r *JournalRepo) ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	const query = `SELECT run_id, ordinal, label, path, captured_at FROM checkpoints ORDER BY ordinal, id`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	checkpoints := []model.Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, *cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}

	return checkpoints, nil
}

// ListOutcomes returns all outcome lines in the order they were recorded.
func (r *JournalRepo) ListOutcomes(ctx context.Context) ([]model.OutcomeLine, error) {
	const query = `SELECT account, resource, status, text FROM outcomes ORDER BY id`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	lines := []model.OutcomeLine{}
	for rows.Next() {
		var line model.OutcomeLine
		var status string
		if err := rows.Scan(&line.Account, &line.Resource, &status, &line.Text); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		line.Status = model.OutcomeStatus(status)
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}

	return lines, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(s scanner) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	var capturedAt string

	if err := s.Scan(&cp.RunID, &cp.Ordinal, &cp.Label, &cp.Path, &capturedAt); err != nil {
		return nil, err
	}

	var err error
	cp.CapturedAt, err = parseTime(capturedAt)
	if err != nil {
		return nil, fmt.Errorf("parse captured_at: %w", err)
	}

	return &cp, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
