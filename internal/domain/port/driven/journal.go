package driven

import (
	"context"

	"github.com/ericfisherdev/panelkeeper/internal/domain/model"
)

// EvidenceJournal indexes the evidence and outcome lines of the current run.
type EvidenceJournal interface {
	RecordCheckpoint(ctx context.Context, cp model.Checkpoint) error
	RecordOutcome(ctx context.Context, runID string, line model.OutcomeLine) error
	ListCheckpoints(ctx context.Context) ([]model.Checkpoint, error)
	ListOutcomes(ctx context.Context) ([]model.OutcomeLine, error)
}
