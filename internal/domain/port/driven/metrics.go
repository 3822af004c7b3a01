package driven

import "context"

// RunMetrics counts what a run did. Flush publishes the collected values and
// is called once when the run ends.
type RunMetrics interface {
	AccountProcessed(outcome string)
	ResourceProcessed(outcome string)
	ActionPerformed(action string, ok bool)
	RotationPerformed(ok bool)
	Flush(ctx context.Context) error
}
