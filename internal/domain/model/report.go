package model

import (
	"strings"
	"time"
)

// OutcomeStatus classifies a report line.
type OutcomeStatus string

const (
	OutcomeSuccess        OutcomeStatus = "success"
	OutcomeResourceFailed OutcomeStatus = "resource_failed"
	OutcomeAccountFailed  OutcomeStatus = "account_failed"
)

// OutcomeLine is one human-readable line of the run report. Account and
// Resource hold masked values only.
type OutcomeLine struct {
	Account  string
	Resource string
	Status   OutcomeStatus
	Text     string
}

// Checkpoint is a captured evidence image.
type Checkpoint struct {
	RunID      string
	Ordinal    int
	Label      string
	Path       string
	CapturedAt time.Time
}

// RunReport accumulates outcome lines in processing order plus the path of
// the last evidence image.
type RunReport struct {
	RunID    string
	Lines    []OutcomeLine
	Evidence string

	AccountsAttempted     int
	AccountsAuthenticated int
	// AccountsCompleted counts accounts that got past discovery.
	AccountsCompleted int
	Rotated           bool
}

// Add appends a line to the report.
func (r *RunReport) Add(line OutcomeLine) {
	r.Lines = append(r.Lines, line)
}

// Failures returns the number of lines that record a failure.
func (r *RunReport) Failures() int {
	n := 0
	for _, l := range r.Lines {
		if l.Status != OutcomeSuccess {
			n++
		}
	}
	return n
}

// Text joins all lines with newlines.
func (r *RunReport) Text() string {
	texts := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		texts = append(texts, l.Text)
	}
	return strings.Join(texts, "\n")
}
