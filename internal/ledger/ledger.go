// Package ledger records one StepResult per executed pipeline step and
// derives the aggregate outcome of a backup run.
package ledger

import (
	"time"

	"github.com/KeisukeFD/backup-script/internal/types"
)

// StepResult is the record of one executed step.
type StepResult struct {
	Name        string
	ExitCode    int
	ErrorText   string
	SuccessText string
	StartedAt   time.Time
	EndedAt     time.Time
}

// Duration returns how long the step ran.
func (r StepResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Status derives the step outcome: Success when the exit code is zero and
// no error text was recorded, Failed otherwise.
func (r StepResult) Status() types.RunStatus {
	if r.ExitCode == 0 && r.ErrorText == "" {
		return types.RunSuccess
	}
	return types.RunFailed
}

// Ledger is the ordered, append-only record of step outcomes for one run.
// It is owned exclusively by the orchestrator while the run is in flight and
// consumed read-only afterwards.
type Ledger struct {
	RunID      string
	ClientName string
	BackupName string

	results []StepResult
}

// New creates an empty ledger identified by the run's client and backup name.
func New(runID, clientName, backupName string) *Ledger {
	return &Ledger{
		RunID:      runID,
		ClientName: clientName,
		BackupName: backupName,
	}
}

// Append records one step result.
func (l *Ledger) Append(result StepResult) {
	l.results = append(l.results, result)
}

// Results returns the recorded step results in execution order.
func (l *Ledger) Results() []StepResult {
	return l.results
}

// Len returns the number of recorded steps.
func (l *Ledger) Len() int {
	return len(l.results)
}

// Status derives the aggregate run outcome: Failed as soon as any recorded
// step failed, Success otherwise.
func (l *Ledger) Status() types.RunStatus {
	for _, result := range l.results {
		if result.Status() == types.RunFailed {
			return types.RunFailed
		}
	}
	return types.RunSuccess
}

// TotalDuration spans from the start of the first recorded step to the end
// of the last one. Zero when nothing was recorded.
func (l *Ledger) TotalDuration() time.Duration {
	if len(l.results) == 0 {
		return 0
	}
	return l.results[len(l.results)-1].EndedAt.Sub(l.results[0].StartedAt)
}
