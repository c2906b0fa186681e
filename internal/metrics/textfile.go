// Package metrics writes run statistics in Prometheus textfile format for
// node_exporter scraping.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KeisukeFD/backup-script/internal/ledger"
	"github.com/KeisukeFD/backup-script/internal/logging"
	"github.com/KeisukeFD/backup-script/internal/types"
)

// TextfileExporter writes backup run metrics for the node_exporter
// textfile collector.
type TextfileExporter struct {
	textfileDir string
	logger      *logging.Logger
}

// NewTextfileExporter creates an exporter targeting the provided directory.
func NewTextfileExporter(textfileDir string, logger *logging.Logger) *TextfileExporter {
	return &TextfileExporter{
		textfileDir: strings.TrimRight(textfileDir, "/"),
		logger:      logger,
	}
}

// Export writes the ledger snapshot to backup_run.prom in textfileDir. The
// file is written to a temp path first and renamed into place.
func (te *TextfileExporter) Export(led *ledger.Ledger) error {
	if te == nil || led == nil {
		return nil
	}
	if te.textfileDir == "" {
		return fmt.Errorf("metrics textfile directory is empty")
	}

	if err := os.MkdirAll(te.textfileDir, 0o755); err != nil {
		return fmt.Errorf("create metrics directory %s: %w", te.textfileDir, err)
	}

	tmpPath := filepath.Join(te.textfileDir, "backup_run.prom.tmp")
	finalPath := filepath.Join(te.textfileDir, "backup_run.prom")

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create metrics file %s: %w", tmpPath, err)
	}
	defer f.Close()

	writeMetric := func(name, mtype, help, value string) {
		fmt.Fprintf(f, "# HELP %s %s\n", name, help)
		fmt.Fprintf(f, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintln(f, value)
	}

	status := 0
	failedSteps := 0
	for _, result := range led.Results() {
		if result.Status() == types.RunFailed {
			failedSteps++
		}
	}
	if led.Status() == types.RunFailed {
		status = 1
	}

	results := led.Results()
	startTs := int64(0)
	endTs := int64(0)
	if len(results) > 0 {
		startTs = results[0].StartedAt.Unix()
		endTs = results[len(results)-1].EndedAt.Unix()
	}

	writeMetric(
		"backup_run_start_time_seconds",
		"gauge",
		"Unix timestamp of run start",
		fmt.Sprintf("backup_run_start_time_seconds %d", startTs),
	)

	writeMetric(
		"backup_run_end_time_seconds",
		"gauge",
		"Unix timestamp of run end",
		fmt.Sprintf("backup_run_end_time_seconds %d", endTs),
	)

	writeMetric(
		"backup_run_duration_seconds",
		"gauge",
		"Duration of the last run in seconds",
		fmt.Sprintf("backup_run_duration_seconds %.2f", led.TotalDuration().Seconds()),
	)

	writeMetric(
		"backup_run_status",
		"gauge",
		"Status of the last run (0=success,1=failed)",
		fmt.Sprintf("backup_run_status %d", status),
	)

	writeMetric(
		"backup_run_steps_total",
		"gauge",
		"Number of recorded steps in the last run",
		fmt.Sprintf("backup_run_steps_total %d", led.Len()),
	)

	writeMetric(
		"backup_run_steps_failed_total",
		"gauge",
		"Number of failed steps in the last run",
		fmt.Sprintf("backup_run_steps_failed_total %d", failedSteps),
	)

	// Per-step durations
	fmt.Fprintf(f, "# HELP backup_run_step_duration_seconds Duration of each step of the last run\n")
	fmt.Fprintf(f, "# TYPE backup_run_step_duration_seconds gauge\n")
	for _, result := range results {
		fmt.Fprintf(f, "backup_run_step_duration_seconds{step=%q} %.2f\n", result.Name, result.Duration().Seconds())
	}

	// Static info metric with labels
	fmt.Fprintf(f, "# HELP backup_run_info Static information about this run\n")
	fmt.Fprintf(f, "# TYPE backup_run_info gauge\n")
	fmt.Fprintf(
		f,
		"backup_run_info{client=%q,backup=%q,run_id=%q} 1\n",
		led.ClientName,
		led.BackupName,
		led.RunID,
	)

	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync metrics file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename metrics file to %s: %w", finalPath, err)
	}

	if te.logger != nil {
		te.logger.Debug("Prometheus metrics exported to %s", finalPath)
	}

	return nil
}
