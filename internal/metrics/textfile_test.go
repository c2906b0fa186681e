package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KeisukeFD/backup-script/internal/ledger"
	"github.com/KeisukeFD/backup-script/internal/logging"
	"github.com/KeisukeFD/backup-script/internal/types"
)

func metricsLedger() *ledger.Ledger {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	led := ledger.New("run-1", "MyClient", "MyClient/server01/Data")
	led.Append(ledger.StepResult{
		Name:        "backup",
		SuccessText: "snapshot 4f3a21bc saved",
		StartedAt:   start,
		EndedAt:     start.Add(40 * time.Second),
	})
	led.Append(ledger.StepResult{
		Name:      "integrity_check",
		ExitCode:  1,
		ErrorText: "repository contains errors",
		StartedAt: start.Add(40 * time.Second),
		EndedAt:   start.Add(55 * time.Second),
	})
	return led
}

func TestExportWritesTextfile(t *testing.T) {
	dir := t.TempDir()
	exporter := NewTextfileExporter(dir, logging.New(types.LogLevelNone, false))

	if err := exporter.Export(metricsLedger()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "backup_run.prom"))
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	content := string(data)

	for _, fragment := range []string{
		"backup_run_status 1",
		"backup_run_steps_total 2",
		"backup_run_steps_failed_total 1",
		"backup_run_duration_seconds 55.00",
		`backup_run_step_duration_seconds{step="backup"} 40.00`,
		`backup_run_step_duration_seconds{step="integrity_check"} 15.00`,
		`backup_run_info{client="MyClient",backup="MyClient/server01/Data",run_id="run-1"} 1`,
		"# TYPE backup_run_status gauge",
	} {
		if !strings.Contains(content, fragment) {
			t.Errorf("metrics file missing %q:\n%s", fragment, content)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "backup_run.prom.tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after rename")
	}
}

func TestExportSuccessStatus(t *testing.T) {
	dir := t.TempDir()
	exporter := NewTextfileExporter(dir, nil)

	led := ledger.New("run-2", "MyClient", "MyClient/server01/Data")
	led.Append(ledger.StepResult{Name: "backup", SuccessText: "ok"})

	if err := exporter.Export(led); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "backup_run.prom"))
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	if !strings.Contains(string(data), "backup_run_status 0") {
		t.Errorf("success run not exported as status 0:\n%s", data)
	}
}

func TestExportCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "node-exporter")
	exporter := NewTextfileExporter(dir, nil)

	if err := exporter.Export(metricsLedger()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "backup_run.prom")); err != nil {
		t.Errorf("metrics file missing in created directory: %v", err)
	}
}

func TestExportEmptyDirectoryFails(t *testing.T) {
	exporter := NewTextfileExporter("", nil)
	if err := exporter.Export(metricsLedger()); err == nil {
		t.Error("empty textfile directory should fail")
	}
}
