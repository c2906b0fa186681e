package checks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KeisukeFD/backup-script/internal/logging"
	"github.com/KeisukeFD/backup-script/internal/types"
)

func testChecker() *Checker {
	return NewChecker(logging.New(types.LogLevelNone, false))
}

func TestCheckFoldersAllExist(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	result := testChecker().CheckFolders([]string{first, second})
	if !result.Passed {
		t.Errorf("existing folders should pass: %s", result.Message)
	}
}

func TestCheckFoldersMissing(t *testing.T) {
	existing := t.TempDir()
	missing := filepath.Join(existing, "does-not-exist")

	result := testChecker().CheckFolders([]string{existing, missing})
	if result.Passed {
		t.Error("missing folder should fail the check")
	}
	if !strings.Contains(result.Message, missing) {
		t.Errorf("message %q does not name the missing folder", result.Message)
	}
}

func TestCheckFoldersRejectsRegularFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result := testChecker().CheckFolders([]string{file})
	if result.Passed {
		t.Error("a regular file is not a backup folder")
	}
}

func TestCheckExclusionFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "exclude.txt")
	if err := os.WriteFile(file, []byte("*.tmp\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result := testChecker().CheckExclusionFile(file)
	if !result.Passed {
		t.Errorf("existing exclusion file should pass: %s", result.Message)
	}
}

func TestCheckExclusionFileMissingIsWarningOnly(t *testing.T) {
	result := testChecker().CheckExclusionFile(filepath.Join(t.TempDir(), "absent.txt"))
	if result.Passed {
		t.Error("missing exclusion file should be reported")
	}
	if !strings.Contains(result.Message, "not found") {
		t.Errorf("message = %q", result.Message)
	}
}

func TestCheckExclusionFileEmptyPath(t *testing.T) {
	result := testChecker().CheckExclusionFile("")
	if !result.Passed {
		t.Error("empty exclusion path should pass without a filesystem lookup")
	}
}
