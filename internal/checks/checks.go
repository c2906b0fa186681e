// Package checks performs pre-run validation of the requested backup inputs.
package checks

import (
	"fmt"
	"os"
	"strings"

	"github.com/KeisukeFD/backup-script/internal/logging"
)

// osStat is an indirection over os.Stat so tests can inject failures
// without depending on filesystem behavior.
var osStat = os.Stat

// CheckResult represents the outcome of a single validation check.
type CheckResult struct {
	Passed  bool
	Message string
}

// Checker performs pre-run validation checks.
type Checker struct {
	logger *logging.Logger
}

// NewChecker creates a new Checker.
func NewChecker(logger *logging.Logger) *Checker {
	return &Checker{logger: logger}
}

// CheckFolders verifies that every requested backup folder exists on disk.
// Any missing folder is fatal for the run.
func (c *Checker) CheckFolders(folders []string) CheckResult {
	var missing []string
	for _, folder := range folders {
		info, err := osStat(folder)
		if err != nil || !info.IsDir() {
			missing = append(missing, folder)
		}
	}

	if len(missing) > 0 {
		msg := fmt.Sprintf("backup folders not found: %s", strings.Join(missing, ", "))
		c.logger.Error("%s", msg)
		return CheckResult{Passed: false, Message: msg}
	}

	c.logger.Debug("All %d backup folders exist", len(folders))
	return CheckResult{Passed: true, Message: "all backup folders exist"}
}

// CheckExclusionFile warns when the configured exclusion file is absent.
// The backup still runs; restic simply receives a missing --exclude-file.
func (c *Checker) CheckExclusionFile(path string) CheckResult {
	if path == "" {
		return CheckResult{Passed: true, Message: "no exclusion file configured"}
	}
	if _, err := osStat(path); err != nil {
		msg := fmt.Sprintf("exclusion file %s not found", path)
		c.logger.Warning("%s", msg)
		return CheckResult{Passed: false, Message: msg}
	}
	return CheckResult{Passed: true, Message: "exclusion file exists"}
}
