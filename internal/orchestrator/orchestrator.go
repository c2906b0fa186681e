// Package orchestrator drives the sequential backup pipeline: version probe,
// credential acquisition, optional repository init, existence gate, backup,
// retention cleanup and integrity check, recording one ledger entry per
// executed step.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KeisukeFD/backup-script/internal/config"
	"github.com/KeisukeFD/backup-script/internal/input"
	"github.com/KeisukeFD/backup-script/internal/ledger"
	"github.com/KeisukeFD/backup-script/internal/logging"
	"github.com/KeisukeFD/backup-script/internal/notify"
	"github.com/KeisukeFD/backup-script/internal/runner"
	"github.com/KeisukeFD/backup-script/internal/types"
)

// PassphraseEnv is the environment variable restic reads the repository
// passphrase from.
const PassphraseEnv = "RESTIC_PASSWORD"

// ErrToolNotFound is returned when the backup binary is absent (shell exit
// code 127 on the version probe). It aborts the run before any step is
// recorded.
var ErrToolNotFound = errors.New("backup binary not found")

// snapshotPattern extracts the snapshot id from a successful backup output.
var snapshotPattern = regexp.MustCompile(`snapshot ([0-9a-zA-Z]+) saved`)

// Step names as recorded in the ledger.
const (
	StepInitRepository   = "init_repository"
	StepRepositoryExists = "repository_exists"
	StepBackup           = "backup"
	StepCleanup          = "cleanup"
	StepIntegrityCheck   = "integrity_check"
)

// Clock abstracts time acquisition for determinism in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// PassphraseReader prompts the operator for the repository passphrase
// without echoing the input.
type PassphraseReader func(ctx context.Context, prompt string) (string, error)

// EnvLookup reads an environment variable.
type EnvLookup func(key string) (string, bool)

// Deps groups the orchestrator collaborators. Zero fields fall back to the
// real implementations.
type Deps struct {
	Logger         *logging.Logger
	Runner         runner.Runner
	Clock          Clock
	ReadPassphrase PassphraseReader
	LookupEnv      EnvLookup
}

// Orchestrator executes the backup steps strictly in order for one run.
type Orchestrator struct {
	cfg      *config.ResolvedConfig
	folders  []string
	firstRun bool

	ledger         *ledger.Ledger
	logger         *logging.Logger
	runner         runner.Runner
	clock          Clock
	readPassphrase PassphraseReader
	lookupEnv      EnvLookup

	passphrase string
}

// New builds an orchestrator for one run. Custom dependencies override the
// defaults; everything left nil keeps the real collaborator.
func New(cfg *config.ResolvedConfig, folders []string, firstRun bool, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:            cfg,
		folders:        folders,
		firstRun:       firstRun,
		logger:         deps.Logger,
		runner:         deps.Runner,
		clock:          deps.Clock,
		readPassphrase: deps.ReadPassphrase,
		lookupEnv:      deps.LookupEnv,
	}
	if o.logger == nil {
		o.logger = logging.New(types.LogLevelInfo, false)
	}
	if o.runner == nil {
		o.runner = runner.NewShellRunner()
	}
	if o.clock == nil {
		o.clock = realClock{}
	}
	if o.readPassphrase == nil {
		o.readPassphrase = input.PromptPassphrase
	}
	if o.lookupEnv == nil {
		o.lookupEnv = envLookup
	}
	o.ledger = ledger.New(uuid.NewString(), cfg.ClientName, cfg.BackupName)
	return o
}

func envLookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Ledger exposes the run's ledger for the report formatter. Read-only once
// Run returns.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// Run executes the pipeline and returns the aggregate status. The returned
// error is non-nil only for fatal preconditions (binary missing, aborted
// passphrase prompt); step-level failures are recorded in the ledger and
// never propagate.
func (o *Orchestrator) Run(ctx context.Context) (types.RunStatus, error) {
	if err := o.checkVersion(ctx); err != nil {
		return types.RunFailed, err
	}
	if err := o.acquireCredentials(ctx); err != nil {
		return types.RunFailed, err
	}

	if o.firstRun {
		o.initRepository(ctx)
	}

	if !o.repositoryExists(ctx) {
		o.logger.Warning("Repository %s is not initialized; re-run with --first-run to create it", o.cfg.Repository)
		return o.finish(), nil
	}

	o.backup(ctx)
	o.cleanup(ctx)
	o.integrityCheck(ctx)

	return o.finish(), nil
}

func (o *Orchestrator) finish() types.RunStatus {
	status := o.ledger.Status()
	if status == types.RunSuccess {
		o.logger.Info("Backup run %s completed: Success", o.cfg.BackupName)
	} else {
		o.logger.Error("Backup run %s completed: Failed", o.cfg.BackupName)
	}
	return status
}

// checkVersion probes the backup binary. Exit code 127 means the binary is
// absent and the whole run aborts before anything is recorded. The probe is
// a precondition check, not a ledgered step.
func (o *Orchestrator) checkVersion(ctx context.Context) error {
	res, err := o.runner.Execute(ctx, o.cfg.ResticBinary+" version", nil)
	if err != nil {
		return fmt.Errorf("cannot probe backup binary: %w", err)
	}
	if res.ExitCode == 127 {
		return fmt.Errorf("%w: %s", ErrToolNotFound, o.cfg.ResticBinary)
	}
	if res.ExitCode != 0 {
		o.logger.Warning("Version probe exited with code %d", res.ExitCode)
		return nil
	}

	toolName := filepath.Base(o.cfg.ResticBinary)
	versionPattern := regexp.MustCompile(regexp.QuoteMeta(toolName) + `\s(\d+\.\d+\.\d+)`)
	if m := versionPattern.FindStringSubmatch(res.Stdout); m != nil {
		o.logger.Info("Using %s version %s", toolName, m[1])
	}
	return nil
}

// acquireCredentials obtains the repository passphrase, first from the
// environment, otherwise from a no-echo prompt. The secret is injected into
// the environment of every subsequent external invocation of this run; the
// process-wide environment table is never mutated.
func (o *Orchestrator) acquireCredentials(ctx context.Context) error {
	if value, ok := o.lookupEnv(PassphraseEnv); ok && value != "" {
		o.passphrase = value
		o.logger.Debug("Repository passphrase taken from %s", PassphraseEnv)
		return nil
	}

	passphrase, err := o.readPassphrase(ctx, "Enter repository passphrase: ")
	if err != nil {
		return fmt.Errorf("cannot read repository passphrase: %w", err)
	}
	o.passphrase = passphrase
	return nil
}

// stepEnv builds the per-invocation environment overlay.
func (o *Orchestrator) stepEnv() []string {
	if o.passphrase == "" {
		return nil
	}
	return []string{PassphraseEnv + "=" + o.passphrase}
}

// execute runs one ledgered step command and records its outcome. The
// accept callback decides success and provides the recorded texts; failed
// steps never abort the run.
func (o *Orchestrator) execute(ctx context.Context, name, command string, accept func(runner.Result) (bool, string, string)) ledger.StepResult {
	o.logger.Step("%s", name)
	started := o.clock.Now()
	res, err := o.runner.Execute(ctx, command, o.stepEnv())
	ended := o.clock.Now()

	record := ledger.StepResult{
		Name:      name,
		StartedAt: started,
		EndedAt:   ended,
	}

	if err != nil {
		record.ExitCode = -1
		record.ErrorText = err.Error()
	} else if ok, successText, errorText := accept(res); ok {
		// Accepted outcomes are normalized to a clean record so the
		// derived status is Success regardless of the raw exit code
		// (e.g. init against an already initialized repository).
		record.SuccessText = successText
	} else {
		record.ExitCode = res.ExitCode
		record.ErrorText = errorText
		if record.ErrorText == "" && record.ExitCode == 0 {
			record.ErrorText = fmt.Sprintf("%s did not produce the expected output", name)
		}
	}

	o.ledger.Append(record)

	if record.Status() == types.RunSuccess {
		o.logger.Info("%s: OK", name)
	} else {
		o.logger.Error("%s: Error: %s", name, record.ErrorText)
	}
	return record
}

// initRepository creates the repository on first runs. An exit code of 1
// with "already initialized" on stderr counts as success.
func (o *Orchestrator) initRepository(ctx context.Context) {
	o.execute(ctx, StepInitRepository, o.cfg.ResticCmd+" init", func(res runner.Result) (bool, string, string) {
		if res.ExitCode == 0 {
			return true, "repository initialized", ""
		}
		if res.ExitCode == 1 && strings.Contains(res.Stderr, "already initialized") {
			return true, "repository already initialized", ""
		}
		return false, "", res.Stderr
	})
}

// repositoryExists gates the rest of the pipeline. A non-zero exit records
// one Failed repository_exists entry and skips backup/cleanup/integrity.
func (o *Orchestrator) repositoryExists(ctx context.Context) bool {
	record := o.execute(ctx, StepRepositoryExists, o.cfg.ResticCmd+" snapshots --last -c", func(res runner.Result) (bool, string, string) {
		if res.ExitCode == 0 {
			return true, "repository reachable", ""
		}
		errorText := res.Stderr
		if errorText == "" {
			errorText = "repository not initialized"
		}
		return false, "", errorText
	})
	return record.Status() == types.RunSuccess
}

// backup runs the snapshot creation step. Success requires both exit code 0
// and a "snapshot <id> saved" line on stdout.
func (o *Orchestrator) backup(ctx context.Context) {
	quoted := make([]string, len(o.folders))
	for i, folder := range o.folders {
		quoted[i] = fmt.Sprintf("%q", folder)
	}
	command := fmt.Sprintf("%s backup %s --exclude-file=%s",
		o.cfg.ResticCmd, strings.Join(quoted, " "), o.cfg.ExclusionFile)

	record := o.execute(ctx, StepBackup, command, func(res runner.Result) (bool, string, string) {
		m := snapshotPattern.FindStringSubmatch(res.Stdout)
		if res.ExitCode == 0 && m != nil {
			return true, fmt.Sprintf("snapshot %s saved", m[1]), ""
		}
		return false, "", res.Stderr
	})

	// Duration is reported regardless of the outcome.
	seconds := int(record.Duration().Seconds())
	o.logger.Info("Backup took %s", notify.HumanDuration(seconds))
}

// cleanup applies the keep-daily retention policy.
func (o *Orchestrator) cleanup(ctx context.Context) {
	command := fmt.Sprintf("%s forget --keep-daily=%d --prune -c", o.cfg.ResticCmd, o.cfg.KeepDaily)
	o.execute(ctx, StepCleanup, command, func(res runner.Result) (bool, string, string) {
		if res.ExitCode == 0 {
			return true, fmt.Sprintf("retention applied (keep-daily=%d)", o.cfg.KeepDaily), ""
		}
		return false, "", res.Stderr
	})
}

// integrityCheck verifies the repository. Success requires exit code 0 and
// the "no errors were found" marker on stdout.
func (o *Orchestrator) integrityCheck(ctx context.Context) {
	o.execute(ctx, StepIntegrityCheck, o.cfg.ResticCmd+" check", func(res runner.Result) (bool, string, string) {
		if res.ExitCode == 0 && strings.Contains(res.Stdout, "no errors were found") {
			return true, "no errors were found", ""
		}
		return false, "", res.Stderr
	})
}
