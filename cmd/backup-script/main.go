// Command backup-script orchestrates a restic backup run against an rclone
// remote: configuration resolution, the step pipeline, and the emailed
// report of the recorded outcomes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/KeisukeFD/backup-script/internal/checks"
	"github.com/KeisukeFD/backup-script/internal/cli"
	"github.com/KeisukeFD/backup-script/internal/config"
	"github.com/KeisukeFD/backup-script/internal/logging"
	"github.com/KeisukeFD/backup-script/internal/metrics"
	"github.com/KeisukeFD/backup-script/internal/notify"
	"github.com/KeisukeFD/backup-script/internal/orchestrator"
	"github.com/KeisukeFD/backup-script/internal/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		cli.PrintHelp(os.Stderr, os.Args[0])
		return types.ExitConfigError.Int()
	}
	if args.ShowHelp {
		cli.PrintHelp(os.Stderr, os.Args[0])
		return types.ExitSuccess.Int()
	}
	if args.ShowVersion {
		cli.PrintVersion(os.Stdout)
		return types.ExitSuccess.Int()
	}

	logger := logging.New(args.LogLevel, true)
	if args.LogFilePath != "" {
		if err := logger.OpenLogFile(args.LogFilePath); err != nil {
			logger.Warning("Cannot open log file: %v", err)
		} else {
			defer logger.CloseLogFile()
		}
	}

	loaded, err := config.LoadDocument(args.ConfigPath)
	if err != nil {
		logger.Critical("Cannot load configuration: %v", err)
		return types.ExitConfigError.Int()
	}

	cfg, err := config.Resolve(config.Defaults(), loaded, args.RepoName)
	if err != nil {
		var validationErr *config.ValidationError
		if errors.As(err, &validationErr) {
			logger.Critical("Configuration is incomplete:")
			for _, path := range validationErr.Missing {
				logger.Critical("  missing required field: %s", path)
			}
		} else {
			logger.Critical("Cannot resolve configuration: %v", err)
		}
		return types.ExitConfigError.Int()
	}

	logger.Info("Repository: %s", cfg.Repository)

	checker := checks.NewChecker(logger)
	if result := checker.CheckFolders(args.Folders); !result.Passed {
		return types.ExitConfigError.Int()
	}
	checker.CheckExclusionFile(cfg.ExclusionFile)

	ctx := context.Background()

	orch := orchestrator.New(cfg, args.Folders, args.FirstRun, orchestrator.Deps{Logger: logger})
	status, err := orch.Run(ctx)
	if err != nil {
		if errors.Is(err, orchestrator.ErrToolNotFound) {
			logger.Critical("Backup binary not found: %s", cfg.ResticBinary)
			return types.ExitToolMissing.Int()
		}
		logger.Critical("Run aborted: %v", err)
		return types.ExitGenericError.Int()
	}

	report := notify.BuildReport(orch.Ledger())
	logger.Debug("Run report:\n%s", report.Body)

	if cfg.Email.Enabled {
		notifier := notify.NewEmailNotifier(cfg.Email, logger)
		notifier.Notify(ctx, report)
	}

	if cfg.Metrics.Enabled {
		exporter := metrics.NewTextfileExporter(cfg.Metrics.Path, logger)
		if err := exporter.Export(orch.Ledger()); err != nil {
			logger.Warning("Cannot export metrics: %v", err)
		}
	}

	if status == types.RunFailed {
		return types.ExitRunFailed.Int()
	}
	return types.ExitSuccess.Int()
}
