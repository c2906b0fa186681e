// Package cli parses the command-line surface of the backup tool.
package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/KeisukeFD/backup-script/internal/types"
	"github.com/KeisukeFD/backup-script/internal/version"
)

const defaultConfigPath = "config.yml"

// Args holds the parsed command-line arguments.
type Args struct {
	RepoName    string
	ConfigPath  string
	LogFilePath string
	LogLevel    types.LogLevel
	FirstRun    bool
	Folders     []string
	ShowVersion bool
	ShowHelp    bool
}

// Parse parses the given command-line arguments (without the program name).
func Parse(arguments []string) (*Args, error) {
	args := &Args{}

	fs := flag.NewFlagSet("backup-script", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&args.RepoName, "repo", "", "Repository name (required)")
	fs.StringVar(&args.RepoName, "r", "", "Repository name (shorthand)")

	fs.StringVar(&args.ConfigPath, "config", defaultConfigPath, "Path to configuration file")
	fs.StringVar(&args.ConfigPath, "c", defaultConfigPath, "Path to configuration file (shorthand)")

	fs.StringVar(&args.LogFilePath, "log-file", "", "Path to log file (appended, written in real time)")

	var logLevelStr string
	fs.StringVar(&logLevelStr, "log-level", "", "Log level (debug|info|warning|error|critical)")
	fs.StringVar(&logLevelStr, "l", "", "Log level (shorthand)")

	fs.BoolVar(&args.FirstRun, "first-run", false, "Initialize the repository before backing up")

	fs.BoolVar(&args.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&args.ShowVersion, "v", false, "Show version information (shorthand)")

	fs.BoolVar(&args.ShowHelp, "help", false, "Show help message")
	fs.BoolVar(&args.ShowHelp, "h", false, "Show help message (shorthand)")

	if err := fs.Parse(arguments); err != nil {
		return nil, err
	}

	args.Folders = fs.Args()

	if logLevelStr != "" {
		args.LogLevel = parseLogLevel(logLevelStr)
	} else {
		args.LogLevel = types.LogLevelInfo
	}

	if args.ShowVersion || args.ShowHelp {
		return args, nil
	}

	if args.RepoName == "" {
		return nil, fmt.Errorf("repository name is required (-r/--repo)")
	}
	if len(args.Folders) == 0 {
		return nil, fmt.Errorf("at least one backup folder is required")
	}

	return args, nil
}

// parseLogLevel converts string to LogLevel
func parseLogLevel(s string) types.LogLevel {
	switch s {
	case "debug", "5":
		return types.LogLevelDebug
	case "info", "4":
		return types.LogLevelInfo
	case "warning", "3":
		return types.LogLevelWarning
	case "error", "2":
		return types.LogLevelError
	case "critical", "1":
		return types.LogLevelCritical
	case "none", "0":
		return types.LogLevelNone
	default:
		return types.LogLevelInfo
	}
}

// PrintHelp displays the usage message.
func PrintHelp(w io.Writer, argv0 string) {
	fmt.Fprintf(w, "Usage: %s -r REPO [options] FOLDER [FOLDER...]\n\n", argv0)
	fmt.Fprintln(w, "Backup orchestration for restic over an rclone remote.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  -r, --repo       Repository name (required)")
	fmt.Fprintln(w, "  -c, --config     Configuration file (default: config.yml)")
	fmt.Fprintln(w, "      --first-run  Initialize the repository before backing up")
	fmt.Fprintln(w, "      --log-file   Append logs to this file")
	fmt.Fprintln(w, "  -l, --log-level  Log level (debug|info|warning|error|critical)")
	fmt.Fprintln(w, "  -v, --version    Show version information")
	fmt.Fprintln(w, "  -h, --help       Show this message")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  %s -r Data /home/user/Documents\n", argv0)
	fmt.Fprintf(w, "  %s -r Data --first-run -c /etc/backup/config.yml /srv/data\n", argv0)
}

// PrintVersion displays version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintln(w, "backup-script")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	if version.Commit != "" {
		fmt.Fprintf(w, "Commit: %s\n", version.Commit)
	}
	if version.Date != "" {
		fmt.Fprintf(w, "Built: %s\n", version.Date)
	}
}

// ShowHelp displays the usage message on stderr and exits.
func ShowHelp() {
	PrintHelp(os.Stderr, os.Args[0])
	os.Exit(0)
}

// ShowVersion displays version information and exits.
func ShowVersion() {
	PrintVersion(os.Stdout)
	os.Exit(0)
}
