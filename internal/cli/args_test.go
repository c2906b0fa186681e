package cli

import (
	"testing"

	"github.com/KeisukeFD/backup-script/internal/types"
)

func TestParseMinimal(t *testing.T) {
	args, err := Parse([]string{"-r", "Data", "/home/user/Documents"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if args.RepoName != "Data" {
		t.Errorf("RepoName = %q, want Data", args.RepoName)
	}
	if args.ConfigPath != "config.yml" {
		t.Errorf("ConfigPath = %q, want default config.yml", args.ConfigPath)
	}
	if args.LogLevel != types.LogLevelInfo {
		t.Errorf("LogLevel = %v, want default Info", args.LogLevel)
	}
	if args.FirstRun {
		t.Error("FirstRun should default to false")
	}
	if len(args.Folders) != 1 || args.Folders[0] != "/home/user/Documents" {
		t.Errorf("Folders = %v", args.Folders)
	}
}

func TestParseAllOptions(t *testing.T) {
	args, err := Parse([]string{
		"--repo", "Data",
		"--config", "/etc/backup/config.yml",
		"--log-file", "/var/log/backup.log",
		"--log-level", "debug",
		"--first-run",
		"/srv/data", "/home/user/Documents",
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if args.ConfigPath != "/etc/backup/config.yml" {
		t.Errorf("ConfigPath = %q", args.ConfigPath)
	}
	if args.LogFilePath != "/var/log/backup.log" {
		t.Errorf("LogFilePath = %q", args.LogFilePath)
	}
	if args.LogLevel != types.LogLevelDebug {
		t.Errorf("LogLevel = %v, want Debug", args.LogLevel)
	}
	if !args.FirstRun {
		t.Error("FirstRun not set")
	}
	if len(args.Folders) != 2 {
		t.Errorf("Folders = %v, want two entries", args.Folders)
	}
}

func TestParseMissingRepo(t *testing.T) {
	if _, err := Parse([]string{"/home/user/Documents"}); err == nil {
		t.Error("Parse should fail without a repository name")
	}
}

func TestParseMissingFolders(t *testing.T) {
	if _, err := Parse([]string{"-r", "Data"}); err == nil {
		t.Error("Parse should fail without backup folders")
	}
}

func TestParseVersionSkipsValidation(t *testing.T) {
	args, err := Parse([]string{"-v"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !args.ShowVersion {
		t.Error("ShowVersion not set")
	}
}

func TestParseHelpSkipsValidation(t *testing.T) {
	args, err := Parse([]string{"--help"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !args.ShowHelp {
		t.Error("ShowHelp not set")
	}
}

func TestParseUnknownFlag(t *testing.T) {
	if _, err := Parse([]string{"-r", "Data", "--bogus", "/srv/data"}); err == nil {
		t.Error("Parse should fail on an unknown flag")
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want types.LogLevel
	}{
		{"debug", types.LogLevelDebug},
		{"info", types.LogLevelInfo},
		{"warning", types.LogLevelWarning},
		{"error", types.LogLevelError},
		{"critical", types.LogLevelCritical},
		{"none", types.LogLevelNone},
		{"5", types.LogLevelDebug},
		{"0", types.LogLevelNone},
		{"garbage", types.LogLevelInfo},
	}
	for _, tc := range cases {
		if got := parseLogLevel(tc.in); got != tc.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
