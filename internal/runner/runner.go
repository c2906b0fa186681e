// Package runner executes external commands through a shell, capturing both
// output streams and the exit code without treating non-zero exits as errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Result carries the captured outcome of one external invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner is the external process collaborator. Implementations must capture
// both streams fully and report the exit code; an error is returned only
// when the process could not be started at all.
type Runner interface {
	// Execute runs a command line through the shell. The extra environment
	// entries (KEY=value) are visible only to this invocation.
	Execute(ctx context.Context, command string, extraEnv []string) (Result, error)

	// ExecuteIn behaves like Execute with an explicit working directory.
	ExecuteIn(ctx context.Context, dir, command string, extraEnv []string) (Result, error)
}

// ShellRunner runs commands via `sh -c`. A missing binary surfaces as the
// shell's conventional exit code 127.
type ShellRunner struct {
	Shell string
}

// NewShellRunner returns a runner backed by /bin/sh.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: "/bin/sh"}
}

// Execute runs a command line through the shell.
func (r *ShellRunner) Execute(ctx context.Context, command string, extraEnv []string) (Result, error) {
	return r.ExecuteIn(ctx, "", command, extraEnv)
}

// ExecuteIn runs a command line through the shell in the given directory.
func (r *ShellRunner) ExecuteIn(ctx context.Context, dir, command string, extraEnv []string) (Result, error) {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, err
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}
