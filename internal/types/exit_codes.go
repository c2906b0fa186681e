// Package types defines shared application data types.
package types

// ExitCode represents the application's exit codes.
type ExitCode int

const (
	// ExitSuccess - Execution completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGenericError - Unspecified generic error.
	ExitGenericError ExitCode = 1

	// ExitConfigError - Configuration error (missing required fields,
	// unreadable configuration file, requested backup folder missing).
	ExitConfigError ExitCode = 2

	// ExitToolMissing - The backup binary could not be found.
	ExitToolMissing ExitCode = 3

	// ExitRunFailed - At least one recorded step of the run failed.
	ExitRunFailed ExitCode = 4
)

// String returns a human-readable description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitGenericError:
		return "generic error"
	case ExitConfigError:
		return "configuration error"
	case ExitToolMissing:
		return "backup binary not found"
	case ExitRunFailed:
		return "run failed"
	default:
		return "unknown error"
	}
}

// Int returns the exit code as a plain integer.
func (e ExitCode) Int() int {
	return int(e)
}
