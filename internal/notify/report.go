// Package notify renders the run ledger into a human-readable report and
// delivers it by email through a retry-bounded send loop.
package notify

import (
	"fmt"
	"strings"

	"github.com/KeisukeFD/backup-script/internal/ledger"
	"github.com/KeisukeFD/backup-script/internal/types"
)

const timeFormat = "2006-01-02 15:04:05"

// Report is the rendered outcome of one backup run.
type Report struct {
	Subject string
	Body    string
}

// BuildReport renders the ledger: a subject line carrying the aggregate
// status, run name and start time, one labeled block per recorded step, and
// a total-duration footer.
func BuildReport(led *ledger.Ledger) Report {
	results := led.Results()
	status := led.Status()

	startedAt := ""
	if len(results) > 0 {
		startedAt = results[0].StartedAt.Format(timeFormat)
	}
	subject := fmt.Sprintf("[%s] Backup %s - %s", status, led.BackupName, startedAt)

	var body strings.Builder
	fmt.Fprintf(&body, "Backup report for %s (run %s)\n", led.BackupName, led.RunID)
	fmt.Fprintf(&body, "Client: %s\n\n", led.ClientName)

	for _, result := range results {
		fmt.Fprintf(&body, "--- %s ---\n", result.Name)
		if result.Status() == types.RunSuccess {
			fmt.Fprintf(&body, "%s\n", result.SuccessText)
		} else {
			fmt.Fprintf(&body, "Error: %s\n", result.ErrorText)
		}
		fmt.Fprintf(&body, "Duration: %s\n\n", HumanDuration(int(result.Duration().Seconds())))
	}

	fmt.Fprintf(&body, "Total duration: %s\n", HumanDuration(int(led.TotalDuration().Seconds())))

	return Report{Subject: subject, Body: body.String()}
}

// HumanDuration renders a non-negative number of seconds with the largest
// applicable units: "Dj Hh Mm" from one day up (seconds dropped),
// "Hh Mm Ss" from one hour, "Mm Ss" from one minute, plain "Ss" below.
func HumanDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	switch {
	case days >= 1:
		return fmt.Sprintf("%dj %dh %dm", days, hours, minutes)
	case hours >= 1:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, secs)
	case minutes >= 1:
		return fmt.Sprintf("%dm %ds", minutes, secs)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}
