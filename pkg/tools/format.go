package tools

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

func formatCommandOutput(name string, args []string, stdout, stderr string) string {
	if stderr != "" {
		return fmt.Sprintf("Command: %s %s\nSTDOUT:\n%s\nSTDERR:\n%s", name, strings.Join(args, " "), stdout, stderr)
	}
	return fmt.Sprintf("Command: %s %s\nOutput:\n%s", name, strings.Join(args, " "), stdout)
}

// formatStats formats per-tool aggregates as a text table.
func formatStats(stats []models.ToolStat) string {
	if len(stats) == 0 {
		return "No tool calls recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %8s %8s %8s %12s  %s\n",
		"Tool", "Calls", "Errors", "Failed", "Mean", "Last Call")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-24s %8s %8s %8s %12s  %s\n",
			s.Tool,
			humanize.Comma(int64(s.Calls)),
			humanize.Comma(int64(s.Errors)),
			humanize.Comma(int64(s.Failures)),
			s.MeanDuration.Round(time.Microsecond),
			humanize.Time(s.LastCalledAt))
	}
	return b.String()
}

// formatInvocations lists individual calls, newest first.
func formatInvocations(invs []models.Invocation) string {
	if len(invs) == 0 {
		return "No recent calls."
	}
	var b strings.Builder
	b.WriteString("Recent calls:\n")
	for _, inv := range invs {
		status := "ok"
		switch {
		case inv.Failure != "":
			status = "failed: " + inv.Failure
		case inv.IsError:
			status = "error"
		}
		fmt.Fprintf(&b, "%s  %-24s %10s  %s\n",
			inv.CreatedAt.Format("2006-01-02 15:04:05"),
			inv.Tool,
			inv.Duration.Round(time.Microsecond),
			status)
	}
	return b.String()
}
