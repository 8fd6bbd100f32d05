package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/journal"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
)

// defaultRecent is the listing size when a filter asks for recent calls
// without a count.
const defaultRecent = 10

type serverStatsArgs struct {
	Tool       string `json:"tool,omitempty" jsonschema:"Only report this tool"`
	Recent     int    `json:"recent,omitempty" jsonschema:"Also list this many of the most recent calls"`
	ErrorsOnly bool   `json:"errors_only,omitempty" jsonschema:"List only calls that failed or returned an error result"`
	Since      string `json:"since,omitempty" jsonschema:"List only calls made within this duration, e.g. 5m"`
}

func newServerStats(j journal.Journal) registry.Handler {
	return registry.MustNewTool("Show tool call counts, errors and latency for this server process",
		func(ctx context.Context, a serverStatsArgs) (*models.ToolCallResult, error) {
			q := models.InvocationQuery{Tool: a.Tool, Errors: a.ErrorsOnly, Limit: a.Recent}
			if a.Since != "" {
				d, err := time.ParseDuration(a.Since)
				if err != nil || d <= 0 {
					return models.ErrorResult(fmt.Sprintf("Invalid since duration '%s'", a.Since)), nil
				}
				q.Since = time.Now().Add(-d)
			}

			stats, err := j.Summary(ctx)
			if err != nil {
				return nil, fmt.Errorf("summarize journal: %w", err)
			}
			if a.Tool != "" {
				stats = filterStats(stats, a.Tool)
			}
			text := formatStats(stats)

			if q.Limit > 0 || q.Errors || !q.Since.IsZero() {
				if q.Limit <= 0 {
					q.Limit = defaultRecent
				}
				invs, err := j.Recent(ctx, q)
				if err != nil {
					return nil, fmt.Errorf("query journal: %w", err)
				}
				text += "\n" + formatInvocations(invs)
			}
			return models.TextResult(text), nil
		})
}

func filterStats(stats []models.ToolStat, tool string) []models.ToolStat {
	var out []models.ToolStat
	for _, s := range stats {
		if s.Tool == tool {
			out = append(out, s)
		}
	}
	return out
}
