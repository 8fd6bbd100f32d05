package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
)

type executeCommandArgs struct {
	Command string   `json:"command" jsonschema:"Command to execute"`
	Args    []string `json:"args,omitempty" jsonschema:"Command arguments"`
}

func newExecuteCommand(allowed []string, timeout time.Duration) registry.Handler {
	allowed = slices.Clone(allowed)
	return registry.MustNewTool("Execute a safe system command (restricted for security)",
		func(ctx context.Context, a executeCommandArgs) (*models.ToolCallResult, error) {
			if !slices.Contains(allowed, a.Command) {
				return models.ErrorResult(fmt.Sprintf("Command '%s' is not allowed. Allowed commands: %s",
					a.Command, strings.Join(allowed, ", "))), nil
			}
			return runCommand(ctx, a.Command, a.Args, timeout)
		})
}

func runCommand(ctx context.Context, name string, args []string, timeout time.Duration) (*models.ToolCallResult, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	err := cmd.Run()

	// The caller went away; nobody is waiting for the output.
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return models.ErrorResult(fmt.Sprintf("Command '%s' timed out after %s", name, timeout)), nil
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return models.ErrorResult(fmt.Sprintf("Error executing command: %v", err)), nil
	}

	res := models.TextResult(formatCommandOutput(name, args, stdout.String(), stderr.String()))
	res.IsError = exitErr != nil
	return res, nil
}
