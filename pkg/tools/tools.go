// Package tools provides the server's built-in tools.
package tools

import (
	"time"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/config"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/journal"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
)

// Options tunes the built-in tools.
type Options struct {
	// ReadFileMaxSize is read_file's max_size when a call omits it.
	ReadFileMaxSize int64
	// AllowedCommands is the execute_command allow-list.
	AllowedCommands []string
	// CommandTimeout bounds one execute_command run; zero means no limit.
	CommandTimeout time.Duration
	// Journal backs get_server_stats. The tool is omitted when nil.
	Journal journal.Journal
}

// OptionsFromConfig derives tool options from cfg.
func OptionsFromConfig(cfg *config.Config, j journal.Journal) Options {
	return Options{
		ReadFileMaxSize: cfg.Tools.ReadFile.MaxSize,
		AllowedCommands: cfg.Tools.ExecuteCommand.Allowed,
		CommandTimeout:  cfg.Tools.ExecuteCommand.Timeout,
		Journal:         j,
	}
}

// Builtins returns the built-in tools in the order they are listed.
func Builtins(opts Options) ([]registry.Tool, error) {
	readFile, err := newReadFile(opts.ReadFileMaxSize)
	if err != nil {
		return nil, err
	}
	tools := []registry.Tool{
		{Name: "echo", Handler: echoTool},
		{Name: "get_system_info", Handler: systemInfoTool},
		{Name: "list_files", Handler: listFilesTool},
		{Name: "read_file", Handler: readFile},
		{Name: "execute_command", Handler: newExecuteCommand(opts.AllowedCommands, opts.CommandTimeout)},
	}
	if opts.Journal != nil {
		tools = append(tools, registry.Tool{Name: "get_server_stats", Handler: newServerStats(opts.Journal)})
	}
	return tools, nil
}
