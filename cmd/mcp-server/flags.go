package main

import (
	"github.com/spf13/cobra"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/config"
)

// serveFlags mirrors the config keys that can be set on the command line.
type serveFlags struct {
	configPath   string
	debug        bool
	quiet        bool
	name         string
	version      string
	maxLineBytes int
	ordering     string
	workers      int
}

func (f *serveFlags) register(cmd *cobra.Command) {
	def := config.Default()

	cmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", "", "path to a YAML config file")

	fl := cmd.Flags()
	fl.BoolVarP(&f.debug, "debug", "d", false, "emit debug-level logs to stderr")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress all logging")
	fl.StringVarP(&f.name, "name", "n", def.Name, "server name advertised in initialize")
	fl.StringVarP(&f.version, "version", "v", def.Version, "server version advertised in initialize")
	fl.IntVar(&f.maxLineBytes, "max-line-bytes", def.MaxLineBytes, "longest accepted input line in bytes")
	fl.StringVar(&f.ordering, "ordering", def.Ordering, "request scheduling: pipelined or sequential")
	fl.IntVar(&f.workers, "workers", def.Workers, "concurrent tool calls in pipelined mode")
}

// resolve builds the effective configuration: defaults, then the config
// file, then MCP_* environment variables, then flags the user set.
func (f *serveFlags) resolve(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	if fl.Changed("debug") {
		cfg.Debug = f.debug
	}
	if fl.Changed("quiet") {
		cfg.Quiet = f.quiet
	}
	if fl.Changed("name") {
		cfg.Name = f.name
	}
	if fl.Changed("version") {
		cfg.Version = f.version
	}
	if fl.Changed("max-line-bytes") {
		cfg.MaxLineBytes = f.maxLineBytes
	}
	if fl.Changed("ordering") {
		cfg.Ordering = f.ordering
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
