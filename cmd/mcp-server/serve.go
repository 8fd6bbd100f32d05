package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/config"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/journal"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/logging"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/mcp"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/ratelimit"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/registry"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/stdio"
	"github.com/tuesdays-dev/mcp-stdio-server/pkg/tools"
)

func serve(ctx context.Context, cfg *config.Config, in io.Reader, out, errOut io.Writer) error {
	logger := logging.New(errOut, logging.Options{Debug: cfg.Debug, Quiet: cfg.Quiet})

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	reg, err := buildRegistry(cfg, j)
	if err != nil {
		return err
	}

	opts := []mcp.Option{mcp.WithLogger(logger)}
	if j != nil {
		opts = append(opts, mcp.WithRecorder(j))
	}
	engine := mcp.NewEngine(mcp.ServerInfo{Name: cfg.Name, Version: cfg.Version}, reg, opts...)

	srv := stdio.New(engine,
		stdio.WithLogger(logger),
		stdio.WithMaxLineBytes(cfg.MaxLineBytes),
		stdio.WithWorkers(cfg.Workers),
		stdio.WithOrdering(stdio.Ordering(cfg.Ordering)),
		stdio.WithDrainTimeout(cfg.DrainTimeout),
	)

	logger.Info("starting MCP server",
		slog.String("name", cfg.Name),
		slog.String("version", cfg.Version),
		slog.Int("tools", reg.Len()),
		slog.String("ordering", cfg.Ordering),
		slog.Bool("journal", j != nil))

	if err := srv.Run(ctx, in, out); err != nil {
		return err
	}

	attrs := []any{slog.Bool("initialized", engine.Initialized())}
	if client, ok := engine.Client(); ok {
		attrs = append(attrs, slog.String("client", client.Name), slog.String("client_version", client.Version))
	}
	logger.Info("MCP server stopped", attrs...)
	return nil
}

// openJournal returns nil when the journal is disabled.
func openJournal(cfg *config.Config) (journal.Journal, error) {
	if !cfg.Journal.Enabled {
		return nil, nil
	}
	j, err := journal.New(journal.Options{
		MaxEntries:    cfg.Journal.MaxEntries,
		PruneInterval: cfg.Journal.PruneInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return j, nil
}

func buildRegistry(cfg *config.Config, j journal.Journal) (*registry.Registry, error) {
	limiter, err := ratelimit.New(cfg.RateLimitPolicies())
	if err != nil {
		return nil, err
	}
	builtins, err := tools.Builtins(tools.OptionsFromConfig(cfg, j))
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(builtins, registry.WithLimiter(limiter))
	if err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}
	return reg, nil
}
