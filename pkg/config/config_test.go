package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Name != "rust-mcp-server" || cfg.Version != "0.1.0" {
		t.Errorf("identity = %s %s", cfg.Name, cfg.Version)
	}
	if cfg.MaxLineBytes != 16*1024*1024 {
		t.Errorf("expected 16 MiB line limit, got %d", cfg.MaxLineBytes)
	}
	if cfg.Tools.ReadFile.MaxSize != 1048576 {
		t.Errorf("expected 1048576 read_file max, got %d", cfg.Tools.ReadFile.MaxSize)
	}
	if diff := cmp.Diff(DefaultAllowedCommands, cfg.Tools.ExecuteCommand.Allowed); diff != "" {
		t.Errorf("allow-list (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestDefaultAllowListIsACopy(t *testing.T) {
	cfg := Default()
	cfg.Tools.ExecuteCommand.Allowed[0] = "rm"
	if DefaultAllowedCommands[0] != "echo" {
		t.Error("mutating a config changed the package default")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_SERVER_NAME", "from-env")

	path := writeConfig(t, `
name: ${TEST_SERVER_NAME}
ordering: sequential
tools:
  read_file:
    max_size: 4096
  execute_command:
    allowed: [echo, date]
    timeout: 5s
rate_limits:
  execute_command:
    rps: 2
    burst: 4
  "*":
    rps: 50
journal:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "from-env" {
		t.Errorf("env var not expanded: got %s", cfg.Name)
	}
	if cfg.Version != "0.1.0" {
		t.Errorf("unset keys should keep defaults, version = %s", cfg.Version)
	}
	if cfg.Ordering != OrderingSequential {
		t.Errorf("ordering = %s", cfg.Ordering)
	}
	if cfg.Tools.ReadFile.MaxSize != 4096 {
		t.Errorf("max_size = %d", cfg.Tools.ReadFile.MaxSize)
	}
	if diff := cmp.Diff([]string{"echo", "date"}, cfg.Tools.ExecuteCommand.Allowed); diff != "" {
		t.Errorf("allowed (-want +got):\n%s", diff)
	}
	if cfg.Tools.ExecuteCommand.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Tools.ExecuteCommand.Timeout)
	}
	if cfg.Journal.Enabled {
		t.Error("journal should be disabled")
	}
	want := []models.RateLimitPolicy{
		{Tool: "*", RPS: 50},
		{Tool: "execute_command", RPS: 2, Burst: 4},
	}
	if diff := cmp.Diff(want, cfg.RateLimitPolicies()); diff != "" {
		t.Errorf("policies (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "workers: [1")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MCP_SERVER_NAME", "env-name")
	t.Setenv("MCP_WORKERS", "3")
	t.Setenv("MCP_ALLOWED_COMMANDS", "echo;pwd")
	t.Setenv("MCP_COMMAND_TIMEOUT", "2s")
	t.Setenv("MCP_JOURNAL_ENABLED", "false")

	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "env-name" || cfg.Workers != 3 {
		t.Errorf("name/workers = %s/%d", cfg.Name, cfg.Workers)
	}
	if diff := cmp.Diff([]string{"echo", "pwd"}, cfg.Tools.ExecuteCommand.Allowed); diff != "" {
		t.Errorf("allowed (-want +got):\n%s", diff)
	}
	if cfg.Tools.ExecuteCommand.Timeout != 2*time.Second {
		t.Errorf("timeout = %v", cfg.Tools.ExecuteCommand.Timeout)
	}
	if cfg.Journal.Enabled {
		t.Error("journal should be disabled by env")
	}
	if cfg.Version != "0.1.0" {
		t.Errorf("unset variables must not clear fields, version = %q", cfg.Version)
	}
}

func TestApplyEnvRejectsMalformedValues(t *testing.T) {
	t.Setenv("MCP_WORKERS", "many")
	if err := ApplyEnv(Default()); err == nil {
		t.Error("expected error for non-numeric MCP_WORKERS")
	}
}

func TestApplyEnvWithNothingSet(t *testing.T) {
	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config changed (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty name", func(c *Config) { c.Name = "" }, "name"},
		{"zero line limit", func(c *Config) { c.MaxLineBytes = 0 }, "max_line_bytes"},
		{"bad ordering", func(c *Config) { c.Ordering = "random" }, "ordering"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"negative drain", func(c *Config) { c.DrainTimeout = -time.Second }, "drain_timeout"},
		{"negative max size", func(c *Config) { c.Tools.ReadFile.MaxSize = -1 }, "max_size"},
		{"negative timeout", func(c *Config) { c.Tools.ExecuteCommand.Timeout = -1 }, "timeout"},
		{"bad rate", func(c *Config) { c.RateLimits = map[string]RateLimitConfig{"echo": {RPS: 0}} }, "rate_limits.echo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
