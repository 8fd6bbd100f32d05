package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

// Scheduling modes accepted by Ordering.
const (
	OrderingPipelined  = "pipelined"
	OrderingSequential = "sequential"
)

// DefaultAllowedCommands is the execute_command allow-list.
var DefaultAllowedCommands = []string{"echo", "date", "whoami", "pwd", "ls", "cat", "head", "tail", "wc"}

// Config holds all server configuration.
type Config struct {
	Name         string                     `yaml:"name" env:"MCP_SERVER_NAME,strict"`
	Version      string                     `yaml:"version" env:"MCP_SERVER_VERSION,strict"`
	Debug        bool                       `yaml:"debug" env:"MCP_DEBUG,strict"`
	Quiet        bool                       `yaml:"quiet" env:"MCP_QUIET,strict"`
	MaxLineBytes int                        `yaml:"max_line_bytes" env:"MCP_MAX_LINE_BYTES,strict"`
	Ordering     string                     `yaml:"ordering" env:"MCP_ORDERING,strict"`
	Workers      int                        `yaml:"workers" env:"MCP_WORKERS,strict"`
	DrainTimeout time.Duration              `yaml:"drain_timeout" env:"MCP_DRAIN_TIMEOUT,strict"`
	Tools        ToolsConfig                `yaml:"tools"`
	RateLimits   map[string]RateLimitConfig `yaml:"rate_limits"`
	Journal      JournalConfig              `yaml:"journal"`
}

// ToolsConfig tunes the built-in tools.
type ToolsConfig struct {
	ReadFile       ReadFileConfig       `yaml:"read_file"`
	ExecuteCommand ExecuteCommandConfig `yaml:"execute_command"`
}

// ReadFileConfig controls read_file.
type ReadFileConfig struct {
	// MaxSize is the default max_size when a call omits it.
	MaxSize int64 `yaml:"max_size" env:"MCP_READ_FILE_MAX_SIZE,strict"`
}

// ExecuteCommandConfig controls execute_command.
type ExecuteCommandConfig struct {
	// Allowed is the command allow-list; MCP_ALLOWED_COMMANDS separates
	// entries with ';'.
	Allowed []string      `yaml:"allowed" env:"MCP_ALLOWED_COMMANDS,strict"`
	Timeout time.Duration `yaml:"timeout" env:"MCP_COMMAND_TIMEOUT,strict"`
}

// RateLimitConfig is a token bucket for one tool, or "*" for the rest.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// JournalConfig controls the in-memory invocation journal.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled" env:"MCP_JOURNAL_ENABLED,strict"`
	MaxEntries    int           `yaml:"max_entries" env:"MCP_JOURNAL_MAX_ENTRIES,strict"`
	PruneInterval time.Duration `yaml:"prune_interval" env:"MCP_JOURNAL_PRUNE_INTERVAL,strict"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Name:         "rust-mcp-server",
		Version:      "0.1.0",
		MaxLineBytes: 16 << 20,
		Ordering:     OrderingPipelined,
		Workers:      8,
		Tools: ToolsConfig{
			ReadFile: ReadFileConfig{MaxSize: 1 << 20},
			ExecuteCommand: ExecuteCommandConfig{
				Allowed: append([]string(nil), DefaultAllowedCommands...),
				Timeout: 30 * time.Second,
			},
		},
		Journal: JournalConfig{
			Enabled:       true,
			MaxEntries:    10000,
			PruneInterval: time.Minute,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overlays MCP_* environment variables onto cfg. Unset variables
// leave fields untouched; malformed values are errors.
func ApplyEnv(cfg *Config) error {
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Name == "":
		return errors.New("name must not be empty")
	case c.MaxLineBytes <= 0:
		return fmt.Errorf("max_line_bytes must be positive, got %d", c.MaxLineBytes)
	case c.Ordering != OrderingPipelined && c.Ordering != OrderingSequential:
		return fmt.Errorf("ordering must be %q or %q, got %q", OrderingPipelined, OrderingSequential, c.Ordering)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.DrainTimeout < 0:
		return fmt.Errorf("drain_timeout must not be negative, got %s", c.DrainTimeout)
	case c.Tools.ReadFile.MaxSize < 0:
		return fmt.Errorf("tools.read_file.max_size must not be negative, got %d", c.Tools.ReadFile.MaxSize)
	case c.Tools.ExecuteCommand.Timeout < 0:
		return fmt.Errorf("tools.execute_command.timeout must not be negative, got %s", c.Tools.ExecuteCommand.Timeout)
	case c.Journal.MaxEntries < 0:
		return fmt.Errorf("journal.max_entries must not be negative, got %d", c.Journal.MaxEntries)
	}
	for tool, rl := range c.RateLimits {
		if rl.RPS <= 0 {
			return fmt.Errorf("rate_limits.%s.rps must be positive, got %v", tool, rl.RPS)
		}
	}
	return nil
}

// RateLimitPolicies returns the configured rate limits sorted by tool.
func (c *Config) RateLimitPolicies() []models.RateLimitPolicy {
	policies := make([]models.RateLimitPolicy, 0, len(c.RateLimits))
	for tool, rl := range c.RateLimits {
		policies = append(policies, models.RateLimitPolicy{Tool: tool, RPS: rl.RPS, Burst: rl.Burst})
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Tool < policies[j].Tool })
	return policies
}
