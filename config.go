package bridgekit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/c0deZ3R0/go-bridge-kit/logging"
)

// JournalConfig selects an optional journal backend. The caller opens the
// backend itself (journal/sqlite or journal/postgres) so applications
// that never journal do not link a database driver.
type JournalConfig struct {
	Backend string `yaml:"backend"` // "", "sqlite", "postgres"
	DSN     string `yaml:"dsn"`
}

// Config is the file-loadable bridge configuration.
type Config struct {
	Logging        logging.Config `yaml:"logging"`
	PatchSizeRatio float64        `yaml:"patch_size_ratio"`
	PatchSizeFloor int            `yaml:"patch_size_floor"`
	Journal        JournalConfig  `yaml:"journal"`
}

// DefaultBridgeConfig returns the configuration New would use with no
// options.
func DefaultBridgeConfig() Config {
	return Config{
		Logging:        logging.DefaultConfig,
		PatchSizeRatio: DefaultPatchSizeRatio,
		PatchSizeFloor: DefaultPatchSizeFloor,
	}
}

// LoadConfig reads a YAML configuration file, applying defaults for
// absent fields.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultBridgeConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.PatchSizeRatio <= 0 || c.PatchSizeRatio > 1 {
		return fmt.Errorf("patch_size_ratio must be in (0, 1], got %v", c.PatchSizeRatio)
	}
	if c.PatchSizeFloor < 0 {
		return fmt.Errorf("patch_size_floor must not be negative, got %d", c.PatchSizeFloor)
	}
	switch c.Journal.Backend {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown journal backend %q", c.Journal.Backend)
	}
	if c.Journal.Backend != "" && c.Journal.DSN == "" {
		return fmt.Errorf("journal backend %q requires a dsn", c.Journal.Backend)
	}
	return nil
}

// Options expands the configuration into bridge options. Journal wiring
// is left to the caller.
func (c Config) Options() []Option {
	return []Option{
		WithLogger(logging.NewLogger(c.Logging).Logger),
		WithPatchSizeRatio(c.PatchSizeRatio),
		WithPatchSizeFloor(c.PatchSizeFloor),
	}
}
