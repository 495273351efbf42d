// Package config loads the runtime's TOML configuration file, the
// ambient-stack counterpart to the teacher's own config package: a
// nested struct decoded with github.com/BurntSushi/toml, a
// DefaultConfig baseline, and a stat-then-decode-or-default Load path
// (§9 "Open questions" pins the persistence scheme decided here).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds every tunable named or implied by the core spec:
// execution limits (§3 "VM instance", §4.2), scheduler limits (§4.5),
// persistence policy (§4.4, §6), and the debug surface's bind address
// (§4.6).
type Config struct {
	Execution struct {
		StepBudget uint32 `toml:"step_budget"`
		StackMax   uint16 `toml:"stack_max"`
		CallMax    uint16 `toml:"call_max"`
	} `toml:"execution"`

	Scheduler struct {
		MaxTasks     int  `toml:"max_tasks"`
		RequireTasks bool `toml:"require_tasks"`
	} `toml:"scheduler"`

	Persistence struct {
		AutoRestore bool   `toml:"auto_restore"`
		RequireCRC  bool   `toml:"require_crc"`
		IgnoreCRC   bool   `toml:"ignore_crc"`
		KeyPrefix   string `toml:"key_prefix"`
	} `toml:"persistence"`

	Debug struct {
		APIAddr    string `toml:"api_addr"`
		EnablePoke bool   `toml:"enable_poke"`
	} `toml:"debug"`
}

// DefaultConfig returns the baseline configuration used whenever no
// file is present, mirroring every numeric default fixed by spec.md:
// STACK_MAX=256, CALL_MAX=32, MAX_TASKS=8 (§3, §4.5).
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Execution.StepBudget = 100000
	cfg.Execution.StackMax = 256
	cfg.Execution.CallMax = 32

	cfg.Scheduler.MaxTasks = 8
	cfg.Scheduler.RequireTasks = false

	cfg.Persistence.AutoRestore = true
	cfg.Persistence.RequireCRC = false
	cfg.Persistence.IgnoreCRC = false
	cfg.Persistence.KeyPrefix = "zplc"

	cfg.Debug.APIAddr = "127.0.0.1:7077"
	cfg.Debug.EnablePoke = true

	return cfg
}

// GetConfigPath returns the platform-specific default config file
// path, matching the teacher's GetConfigPath layout with this
// project's directory name.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "zplc")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "zplc.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "zplc")

	default:
		return "zplc.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "zplc.toml"
	}

	return filepath.Join(configDir, "zplc.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, falling back to
// DefaultConfig when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to path, creating parent directories as
// needed.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("config: create directory %s: %w", dir, err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}

	return nil
}
