// Package config loads layered flywheel configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	DBPath       string `json:"db_path"`
	LockTimeout  int    `json:"lock_timeout_seconds,omitempty"`
	MaxAttempts  int    `json:"max_attempts,omitempty"`
	BackupCount  int    `json:"backup_count,omitempty"`
	DisableCache bool   `json:"disable_cache,omitempty"`
	LogLevel     string `json:"log_level,omitempty"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DBPath:      ".todo.json",
		LockTimeout: 10,
		MaxAttempts: 3,
	}
}

// FileName is the project config file name.
const FileName = ".flywheel.json"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config file")
	errDBPathEmpty        = errors.New("db_path cannot be empty")
)

// globalConfigPath returns the global config location:
// $XDG_CONFIG_HOME/flywheel/config.json, falling back to
// ~/.config/flywheel/config.json. Empty when no home directory resolves.
func globalConfigPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "flywheel", "config.json")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		return filepath.Join(home, ".config", "flywheel", "config.json")
	}

	return ""
}

// Load resolves configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config (.flywheel.json) or an explicit config file
// 4. FLYWHEEL_DB environment variable
// 5. CLI overrides applied by the caller afterwards.
func Load(workDir, configPath string, env map[string]string) (Config, Sources, error) {
	cfg := DefaultConfig()

	var sources Sources

	globalCfg, globalPath, err := loadFile(globalConfigPath(env), false)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectFile := filepath.Join(workDir, FileName)
	mustExist := false

	if configPath != "" {
		projectFile = configPath
		if !filepath.IsAbs(projectFile) {
			projectFile = filepath.Join(workDir, projectFile)
		}

		mustExist = true
	}

	projectCfg, projectPath, err := loadFile(projectFile, mustExist)
	if err != nil {
		return Config{}, Sources{}, err
	}

	sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if db := env["FLYWHEEL_DB"]; db != "" {
		cfg.DBPath = db
	}

	if cfg.DBPath == "" {
		return Config{}, Sources{}, errDBPathEmpty
	}

	return cfg, sources, nil
}

// loadFile loads one config file. Missing optional files return a zero
// config; missing required ones are an error.
func loadFile(path string, mustExist bool) (Config, string, error) {
	if path == "" {
		return Config{}, "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if mustExist {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, path)
		}

		return Config{}, "", nil
	}

	cfg, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, parseErr)
	}

	return cfg, path, nil
}

func parse(data []byte) (Config, error) {
	// Config files are JSONC; standardize before decoding.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}

	if overlay.LockTimeout > 0 {
		base.LockTimeout = overlay.LockTimeout
	}

	if overlay.MaxAttempts > 0 {
		base.MaxAttempts = overlay.MaxAttempts
	}

	if overlay.BackupCount > 0 {
		base.BackupCount = overlay.BackupCount
	}

	if overlay.DisableCache {
		base.DisableCache = true
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}

// Format returns the config as formatted JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
