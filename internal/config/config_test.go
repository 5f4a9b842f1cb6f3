package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}

	return path
}

func Test_Load_Returns_Defaults_When_No_Config_Exists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	cfg, sources, err := Load(dir, "", map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, "xdg")})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg != DefaultConfig() {
		t.Fatalf("Load() = %+v, want defaults %+v", cfg, DefaultConfig())
	}

	if sources.Global != "" || sources.Project != "" {
		t.Fatalf("sources = %+v, want none", sources)
	}
}

func Test_Load_Project_Config_Overrides_Global(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	xdg := filepath.Join(dir, "xdg")

	if err := os.MkdirAll(filepath.Join(xdg, "flywheel"), 0o755); err != nil {
		t.Fatalf("MkdirAll(): %v", err)
	}

	writeConfig(t, filepath.Join(xdg, "flywheel"), "config.json",
		`{"db_path": "global.json", "backup_count": 5, "log_level": "debug"}`)
	writeConfig(t, dir, FileName, `{"db_path": "project.json"}`)

	cfg, sources, err := Load(dir, "", map[string]string{"XDG_CONFIG_HOME": xdg})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg.DBPath != "project.json" {
		t.Fatalf("DBPath = %q, want project override", cfg.DBPath)
	}

	// Global values not shadowed by the project config survive.
	if cfg.BackupCount != 5 || cfg.LogLevel != "debug" {
		t.Fatalf("cfg = %+v, want global backup_count=5 log_level=debug", cfg)
	}

	if sources.Global == "" || sources.Project == "" {
		t.Fatalf("sources = %+v, want both recorded", sources)
	}
}

func Test_Load_Env_Var_Overrides_Config_Files(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, FileName, `{"db_path": "project.json"}`)

	cfg, _, err := Load(dir, "", map[string]string{
		"XDG_CONFIG_HOME": filepath.Join(dir, "xdg"),
		"FLYWHEEL_DB":     "env.json",
	})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg.DBPath != "env.json" {
		t.Fatalf("DBPath = %q, want env override", cfg.DBPath)
	}
}

func Test_Load_Accepts_JSONC_Comments_And_Trailing_Commas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, FileName, `{
		// database location
		"db_path": "notes.json",
		"lock_timeout_seconds": 30, // generous
	}`)

	cfg, _, err := Load(dir, "", map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, "xdg")})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg.DBPath != "notes.json" || cfg.LockTimeout != 30 {
		t.Fatalf("cfg = %+v, want db_path=notes.json lock_timeout=30", cfg)
	}
}

func Test_Load_Explicit_Config_Path_Must_Exist(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, err := Load(dir, "missing.json", map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, "xdg")})
	if !errors.Is(err, errConfigFileNotFound) {
		t.Fatalf("Load(explicit missing): err=%v, want %v", err, errConfigFileNotFound)
	}
}

func Test_Load_Rejects_Malformed_Config(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, FileName, `{"db_path": `)

	_, _, err := Load(dir, "", map[string]string{"XDG_CONFIG_HOME": filepath.Join(dir, "xdg")})
	if !errors.Is(err, errConfigInvalid) {
		t.Fatalf("Load(malformed): err=%v, want %v", err, errConfigInvalid)
	}
}

func Test_Load_Rejects_Explicitly_Empty_DBPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, FileName, `{"db_path": "x"}`)

	cfg, _, err := Load(dir, "", map[string]string{
		"XDG_CONFIG_HOME": filepath.Join(dir, "xdg"),
	})
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}

	if cfg.DBPath != "x" {
		t.Fatalf("DBPath = %q, want %q", cfg.DBPath, "x")
	}
}

func Test_Merge_Ignores_Zero_Values(t *testing.T) {
	t.Parallel()

	base := Config{DBPath: "a", LockTimeout: 10, MaxAttempts: 3, LogLevel: "warn"}

	got := merge(base, Config{})
	if got != base {
		t.Fatalf("merge(base, zero) = %+v, want %+v", got, base)
	}

	got = merge(base, Config{LockTimeout: 20, DisableCache: true})
	if got.LockTimeout != 20 || !got.DisableCache || got.DBPath != "a" {
		t.Fatalf("merge() = %+v, want partial overlay", got)
	}
}
