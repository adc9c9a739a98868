// Package config loads recase.toml, the per-workspace tool
// configuration. Every tunable has a default; a missing file is not an
// error.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest recase looks for, walking up from the start
// directory.
const FileName = "recase.toml"

// Config is the explicit configuration passed to every component.
type Config struct {
	Workspace WorkspaceConfig `toml:"workspace"`
	Server    ServerConfig    `toml:"server"`
	Filter    FilterConfig    `toml:"filter"`
	Cache     CacheConfig     `toml:"cache"`
}

type WorkspaceConfig struct {
	// Root of the analyzed workspace. Defaults to the directory the
	// config file was found in, or the start directory.
	Root string `toml:"root"`
}

type ServerConfig struct {
	// Command launches the language server (default rust-analyzer).
	Command string `toml:"command"`
	Args    []string `toml:"args"`

	// LanguageID sent with didOpen.
	LanguageID string `toml:"language_id"`

	// DiagnosticsArgs are passed to Command to produce the warning
	// report instead of an LSP session.
	DiagnosticsArgs []string `toml:"diagnostics_args"`

	// WarmupMS is slept after initialize so the server can finish
	// indexing. A heuristic, not a readiness signal.
	WarmupMS int `toml:"warmup_ms"`

	ReadTimeoutMS        int `toml:"read_timeout_ms"`
	ShutdownTimeoutMS    int `toml:"shutdown_timeout_ms"`
	DiagnosticsTimeoutMS int `toml:"diagnostics_timeout_ms"`
}

type FilterConfig struct {
	// Keywords a suggested name must not collide with. Empty means the
	// built-in Rust keyword list.
	Keywords []string `toml:"keywords"`

	// Categories is the warning allow-list.
	Categories []string `toml:"categories"`
}

type CacheConfig struct {
	// ReportPath is the plain-text file holding the last diagnostics
	// report, relative to the workspace root unless absolute.
	ReportPath string `toml:"report_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Command:              "rust-analyzer",
			LanguageID:           "rust",
			DiagnosticsArgs:      []string{"diagnostics", "."},
			WarmupMS:             1000,
			ReadTimeoutMS:        30_000,
			ShutdownTimeoutMS:    5_000,
			DiagnosticsTimeoutMS: 120_000,
		},
		Filter: FilterConfig{
			Categories: []string{"non_snake_case", "non_upper_case_globals"},
		},
		Cache: CacheConfig{
			ReportPath: "previous_analysis.txt",
		},
	}
}

// Find walks up from startDir looking for recase.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load resolves the configuration for startDir: defaults overlaid with
// the nearest recase.toml when one exists. The workspace root falls
// back to the config file's directory, then to startDir.
func Load(startDir string) (Config, error) {
	cfg := Default()

	path, found, err := Find(startDir)
	if err != nil {
		return cfg, err
	}
	root := startDir
	if found {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
		}
		root = filepath.Dir(path)
	}
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = root
	}
	if abs, err := filepath.Abs(cfg.Workspace.Root); err == nil {
		cfg.Workspace.Root = abs
	}
	return cfg, nil
}

// ReportCachePath resolves the report cache location against the
// workspace root.
func (c Config) ReportCachePath() string {
	if filepath.IsAbs(c.Cache.ReportPath) {
		return c.Cache.ReportPath
	}
	return filepath.Join(c.Workspace.Root, c.Cache.ReportPath)
}

// WarmupDelay returns the post-initialize indexing delay.
func (c Config) WarmupDelay() time.Duration {
	return time.Duration(c.Server.WarmupMS) * time.Millisecond
}

// ReadTimeout bounds one wait for a server response.
func (c Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutMS) * time.Millisecond
}

// ShutdownTimeout bounds the graceful server shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutMS) * time.Millisecond
}

// DiagnosticsTimeout bounds one external diagnostics run.
func (c Config) DiagnosticsTimeout() time.Duration {
	return time.Duration(c.Server.DiagnosticsTimeoutMS) * time.Millisecond
}
