package main

import (
	"context"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"recase/internal/config"
	"recase/internal/report"
)

// loadReport returns the diagnostics report text: the cached previous
// run unless fresh is set, otherwise a new run of the external tool
// (which also refreshes the cache).
func loadReport(ctx context.Context, cfg config.Config, fresh bool, logger hclog.Logger) (string, error) {
	cache := report.Cache{Path: cfg.ReportCachePath()}

	if !fresh {
		content, ok, err := cache.Load()
		if err != nil {
			logger.Warn("report cache unreadable", "path", cache.Path, "error", err)
		} else if ok {
			logger.Info("loaded previous analysis results", "path", cache.Path)
			return content, nil
		}
	}

	runner := report.NewRunner(cfg.Server.Command, cfg.Server.DiagnosticsArgs, logger)
	runner.Timeout = cfg.DiagnosticsTimeout()
	output, err := runner.Run(ctx, cfg.Workspace.Root)
	if err != nil {
		return "", err
	}
	if err := cache.Save(output); err != nil {
		logger.Warn("failed to save report cache", "path", cache.Path, "error", err)
	}
	return output, nil
}

// resolveWarningPaths makes relative report paths absolute against the
// workspace root so file reads and didOpen target the right files
// regardless of the process working directory.
func resolveWarningPaths(warnings []report.Warning, root string) []report.Warning {
	resolved := make([]report.Warning, len(warnings))
	copy(resolved, warnings)
	for i := range resolved {
		if !filepath.IsAbs(resolved[i].File) {
			resolved[i].File = filepath.Join(root, resolved[i].File)
		}
	}
	return resolved
}
