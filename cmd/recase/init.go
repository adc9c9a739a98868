package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"recase/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default recase.toml manifest",
	Long: `Write a recase.toml manifest with the default server, filter, and cache
settings so the project can tune them. If [path] is omitted, the manifest is
written to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

const defaultManifest = `# recase manifest

[server]
command = "rust-analyzer"
# args = []
language_id = "rust"
diagnostics_args = ["diagnostics", "."]
warmup_ms = 1000
read_timeout_ms = 30000
shutdown_timeout_ms = 5000
diagnostics_timeout_ms = 120000

[filter]
# Lint categories to fix. Others are left alone.
categories = ["non_snake_case", "non_upper_case_globals"]
# keywords = []

[cache]
report_path = "previous_analysis.txt"
`

func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%s exists and is not a directory", target)
	}

	manifestPath := filepath.Join(target, config.FileName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", manifestPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := os.WriteFile(manifestPath, []byte(defaultManifest), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", manifestPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", manifestPath)
	return nil
}
