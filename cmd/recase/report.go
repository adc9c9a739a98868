package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"recase/internal/config"
	"recase/internal/fixer"
	"recase/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [directory]",
	Short: "Show naming-convention warnings without fixing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().Bool("fresh", false, "ignore the cached report and re-run diagnostics")
}

func runReport(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) == 1 {
		startDir = args[0]
	}

	applyColorMode(cmd)
	logger := newLogger(cmd)

	fresh, err := cmd.Flags().GetBool("fresh")
	if err != nil {
		return err
	}

	cfg, err := config.Load(startDir)
	if err != nil {
		return err
	}

	text, err := loadReport(cmd.Context(), cfg, fresh, logger)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}

	warnings := fixer.SortWarnings(resolveWarningPaths(report.Parse(text, cfg.Filter.Categories), cfg.Workspace.Root))
	if len(warnings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no naming warnings found")
		return nil
	}

	printWarningList(cmd, warnings)
	printCategoryCounts(cmd, warnings)
	return nil
}

func printCategoryCounts(cmd *cobra.Command, warnings []report.Warning) {
	counts := make(map[string]int)
	for _, w := range warnings {
		counts[w.Category]++
	}
	categories := make([]string, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	headline := color.New(color.Bold)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", headline.Sprint("By category:"))
	for _, c := range categories {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %d\n", c, counts[c])
	}
}
