package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"recase/internal/config"
	"recase/internal/filter"
	"recase/internal/fixer"
	"recase/internal/journal"
	"recase/internal/observ"
	"recase/internal/report"
)

var fixCmd = &cobra.Command{
	Use:   "fix [directory]",
	Short: "Rename identifiers flagged by naming-convention warnings",
	Long:  "Parse the diagnostics report, filter risky warnings, and fix the rest through the language server's rename support.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFix,
}

func init() {
	fixCmd.Flags().Bool("yes", false, "apply fixes without asking for confirmation")
	fixCmd.Flags().Bool("dry-run", false, "list what would be fixed and exit")
	fixCmd.Flags().Bool("fresh", false, "ignore the cached report and re-run diagnostics")
	fixCmd.Flags().String("ui", "auto", "progress display (auto|on|off)")
}

func runFix(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) == 1 {
		startDir = args[0]
	}

	applyColorMode(cmd)
	logger := newLogger(cmd)

	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	fresh, err := cmd.Flags().GetBool("fresh")
	if err != nil {
		return err
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	cfg, err := config.Load(startDir)
	if err != nil {
		return err
	}

	timer := observ.NewTimer()

	phase := timer.Begin("diagnostics")
	text, err := loadReport(cmd.Context(), cfg, fresh, logger)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	timer.End(phase, "")

	phase = timer.Begin("parse")
	warnings := resolveWarningPaths(report.Parse(text, cfg.Filter.Categories), cfg.Workspace.Root)
	timer.End(phase, fmt.Sprintf("%d warnings", len(warnings)))

	if len(warnings) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no naming warnings found")
		return nil
	}

	sorted := fixer.SortWarnings(warnings)
	printWarningList(cmd, sorted)

	if dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "%d warning(s) would be considered for fixing\n", len(sorted))
		return nil
	}
	if !yes && !confirm(cmd, fmt.Sprintf("Fix %d warning(s)?", len(sorted))) {
		fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
		return nil
	}

	keywords := filter.DefaultKeywords()
	if len(cfg.Filter.Keywords) > 0 {
		keywords = filter.KeywordSet(cfg.Filter.Keywords)
	}

	j, jerr := journal.Open("recase")
	if jerr != nil {
		logger.Warn("journal unavailable", "error", jerr)
		j = nil
	}

	opts := fixer.Options{
		WorkspaceRoot: cfg.Workspace.Root,
		WarmupDelay:   cfg.WarmupDelay(),
		Keywords:      keywords,
		Journal:       j,
		Logger:        logger,
		NewClient: fixer.NewDefaultClient(
			cfg.Server.Command,
			cfg.Server.Args,
			cfg.Workspace.Root,
			cfg.Server.LanguageID,
			cfg.ReadTimeout(),
			cfg.ShutdownTimeout(),
			logger,
		),
	}

	phase = timer.Begin("rename batch")
	var result fixer.Result
	if shouldUseTUI(mode) {
		result, err = runFixWithUI(cmd, "fixing naming warnings", sorted, opts)
	} else {
		result, err = fixer.Run(cmd.Context(), sorted, opts)
	}
	timer.End(phase, fmt.Sprintf("%d fixed", result.Fixed))
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Fixed %d out of %d warning(s) (skipped %d, failed %d)\n",
		result.Fixed, result.Total, result.Skipped, result.Failed)

	if result.Fixed > 0 {
		if verr := verifyRemaining(cmd, cfg, timer, logger); verr != nil {
			logger.Warn("verification run failed", "error", verr)
		}
	}

	if showTimings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	return nil
}

// verifyRemaining re-runs diagnostics after a batch with at least one
// success and reports what is left for manual follow-up.
func verifyRemaining(cmd *cobra.Command, cfg config.Config, timer *observ.Timer, logger hclog.Logger) error {
	phase := timer.Begin("verify")
	defer timer.End(phase, "")

	text, err := loadReport(cmd.Context(), cfg, true, logger)
	if err != nil {
		return err
	}
	remaining := report.Parse(text, cfg.Filter.Categories)
	fmt.Fprintf(cmd.OutOrStdout(), "Remaining naming warnings: %d\n", len(remaining))
	if len(remaining) == 0 {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Some warnings may need manual review:")
	for i, w := range remaining {
		if i == 10 {
			fmt.Fprintf(cmd.OutOrStdout(), "  ... and %d more\n", len(remaining)-i)
			break
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s:%d:%d - %s\n", w.File, w.Line, w.Col, w.Message)
	}
	return nil
}

func printWarningList(cmd *cobra.Command, warnings []report.Warning) {
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	if quiet {
		return
	}
	categoryColor := color.New(color.FgYellow)
	pathColor := color.New(color.FgCyan)
	fmt.Fprintf(cmd.OutOrStdout(), "Found %d naming warning(s):\n", len(warnings))
	for _, w := range warnings {
		suggestion := w.Suggestion
		if suggestion == "" {
			suggestion = "(no suggestion)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s:%d:%d -> %s\n",
			categoryColor.Sprintf("[%s]", w.Category),
			pathColor.Sprint(w.File), w.Line, w.Col,
			suggestion)
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "y")
}
