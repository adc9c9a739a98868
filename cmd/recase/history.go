package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"recase/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List renames applied in previous runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("last", 0, "show only the most recent N entries (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	applyColorMode(cmd)

	last, err := cmd.Flags().GetInt("last")
	if err != nil {
		return err
	}

	j, err := journal.Open("recase")
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	entries, err := j.Load()
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no renames recorded yet")
		return nil
	}
	if last > 0 && last < len(entries) {
		entries = entries[len(entries)-last:]
	}

	pathColor := color.New(color.FgCyan)
	nameColor := color.New(color.FgGreen)
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s:%d:%d -> %s [%s]\n",
			e.AppliedAt.Format("2006-01-02 15:04:05"),
			pathColor.Sprint(e.File), e.Line, e.Col,
			nameColor.Sprint(e.NewName), e.Category)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d rename(s) on record\n", len(entries))
	return nil
}
