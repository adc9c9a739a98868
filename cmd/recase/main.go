package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"recase/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "recase",
	Short: "Fix naming-convention lints through the language server",
	Long:  "recase drives an external language server's rename support to fix naming-convention warnings safely, references included",
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("log-level", "warn", "log verbosity (trace|debug|info|warn|error|off)")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newLogger builds the structured logger every component receives.
func newLogger(cmd *cobra.Command) hclog.Logger {
	level, _ := cmd.Root().PersistentFlags().GetString("log-level")
	if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); quiet {
		level = "error"
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "recase",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}

// applyColorMode wires the --color flag into the color package.
func applyColorMode(cmd *cobra.Command) {
	mode, _ := cmd.Root().PersistentFlags().GetString("color")
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}
