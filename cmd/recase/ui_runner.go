package main

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"recase/internal/fixer"
	"recase/internal/report"
	"recase/internal/ui"
)

type fixOutcome struct {
	result fixer.Result
	err    error
}

func runFixWithUI(cmd *cobra.Command, title string, warnings []report.Warning, opts fixer.Options) (fixer.Result, error) {
	events := make(chan fixer.Event, 256)
	outcomeCh := make(chan fixOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Events = events
		res, err := fixer.Run(cmd.Context(), warnings, optsCopy)
		outcomeCh <- fixOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, warnings, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
