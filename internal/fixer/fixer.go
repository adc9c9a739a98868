// Package fixer sequences a batch of naming warnings through the
// rename engine: filter, rename at the diagnostic's end position, tally.
package fixer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-hclog"

	"recase/internal/filter"
	"recase/internal/journal"
	"recase/internal/lspclient"
	"recase/internal/report"
)

// Status classifies the outcome of one warning.
type Status string

const (
	StatusSkipped Status = "skipped"
	StatusFixed   Status = "fixed"
	StatusFailed  Status = "failed"
)

// Event is emitted per processed warning, in processing order.
type Event struct {
	Index   int
	Total   int
	Warning report.Warning
	Status  Status
	Err     error
}

// Result summarizes a batch.
type Result struct {
	Total   int
	Fixed   int
	Skipped int
	Failed  int
}

// RenameClient is the protocol-engine surface the orchestrator drives.
// *lspclient.Client implements it.
type RenameClient interface {
	Start(ctx context.Context) error
	RenameSymbol(ctx context.Context, path string, line, col int, newName string) error
	Close() error
}

// Options configures one batch run.
type Options struct {
	// WorkspaceRoot the analyzed workspace; warning paths resolve
	// against it when relative.
	WorkspaceRoot string

	// WarmupDelay is slept after the client starts so the server can
	// finish indexing before the first rename.
	WarmupDelay time.Duration

	// Keywords for the risk filter; nil means the built-in list.
	Keywords map[string]struct{}

	// Events receives one event per warning when non-nil. The channel
	// is not closed by Run.
	Events chan<- Event

	// Journal records applied renames when non-nil.
	Journal *journal.Journal

	// NewClient constructs the protocol engine. Required.
	NewClient func() RenameClient

	Logger hclog.Logger
}

// Run processes warnings strictly in (file, line, col) order using one
// client session for the whole batch. One bad warning never aborts the
// batch; a failed session start aborts it with zero fixes. The session
// is closed on every exit path.
func Run(ctx context.Context, warnings []report.Warning, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if opts.NewClient == nil {
		return Result{}, fmt.Errorf("fixer: NewClient is required")
	}
	keywords := opts.Keywords
	if keywords == nil {
		keywords = filter.DefaultKeywords()
	}

	ordered := SortWarnings(warnings)

	result := Result{Total: len(ordered)}

	client := opts.NewClient()
	if err := client.Start(ctx); err != nil {
		return result, fmt.Errorf("start language server: %w", err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("closing language server failed", "error", cerr)
		}
	}()

	if opts.WarmupDelay > 0 {
		logger.Debug("waiting for server warm-up", "delay", opts.WarmupDelay)
		select {
		case <-time.After(opts.WarmupDelay):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	for i, w := range ordered {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if filter.Skip(w, keywords) {
			logger.Info("skipping risky warning", "file", w.File, "line", w.Line, "col", w.Col)
			result.Skipped++
			emit(opts.Events, Event{Index: i, Total: result.Total, Warning: w, Status: StatusSkipped})
			continue
		}

		// The rename anchors on the end of the diagnostic range,
		// converted from the report's 1-based coordinates to the
		// protocol's 0-based ones.
		line := int(w.EndLine) - 1
		col := int(w.EndCol) - 1

		logger.Info("renaming identifier", "file", w.File, "line", w.Line, "col", w.Col, "new", w.Suggestion)
		err := client.RenameSymbol(ctx, w.File, line, col, w.Suggestion)
		if err != nil {
			logger.Warn("rename failed",
				"file", w.File, "line", w.Line, "col", w.Col,
				"new", w.Suggestion, "error", err)
			result.Failed++
			emit(opts.Events, Event{Index: i, Total: result.Total, Warning: w, Status: StatusFailed, Err: err})
			continue
		}

		result.Fixed++
		emit(opts.Events, Event{Index: i, Total: result.Total, Warning: w, Status: StatusFixed})
		if opts.Journal != nil {
			jerr := opts.Journal.Append(journal.Entry{
				File:      w.File,
				Line:      w.Line,
				Col:       w.Col,
				NewName:   w.Suggestion,
				Category:  w.Category,
				AppliedAt: time.Now(),
			})
			if jerr != nil {
				logger.Warn("journal append failed", "error", jerr)
			}
		}
	}

	return result, nil
}

// NewDefaultClient builds the production protocol engine for a config.
func NewDefaultClient(command string, args []string, workspaceRoot, languageID string, readTimeout, shutdownTimeout time.Duration, logger hclog.Logger) func() RenameClient {
	return func() RenameClient {
		return lspclient.New(lspclient.Options{
			Command:         command,
			Args:            args,
			WorkspaceRoot:   workspaceRoot,
			LanguageID:      languageID,
			ReadTimeout:     readTimeout,
			ShutdownTimeout: shutdownTimeout,
			Logger:          logger,
		})
	}
}

// SortWarnings returns a copy ordered by (file, line, col), the
// deterministic processing order of a batch. Event indexes refer to
// this order.
func SortWarnings(warnings []report.Warning) []report.Warning {
	ordered := make([]report.Warning, len(warnings))
	copy(ordered, warnings)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Col < b.Col
	})
	return ordered
}

func emit(ch chan<- Event, ev Event) {
	if ch != nil {
		ch <- ev
	}
}
