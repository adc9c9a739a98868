package fixer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"recase/internal/journal"
	"recase/internal/report"
)

type renameCall struct {
	path      string
	line, col int
	newName   string
}

type fakeClient struct {
	startErr  error
	renameErr map[string]error
	calls     []renameCall
	started   bool
	closed    bool
}

func (f *fakeClient) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeClient) RenameSymbol(ctx context.Context, path string, line, col int, newName string) error {
	f.calls = append(f.calls, renameCall{path: path, line: line, col: col, newName: newName})
	if err, ok := f.renameErr[path]; ok {
		return err
	}
	return nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func fixableWarning(t *testing.T, dir, name, suggestion string, line, col uint32) report.Warning {
	t.Helper()
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		if werr := os.WriteFile(path, []byte("let MyVar = 1;\nlet Other = 2;\nlet Third = 3;\n"), 0o644); werr != nil {
			t.Fatalf("write %s: %v", name, werr)
		}
	}
	return report.Warning{
		File:       path,
		Line:       line,
		Col:        col,
		EndLine:    line,
		EndCol:     col + 5,
		Message:    "should have snake_case name",
		Suggestion: suggestion,
		Category:   "non_snake_case",
	}
}

func TestRunSortsAndAnchorsOnEndPosition(t *testing.T) {
	dir := t.TempDir()
	w1 := fixableWarning(t, dir, "b.rs", "bbb", 2, 5)
	w2 := fixableWarning(t, dir, "a.rs", "aaa", 1, 5)
	w3 := fixableWarning(t, dir, "a.rs", "ccc", 3, 5)

	fc := &fakeClient{}
	res, err := Run(context.Background(), []report.Warning{w1, w3, w2}, Options{
		NewClient: func() RenameClient { return fc },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Fixed != 3 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(fc.calls) != 3 {
		t.Fatalf("expected 3 rename calls, got %d", len(fc.calls))
	}
	// Deterministic (file, line, col) order.
	if fc.calls[0].path != w2.File || fc.calls[1].path != w3.File || fc.calls[2].path != w1.File {
		t.Fatalf("unexpected call order: %+v", fc.calls)
	}
	// End position, converted to the protocol's 0-based coordinates.
	if fc.calls[0].line != int(w2.EndLine)-1 || fc.calls[0].col != int(w2.EndCol)-1 {
		t.Fatalf("expected end-position anchor, got line=%d col=%d", fc.calls[0].line, fc.calls[0].col)
	}
	if !fc.closed {
		t.Fatalf("client not closed after batch")
	}
}

func TestRunAbortsWhenStartFails(t *testing.T) {
	dir := t.TempDir()
	w := fixableWarning(t, dir, "a.rs", "aaa", 1, 5)

	fc := &fakeClient{startErr: errors.New("no such binary")}
	res, err := Run(context.Background(), []report.Warning{w}, Options{
		NewClient: func() RenameClient { return fc },
	})
	if err == nil {
		t.Fatalf("expected start failure to abort the batch")
	}
	if res.Fixed != 0 {
		t.Fatalf("expected zero fixes, got %d", res.Fixed)
	}
	if len(fc.calls) != 0 {
		t.Fatalf("no rename should be attempted, got %d", len(fc.calls))
	}
}

func TestRunContinuesPastFailedRename(t *testing.T) {
	dir := t.TempDir()
	w1 := fixableWarning(t, dir, "a.rs", "aaa", 1, 5)
	w2 := fixableWarning(t, dir, "b.rs", "bbb", 1, 5)

	fc := &fakeClient{renameErr: map[string]error{w1.File: errors.New("boom")}}
	res, err := Run(context.Background(), []report.Warning{w1, w2}, Options{
		NewClient: func() RenameClient { return fc },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Fixed != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !fc.closed {
		t.Fatalf("client not closed")
	}
}

func TestRunSkipsFilteredWarnings(t *testing.T) {
	dir := t.TempDir()
	risky := fixableWarning(t, dir, "a.rs", "", 1, 5) // no suggestion
	clean := fixableWarning(t, dir, "b.rs", "bbb", 1, 5)

	fc := &fakeClient{}
	res, err := Run(context.Background(), []report.Warning{risky, clean}, Options{
		NewClient: func() RenameClient { return fc },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Skipped != 1 || res.Fixed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(fc.calls) != 1 || fc.calls[0].path != clean.File {
		t.Fatalf("unexpected calls %+v", fc.calls)
	}
}

func TestRunEmitsEventsInOrder(t *testing.T) {
	dir := t.TempDir()
	w1 := fixableWarning(t, dir, "a.rs", "aaa", 1, 5)
	w2 := fixableWarning(t, dir, "b.rs", "", 1, 5)

	events := make(chan Event, 8)
	fc := &fakeClient{}
	_, err := Run(context.Background(), []report.Warning{w1, w2}, Options{
		Events:    events,
		NewClient: func() RenameClient { return fc },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	close(events)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Status != StatusFixed || got[1].Status != StatusSkipped {
		t.Fatalf("unexpected statuses: %v, %v", got[0].Status, got[1].Status)
	}
	if got[0].Total != 2 || got[1].Index != 1 {
		t.Fatalf("unexpected event numbering: %+v", got)
	}
}

func TestRunJournalsSuccesses(t *testing.T) {
	dir := t.TempDir()
	w := fixableWarning(t, dir, "a.rs", "aaa", 1, 5)
	j := journal.OpenAt(filepath.Join(dir, "journal.mp"))

	fc := &fakeClient{}
	_, err := Run(context.Background(), []report.Warning{w}, Options{
		Journal:   j,
		NewClient: func() RenameClient { return fc },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	entries, err := j.Load()
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	if entries[0].NewName != "aaa" || entries[0].File != w.File {
		t.Fatalf("unexpected journal entry %+v", entries[0])
	}
}
