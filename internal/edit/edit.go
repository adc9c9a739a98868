// Package edit applies positioned text replacements returned by a
// rename operation to files on disk.
package edit

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// Position is a protocol coordinate: 0-based line and character.
type Position struct {
	Line      int
	Character int
}

// Range covers [Start, End) in a document.
type Range struct {
	Start Position
	End   Position
}

// TextEdit replaces the text in Range with NewText.
type TextEdit struct {
	Range   Range
	NewText string
}

// ApplyToFile applies edits to one file. Edits are applied from the
// highest starting position to the lowest so that earlier edits never
// invalidate the coordinates of edits not yet applied. Any out-of-range
// coordinate aborts before anything is written; there is no
// partial-write within a single file.
func ApplyToFile(path string, edits []TextEdit) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	lines := splitLinesKeepEnds(string(data))

	sorted := make([]TextEdit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Range.Start, sorted[j].Range.Start
		if si.Line != sj.Line {
			return si.Line > sj.Line
		}
		return si.Character > sj.Character
	})

	for _, e := range sorted {
		lines, err = applyOne(lines, e)
		if err != nil {
			return fmt.Errorf("apply edit to %s: %w", path, err)
		}
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ApplyWorkspaceEdit applies a per-file edit map, continuing past
// failed files. It returns the files that were actually modified and
// an aggregate error covering the ones that were not. Files already
// written stay written: a multi-file edit is not transactional.
func ApplyWorkspaceEdit(changes map[string][]TextEdit, logger hclog.Logger) ([]string, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	paths := make([]string, 0, len(changes))
	for path := range changes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var merr *multierror.Error
	applied := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := ApplyToFile(path, changes[path]); err != nil {
			logger.Error("workspace edit failed for file", "file", path, "error", err)
			merr = multierror.Append(merr, err)
			continue
		}
		logger.Debug("applied workspace edit", "file", path, "edits", len(changes[path]))
		applied = append(applied, path)
	}
	return applied, merr.ErrorOrNil()
}

func applyOne(lines []string, e TextEdit) ([]string, error) {
	start, end := e.Range.Start, e.Range.End
	if start.Line < 0 || start.Line >= len(lines) || end.Line < start.Line || end.Line >= len(lines) {
		return nil, fmt.Errorf("line range %d..%d out of bounds (%d lines)", start.Line, end.Line, len(lines))
	}

	if start.Line == end.Line {
		line := lines[start.Line]
		if start.Character < 0 || end.Character < start.Character || end.Character > len(line) {
			return nil, fmt.Errorf("column range %d..%d out of bounds on line %d", start.Character, end.Character, start.Line)
		}
		lines[start.Line] = line[:start.Character] + e.NewText + line[end.Character:]
		return lines, nil
	}

	startLine := lines[start.Line]
	endLine := lines[end.Line]
	if start.Character < 0 || start.Character > len(startLine) || end.Character < 0 || end.Character > len(endLine) {
		return nil, fmt.Errorf("column out of bounds in multi-line range %d..%d", start.Line, end.Line)
	}
	merged := startLine[:start.Character] + e.NewText + endLine[end.Character:]

	out := make([]string, 0, len(lines)-(end.Line-start.Line))
	out = append(out, lines[:start.Line]...)
	out = append(out, merged)
	out = append(out, lines[end.Line+1:]...)
	return out, nil
}

// splitLinesKeepEnds splits content into lines that keep their
// terminators, so joining with "" reproduces the input byte for byte.
func splitLinesKeepEnds(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
