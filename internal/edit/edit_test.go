package edit

import (
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func singleLineEdit(line, startChar, endChar int, text string) TextEdit {
	return TextEdit{
		Range: Range{
			Start: Position{Line: line, Character: startChar},
			End:   Position{Line: line, Character: endChar},
		},
		NewText: text,
	}
}

func TestApplySingleLineEdit(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "abcdefg\n")

	if err := ApplyToFile(path, []TextEdit{singleLineEdit(0, 2, 5, "XY")}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := readFile(t, path); got != "abXYefg\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestApplyPreservesLineCountOnSameLineEdit(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "one\ntwo\nthree\n")

	if err := ApplyToFile(path, []TextEdit{singleLineEdit(1, 0, 3, "TWO")}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := readFile(t, path); got != "one\nTWO\nthree\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestApplyMultiLineEditCollapsesRange(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.txt", "alpha\nbeta\ngamma\n")

	e := TextEdit{
		Range: Range{
			Start: Position{Line: 0, Character: 2},
			End:   Position{Line: 2, Character: 3},
		},
		NewText: "-",
	}
	if err := ApplyToFile(path, []TextEdit{e}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := readFile(t, path); got != "al-ma\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestTwoEditsOnOneLineRequireDescendingOrder(t *testing.T) {
	// Renaming both identifiers on one line only works because the
	// higher-column edit is applied first.
	path := writeFile(t, t.TempDir(), "a.txt", "let Aa = Bb;\n")

	edits := []TextEdit{
		singleLineEdit(0, 4, 6, "alpha"),
		singleLineEdit(0, 9, 11, "beta"),
	}
	if err := ApplyToFile(path, edits); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := readFile(t, path); got != "let alpha = beta;\n" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestAscendingApplicationOrderWouldBeWrong(t *testing.T) {
	// Property check for the ordering invariant: applying same-line
	// edits lowest-first shifts the later edit's coordinates whenever
	// the replacement changes the text length.
	content := "let Aa = Bb;\n"
	edits := []TextEdit{
		singleLineEdit(0, 4, 6, "alpha"),
		singleLineEdit(0, 9, 11, "beta"),
	}

	lines := splitLinesKeepEnds(content)
	asc := make([]TextEdit, len(edits))
	copy(asc, edits)
	sort.SliceStable(asc, func(i, j int) bool {
		return asc[i].Range.Start.Character < asc[j].Range.Start.Character
	})
	var err error
	for _, e := range asc {
		lines, err = applyOne(lines, e)
		if err != nil {
			t.Fatalf("apply: %v", err)
		}
	}
	if got := lines[0]; got == "let alpha = beta;\n" {
		t.Fatalf("ascending order unexpectedly produced the correct result: %q", got)
	}
}

func TestShuffledInputOrderDoesNotMatter(t *testing.T) {
	// ApplyToFile sorts internally, so the order edits arrive in must
	// never change the outcome.
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		path := writeFile(t, t.TempDir(), "a.txt", "let Aa = Bb + Cc;\n")
		edits := []TextEdit{
			singleLineEdit(0, 4, 6, "alpha"),
			singleLineEdit(0, 9, 11, "beta"),
			singleLineEdit(0, 14, 16, "gamma"),
		}
		rng.Shuffle(len(edits), func(i, j int) { edits[i], edits[j] = edits[j], edits[i] })

		if err := ApplyToFile(path, edits); err != nil {
			t.Fatalf("trial %d: apply: %v", trial, err)
		}
		if got := readFile(t, path); got != "let alpha = beta + gamma;\n" {
			t.Fatalf("trial %d: unexpected content %q", trial, got)
		}
	}
}

func TestOutOfRangeEditLeavesFileUntouched(t *testing.T) {
	content := "short\n"
	path := writeFile(t, t.TempDir(), "a.txt", content)

	err := ApplyToFile(path, []TextEdit{singleLineEdit(5, 0, 1, "x")})
	if err == nil {
		t.Fatalf("expected error for out-of-range line")
	}
	if got := readFile(t, path); got != content {
		t.Fatalf("file modified despite failed edit: %q", got)
	}
}

func TestApplyWorkspaceEditTouchesEachFileOnce(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.rs", "let Aa = 1;\n")
	b := writeFile(t, dir, "b.rs", "use Aa;\n")

	changes := map[string][]TextEdit{
		a: {singleLineEdit(0, 4, 6, "aa")},
		b: {singleLineEdit(0, 4, 6, "aa")},
	}
	applied, err := ApplyWorkspaceEdit(changes, nil)
	if err != nil {
		t.Fatalf("apply workspace edit: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 applied files, got %d", len(applied))
	}
	if got := readFile(t, a); got != "let aa = 1;\n" {
		t.Fatalf("unexpected content in a.rs: %q", got)
	}
	if got := readFile(t, b); got != "use aa;\n" {
		t.Fatalf("unexpected content in b.rs: %q", got)
	}
}

func TestApplyWorkspaceEditDoesNotRollBackEarlierFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.rs", "let Aa = 1;\n")
	missing := filepath.Join(dir, "missing.rs")

	changes := map[string][]TextEdit{
		a:       {singleLineEdit(0, 4, 6, "aa")},
		missing: {singleLineEdit(0, 0, 1, "x")},
	}
	applied, err := ApplyWorkspaceEdit(changes, nil)
	if err == nil {
		t.Fatalf("expected aggregate error for the unreadable file")
	}
	if len(applied) != 1 || applied[0] != a {
		t.Fatalf("expected only a.rs applied, got %v", applied)
	}
	// No rollback: the first file keeps its new content.
	if got := readFile(t, a); got != "let aa = 1;\n" {
		t.Fatalf("first file rolled back or corrupted: %q", got)
	}
}
