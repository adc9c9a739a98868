// Package filter decides which warnings are too risky to hand to the
// rename engine. It fails safe: anything it cannot inspect is skipped,
// never an error that would abort the batch.
package filter

import (
	"os"
	"strings"

	"recase/internal/report"
)

// rustKeywords are reserved words a suggested replacement must never
// collide with.
var rustKeywords = []string{
	"as", "break", "const", "continue", "crate", "else", "enum", "extern",
	"false", "fn", "for", "if", "impl", "in", "let", "loop", "match",
	"mod", "move", "mut", "pub", "ref", "return", "self", "Self",
	"static", "struct", "super", "trait", "true", "type", "unsafe",
	"use", "where", "while", "async", "await", "dyn",
}

// DefaultKeywords returns the built-in reserved-word set.
func DefaultKeywords() map[string]struct{} {
	return KeywordSet(rustKeywords)
}

// KeywordSet builds a lookup set from a configured keyword list.
func KeywordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Skip reports whether a warning should not be auto-fixed. The file
// heuristics (comment markers, unbalanced quotes before the column) may
// over-skip; that is the intended trade-off. Lines shorter than the
// recorded column are clamped, not skipped.
func Skip(w report.Warning, keywords map[string]struct{}) bool {
	if w.Suggestion == "" {
		return true
	}
	if _, reserved := keywords[w.Suggestion]; reserved {
		return true
	}

	data, err := os.ReadFile(w.File)
	if err != nil {
		// Unreadable target: too risky to touch.
		return true
	}
	lines := splitLines(string(data))

	idx := int(w.Line) - 1
	if idx < 0 || idx >= len(lines) {
		return true
	}
	line := lines[idx]

	col := int(w.Col) - 1
	if col < 0 {
		col = 0
	}
	if col > len(line) {
		col = len(line)
	}
	prefix := line[:col]

	if strings.Contains(prefix, "//") || strings.Contains(prefix, "/*") {
		return true
	}

	if oddQuotes(prefix, '\'') || oddQuotes(prefix, '"') {
		return true
	}

	return false
}

// oddQuotes reports whether the prefix contains an odd number of
// unescaped quote characters, a cheap signal that the position sits
// inside a string or char literal.
func oddQuotes(prefix string, quote byte) bool {
	total := strings.Count(prefix, string(quote))
	escaped := strings.Count(prefix, `\`+string(quote))
	return (total-escaped)%2 == 1
}

func splitLines(content string) []string {
	lines := strings.SplitAfter(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
