package report

import (
	"regexp"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Warning is one naming-convention diagnostic extracted from an analyzer
// report. Positions use the report's 1-based line/column convention; the
// orchestrator converts to the protocol's 0-based convention when it
// anchors a rename.
type Warning struct {
	File       string
	Line       uint32
	Col        uint32
	EndLine    uint32
	EndCol     uint32
	Message    string
	Suggestion string
	Category   string
}

var (
	// Lines like:
	//   processing crate: core, module: src/lib.rs
	// set the file context for the warnings that follow.
	moduleMarkerRe = regexp.MustCompile(`^processing crate: [^,]+, module: (.+)$`)

	// Lines like:
	//   Warning RustcLint("non_snake_case") from LineCol { line: 3, col: 5 } to LineCol { line: 3, col: 10 }: Variable `X` should ...
	warningRe = regexp.MustCompile(`^Warning RustcLint\("([^"]+)"\) from LineCol \{ line: (\d+), col: (\d+) \} to LineCol \{ line: (\d+), col: (\d+) \}: (.+)$`)
)

const suggestionMarker = "e.g. `"

// Parse scans a raw diagnostics report and returns the warnings whose
// category is in the allow-list, in input order. It maintains a single
// piece of state, the current file, updated on every module marker line.
// Lines matching neither pattern are skipped; Parse never fails.
func Parse(output string, categories []string) []Warning {
	allowed := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}

	warnings := make([]Warning, 0)
	currentFile := ""

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)

		if m := moduleMarkerRe.FindStringSubmatch(line); m != nil {
			currentFile = m[1]
			continue
		}

		m := warningRe.FindStringSubmatch(line)
		if m == nil || currentFile == "" {
			continue
		}
		category := m[1]
		if _, ok := allowed[category]; !ok {
			continue
		}

		startLine, ok1 := parsePos(m[2])
		startCol, ok2 := parsePos(m[3])
		endLine, ok3 := parsePos(m[4])
		endCol, ok4 := parsePos(m[5])
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		message := m[6]

		warnings = append(warnings, Warning{
			File:       currentFile,
			Line:       startLine,
			Col:        startCol,
			EndLine:    endLine,
			EndCol:     endCol,
			Message:    message,
			Suggestion: extractSuggestion(message),
			Category:   category,
		})
	}
	return warnings
}

// parsePos converts a matched digit group to a position component.
func parsePos(s string) (uint32, bool) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractSuggestion pulls the replacement name out of messages of the
// form "... should have snake_case name, e.g. `my_name`". Returns an
// empty string when the message carries no example marker.
func extractSuggestion(message string) string {
	idx := strings.Index(message, suggestionMarker)
	if idx < 0 {
		return ""
	}
	rest := message[idx+len(suggestionMarker):]
	if end := strings.IndexByte(rest, '`'); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimRight(rest, "`")
}
