// ABOUTME: Deterministic log snippet extraction for abnormality records.
// ABOUTME: Picks the evidence text that becomes part of the deduplication key.

package classify

import "strings"

// SnippetMarker introduces classifier-quoted evidence inside a finding.
// Marker-delimited text always wins over keyword search.
const SnippetMarker = "Relevant Log(s):"

// SnippetPlaceholder is returned when no log lines are available at all
const SnippetPlaceholder = "(No log lines available for snippet)"

const snippetMaxLen = 500

// snippetKeywords are scanned newest-to-oldest against raw log lines when
// the finding carries no marker
var snippetKeywords = []string{
	"error",
	"warning",
	"failed",
	"exception",
	"critical",
	"traceback",
	"fatal",
	"refused",
	"denied",
	"unauthorized",
	"timeout",
	"unavailable",
}

// ExtractSnippet selects the evidence text for a finding. Precedence:
// marker phrase in the analysis, then the most recent keyword-matching log
// line, then the last up-to-3 non-blank lines, then a placeholder.
func ExtractSnippet(analysis, logs string) string {
	if idx := strings.Index(analysis, SnippetMarker); idx >= 0 {
		after := strings.TrimSpace(analysis[idx+len(SnippetMarker):])
		if after != "" {
			return truncateSnippet(after)
		}
	}

	lines := nonBlankLines(logs)

	for i := len(lines) - 1; i >= 0; i-- {
		lower := strings.ToLower(lines[i])
		for _, kw := range snippetKeywords {
			if strings.Contains(lower, kw) {
				return truncateSnippet(lines[i])
			}
		}
	}

	if len(lines) > 0 {
		start := len(lines) - 3
		if start < 0 {
			start = 0
		}
		return truncateSnippet(strings.Join(lines[start:], "\n"))
	}

	return SnippetPlaceholder
}

func nonBlankLines(logs string) []string {
	var lines []string
	for _, line := range strings.Split(logs, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func truncateSnippet(s string) string {
	if len(s) > snippetMaxLen {
		return s[:snippetMaxLen] + "..."
	}
	return s
}
