// ABOUTME: Tests for log snippet extraction precedence and truncation.
// ABOUTME: Pins the marker > keyword > last-lines > placeholder tie-break contract.

package classify

import (
	"strings"
	"testing"
)

func TestExtractSnippetMarkerWins(t *testing.T) {
	// Keyword-matching lines exist in the logs, but the marker-delimited
	// evidence must always win.
	analysis := "Disk nearly full. Relevant Log(s): WARN disk at 95%"
	logs := "INFO started\nERROR connection refused\nWARN disk at 95%"

	got := ExtractSnippet(analysis, logs)
	want := "WARN disk at 95%"
	if got != want {
		t.Errorf("ExtractSnippet() = %q, want %q", got, want)
	}
}

func TestExtractSnippetKeywordScanNewestFirst(t *testing.T) {
	analysis := "Service is restarting repeatedly"
	logs := strings.Join([]string{
		"ERROR first failure",
		"INFO recovering",
		"ERROR second failure",
		"INFO shutting down",
	}, "\n")

	got := ExtractSnippet(analysis, logs)
	want := "ERROR second failure"
	if got != want {
		t.Errorf("ExtractSnippet() = %q, want %q (most recent match)", got, want)
	}
}

func TestExtractSnippetKeywordCaseInsensitive(t *testing.T) {
	analysis := "Authentication problems observed"
	logs := "INFO all good\nrequest DENIED for user admin"

	got := ExtractSnippet(analysis, logs)
	want := "request DENIED for user admin"
	if got != want {
		t.Errorf("ExtractSnippet() = %q, want %q", got, want)
	}
}

func TestExtractSnippetFallsBackToLastLines(t *testing.T) {
	analysis := "Something subtle is off"
	logs := "line one\n\nline two\nline three\nline four\n\n"

	got := ExtractSnippet(analysis, logs)
	want := "line two\nline three\nline four"
	if got != want {
		t.Errorf("ExtractSnippet() = %q, want last 3 non-blank lines %q", got, want)
	}
}

func TestExtractSnippetFewerThanThreeLines(t *testing.T) {
	analysis := "Something subtle is off"
	logs := "only line\n"

	got := ExtractSnippet(analysis, logs)
	if got != "only line" {
		t.Errorf("ExtractSnippet() = %q, want %q", got, "only line")
	}
}

func TestExtractSnippetPlaceholderOnEmptyLogs(t *testing.T) {
	analysis := "Container is misbehaving"

	for _, logs := range []string{"", "\n\n", "   \n  \n"} {
		got := ExtractSnippet(analysis, logs)
		if got != SnippetPlaceholder {
			t.Errorf("ExtractSnippet(%q) = %q, want placeholder", logs, got)
		}
	}
}

func TestExtractSnippetEmptyMarkerTailFallsThrough(t *testing.T) {
	// A marker with nothing after it must not produce an empty snippet;
	// extraction falls through to the keyword scan.
	analysis := "Crash loop detected. Relevant Log(s):   "
	logs := "INFO boot\nFATAL segfault in worker"

	got := ExtractSnippet(analysis, logs)
	want := "FATAL segfault in worker"
	if got != want {
		t.Errorf("ExtractSnippet() = %q, want %q", got, want)
	}
}

func TestExtractSnippetTruncation(t *testing.T) {
	long := strings.Repeat("x", 600)
	analysis := "Flooding detected. Relevant Log(s): " + long

	got := ExtractSnippet(analysis, "")
	if len(got) != snippetMaxLen+3 {
		t.Fatalf("truncated snippet length = %d, want %d", len(got), snippetMaxLen+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated snippet missing ellipsis suffix")
	}
	if got[:snippetMaxLen] != long[:snippetMaxLen] {
		t.Errorf("truncated snippet content mismatch")
	}
}

func TestExtractSnippetShortValuesNotTruncated(t *testing.T) {
	analysis := "Relevant Log(s): short evidence"
	got := ExtractSnippet(analysis, "")
	if got != "short evidence" {
		t.Errorf("ExtractSnippet() = %q, want %q", got, "short evidence")
	}
}
