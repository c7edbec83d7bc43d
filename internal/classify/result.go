// ABOUTME: Closed result taxonomy for classifier output.
// ABOUTME: Parses raw model text into a tagged Normal/ClassifierError/Finding value exactly once.

package classify

import "strings"

// ResultKind discriminates the three shapes a classifier response can take
type ResultKind int

const (
	// ResultNormal means the classifier saw nothing wrong
	ResultNormal ResultKind = iota
	// ResultClassifierError means the classifier itself failed or produced an unusable response
	ResultClassifierError
	// ResultFinding means the classifier described a concrete abnormality
	ResultFinding
)

func (k ResultKind) String() string {
	switch k {
	case ResultNormal:
		return "normal"
	case ResultClassifierError:
		return "classifier_error"
	case ResultFinding:
		return "finding"
	}
	return "unknown"
}

// errorMarker prefixes in-band failure reports from the classifier
const errorMarker = "ERROR:"

// Result is the parsed classifier verdict. Text is set for findings,
// Reason for classifier errors.
type Result struct {
	Kind   ResultKind
	Text   string
	Reason string
}

// ParseResponse converts raw classifier output into a Result. Downstream
// code switches on Kind and never re-inspects the raw string. The literal
// token NORMAL (any case, optional trailing period) is a healthy verdict;
// an ERROR: prefix or an empty response is a classifier failure; anything
// else is a finding.
func ParseResponse(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Result{Kind: ResultClassifierError, Reason: "empty classifier response"}
	}

	upper := strings.ToUpper(trimmed)
	if upper == "NORMAL" || upper == "NORMAL." {
		return Result{Kind: ResultNormal}
	}

	if strings.HasPrefix(trimmed, errorMarker) {
		reason := strings.TrimSpace(strings.TrimPrefix(trimmed, errorMarker))
		if reason == "" {
			reason = "classifier reported an unspecified error"
		}
		return Result{Kind: ResultClassifierError, Reason: reason}
	}

	return Result{Kind: ResultFinding, Text: trimmed}
}
