package types

import "regexp"

// DiagnosticSource tags every diagnostic produced by this server
const DiagnosticSource = "gherkin-lsp"

// Severity uses the LSP numbering so records can be sent as-is
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Position is a 0-indexed line/column pair
type Position struct {
	Line      int
	Character int
}

// Range spans two positions, end exclusive
type Range struct {
	Start Position
	End   Position
}

// Location points at a range inside a file
type Location struct {
	Path  string // Absolute path
	Range Range
}

// PointLocation returns a zero-width location at line/column
func PointLocation(path string, line, column int) Location {
	pos := Position{Line: line, Character: column}
	return Location{Path: path, Range: Range{Start: pos, End: pos}}
}

// Step represents one registered step definition
type Step struct {
	ID          string         // Content hash of Text
	Pattern     *regexp.Regexp // Anchored matcher for a scenario line's argument text
	Text        string         // Canonical display text, e.g. `I click ""`
	Description string         // Declaration line without the function body
	Definition  Location       // Where the step is declared
	Count       int            // Usage counter
}

// Matches reports whether the argument text of a scenario line invokes this step
func (s *Step) Matches(text string) bool {
	return s.Pattern.MatchString(text)
}

// Diagnostic is a validation finding for one line
type Diagnostic struct {
	Severity Severity
	Range    Range
	Message  string
	Source   string
}

// CompletionCandidate is one suggested step continuation
type CompletionCandidate struct {
	Label      string
	SortText   string
	InsertText string
	Snippet    bool   // InsertText uses ${N:name} template slots
	StepID     string // Step to credit when the candidate is accepted
}
