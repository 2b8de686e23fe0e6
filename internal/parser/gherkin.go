package parser

import "regexp"

// ContinuationKeyword inherits the role of the nearest keyword above it
const ContinuationKeyword = "And"

// StepKeywords is the scenario keyword vocabulary
var StepKeywords = []string{"Given", "When", "Then", "But", "And"}

//   Given I am logged in
var stepLinePattern = regexp.MustCompile(`^(\s*)(Given|When|Then|But|And)(\s+)(.*)`)

// StepLine is a scenario line split at its keyword
type StepLine struct {
	Indent  string
	Keyword string
	Spacing string
	Text    string // Everything after the keyword and its spacing
}

// MatchStepLine splits a keyword-prefixed scenario line
func MatchStepLine(line string) (StepLine, bool) {
	m := stepLinePattern.FindStringSubmatch(line)
	if m == nil {
		return StepLine{}, false
	}
	return StepLine{Indent: m[1], Keyword: m[2], Spacing: m[3], Text: m[4]}, true
}

// TextStart is the column where the argument text begins
func (l StepLine) TextStart() int {
	return len(l.Indent) + len(l.Keyword) + len(l.Spacing)
}

// IsContinuation reports whether the keyword is "And"
func (l StepLine) IsContinuation() bool {
	return l.Keyword == ContinuationKeyword
}
