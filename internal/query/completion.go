package query

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

// maxSortCount caps the usage count encoded in a sort key
const maxSortCount = 99999

var (
	// "any quoted text"
	typedQuotedPattern = regexp.MustCompile(`"[^"]*"`)

	// The word still being typed
	partialWordPattern = regexp.MustCompile(`\S+$`)
)

// Completion suggests steps continuing the text typed before the cursor.
// It returns nil, not an empty slice, when nothing matches.
func (e *Engine) Completion(line string, position types.Position, document []string) []types.CompletionCandidate {
	typed := line
	if position.Character >= 0 && position.Character < len(line) {
		typed = line[:position.Character]
	}

	text, keyword := typed, ""
	if stepLine, ok := parser.MatchStepLine(typed); ok {
		text, keyword = stepLine.Text, stepLine.Keyword
		if stepLine.IsContinuation() {
			keyword = EffectiveKeyword(document, position.Line)
		}
	}

	// Text that is not valid UTF-8 cannot form a pattern
	prefix, err := regexp.Compile(`(?i)^` + regexp.QuoteMeta(NormalizeTyped(text)))
	if err != nil {
		return nil
	}

	var keywordPattern *regexp.Regexp
	if keyword != "" && e.opts.StrictKeywords {
		keywordPattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	}

	var candidates []types.CompletionCandidate
	for _, step := range e.registry.Steps() {
		loc := prefix.FindStringIndex(step.Text)
		if loc == nil {
			continue
		}
		if keywordPattern != nil && !keywordPattern.MatchString(step.Description) {
			continue
		}

		label := step.Text[loc[1]:]
		candidate := types.CompletionCandidate{
			Label:      label,
			SortText:   SortText(step.Count, label),
			InsertText: label,
			StepID:     step.ID,
		}
		if e.opts.SmartSnippets {
			candidate.InsertText, candidate.Snippet = InsertTemplate(label)
		}
		candidates = append(candidates, candidate)
	}

	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SortText < candidates[j].SortText
	})
	return candidates
}

// EffectiveKeyword scans upward from the line above lineIndex and returns
// the first keyword that is not "And", or "" when there is none.
func EffectiveKeyword(document []string, lineIndex int) string {
	if lineIndex > len(document) {
		lineIndex = len(document)
	}
	for i := lineIndex - 1; i >= 0; i-- {
		stepLine, ok := parser.MatchStepLine(document[i])
		if ok && !stepLine.IsContinuation() {
			return stepLine.Keyword
		}
	}
	return ""
}

// NormalizeTyped collapses quoted text to "" and drops the word in progress
func NormalizeTyped(text string) string {
	text = typedQuotedPattern.ReplaceAllLiteralString(text, `""`)
	return partialWordPattern.ReplaceAllLiteralString(text, "")
}

// SortText orders higher usage first, then by label
func SortText(count int, label string) string {
	count = max(0, min(count, maxSortCount))
	return fmt.Sprintf("%05d_%s", maxSortCount-count, label)
}
