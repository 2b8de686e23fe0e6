package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// DefaultDefinitionKeywords introduce a step declaration in source files
var DefaultDefinitionKeywords = []string{"Given", "When", "Then", "And", "But", "defineStep", "Step"}

// Submatch groups of a declaration pattern
const (
	groupPrefix = 1
	groupSlash  = 3
	groupSingle = 4
	groupDouble = 5
)

var (
	// Function body or block start after the declaration
	bodyStartPattern = regexp.MustCompile(`\([^()]*\)\s*=>|\{|\basync\b|\bfunction\b|\s+do\b|=>|->`)

	singleQuoteUnescaper = strings.NewReplacer(`\\`, `\`, `\'`, `'`)
	doubleQuoteUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

// declarationPattern builds the generic, case-insensitive step declaration
// matcher. It accepts anything not ending in a word character before the
// keyword, then non-word separators, then a body delimited by a slash or
// either quote:
//
//	Given(/^I am logged in$/, ...)        JavaScript, Ruby
//	@When("^I click \"([^\"]*)\"$")       Java
//	@then('the total is {float}')         Python
func declarationPattern(keywords []string) (*regexp.Regexp, error) {
	if len(keywords) == 0 {
		return nil, fmt.Errorf("no definition keywords")
	}
	quoted := make([]string, len(keywords))
	for i, kw := range keywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}

	src := `(?i)^((?:[^'"/]*?[^\w])|)(` + strings.Join(quoted, "|") + `)[^/'"\w]*?` +
		`(?:/((?:\\.|[^/\\])+)/|'((?:\\.|[^'\\])+)'|"((?:\\.|[^"\\])+)")`
	return regexp.Compile(src)
}

// declarationBody returns the raw fragment of a declaration match. Quoted
// bodies are string literals, so their escapes are decoded.
func declarationBody(line string, m []int) string {
	switch {
	case m[2*groupSlash] >= 0:
		return line[m[2*groupSlash]:m[2*groupSlash+1]]
	case m[2*groupSingle] >= 0:
		return singleQuoteUnescaper.Replace(line[m[2*groupSingle]:m[2*groupSingle+1]])
	default:
		return doubleQuoteUnescaper.Replace(line[m[2*groupDouble]:m[2*groupDouble+1]])
	}
}

// description keeps the declaration and drops the function body that follows
func description(line string, declEnd int) string {
	tail := line[declEnd:]
	if loc := bodyStartPattern.FindStringIndex(tail); loc != nil {
		tail = tail[:loc[0]]
	}
	tail = strings.TrimRight(tail, " \t,(")
	return strings.TrimSpace(line[:declEnd] + tail)
}

// StepID derives the registry identifier from canonical display text
func StepID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "step-" + hex.EncodeToString(sum[:8])
}
