package pattern

import (
	"regexp"
	"strings"
)

// "(...)" capture groups inside double quotes
var quotedGroupPattern = regexp.MustCompile(`"\(.*?\)"`)

// DisplayText derives the canonical, human-readable text of a fragment.
// Capture groups wrapped in double quotes collapse to an empty pair, so
// `^I click "([^"]*)"$` displays as `I click ""`.
func DisplayText(fragment string) string {
	s := strings.ReplaceAll(fragment, `\`, "")
	s = strings.TrimPrefix(s, "^")
	s = strings.TrimSuffix(s, "$")
	return quotedGroupPattern.ReplaceAllLiteralString(s, `""`)
}
