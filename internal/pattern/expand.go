package pattern

import (
	"regexp"
	"strings"
)

// (a|b|c) or (?:a|b|c), no nested parentheses
var alternationPattern = regexp.MustCompile(`\((?:\?:)?([^()]*\|[^()]*)\)`)

// Expand returns every concrete variant of a fragment with alternation
// groups. Groups are expanded left to right, so "(a|b) (c|d)" yields
// "a c", "a d", "b c", "b d". A fragment without groups is returned as is.
func Expand(fragment string) []string {
	loc := firstAlternation(fragment)
	if loc == nil {
		return []string{fragment}
	}

	prefix, suffix := fragment[:loc[0]], fragment[loc[1]:]
	alternatives := strings.Split(fragment[loc[2]:loc[3]], "|")

	variants := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		variants = append(variants, Expand(prefix+alt+suffix)...)
	}
	return variants
}

// firstAlternation locates the leftmost group whose parentheses are both
// unescaped; \(a|b\) is literal text.
func firstAlternation(fragment string) []int {
	for _, loc := range alternationPattern.FindAllStringSubmatchIndex(fragment, -1) {
		if escapedAt(fragment, loc[0]) || escapedAt(fragment, loc[1]-1) {
			continue
		}
		return loc
	}
	return nil
}
