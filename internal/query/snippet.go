package query

import (
	"fmt"
	"regexp"
	"strings"
)

// {name} placeholders left in display text
var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// Characters with meaning in snippet syntax
var snippetEscaper = strings.NewReplacer(`\`, `\\`, `$`, `\$`, `}`, `\}`)

// InsertTemplate turns each {name} into a numbered ${N:name} slot, counting
// from 1 left to right. Labels without placeholders come back unchanged and
// reported as plain text.
func InsertTemplate(label string) (string, bool) {
	matches := placeholderPattern.FindAllStringSubmatchIndex(label, -1)
	if len(matches) == 0 {
		return label, false
	}

	var b strings.Builder
	last := 0
	for n, m := range matches {
		b.WriteString(snippetEscaper.Replace(label[last:m[0]]))
		fmt.Fprintf(&b, "${%d:%s}", n+1, snippetEscaper.Replace(label[m[2]:m[3]]))
		last = m[1]
	}
	b.WriteString(snippetEscaper.Replace(label[last:]))
	return b.String(), true
}
