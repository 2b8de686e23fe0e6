// Package pattern turns raw step-definition fragments into anchored
// regular expressions and human-readable display text.
//
// Compilation is a fixed pipeline of string-to-string stages. Each stage is
// exported so it can be tested on its own; Compiler.Source applies them in
// order.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidPattern is returned when a fragment does not compile
var ErrInvalidPattern = errors.New("invalid step pattern")

// Built-in cucumber expression parameter types
const (
	floatPattern  = `-?\d*\.?\d+`
	intPattern    = `-?\d+`
	stringPattern = `"[^"]+"`
	wildcard      = `.*`
)

var (
	// #{name} (Ruby/CoffeeScript interpolation)
	interpolationPattern = regexp.MustCompile(`#\{.*?\}`)

	// {name}, {}, but never {2} or {,3}
	parameterPattern = regexp.MustCompile(`\{(?:[^\d,}][^}]*)?\}`)

	// {n}, {n,}, {n,m}
	repetitionPattern = regexp.MustCompile(`^\{\d+(?:,\d*)?\}`)
)

// Replacement is a literal substitution applied to a fragment before any
// other stage, e.g. a project-specific parameter like {color} -> (red|blue).
type Replacement struct {
	Parameter string
	Value     string
}

// Compiler compiles fragments with an optional set of replacements
type Compiler struct {
	Replacements []Replacement
}

// Compile compiles a fragment with no replacements
func Compile(fragment string) (*regexp.Regexp, error) {
	return (&Compiler{}).Compile(fragment)
}

// Compile builds the anchored matcher for fragment
func (c *Compiler) Compile(fragment string) (*regexp.Regexp, error) {
	source := c.Source(fragment)
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, fragment, err)
	}
	return re, nil
}

// Source returns the regular expression source Compile would use
func (c *Compiler) Source(fragment string) string {
	s := ApplyReplacements(fragment, c.Replacements)
	s = ReplaceInterpolation(s)
	s = ReplaceBuiltinParameters(s)
	s = ReplaceCustomParameters(s)
	s = EscapeLiterals(s)
	return "^(?:" + trimAnchors(s) + ")$"
}

// ApplyReplacements substitutes every configured parameter with its value
func ApplyReplacements(s string, replacements []Replacement) string {
	for _, r := range replacements {
		if r.Parameter == "" {
			continue
		}
		s = strings.ReplaceAll(s, r.Parameter, r.Value)
	}
	return s
}

// ReplaceInterpolation turns #{...} markers into wildcards
func ReplaceInterpolation(s string) string {
	return interpolationPattern.ReplaceAllLiteralString(s, wildcard)
}

// ReplaceBuiltinParameters expands {float}, {int} and {stringInDoubleQuotes}
func ReplaceBuiltinParameters(s string) string {
	return strings.NewReplacer(
		"{float}", floatPattern,
		"{int}", intPattern,
		"{stringInDoubleQuotes}", stringPattern,
	).Replace(s)
}

// ReplaceCustomParameters turns any remaining {name} into a wildcard unless
// the brace is escaped or the braces hold a repetition count.
func ReplaceCustomParameters(s string) string {
	matches := parameterPattern.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		if m[0] > 0 && s[m[0]-1] == '\\' {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(wildcard)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

// EscapeLiterals escapes metacharacters that cannot be regex syntax where
// they stand: dangling or repeated quantifiers, unbalanced parentheses, an unclosed
// character class, braces that are not a repetition count, and anchors in
// the middle of the fragment. Everything else is left as written.
func EscapeLiterals(s string) string {
	escape := make([]bool, len(s))
	quant := make([]byte, len(s))
	var opens []int
	class := -1

	// literalRun escapes the quantifier at i together with the run of
	// quantifiers it continues, so "C++" stays a literal "C++".
	literalRun := func(i int) {
		escape[i] = true
		quant[i] = runQuantifier
		for j := i - 1; j >= 0 && (quant[j] == activeQuantifier || quant[j] == lazyQuantifier) && s[j] != '}'; j-- {
			escape[j] = true
			quant[j] = runQuantifier
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' {
			i++
			continue
		}
		if class >= 0 {
			if c == ']' && i > class+1 && !(i == class+2 && s[class+1] == '^') {
				class = -1
			}
			continue
		}

		switch c {
		case '[':
			class = i
		case '(':
			opens = append(opens, i)
		case ')':
			if len(opens) == 0 {
				escape[i] = true
			} else {
				opens = opens[:len(opens)-1]
			}
		case '*', '+':
			switch {
			case danglingAt(s, i):
				escape[i] = true
			case i > 0 && quant[i-1] != 0:
				literalRun(i)
			default:
				quant[i] = activeQuantifier
			}
		case '?':
			switch {
			case i > 0 && s[i-1] == '(' && !escapedAt(s, i-1):
				escape[i] = !groupFlag(s, i+1)
			case danglingAt(s, i):
				escape[i] = true
			case i > 0 && quant[i-1] == activeQuantifier:
				quant[i] = lazyQuantifier
			case i > 0 && quant[i-1] != 0:
				literalRun(i)
			default:
				quant[i] = activeQuantifier
			}
		case '{':
			m := repetitionPattern.FindString(s[i:])
			if m != "" && !danglingAt(s, i) && (i == 0 || quant[i-1] == 0) {
				i += len(m) - 1
				quant[i] = activeQuantifier
			} else {
				escape[i] = true
			}
		case '}':
			escape[i] = true
		case '^':
			escape[i] = i > 0 && !((s[i-1] == '(' || s[i-1] == '|') && !escapedAt(s, i-1))
		case '$':
			escape[i] = i < len(s)-1 && s[i+1] != ')' && s[i+1] != '|'
		}
	}

	if class >= 0 {
		// Re-scan with the bracket escaped so its contents are checked too
		return EscapeLiterals(s[:class] + `\` + s[class:])
	}
	for _, i := range opens {
		escape[i] = true
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if escape[i] {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// Quantifier roles tracked by EscapeLiterals
const (
	activeQuantifier = 'q'
	lazyQuantifier   = 'l'
	runQuantifier    = 'r'
)

// danglingAt reports whether a quantifier at i has nothing to repeat
func danglingAt(s string, i int) bool {
	if i == 0 {
		return true
	}
	switch s[i-1] {
	case '(', '|', '^':
		return !escapedAt(s, i-1)
	}
	return false
}

// escapedAt reports whether the byte at i is preceded by a backslash
func escapedAt(s string, i int) bool {
	return i > 0 && s[i-1] == '\\'
}

// groupFlag reports whether s[i:] continues a (?...) group RE2 understands
func groupFlag(s string, i int) bool {
	if i >= len(s) {
		return false
	}
	switch s[i] {
	case ':', 'P', 'i', 'm', 's', 'U', '-':
		return true
	}
	return false
}

// trimAnchors drops the fragment's own ^ and $ so the caller can anchor
// the whole expression.
func trimAnchors(s string) string {
	s = strings.TrimPrefix(s, "^")
	if strings.HasSuffix(s, "$") && !strings.HasSuffix(s, `\$`) {
		s = s[:len(s)-1]
	}
	return s
}
