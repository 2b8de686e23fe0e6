// Package query answers validation, definition and completion requests for
// Gherkin lines against a step registry.
package query

import (
	"strings"
	"unicode"

	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

// Options tunes completion behavior
type Options struct {
	// Only offer steps whose declaration uses the line's effective keyword
	StrictKeywords bool
	// Turn {name} placeholders into numbered snippet slots
	SmartSnippets bool
}

// DefaultOptions enables keyword filtering and snippets
func DefaultOptions() Options {
	return Options{StrictKeywords: true, SmartSnippets: true}
}

// Engine runs queries against one registry snapshot
type Engine struct {
	registry *index.Registry
	opts     Options
}

// New creates a query engine over registry
func New(registry *index.Registry, opts Options) *Engine {
	return &Engine{registry: registry, opts: opts}
}

// Registry returns the registry the engine reads from
func (e *Engine) Registry() *index.Registry {
	return e.registry
}

// Validate returns a warning for a step line no registered step matches,
// and nil for resolved steps and for lines that are not steps at all.
func (e *Engine) Validate(line string, lineNumber int) *types.Diagnostic {
	stepLine, ok := parser.MatchStepLine(line)
	if !ok {
		return nil
	}

	text := index.ArgumentText(stepLine)
	if _, ok := e.registry.FindByText(text); ok {
		return nil
	}

	start := stepLine.TextStart()
	end := len(strings.TrimRightFunc(line, unicode.IsSpace))
	if end < start {
		end = start
	}

	return &types.Diagnostic{
		Severity: types.SeverityWarning,
		Range: types.Range{
			Start: types.Position{Line: lineNumber, Character: start},
			End:   types.Position{Line: lineNumber, Character: end},
		},
		Message: `Was unable to find step for "` + text + `"`,
		Source:  types.DiagnosticSource,
	}
}

// ValidateDocument validates every line of a feature document, skipping
// doc strings.
func (e *Engine) ValidateDocument(lines []string) []types.Diagnostic {
	var diagnostics []types.Diagnostic
	var fence string

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
			}
			continue
		}
		if f := docStringFence(trimmed); f != "" {
			fence = f
			continue
		}

		if d := e.Validate(line, i); d != nil {
			diagnostics = append(diagnostics, *d)
		}
	}
	return diagnostics
}

// Definition returns where the step on line is declared. The column is
// accepted for symmetry with editor requests; any position on the line
// resolves the same step.
func (e *Engine) Definition(line string, column int) (*types.Location, bool) {
	stepLine, ok := parser.MatchStepLine(line)
	if !ok {
		return nil, false
	}
	step, ok := e.registry.FindByText(index.ArgumentText(stepLine))
	if !ok {
		return nil, false
	}
	location := step.Definition
	return &location, true
}

// ResolveCompletion credits the accepted candidate's step with one use
func (e *Engine) ResolveCompletion(candidate types.CompletionCandidate) types.CompletionCandidate {
	e.registry.Increment(candidate.StepID)
	return candidate
}

func docStringFence(trimmed string) string {
	switch {
	case strings.HasPrefix(trimmed, `"""`):
		return `"""`
	case strings.HasPrefix(trimmed, "```"):
		return "```"
	}
	return ""
}
