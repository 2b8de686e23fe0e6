package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

var (
	// ErrNoStepPatterns indicates that no step file pattern is configured
	ErrNoStepPatterns = errors.New("no step definition patterns")

	// ErrNoFeaturePatterns indicates that no feature file pattern is configured
	ErrNoFeaturePatterns = errors.New("no feature file patterns")

	// ErrEmptyParameter indicates a custom parameter with nothing to replace
	ErrEmptyParameter = errors.New("empty custom parameter")
)

// Validate checks that the configuration is complete.
func Validate(cfg *Config) error {
	var errs []error

	if len(nonBlank(cfg.Steps)) == 0 {
		errs = append(errs, ErrNoStepPatterns)
	}
	if len(nonBlank(cfg.Features)) == 0 {
		errs = append(errs, ErrNoFeaturePatterns)
	}
	for i, p := range cfg.CustomParameters {
		if p.Parameter == "" {
			errs = append(errs, fmt.Errorf("%w: custom_parameters[%d]", ErrEmptyParameter, i))
		}
	}

	return errors.Join(errs...)
}

// UnmatchedPatternDiagnostics builds one warning per step pattern that
// matched no file, placed on the first line of content that mentions it.
// Patterns not found in content are reported at the top of the file.
func UnmatchedPatternDiagnostics(content string, patterns []string) []types.Diagnostic {
	if len(patterns) == 0 {
		return nil
	}
	lines := strings.Split(content, "\n")

	diagnostics := make([]types.Diagnostic, 0, len(patterns))
	for _, p := range patterns {
		r := types.Range{}
		for i, line := range lines {
			if col := strings.Index(line, p); col >= 0 {
				r = types.Range{
					Start: types.Position{Line: i, Character: col},
					End:   types.Position{Line: i, Character: col + len(p)},
				}
				break
			}
		}
		diagnostics = append(diagnostics, types.Diagnostic{
			Severity: types.SeverityWarning,
			Range:    r,
			Message:  UnmatchedPatternMessage(p),
			Source:   types.DiagnosticSource,
		})
	}
	return diagnostics
}

// UnmatchedPatternMessage describes a step pattern that matched no file
func UnmatchedPatternMessage(p string) string {
	return fmt.Sprintf("No step definition files found for pattern %q", p)
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
