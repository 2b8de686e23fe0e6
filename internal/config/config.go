// Package config loads workspace settings for the step index and the
// language server.
package config

import (
	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/pattern"
	"github.com/jarredhawkins/gherkin-lsp/internal/query"
)

// FileName is the settings file looked up in the workspace root, with a
// .yaml, .yml or .json extension.
const FileName = ".gherkin-lsp"

// Config represents the complete server configuration.
// It can be loaded from .gherkin-lsp.yaml with environment variable overrides.
type Config struct {
	Steps    []string `yaml:"steps" mapstructure:"steps"`       // glob patterns for step definition files
	Features []string `yaml:"features" mapstructure:"features"` // glob patterns for feature files
	Ignore   []string `yaml:"ignore" mapstructure:"ignore"`     // glob patterns never walked

	StrictKeywordCompletion bool `yaml:"strict_keyword_completion" mapstructure:"strict_keyword_completion"`
	StepsInvariants         bool `yaml:"steps_invariants" mapstructure:"steps_invariants"` // expand (a|b) alternations
	SmartSnippets           bool `yaml:"smart_snippets" mapstructure:"smart_snippets"`

	CustomParameters   []CustomParameter `yaml:"custom_parameters" mapstructure:"custom_parameters"`
	DefinitionKeywords []string          `yaml:"definition_keywords" mapstructure:"definition_keywords"` // empty means the built-in set

	// File is the settings file that was read, empty when none was found
	File string `yaml:"-" mapstructure:"-"`
}

// CustomParameter is a literal substitution applied to every step fragment
type CustomParameter struct {
	Parameter string `yaml:"parameter" mapstructure:"parameter"`
	Value     string `yaml:"value" mapstructure:"value"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Steps: []string{
			"**/*.steps.*",
			"**/step_definitions/**/*",
			"**/steps/**/*",
		},
		Features: []string{
			"**/*.feature",
		},
		Ignore: []string{
			"**/vendor/**",
			"**/node_modules/**",
			"**/.git/**",
		},
		StrictKeywordCompletion: true,
		StepsInvariants:         true,
		SmartSnippets:           true,
	}
}

// Replacements converts the custom parameters for the pattern compiler
func (c *Config) Replacements() []pattern.Replacement {
	if len(c.CustomParameters) == 0 {
		return nil
	}
	out := make([]pattern.Replacement, len(c.CustomParameters))
	for i, p := range c.CustomParameters {
		out[i] = pattern.Replacement{Parameter: p.Parameter, Value: p.Value}
	}
	return out
}

// ParserOptions returns the extractor settings
func (c *Config) ParserOptions() parser.Options {
	return parser.Options{
		Keywords:     c.DefinitionKeywords,
		Invariants:   c.StepsInvariants,
		Replacements: c.Replacements(),
	}
}

// QueryOptions returns the completion settings
func (c *Config) QueryOptions() query.Options {
	return query.Options{
		StrictKeywords: c.StrictKeywordCompletion,
		SmartSnippets:  c.SmartSnippets,
	}
}
