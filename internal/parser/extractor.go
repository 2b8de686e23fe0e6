package parser

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/pattern"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

// Options controls how declarations are recognized and compiled
type Options struct {
	Keywords     []string // Defaults to DefaultDefinitionKeywords
	Invariants   bool     // Expand (a|b) groups into separate steps
	Replacements []pattern.Replacement
}

// Extractor finds step declarations in definition files
type Extractor struct {
	declaration *regexp.Regexp
	compiler    *pattern.Compiler
	invariants  bool
	logger      *zap.Logger
}

// NewExtractor creates an extractor for the given options
func NewExtractor(opts Options, logger *zap.Logger) (*Extractor, error) {
	keywords := opts.Keywords
	if len(keywords) == 0 {
		keywords = DefaultDefinitionKeywords
	}
	declaration, err := declarationPattern(keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to build declaration pattern: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		declaration: declaration,
		compiler:    &pattern.Compiler{Replacements: opts.Replacements},
		invariants:  opts.Invariants,
		logger:      logger,
	}, nil
}

// Extract returns the steps declared in one file, in line order and then
// variant order. Fragments that do not compile are skipped.
func (e *Extractor) Extract(path, content string) []*types.Step {
	var steps []*types.Step

	lines := strings.Split(StripComments(content), "\n")
	for lineNum, line := range lines {
		m := e.declaration.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		column := m[2*groupPrefix+1]
		fragment := declarationBody(line, m)
		desc := description(line, m[1])
		location := types.PointLocation(path, lineNum, column)

		variants := []string{fragment}
		if e.invariants {
			variants = pattern.Expand(fragment)
		}

		for _, variant := range variants {
			re, err := e.compiler.Compile(variant)
			if err != nil {
				e.logger.Debug("skipping step",
					zap.String("path", path),
					zap.Int("line", lineNum+1),
					zap.Error(err))
				continue
			}
			text := pattern.DisplayText(variant)
			steps = append(steps, &types.Step{
				ID:          StepID(text),
				Pattern:     re,
				Text:        text,
				Description: desc,
				Definition:  location,
			})
		}
	}

	return steps
}
