package index

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
)

// UsageReport summarizes one SetUsage run
type UsageReport struct {
	Files     int
	StepLines int // Keyword-prefixed lines seen
	Resolved  int // Lines that matched a registered step
	Unmatched []string
	Invalid   map[string]error
}

// SetUsage recounts how often each step is used across the feature files
// matching patterns. Previous counts, including accepted completions, are
// discarded.
func (r *Registry) SetUsage(roots, patterns []string) *UsageReport {
	r.usage = make(map[string]int)

	files, resolved := r.resolve(roots, patterns)
	report := &UsageReport{
		Files:     len(files),
		Unmatched: resolved.unmatched,
		Invalid:   resolved.invalid,
	}

	for _, path := range files {
		content, err := r.source.ReadFile(path)
		if err != nil {
			r.logger.Warn("failed to read feature file", zap.String("path", path), zap.Error(err))
			continue
		}

		for _, line := range strings.Split(content, "\n") {
			stepLine, ok := parser.MatchStepLine(line)
			if !ok {
				continue
			}
			report.StepLines++

			step, ok := r.FindByText(ArgumentText(stepLine))
			if !ok {
				continue
			}
			report.Resolved++
			r.usage[step.ID]++
		}
	}

	for _, step := range r.steps {
		step.Count = r.usage[step.ID]
	}

	r.logger.Info("step usage counted",
		zap.Int("files", report.Files),
		zap.Int("step_lines", report.StepLines),
		zap.Int("resolved", report.Resolved))
	return report
}

// Increment records one more use of a step. Reports false for unknown IDs.
func (r *Registry) Increment(id string) bool {
	step, ok := r.byID[id]
	if !ok {
		return false
	}
	r.usage[id]++
	step.Count = r.usage[id]
	return true
}

// Usage returns the current count for a step ID
func (r *Registry) Usage(id string) int {
	return r.usage[id]
}

// ArgumentText is the part of a scenario line matched against step patterns
func ArgumentText(line parser.StepLine) string {
	return strings.TrimRightFunc(line.Text, unicode.IsSpace)
}
