package index

import (
	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

// Step is the registered step definition record
type Step = types.Step

// Registry owns the step index and the usage counts for one workspace.
// It is not safe for concurrent use; callers serialize access.
type Registry struct {
	// Registration order, the tie-break for lookups and ranking
	steps []*Step

	// ID -> step
	byID map[string]*Step

	// ID -> usage count from the last SetUsage, plus accepted completions
	usage map[string]int

	source    FileSource
	extractor *parser.Extractor
	logger    *zap.Logger
}

// PopulateReport summarizes one Populate run
type PopulateReport struct {
	Files      int
	Steps      int
	Duplicates int
	Unmatched  []string         // Patterns that matched no file
	Invalid    map[string]error // Patterns that could not be expanded
}

// NewRegistry creates an empty registry
func NewRegistry(source FileSource, extractor *parser.Extractor, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		byID:      make(map[string]*Step),
		usage:     make(map[string]int),
		source:    source,
		extractor: extractor,
		logger:    logger,
	}
}

// Populate rebuilds the registry from every definition file matching
// patterns under roots. The first step with a given ID wins; later ones are
// dropped. Current usage counts are carried over by ID.
func (r *Registry) Populate(roots, patterns []string) *PopulateReport {
	files, report := r.resolve(roots, patterns)
	populate := &PopulateReport{
		Files:     len(files),
		Unmatched: report.unmatched,
		Invalid:   report.invalid,
	}

	steps := make([]*Step, 0, len(r.steps))
	byID := make(map[string]*Step, len(r.byID))

	for _, path := range files {
		content, err := r.source.ReadFile(path)
		if err != nil {
			r.logger.Warn("failed to read step file", zap.String("path", path), zap.Error(err))
			continue
		}

		for _, step := range r.extractor.Extract(path, content) {
			if _, exists := byID[step.ID]; exists {
				populate.Duplicates++
				continue
			}
			step.Count = r.usage[step.ID]
			byID[step.ID] = step
			steps = append(steps, step)
		}
	}

	r.steps = steps
	r.byID = byID
	populate.Steps = len(steps)

	r.logger.Info("step registry populated",
		zap.Int("files", populate.Files),
		zap.Int("steps", populate.Steps),
		zap.Int("duplicates", populate.Duplicates))
	return populate
}

// FindByText returns the first registered step matching an argument text
func (r *Registry) FindByText(text string) (*Step, bool) {
	for _, step := range r.steps {
		if step.Matches(text) {
			return step, true
		}
	}
	return nil, false
}

// Step returns a step by ID
func (r *Registry) Step(id string) (*Step, bool) {
	step, ok := r.byID[id]
	return step, ok
}

// Steps returns all steps in registration order
func (r *Registry) Steps() []*Step {
	result := make([]*Step, len(r.steps))
	copy(result, r.steps)
	return result
}

// Len returns the number of registered steps
func (r *Registry) Len() int {
	return len(r.steps)
}

type resolveReport struct {
	unmatched []string
	invalid   map[string]error
}

// resolve expands patterns under every root into a deduplicated file list:
// roots in order, patterns in order, paths sorted within each expansion.
func (r *Registry) resolve(roots, patterns []string) ([]string, resolveReport) {
	report := resolveReport{invalid: make(map[string]error)}
	seen := make(map[string]struct{})
	matched := make(map[string]bool, len(patterns))
	var files []string

	for _, root := range roots {
		for _, pattern := range patterns {
			paths, err := r.source.Glob(root, pattern)
			if err != nil {
				r.logger.Warn("failed to expand pattern",
					zap.String("root", root),
					zap.String("pattern", pattern),
					zap.Error(err))
				report.invalid[pattern] = err
				continue
			}
			if len(paths) > 0 {
				matched[pattern] = true
			}
			for _, path := range paths {
				if _, ok := seen[path]; ok {
					continue
				}
				seen[path] = struct{}{}
				files = append(files, path)
			}
		}
	}

	for _, pattern := range patterns {
		if _, bad := report.invalid[pattern]; !matched[pattern] && !bad {
			report.unmatched = append(report.unmatched, pattern)
		}
	}
	return files, report
}
