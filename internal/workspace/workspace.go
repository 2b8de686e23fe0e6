// Package workspace owns the step index for one project root: it builds the
// registry from configuration, keeps usage counts current and answers
// which files matter.
package workspace

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/config"
	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/query"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
	"github.com/jarredhawkins/gherkin-lsp/internal/watcher"
)

// Workspace is not safe for concurrent use; callers serialize access.
type Workspace struct {
	root   string
	cfg    *config.Config
	source index.FileSource

	// Caller-supplied source, kept across reconfiguration
	fixed index.FileSource

	registry *index.Registry
	engine   *query.Engine

	steps    *index.PathMatcher
	features *index.PathMatcher

	logger *zap.Logger
}

// Report summarizes one rebuild
type Report struct {
	Steps *index.PopulateReport
	Usage *index.UsageReport
}

// FileDiagnostics groups validation findings for one feature file
type FileDiagnostics struct {
	Path        string
	Diagnostics []types.Diagnostic
}

// New creates an empty workspace for root with cfg. A nil source reads
// from disk honoring cfg.Ignore.
func New(root string, cfg *config.Config, source index.FileSource, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{root: root, fixed: source, logger: logger}
	if err := w.configure(cfg); err != nil {
		return nil, err
	}
	return w, nil
}

// Reconfigure swaps the configuration and starts over with an empty
// registry. Usage counts are recomputed by the next Build.
func (w *Workspace) Reconfigure(cfg *config.Config) error {
	return w.configure(cfg)
}

func (w *Workspace) configure(cfg *config.Config) error {
	source := w.fixed
	if source == nil {
		ds, err := index.NewDiskSource(cfg.Ignore)
		if err != nil {
			return fmt.Errorf("failed to compile ignore patterns: %w", err)
		}
		source = ds
	}

	extractor, err := parser.NewExtractor(cfg.ParserOptions(), w.logger)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	registry := index.NewRegistry(source, extractor, w.logger)
	w.cfg = cfg
	w.source = source
	w.registry = registry
	w.engine = query.New(registry, cfg.QueryOptions())
	w.steps = index.NewPathMatcher(w.root, cfg.Steps)
	w.features = index.NewPathMatcher(w.root, cfg.Features)
	return nil
}

// Root returns the workspace root
func (w *Workspace) Root() string { return w.root }

// Config returns the active configuration
func (w *Workspace) Config() *config.Config { return w.cfg }

// Registry returns the step registry
func (w *Workspace) Registry() *index.Registry { return w.registry }

// Engine returns the query engine over the registry
func (w *Workspace) Engine() *query.Engine { return w.engine }

// Build rebuilds the registry from the step patterns, then recounts usage
// from the feature patterns.
func (w *Workspace) Build() *Report {
	roots := []string{w.root}
	return &Report{
		Steps: w.registry.Populate(roots, w.cfg.Steps),
		Usage: w.registry.SetUsage(roots, w.cfg.Features),
	}
}

// Recount recomputes usage counts without touching the step index
func (w *Workspace) Recount() *index.UsageReport {
	return w.registry.SetUsage([]string{w.root}, w.cfg.Features)
}

// Apply reacts to a batch of file changes: a touched step file rebuilds
// everything, touched feature files only recount. Returns nil when the
// batch touched neither.
func (w *Workspace) Apply(batch watcher.Batch) *Report {
	var stepsTouched, featuresTouched bool
	for _, path := range append(append([]string{}, batch.Changed...), batch.Removed...) {
		stepsTouched = stepsTouched || w.IsStepFile(path)
		featuresTouched = featuresTouched || w.IsFeatureFile(path)
	}

	switch {
	case stepsTouched:
		return w.Build()
	case featuresTouched:
		return &Report{Usage: w.Recount()}
	}
	return nil
}

// IsStepFile reports whether path matches a step definition pattern
func (w *Workspace) IsStepFile(path string) bool {
	return w.steps.Match(path)
}

// IsFeatureFile reports whether path matches a feature pattern
func (w *Workspace) IsFeatureFile(path string) bool {
	return w.features.Match(path)
}

// Relevant reports files whose changes the workspace reacts to
func (w *Workspace) Relevant(path string) bool {
	return w.IsStepFile(path) || w.IsFeatureFile(path)
}

// Check validates every feature file. Files without findings are omitted.
func (w *Workspace) Check() ([]FileDiagnostics, error) {
	seen := make(map[string]bool)
	var out []FileDiagnostics

	for _, pattern := range w.cfg.Features {
		paths, err := w.source.Glob(w.root, pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if seen[path] {
				continue
			}
			seen[path] = true

			content, err := w.source.ReadFile(path)
			if err != nil {
				w.logger.Warn("failed to read feature file", zap.String("path", path), zap.Error(err))
				continue
			}
			if diagnostics := w.engine.ValidateDocument(SplitLines(content)); len(diagnostics) > 0 {
				out = append(out, FileDiagnostics{Path: path, Diagnostics: diagnostics})
			}
		}
	}
	return out, nil
}

// SplitLines splits text on newlines, dropping carriage returns
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
