package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/index"
	"github.com/jarredhawkins/gherkin-lsp/internal/parser"
	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

const shopSteps = `Given('I am logged in', () => {});
Given('I have {int} items', () => {});
When('I click "([^"]*)"', () => {});
When('I pick {color}', () => {});
Then('I see (red|green) lights', () => {});
Then('I see the "(.*)" page', () => {});
`

// newTestEngine indexes a single step file and returns the engine and the
// file's path.
func newTestEngine(t *testing.T, content string, opts Options) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "shop.steps.js")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	extractor, err := parser.NewExtractor(parser.Options{Invariants: true}, zap.NewNop())
	require.NoError(t, err)
	source, err := index.NewDiskSource(nil)
	require.NoError(t, err)

	reg := index.NewRegistry(source, extractor, zap.NewNop())
	report := reg.Populate([]string{root}, []string{"**/*.steps.js"})
	require.Equal(t, 1, report.Files)
	return New(reg, opts), path
}

func TestValidate(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	assert.Nil(t, engine.Validate("    Given I am logged in", 0))
	assert.Nil(t, engine.Validate(`    When I click "Save"`, 0))
	assert.Nil(t, engine.Validate("    And I pick anything   ", 0))
	assert.Nil(t, engine.Validate("Feature: shopping", 0))
	assert.Nil(t, engine.Validate("", 0))

	d := engine.Validate("  Then I fly  ", 4)
	require.NotNil(t, d)
	assert.Equal(t, types.SeverityWarning, d.Severity)
	assert.Equal(t, types.Range{
		Start: types.Position{Line: 4, Character: 7},
		End:   types.Position{Line: 4, Character: 12},
	}, d.Range)
	assert.Equal(t, `Was unable to find step for "I fly"`, d.Message)
	assert.Equal(t, types.DiagnosticSource, d.Source)
}

func TestValidate_AnchoredParameters(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	assert.Nil(t, engine.Validate("Given I have 42 items", 0))
	assert.Nil(t, engine.Validate("Given I have -3 items", 0))
	assert.NotNil(t, engine.Validate("Given I have 4.2 items", 0))
	assert.NotNil(t, engine.Validate("Given I am logged in twice", 0))
}

func TestValidate_RoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t, `Given('I am logged in', () => {});
When('I click "([^"]*)"', () => {});
When('I pick {color}', () => {});
When('I visit #{path}', () => {});
Then('I see (red|green) lights', () => {});
Then('I see the "(.*)" page', () => {});
`, DefaultOptions())

	steps := engine.Registry().Steps()
	require.Len(t, steps, 7)
	for _, step := range steps {
		assert.Nil(t, engine.Validate("    Given "+step.Text, 0), step.Text)
	}
}

func TestValidateDocument_SkipsDocStrings(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	lines := []string{
		"Feature: shopping",
		"  Scenario: buying",
		"    Given I am logged in",
		`    """`,
		"    Given this is prose",
		`    """`,
		"    ```",
		"    When nothing",
		"    ```",
		"    Then I fly",
	}
	diagnostics := engine.ValidateDocument(lines)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, 9, diagnostics[0].Range.Start.Line)
}

func TestDefinition(t *testing.T) {
	engine, path := newTestEngine(t, shopSteps, DefaultOptions())

	loc, ok := engine.Definition("    When I pick blue", 10)
	require.True(t, ok)
	assert.Equal(t, types.PointLocation(path, 3, 0), *loc)

	loc, ok = engine.Definition("    Then I see green lights", 0)
	require.True(t, ok)
	assert.Equal(t, 4, loc.Range.Start.Line)

	_, ok = engine.Definition("    Then I fly", 0)
	assert.False(t, ok)

	_, ok = engine.Definition("  Scenario: nope", 0)
	assert.False(t, ok)
}

func TestResolveCompletion_Increments(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())
	step, ok := engine.Registry().FindByText("I am logged in")
	require.True(t, ok)

	candidate := types.CompletionCandidate{Label: "am logged in", StepID: step.ID}
	resolved := engine.ResolveCompletion(candidate)

	assert.Equal(t, candidate, resolved)
	assert.Equal(t, 1, step.Count)
	assert.Equal(t, 1, engine.Registry().Usage(step.ID))

	// Unknown IDs are ignored
	engine.ResolveCompletion(types.CompletionCandidate{StepID: "step-missing"})
}
