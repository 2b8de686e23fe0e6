package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

func labels(candidates []types.CompletionCandidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Label
	}
	return out
}

// at places the cursor at the end of line
func at(line int, text string) types.Position {
	return types.Position{Line: line, Character: len(text)}
}

func TestCompletion_FiltersByKeyword(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	line := "    Given I "
	candidates := engine.Completion(line, at(0, line), []string{line})
	assert.Equal(t, []string{"am logged in", "have {int} items"}, labels(candidates))

	line = "    Then I see "
	candidates = engine.Completion(line, at(0, line), []string{line})
	assert.Equal(t, []string{"green lights", "red lights", `the "" page`}, labels(candidates))
}

func TestCompletion_NotStrict(t *testing.T) {
	opts := DefaultOptions()
	opts.StrictKeywords = false
	engine, _ := newTestEngine(t, shopSteps, opts)

	line := "    Given I "
	candidates := engine.Completion(line, at(0, line), []string{line})
	assert.Len(t, candidates, 7)
}

func TestCompletion_Continuation(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	document := []string{
		"    Given I am logged in",
		"    And I do something",
		"    And I ",
	}
	candidates := engine.Completion(document[2], at(2, document[2]), document)
	assert.Equal(t, []string{"am logged in", "have {int} items"}, labels(candidates))
}

func TestCompletion_PartialWordAndQuotes(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	line := "    When I cl"
	candidates := engine.Completion(line, at(0, line), []string{line})
	assert.Equal(t, []string{`click ""`, "pick {color}"}, labels(candidates))

	line = `    Then I see the "checkout" pa`
	candidates = engine.Completion(line, at(0, line), []string{line})
	assert.Equal(t, []string{"page"}, labels(candidates))
}

func TestCompletion_UsesTextBeforeCursor(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	line := "    Given I am logged in"
	pos := types.Position{Line: 0, Character: len("    Given I ")}
	candidates := engine.Completion(line, pos, []string{line})
	assert.Equal(t, []string{"am logged in", "have {int} items"}, labels(candidates))
}

func TestCompletion_RanksByUsage(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())
	reg := engine.Registry()

	red, ok := reg.FindByText("I see red lights")
	require.True(t, ok)
	page, ok := reg.FindByText(`I see the "" page`)
	require.True(t, ok)
	for range 2 {
		reg.Increment(red.ID)
	}
	for range 5 {
		reg.Increment(page.ID)
	}

	line := "    Then I see "
	candidates := engine.Completion(line, at(0, line), []string{line})
	assert.Equal(t, []string{`the "" page`, "red lights", "green lights"}, labels(candidates))
	assert.Equal(t, `99994_the "" page`, candidates[0].SortText)
	assert.Equal(t, page.ID, candidates[0].StepID)
}

func TestCompletion_Snippets(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	line := "    Given I have "
	candidates := engine.Completion(line, at(0, line), []string{line})
	require.Len(t, candidates, 1)
	assert.Equal(t, "{int} items", candidates[0].Label)
	assert.Equal(t, "${1:int} items", candidates[0].InsertText)
	assert.True(t, candidates[0].Snippet)

	opts := DefaultOptions()
	opts.SmartSnippets = false
	engine, _ = newTestEngine(t, shopSteps, opts)
	candidates = engine.Completion(line, at(0, line), []string{line})
	require.Len(t, candidates, 1)
	assert.Equal(t, "{int} items", candidates[0].InsertText)
	assert.False(t, candidates[0].Snippet)
}

func TestCompletion_NoMatchIsNil(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	line := "    Given nothing like this "
	assert.Nil(t, engine.Completion(line, at(0, line), []string{line}))
}

func TestCompletion_InvalidUTF8(t *testing.T) {
	engine, _ := newTestEngine(t, shopSteps, DefaultOptions())

	line := "    Given caf\xe9 au lait "
	require.NotPanics(t, func() {
		assert.Nil(t, engine.Completion(line, at(0, line), []string{line}))
	})
	require.NotPanics(t, func() {
		assert.NotNil(t, engine.Validate(line, 0))
	})
}

func TestEffectiveKeyword(t *testing.T) {
	tests := []struct {
		name     string
		document []string
		line     int
		want     string
	}{
		{"nearest non-continuation", []string{"Given a thing", "And another thing", "And a third"}, 3, "Given"},
		{"closest wins", []string{"Given a", "When b", "And c"}, 3, "When"},
		{"no keyword above", []string{"And a", "And b"}, 2, ""},
		{"first line", []string{"And a"}, 0, ""},
		{"past end", []string{"Then a"}, 5, "Then"},
		{"skips non-steps", []string{"But a", "", "  | col |"}, 3, "But"},
		{"but is not a continuation", []string{"Given a", "But b", "And c"}, 3, "But"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveKeyword(tt.document, tt.line))
		})
	}
}

func TestNormalizeTyped(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"I click on th", "I click on "},
		{"I click ", "I click "},
		{`I see the "home" pa`, `I see the "" `},
		{`I see "a" and "b" `, `I see "" and "" `},
		{"", ""},
		{"word", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTyped(tt.input))
		})
	}
}

func TestSortText(t *testing.T) {
	assert.Equal(t, "99999_a", SortText(0, "a"))
	assert.Equal(t, "99994_a", SortText(5, "a"))
	assert.Equal(t, "00000_a", SortText(1000000, "a"))
	assert.Less(t, SortText(5, "zebra"), SortText(2, "apple"))
}
