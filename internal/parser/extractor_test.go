package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jarredhawkins/gherkin-lsp/internal/types"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(Options{Invariants: true}, zap.NewNop())
	require.NoError(t, err)
	return e
}

func texts(steps []*types.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Text
	}
	return out
}

func TestExtract_JavaScript(t *testing.T) {
	content := `const { Given, When, Then } = require('@cucumber/cucumber');

Given(/^I am on the "([^"]*)" page$/, function (page) {
  // Given('a commented out step', () => {});
});

When('I click {string}', async function (label) {});

/*
Then('a block commented step', () => {});
*/
Then('I choose (red|green|blue)', () => {});
`
	steps := newTestExtractor(t).Extract("/steps/nav.js", content)

	assert.Equal(t, []string{
		`I am on the "" page`,
		"I click {string}",
		"I choose red",
		"I choose green",
		"I choose blue",
	}, texts(steps))

	first := steps[0]
	assert.Equal(t, types.PointLocation("/steps/nav.js", 2, 0), first.Definition)
	assert.Equal(t, `Given(/^I am on the "([^"]*)" page$/`, first.Description)
	assert.True(t, first.Matches(`I am on the "home" page`))

	assert.Equal(t, "When('I click {string}'", steps[1].Description)

	for _, s := range steps[2:] {
		assert.Equal(t, 11, s.Definition.Range.Start.Line)
		assert.Equal(t, "Then('I choose (red|green|blue)'", s.Description)
	}
	assert.True(t, steps[3].Matches("I choose green"))
	assert.False(t, steps[3].Matches("I choose red"))
}

func TestExtract_Ruby(t *testing.T) {
	content := `# Given(/^a commented ruby step$/) do
Given(/^I have (\d+) cukes in my belly$/) do |count|
  @count = count.to_i
end

When /^I visit #{path}$/ do
end
`
	steps := newTestExtractor(t).Extract("/steps/belly.rb", content)
	require.Len(t, steps, 2)

	assert.Equal(t, "I have (d+) cukes in my belly", steps[0].Text)
	assert.Equal(t, `Given(/^I have (\d+) cukes in my belly$/)`, steps[0].Description)
	assert.Equal(t, 1, steps[0].Definition.Range.Start.Line)
	assert.True(t, steps[0].Matches("I have 12 cukes in my belly"))

	assert.Equal(t, "I visit #{path}", steps[1].Text)
	assert.True(t, steps[1].Matches("I visit /anything/at/all"))
}

func TestExtract_JavaAndPython(t *testing.T) {
	java := `@When("^I click \"([^\"]*)\"$")
public void iClick(String label) {
}

@Given("^I have (\\d+) items$")
public void iHave(int n) {}
`
	steps := newTestExtractor(t).Extract("/steps/Steps.java", java)
	require.Len(t, steps, 2)
	assert.Equal(t, `I click ""`, steps[0].Text)
	assert.Equal(t, 1, steps[0].Definition.Range.Start.Character)
	assert.True(t, steps[0].Matches(`I click "Save"`))
	assert.True(t, steps[1].Matches("I have 3 items"))

	python := `from behave import given, when

@given('the total is {float}')
def step_impl(context, total):
    pass
`
	steps = newTestExtractor(t).Extract("/steps/total.py", python)
	require.Len(t, steps, 1)
	assert.Equal(t, "the total is {float}", steps[0].Text)
	assert.Equal(t, types.PointLocation("/steps/total.py", 2, 1), steps[0].Definition)
	assert.True(t, steps[0].Matches("the total is -0.5"))
}

func TestExtract_Column(t *testing.T) {
	steps := newTestExtractor(t).Extract("/steps/x.js", "  this.Given(/^I wait$/, fn)")
	require.Len(t, steps, 1)
	assert.Equal(t, 7, steps[0].Definition.Range.Start.Character)
	assert.Equal(t, steps[0].Definition.Range.Start, steps[0].Definition.Range.End)
}

func TestExtract_DropsInvalidFragment(t *testing.T) {
	content := `Given(/^I say (hi) \1$/, fn);
Given(/^I say bye$/, fn);
`
	steps := newTestExtractor(t).Extract("/steps/x.js", content)
	assert.Equal(t, []string{"I say bye"}, texts(steps))
}

func TestExtract_WithoutInvariants(t *testing.T) {
	e, err := NewExtractor(Options{}, nil)
	require.NoError(t, err)

	steps := e.Extract("/steps/x.js", "Then('I answer (yes|no)', fn)")
	require.Len(t, steps, 1)
	assert.Equal(t, "I answer (yes|no)", steps[0].Text)
	assert.True(t, steps[0].Matches("I answer no"))
}

func TestExtract_CustomKeywords(t *testing.T) {
	e, err := NewExtractor(Options{Keywords: []string{"Angenommen"}}, nil)
	require.NoError(t, err)

	steps := e.Extract("/steps/x.js", "Angenommen('ich bin angemeldet', fn)\nGiven('I am logged in', fn)")
	assert.Equal(t, []string{"ich bin angemeldet"}, texts(steps))
}

func TestStepID(t *testing.T) {
	assert.Equal(t, StepID(`I click ""`), StepID(`I click ""`))
	assert.NotEqual(t, StepID("I click yes"), StepID("I click no"))
	assert.Regexp(t, `^step-[0-9a-f]{16}$`, StepID("anything"))
}
