package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSource_Glob(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"root.steps.js":               "",
		"features/a/login.steps.js":   "",
		"features/b/cart.steps.js":    "",
		"node_modules/lib/x.steps.js": "",
		".hidden/secret.steps.js":     "",
		"features/b/cart.feature":     "",
	})

	source, err := NewDiskSource([]string{"node_modules/**"})
	require.NoError(t, err)

	paths, err := source.Glob(root, "**/*.steps.js")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "features", "a", "login.steps.js"),
		filepath.Join(root, "features", "b", "cart.steps.js"),
		filepath.Join(root, "root.steps.js"),
	}, paths)

	paths, err = source.Glob(root, filepath.Join(root, "features", "b", "*.feature"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "features", "b", "cart.feature")}, paths)
}

func TestDiskSource_ReadFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.js": "Given('x', fn);"})

	source, err := NewDiskSource(nil)
	require.NoError(t, err)

	content, err := source.ReadFile(filepath.Join(root, "a.js"))
	require.NoError(t, err)
	assert.Equal(t, "Given('x', fn);", content)

	_, err = source.ReadFile(filepath.Join(root, "missing.js"))
	assert.Error(t, err)
}

func TestPathMatcher(t *testing.T) {
	root := t.TempDir()
	pm := NewPathMatcher(root, []string{
		"**/*.feature",
		"steps/**/*.rb",
		filepath.Join(root, "support", "*.js"),
		"[unclosed",
	})

	assert.True(t, pm.Match(filepath.Join(root, "login.feature")))
	assert.True(t, pm.Match(filepath.Join(root, "a", "b", "cart.feature")))
	assert.True(t, pm.Match(filepath.Join(root, "steps", "web", "nav.rb")))
	assert.True(t, pm.Match(filepath.Join(root, "support", "world.js")))

	assert.False(t, pm.Match(filepath.Join(root, "lib", "nav.rb")))
	assert.False(t, pm.Match(filepath.Join(filepath.Dir(root), "outside.feature")))
}

func TestGlobstarVariants(t *testing.T) {
	assert.Equal(t, []string{"*.go"}, globstarVariants("*.go"))
	assert.Equal(t, []string{"**/*.feature", "*.feature"}, globstarVariants("**/*.feature"))
	assert.Equal(t, []string{
		"**/steps/**/*",
		"steps/**/*",
		"**/steps/*",
		"steps/*",
	}, globstarVariants("**/steps/**/*"))
}

func TestMatches_ZeroDirectoryGlobstar(t *testing.T) {
	cp, err := compilePattern("**/step_definitions/**/*")
	require.NoError(t, err)

	assert.True(t, matches(cp, "step_definitions/nav.rb"))
	assert.True(t, matches(cp, "features/step_definitions/nav.rb"))
	assert.True(t, matches(cp, "features/step_definitions/web/nav.rb"))
	assert.False(t, matches(cp, "features/nav.rb"))

	cp, err = compilePattern("**/node_modules/**")
	require.NoError(t, err)
	assert.True(t, matches(cp, "node_modules/**"))
	assert.True(t, matches(cp, "node_modules/pkg/x.js"))
	assert.True(t, matches(cp, "web/node_modules/pkg/x.js"))
}
