package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults, config file, client overrides, environment (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir   string
	overrides map[string]any
}

// NewLoader creates a configuration loader for the given workspace root.
// Overrides, typically the editor's initialization options, are merged
// over the settings file and may be nil.
func NewLoader(rootDir string, overrides map[string]any) Loader {
	return &loader{
		rootDir:   rootDir,
		overrides: overrides,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (GHERKIN_LSP_*)
// 2. Client overrides
// 3. Config file (.gherkin-lsp.yaml, .yml or .json)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(FileName)
	v.AddConfigPath(l.rootDir)

	v.SetEnvPrefix("GHERKIN_LSP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"steps",
		"features",
		"ignore",
		"strict_keyword_completion",
		"steps_invariants",
		"smart_snippets",
		"definition_keywords",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine, defaults and env still apply
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if len(l.overrides) > 0 {
		if err := v.MergeConfigMap(l.overrides); err != nil {
			return nil, fmt.Errorf("failed to merge client settings: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("steps", defaults.Steps)
	v.SetDefault("features", defaults.Features)
	v.SetDefault("ignore", defaults.Ignore)
	v.SetDefault("strict_keyword_completion", defaults.StrictKeywordCompletion)
	v.SetDefault("steps_invariants", defaults.StepsInvariants)
	v.SetDefault("smart_snippets", defaults.SmartSnippets)
	v.SetDefault("custom_parameters", []map[string]any{})
	v.SetDefault("definition_keywords", []string{})
}

// LoadFromDir loads configuration for a workspace root with no overrides.
func LoadFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir, nil).Load()
}
