// Package config handles configuration loading and management for bakeoff.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfigName is the project-level config file. The protected-area
// detector reads its protected_areas section from the same file.
const ProjectConfigName = ".bakeoff.yaml"

// Providers accepted by generator.provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderFile      = "file"
)

// Config holds all configuration for bakeoff.
type Config struct {
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Validation ValidationConfig `mapstructure:"validation"`
	Workspace  WorkspaceConfig  `mapstructure:"workspace"`
	Selection  SelectionConfig  `mapstructure:"selection"`
	Apply      ApplyConfig      `mapstructure:"apply"`
	TUI        TUIConfig        `mapstructure:"tui"`
}

// GeneratorConfig selects and tunes the candidate source.
type GeneratorConfig struct {
	// Provider is anthropic, openai (any OpenAI-compatible endpoint, ollama
	// by default) or file.
	Provider string `mapstructure:"provider" validate:"oneof=anthropic openai file"`
	// Model is the model name; empty uses the provider's default.
	Model string `mapstructure:"model"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`
	// APIKey may reference environment variables as ${VAR}.
	APIKey string `mapstructure:"api_key"`
	// Candidates is how many candidates a round asks for.
	Candidates int `mapstructure:"candidates" validate:"min=1,max=16"`
	// Concurrency caps parallel generation requests.
	Concurrency int `mapstructure:"concurrency" validate:"min=1,max=16"`
	// RateLimit caps generation requests per second; 0 disables it.
	RateLimit float64 `mapstructure:"rate_limit" validate:"gte=0"`
	// Temperature is the sampling temperature.
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	// UseBedrock routes Anthropic requests through AWS Bedrock.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
	// CandidatesFile is read by the file provider.
	CandidatesFile string `mapstructure:"candidates_file" validate:"required_if=Provider file"`
}

// ValidationConfig tunes candidate validation.
type ValidationConfig struct {
	// TestTimeout bounds one candidate's test run.
	TestTimeout time.Duration `mapstructure:"test_timeout" validate:"gt=0"`
	// MaxWorkers caps concurrent validations; 0 means one per candidate.
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=0"`
	// TestCommands overrides test command templates per language.
	TestCommands map[string]string `mapstructure:"test_commands"`
}

// WorkspaceConfig selects the isolation mechanism.
type WorkspaceConfig struct {
	// Mode is git (worktree per candidate) or copy (recursive copy).
	Mode string `mapstructure:"mode" validate:"oneof=git copy"`
	// BaseDir holds workspaces; empty uses the XDG cache directory.
	BaseDir string `mapstructure:"base_dir"`
	// BaseRef is the git ref workspaces branch from.
	BaseRef string `mapstructure:"base_ref" validate:"required"`
}

// SelectionConfig controls winner selection.
type SelectionConfig struct {
	TieBreak string `mapstructure:"tie_break" validate:"oneof=lowest_id first_completed"`
}

// ApplyConfig controls the confirmation gate.
type ApplyConfig struct {
	// AutoConfirm answers confirmation without asking: yes, no, or empty to ask.
	AutoConfirm string `mapstructure:"auto_confirm" validate:"omitempty,oneof=yes no"`
}

// TUIConfig holds TUI display settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate" validate:"gt=0"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (BAKEOFF_<SECTION>_<KEY>, ANTHROPIC_API_KEY, OPENAI_API_KEY)
// 2. Project config (.bakeoff.yaml in current directory or parent)
// 3. User config (~/.config/bakeoff/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("BAKEOFF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Generator.APIKey = expandEnv(cfg.Generator.APIKey)
	cfg.Workspace.BaseDir = expandEnv(cfg.Workspace.BaseDir)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetUserValue sets one key in the user config file and saves it. The
// resulting configuration must still validate.
func SetUserValue(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	dir := getUserConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")

	file := viper.New()
	file.SetConfigFile(path)
	if err := file.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading user config: %w", err)
		}
	}
	file.Set(key, value)

	check := viper.New()
	setDefaults(check)
	if err := check.MergeConfigMap(file.AllSettings()); err != nil {
		return fmt.Errorf("merging config: %w", err)
	}
	if _, err := unmarshal(check); err != nil {
		return err
	}

	return file.WriteConfigAs(path)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// defaults lists every key with its default value.
var defaults = map[string]any{
	"generator.provider":        ProviderOpenAI,
	"generator.model":           "",
	"generator.base_url":        "",
	"generator.api_key":         "",
	"generator.candidates":      3,
	"generator.concurrency":     4,
	"generator.rate_limit":      0.0,
	"generator.temperature":     0.8,
	"generator.use_bedrock":     false,
	"generator.aws_region":      "",
	"generator.aws_profile":     "",
	"generator.candidates_file": "",

	"validation.test_timeout":  "15s",
	"validation.max_workers":   4,
	"validation.test_commands": map[string]string{},

	"workspace.mode":     "git",
	"workspace.base_dir": "",
	"workspace.base_ref": "HEAD",

	"selection.tie_break": "lowest_id",

	"apply.auto_confirm": "",

	"tui.refresh_rate": "100ms",
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// Keys returns every known config key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a config key.
func IsKnownKey(key string) bool {
	_, ok := defaults[key]
	return ok
}

// getUserConfigDir returns the XDG config directory for bakeoff.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "bakeoff")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "bakeoff")
	}
	return filepath.Join(home, ".config", "bakeoff")
}

// findProjectConfig searches for .bakeoff.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			Provider:    ProviderOpenAI,
			Candidates:  3,
			Concurrency: 4,
			Temperature: 0.8,
		},
		Validation: ValidationConfig{
			TestTimeout:  15 * time.Second,
			MaxWorkers:   4,
			TestCommands: map[string]string{},
		},
		Workspace: WorkspaceConfig{
			Mode:    "git",
			BaseRef: "HEAD",
		},
		Selection: SelectionConfig{
			TieBreak: "lowest_id",
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
