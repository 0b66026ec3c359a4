package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// KeyEnvVar returns the environment variable holding the provider's API key,
// or "" for providers that take none.
func KeyEnvVar(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// GetAPIKey returns the API key for the configured generator provider.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	key, _ := lookupKey(cfg)
	if key == "" {
		provider := ""
		if cfg != nil {
			provider = cfg.Generator.Provider
		}
		return "", fmt.Errorf("%w for provider %q", ErrNoAPIKey, provider)
	}
	return key, nil
}

func lookupKey(cfg *Config) (string, KeySource) {
	if cfg == nil {
		return "", KeySourceNone
	}

	if env := KeyEnvVar(cfg.Generator.Provider); env != "" {
		if key := os.Getenv(env); key != "" {
			return key, KeySourceEnv
		}
	}

	if cfg.Generator.APIKey != "" {
		// Unset ${VAR} references expand to "" or stay literal.
		key := os.ExpandEnv(cfg.Generator.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, KeySourceConfig
		}
	}

	return "", KeySourceNone
}

// ValidateAPIKey performs basic format validation on a provider's API key.
// It does not verify the key with the provider.
func ValidateAPIKey(provider, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	switch provider {
	case ProviderAnthropic:
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New("invalid API key format: expected 'sk-ant-' prefix")
		}
		if len(key) < 20 {
			return errors.New("invalid API key format: key too short")
		}
	case ProviderOpenAI:
		// Local OpenAI-compatible servers accept arbitrary keys.
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	_, src := lookupKey(cfg)
	return src
}
