package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ShayCichocki/bakeoff/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify bakeoff configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config file.

Configuration is stored at ~/.config/bakeoff/config.yaml
Project-specific overrides can be placed in .bakeoff.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if len(args) == 2 {
			if err := config.SetUserValue(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Set %s = %s in %s\n", args[0], args[1], config.GetUserConfigPath())
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if len(args) == 1 {
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		}

		displayAllConfig(out, cfg)
		return nil
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range config.Keys() {
		value, err := getConfigValue(cfg, key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}

	fmt.Fprintf(w, "\napi key source: %s\n", config.GetAPIKeySource(cfg))
	fmt.Fprintf(w, "user config: %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Fprintf(w, "project config: %s\n", p)
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "generator.provider":
		return cfg.Generator.Provider, nil
	case "generator.model":
		return orUnset(cfg.Generator.Model), nil
	case "generator.base_url":
		return orUnset(cfg.Generator.BaseURL), nil
	case "generator.api_key":
		if cfg.Generator.APIKey == "" {
			return "(not set)", nil
		}
		return config.MaskAPIKey(cfg.Generator.APIKey), nil
	case "generator.candidates":
		return strconv.Itoa(cfg.Generator.Candidates), nil
	case "generator.concurrency":
		return strconv.Itoa(cfg.Generator.Concurrency), nil
	case "generator.rate_limit":
		return strconv.FormatFloat(cfg.Generator.RateLimit, 'g', -1, 64), nil
	case "generator.temperature":
		return strconv.FormatFloat(cfg.Generator.Temperature, 'g', -1, 64), nil
	case "generator.use_bedrock":
		return strconv.FormatBool(cfg.Generator.UseBedrock), nil
	case "generator.aws_region":
		return orUnset(cfg.Generator.AWSRegion), nil
	case "generator.aws_profile":
		return orUnset(cfg.Generator.AWSProfile), nil
	case "generator.candidates_file":
		return orUnset(cfg.Generator.CandidatesFile), nil
	case "validation.test_timeout":
		return cfg.Validation.TestTimeout.String(), nil
	case "validation.max_workers":
		return strconv.Itoa(cfg.Validation.MaxWorkers), nil
	case "validation.test_commands":
		return formatCommands(cfg.Validation.TestCommands), nil
	case "workspace.mode":
		return cfg.Workspace.Mode, nil
	case "workspace.base_dir":
		return orUnset(cfg.Workspace.BaseDir), nil
	case "workspace.base_ref":
		return cfg.Workspace.BaseRef, nil
	case "selection.tie_break":
		return cfg.Selection.TieBreak, nil
	case "apply.auto_confirm":
		return orUnset(cfg.Apply.AutoConfirm), nil
	case "tui.refresh_rate":
		return cfg.TUI.RefreshRate.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func formatCommands(commands map[string]string) string {
	if len(commands) == 0 {
		return "(built-in)"
	}
	langs := make([]string, 0, len(commands))
	for lang := range commands {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		parts = append(parts, fmt.Sprintf("%s=%q", lang, commands[lang]))
	}
	return strings.Join(parts, ", ")
}
