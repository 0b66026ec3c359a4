package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Generator.Provider != ProviderOpenAI {
		t.Errorf("expected default provider 'openai', got %q", cfg.Generator.Provider)
	}

	if cfg.Generator.Candidates != 3 {
		t.Errorf("expected 3 candidates, got %d", cfg.Generator.Candidates)
	}

	if cfg.Validation.TestTimeout != 15*time.Second {
		t.Errorf("expected test timeout 15s, got %v", cfg.Validation.TestTimeout)
	}

	if cfg.Validation.MaxWorkers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Validation.MaxWorkers)
	}

	if cfg.Workspace.Mode != "git" {
		t.Errorf("expected workspace mode 'git', got %q", cfg.Workspace.Mode)
	}

	if cfg.Selection.TieBreak != "lowest_id" {
		t.Errorf("expected tie break 'lowest_id', got %q", cfg.Selection.TieBreak)
	}

	if cfg.Apply.AutoConfirm != "" {
		t.Errorf("expected no auto confirm, got %q", cfg.Apply.AutoConfirm)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadFromPath(t *testing.T) {
	configPath := writeConfig(t, `
generator:
  provider: anthropic
  api_key: test-key
  candidates: 5
validation:
  test_timeout: 30s
  max_workers: 2
  test_commands:
    python: "python3 -m pytest -q {test}"
workspace:
  mode: copy
selection:
  tie_break: first_completed
apply:
  auto_confirm: "no"
tui:
  refresh_rate: 200ms
`)

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Generator.Provider != ProviderAnthropic {
		t.Errorf("expected provider 'anthropic', got %q", cfg.Generator.Provider)
	}

	if cfg.Generator.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Generator.APIKey)
	}

	if cfg.Generator.Candidates != 5 {
		t.Errorf("expected 5 candidates, got %d", cfg.Generator.Candidates)
	}

	if cfg.Validation.TestTimeout != 30*time.Second {
		t.Errorf("expected test timeout 30s, got %v", cfg.Validation.TestTimeout)
	}

	if cfg.Validation.MaxWorkers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Validation.MaxWorkers)
	}

	if got := cfg.Validation.TestCommands["python"]; got != "python3 -m pytest -q {test}" {
		t.Errorf("unexpected python command %q", got)
	}

	if cfg.Workspace.Mode != "copy" {
		t.Errorf("expected mode 'copy', got %q", cfg.Workspace.Mode)
	}

	if cfg.Workspace.BaseRef != "HEAD" {
		t.Errorf("expected default base_ref 'HEAD', got %q", cfg.Workspace.BaseRef)
	}

	if cfg.Selection.TieBreak != "first_completed" {
		t.Errorf("expected tie break 'first_completed', got %q", cfg.Selection.TieBreak)
	}

	if cfg.Apply.AutoConfirm != "no" {
		t.Errorf("expected auto_confirm 'no', got %q", cfg.Apply.AutoConfirm)
	}

	if cfg.TUI.RefreshRate != 200*time.Millisecond {
		t.Errorf("expected refresh rate 200ms, got %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantKey string
	}{
		{"unknown provider", "generator:\n  provider: gemini\n", "generator.provider"},
		{"zero candidates", "generator:\n  candidates: 0\n", "generator.candidates"},
		{"negative workers", "validation:\n  max_workers: -1\n", "validation.max_workers"},
		{"zero timeout", "validation:\n  test_timeout: 0s\n", "validation.test_timeout"},
		{"unknown mode", "workspace:\n  mode: docker\n", "workspace.mode"},
		{"unknown tie break", "selection:\n  tie_break: random\n", "selection.tie_break"},
		{"bad auto confirm", "apply:\n  auto_confirm: maybe\n", "apply.auto_confirm"},
		{"file provider without file", "generator:\n  provider: file\n", "generator.candidates_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromPath(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Errorf("error %q does not name %s", err, tt.wantKey)
			}
		})
	}
}

func TestLoadFromPathMissing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadPrecedence(t *testing.T) {
	userDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", userDir)
	if err := os.MkdirAll(filepath.Join(userDir, "bakeoff"), 0755); err != nil {
		t.Fatal(err)
	}
	user := "generator:\n  candidates: 4\n  model: user-model\nworkspace:\n  mode: copy\n"
	if err := os.WriteFile(filepath.Join(userDir, "bakeoff", "config.yaml"), []byte(user), 0644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, ProjectConfigName), []byte("generator:\n  candidates: 6\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(nested)

	t.Setenv("BAKEOFF_WORKSPACE_MODE", "git")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Generator.Candidates != 6 {
		t.Errorf("project config should override user config, got %d candidates", cfg.Generator.Candidates)
	}
	if cfg.Generator.Model != "user-model" {
		t.Errorf("user config value lost, got model %q", cfg.Generator.Model)
	}
	if cfg.Workspace.Mode != "git" {
		t.Errorf("environment should override user config, got mode %q", cfg.Workspace.Mode)
	}
}

func TestSetUserValue(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SetUserValue("generator.candidates", "7"); err != nil {
		t.Fatalf("SetUserValue failed: %v", err)
	}

	cfg, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Generator.Candidates != 7 {
		t.Errorf("expected 7 candidates, got %d", cfg.Generator.Candidates)
	}

	if err := SetUserValue("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := SetUserValue("workspace.mode", "docker"); err == nil {
		t.Error("expected validation error")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) != len(defaults) {
		t.Fatalf("expected %d keys, got %d", len(defaults), len(keys))
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Fatalf("keys not sorted: %q before %q", keys[i-1], keys[i])
		}
	}
	if !IsKnownKey("selection.tie_break") {
		t.Error("selection.tie_break should be known")
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "expanded-value")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir := getUserConfigDir()
	expected := "/custom/config/bakeoff"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}
