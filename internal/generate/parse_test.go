package generate

import (
	"strings"
	"testing"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantThought string
		wantCode    string
		wantTest    string
	}{
		{
			name: "full format",
			text: "THOUGHT: add a sub function\nCODE:\n```python\ndef sub(a, b):\n    return a - b\n```\nTEST:\n```python\ndef test_sub():\n    assert sub(2, 1) == 1\n```\n",
			wantThought: "add a sub function",
			wantCode:    "def sub(a, b):\n    return a - b\n",
			wantTest:    "def test_sub():\n    assert sub(2, 1) == 1\n",
		},
		{
			name:        "no test",
			text:        "THOUGHT: trivial\nCODE:\n```\nx = 1\n```",
			wantThought: "trivial",
			wantCode:    "x = 1\n",
		},
		{
			name:     "bare fences",
			text:     "Here you go:\n```go\npackage a\n```\nand a test\n```go\npackage a\n\nimport \"testing\"\n```\n",
			wantCode: "package a\n",
			wantTest: "package a\n\nimport \"testing\"\n",
		},
		{
			name:        "missing code block",
			text:        "THOUGHT: I cannot do that\n",
			wantThought: "I cannot do that",
		},
		{
			name:        "multi-line thought",
			text:        "THOUGHT:\nfirst\nsecond\nCODE:\n```py\ny = 2\n```\n",
			wantThought: "first\nsecond",
			wantCode:    "y = 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.text)
			if got.Thought != tt.wantThought {
				t.Errorf("Thought = %q, want %q", got.Thought, tt.wantThought)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Test != tt.wantTest {
				t.Errorf("Test = %q, want %q", got.Test, tt.wantTest)
			}
		})
	}
}

func TestNumberLines(t *testing.T) {
	got := NumberLines("a\nb\n")
	if got != "1: a\n2: b\n" {
		t.Errorf("NumberLines = %q", got)
	}
	if got := NumberLines("x"); got != "1: x" {
		t.Errorf("NumberLines = %q", got)
	}
	if got := NumberLines(""); got != "" {
		t.Errorf("NumberLines(empty) = %q", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	prompt := SystemPrompt(Request{
		TargetPath: "sandbox/math_lib.py",
		Current:    "def add(a, b):\n    return a + b\n",
		Exists:     true,
	})

	for _, want := range []string{
		"File: sandbox/math_lib.py",
		"1: def add(a, b):",
		"from sandbox.math_lib import",
		"```python",
		"THOUGHT:",
		"TEST:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	newFile := SystemPrompt(Request{TargetPath: "pkg/new.go"})
	if !strings.Contains(newFile, "(new file)") {
		t.Error("prompt for a missing target should say it is new")
	}
	if !strings.Contains(newFile, "Go coding agent") {
		t.Error("prompt should name the language")
	}
}
