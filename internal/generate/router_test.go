package generate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseRoute(t *testing.T) {
	tests := []struct {
		text    string
		want    string
		wantErr bool
	}{
		{"FILE: sandbox/bank.py", "sandbox/bank.py", false},
		{"Reasoning first.\nfile: `pkg/calc.go`\n", "pkg/calc.go", false},
		{"FILE: ./a/../b.py", "b.py", false},
		{"FILE: ../escape.py", "", true},
		{"FILE: /etc/passwd", "", true},
		{"I think bank.py", "", true},
	}

	for _, tt := range tests {
		got, err := ParseRoute(tt.text)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseRoute(%q) error = %v, wantErr %v", tt.text, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRoute(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestScopePath(t *testing.T) {
	tests := []struct {
		path, scope, want string
	}{
		{"fibonacci.py", "sandbox", "sandbox/fibonacci.py"},
		{"sandbox/fibonacci.py", "sandbox", "sandbox/fibonacci.py"},
		{"sandbox/fibonacci.py", "sandbox/", "sandbox/fibonacci.py"},
		{"a.py", "", "a.py"},
		{"a.py", ".", "a.py"},
	}
	for _, tt := range tests {
		if got := ScopePath(tt.path, tt.scope); got != tt.want {
			t.Errorf("ScopePath(%q, %q) = %q, want %q", tt.path, tt.scope, got, tt.want)
		}
	}
}

func TestRouter_Route(t *testing.T) {
	completer := &scriptedCompleter{replies: []string{"FILE: bank.py"}}
	r := NewRouter(completer)

	got, err := r.Route(context.Background(), "create a bank", []string{"sandbox/fibonacci.py"}, "sandbox")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if got != "sandbox/bank.py" {
		t.Errorf("Route() = %q, want sandbox/bank.py", got)
	}

	failing := NewRouter(&scriptedCompleter{errs: []error{errors.New("down")}})
	if _, err := failing.Route(context.Background(), "x", nil, ""); err == nil {
		t.Error("Route() should surface completer errors")
	}
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{
		"sandbox/a.py",
		"sandbox/b.go",
		"sandbox/readme.md",
		".git/config.py",
		"node_modules/x/y.py",
		"sandbox/.hidden/z.py",
	} {
		full := filepath.Join(root, p)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := ListFiles(root, "", []string{".py", ".go"})
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	want := []string{"sandbox/a.py", "sandbox/b.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListFiles() = %v, want %v", got, want)
	}

	if _, err := ListFiles(root, "missing", nil); err == nil {
		t.Error("ListFiles() on a missing scope should fail")
	}
}
