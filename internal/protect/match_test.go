package protect

import (
	"reflect"
	"testing"
)

func TestMatchGlob(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{"double star matches deep path", "a/b/c/d/file.go", "**/c/**", true},
		{"double star at start", "internal/auth/login.go", "**/auth/**", true},
		{"double star matches zero segments", "auth/handler.go", "**/auth/**", true},
		{"double star at end", "migrations/001_init.sql", "migrations/**", true},
		{"literal match", "config/settings.yaml", "config/settings.yaml", true},
		{"single star in segment", "internal/auth_handler.go", "internal/auth*", true},
		{"question mark", "db/v1.sql", "db/v?.sql", true},
		{"no match", "api/handler.go", "**/auth/**", false},
		{"star does not cross segments", "a/b/c.go", "a/*.go", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matchGlob(tc.path, tc.pattern); got != tc.want {
				t.Errorf("matchGlob(%q, %q) = %v, want %v", tc.path, tc.pattern, got, tc.want)
			}
		})
	}
}

func TestWords(t *testing.T) {
	got := words("internal/Auth_Handler-v2.go")
	want := []string{"internal", "auth", "handler", "v2", "go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("words() = %v, want %v", got, want)
	}
}
