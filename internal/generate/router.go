package generate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ShayCichocki/bakeoff/internal/api"
)

// maxRouteFiles caps how many paths are listed in the routing prompt.
const maxRouteFiles = 400

// ErrNoRoute is returned when the model's reply names no usable file.
var ErrNoRoute = errors.New("could not determine target file")

var fileLineRe = regexp.MustCompile(`(?mi)^[ \t]*FILE[ \t]*:[ \t]*` + "`?" + `([^\s` + "`" + `]+)`)

// skipDirs are never listed for routing.
var skipDirs = map[string]bool{
	".git":         true,
	".bakeoff":     true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
	"target":       true,
	".venv":        true,
}

// Router picks the file a change request should modify.
type Router struct {
	completer api.Completer
}

// NewRouter creates a Router.
func NewRouter(completer api.Completer) *Router {
	return &Router{completer: completer}
}

// Route asks the model to choose among files, or to name a new file under
// scope when none fits. The returned path is project-relative.
func (r *Router) Route(ctx context.Context, request string, files []string, scope string) (string, error) {
	var b strings.Builder
	b.WriteString("You are a senior technical lead.\n")
	b.WriteString("Select the single file that should be edited to satisfy the user's request.\n\n")
	b.WriteString("Available files:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "%s\n", f)
	}
	b.WriteString("\nINSTRUCTIONS:\n")
	b.WriteString("1. Select an existing file if possible.\n")
	b.WriteString("2. If the request needs a new file, choose a suitable name.\n")
	if scope != "" {
		fmt.Fprintf(&b, "3. New files MUST be created inside %s/.\n", scope)
	}
	b.WriteString("\nAnswer with one line: FILE: <path>\n")

	text, err := r.completer.Complete(ctx, api.CompletionRequest{System: b.String(), Prompt: request, MaxTokens: 512})
	if err != nil {
		return "", fmt.Errorf("route request: %w", err)
	}

	path, err := ParseRoute(text)
	if err != nil {
		return "", err
	}
	return ScopePath(path, scope), nil
}

// ParseRoute extracts the FILE: line from a routing reply.
func ParseRoute(text string) (string, error) {
	m := fileLineRe.FindStringSubmatch(text)
	if m == nil {
		return "", ErrNoRoute
	}
	path := filepath.Clean(strings.Trim(m[1], `"'`))
	if !filepath.IsLocal(path) {
		return "", fmt.Errorf("%w: %q is outside the project", ErrNoRoute, m[1])
	}
	return filepath.ToSlash(path), nil
}

// ScopePath forces path under scope, keeping it unchanged if it already is.
func ScopePath(path, scope string) string {
	scope = strings.Trim(filepath.ToSlash(scope), "/")
	if scope == "" || scope == "." {
		return path
	}
	if path == scope || strings.HasPrefix(path, scope+"/") {
		return path
	}
	return scope + "/" + path
}

// ListFiles walks root/scope and returns project-relative source files with
// one of exts, sorted and capped.
func ListFiles(root, scope string, exts []string) ([]string, error) {
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	start := filepath.Join(root, scope)
	var files []string
	err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == start {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != start && (skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if len(want) > 0 && !want[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	if len(files) > maxRouteFiles {
		files = files[:maxRouteFiles]
	}
	return files, nil
}
