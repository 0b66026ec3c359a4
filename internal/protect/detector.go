package protect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

// ConfigFileName is the project file rules are loaded from.
const ConfigFileName = ".bakeoff.yaml"

// Finding explains why a change is protected.
type Finding struct {
	Protected bool
	Reason    string
}

// Detector checks whether a change to a file touches a protected area.
// Four strategies are tried in order: glob patterns, path keywords, file
// types and security-sensitive imports in the proposed source.
type Detector struct {
	mu    sync.RWMutex
	rules Rules
}

// projectConfig is the subset of .bakeoff.yaml read here.
type projectConfig struct {
	ProtectedAreas *Rules `yaml:"protected_areas"`
}

// New creates a detector with the default rules.
func New() *Detector {
	return &Detector{rules: DefaultRules()}
}

// NewWithRules creates a detector with exactly rules.
func NewWithRules(r Rules) *Detector {
	return &Detector{rules: r}
}

// ForProject creates a detector with the defaults plus the project's
// .bakeoff.yaml rules, if that file exists.
func ForProject(root string) (*Detector, error) {
	d := New()
	err := d.LoadConfig(filepath.Join(root, ConfigFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return d, nil
}

// Check reports whether writing source to path needs explicit approval.
// path is project-relative.
func (d *Detector) Check(path, source string) Finding {
	d.mu.RLock()
	defer d.mu.RUnlock()

	normalized := filepath.ToSlash(filepath.Clean(path))

	for _, pattern := range d.rules.Patterns {
		if matchGlob(normalized, pattern) {
			return Finding{Protected: true, Reason: "path matches protected pattern " + pattern}
		}
	}

	pathWords := words(normalized)
	for _, keyword := range d.rules.Keywords {
		kw := strings.ToLower(keyword)
		for _, w := range pathWords {
			if w == kw {
				return Finding{Protected: true, Reason: "path contains protected keyword " + keyword}
			}
		}
	}

	ext := strings.ToLower(filepath.Ext(normalized))
	for _, ft := range d.rules.FileTypes {
		if ext != "" && ext == strings.ToLower(ft) {
			return Finding{Protected: true, Reason: "file type " + ft + " is protected"}
		}
	}

	if ok, reason := scanImports(normalized, source); ok {
		return Finding{Protected: true, Reason: "source imports " + reason + " code"}
	}

	return Finding{}
}

// IsProtected reports whether path itself is protected, ignoring content.
func (d *Detector) IsProtected(path string) bool {
	return d.Check(path, "").Protected
}

// AddPattern adds a glob pattern.
func (d *Detector) AddPattern(pattern string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules.Patterns = append(d.rules.Patterns, pattern)
}

// AddKeyword adds a path keyword.
func (d *Detector) AddKeyword(keyword string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules.Keywords = append(d.rules.Keywords, keyword)
}

// AddFileType adds a protected extension.
func (d *Detector) AddFileType(ext string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules.FileTypes = append(d.rules.FileTypes, ext)
}

// LoadConfig appends the protected_areas section of a YAML file.
func (d *Detector) LoadConfig(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse %s: %w", configPath, err)
	}
	if cfg.ProtectedAreas == nil {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules.Patterns = append(d.rules.Patterns, cfg.ProtectedAreas.Patterns...)
	d.rules.Keywords = append(d.rules.Keywords, cfg.ProtectedAreas.Keywords...)
	d.rules.FileTypes = append(d.rules.FileTypes, cfg.ProtectedAreas.FileTypes...)
	return nil
}
