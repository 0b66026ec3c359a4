// Package workspace creates and destroys isolated copies of the project tree
// so that concurrent candidate validations never observe each other's writes.
package workspace

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/pkg/models"
	"github.com/zeebo/blake3"
)

// Checkout modes.
const (
	ModeGit  = "git"
	ModeCopy = "copy"
)

// BranchPrefix is prepended to every isolation branch so orphans can be
// recognized after a crash.
const BranchPrefix = "bakeoff/"

var (
	// ErrWorkspaceExists is returned when a name is already registered.
	ErrWorkspaceExists = errors.New("workspace already exists")
	// ErrUnknownWorkspace is returned for names the manager does not track.
	ErrUnknownWorkspace = errors.New("unknown workspace")
	// ErrInvalidName is returned for names that cannot form a path component.
	ErrInvalidName = errors.New("invalid workspace name")
)

// CreationError reports that one workspace could not be created. It is fatal
// only to the candidate slot that requested it.
type CreationError struct {
	Name string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create workspace %q: %v", e.Name, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// Manager owns the registry of live workspaces. The registry is the only
// shared mutable state; workspace contents need no locking because no two
// workspaces share a path.
type Manager struct {
	baseDir  string
	baseRef  string
	checkout Checkout
	logger   *logging.Logger
	now      func() time.Time

	mu         sync.Mutex
	workspaces map[string]*models.Workspace
	created    int
	destroyed  int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for warnings about failed removals.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) { m.logger = l.With("workspace") }
}

// WithBaseRef sets the ref new isolation branches start from (default HEAD).
func WithBaseRef(ref string) Option {
	return func(m *Manager) { m.baseRef = ref }
}

// WithClock overrides the clock used for branch suffixes (for testing).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// DefaultBaseDir returns $XDG_CACHE_HOME/bakeoff/workspaces, falling back to
// ~/.cache/bakeoff/workspaces.
func DefaultBaseDir() (string, error) {
	if cache := os.Getenv("XDG_CACHE_HOME"); cache != "" {
		return filepath.Join(cache, "bakeoff", "workspaces"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "bakeoff", "workspaces"), nil
}

// ProjectBaseDir returns a per-project directory under root, so that
// orphan cleanup in one project never touches another project's workspaces.
func ProjectBaseDir(root, projectPath string) string {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		abs = projectPath
	}
	sum := blake3.Sum256([]byte(abs))
	return filepath.Join(root, fmt.Sprintf("%s-%s", filepath.Base(abs), hex.EncodeToString(sum[:])[:12]))
}

// NewManager creates a Manager placing workspaces under baseDir.
func NewManager(baseDir string, checkout Checkout, opts ...Option) (*Manager, error) {
	if baseDir == "" {
		var err error
		if baseDir, err = DefaultBaseDir(); err != nil {
			return nil, err
		}
	}
	if checkout == nil {
		return nil, errors.New("checkout primitive is required")
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create workspace base directory: %w", err)
	}

	m := &Manager{
		baseDir:    abs,
		baseRef:    "HEAD",
		checkout:   checkout,
		logger:     logging.Nop(),
		now:        time.Now,
		workspaces: make(map[string]*models.Workspace),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create materializes a new workspace. The isolation branch is derived from
// the name plus a nanosecond timestamp. Failures come back as *CreationError.
func (m *Manager) Create(ctx context.Context, name string) (models.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return models.Workspace{}, &CreationError{Name: name, Err: err}
	}
	if err := validateName(name); err != nil {
		return models.Workspace{}, &CreationError{Name: name, Err: err}
	}

	createdAt := m.now()
	ws := &models.Workspace{
		Name:      name,
		Root:      filepath.Join(m.baseDir, name),
		State:     models.WorkspaceCreated,
		CreatedAt: createdAt,
	}
	if m.checkout.Mode() == ModeGit {
		ws.Branch = fmt.Sprintf("%s%s-%d", BranchPrefix, name, createdAt.UnixNano())
	}

	// Reserve the name so concurrent creators cannot race for the same path.
	m.mu.Lock()
	if _, exists := m.workspaces[name]; exists {
		m.mu.Unlock()
		return models.Workspace{}, &CreationError{Name: name, Err: ErrWorkspaceExists}
	}
	m.workspaces[name] = nil
	m.mu.Unlock()

	if _, err := os.Stat(ws.Root); err == nil {
		m.release(name)
		return models.Workspace{}, &CreationError{Name: name, Err: fmt.Errorf("%w: %s is already on disk", ErrWorkspaceExists, ws.Root)}
	}

	if err := m.checkout.CreateIsolatedCopy(m.baseRef, ws.Branch, ws.Root); err != nil {
		// A failed worktree add can still leave its branch behind.
		m.remove(ws.Root, ws.Branch)
		m.release(name)
		return models.Workspace{}, &CreationError{Name: name, Err: err}
	}

	m.mu.Lock()
	m.workspaces[name] = ws
	m.created++
	m.mu.Unlock()

	m.logger.Log("created %s at %s (branch %q)", name, ws.Root, ws.Branch)
	return *ws, nil
}

// release drops a reservation made by Create.
func (m *Manager) release(name string) {
	m.mu.Lock()
	delete(m.workspaces, name)
	m.mu.Unlock()
}

// Acquire marks a created workspace as in use by a validator. A workspace can
// be acquired once; this enforces a single writer per workspace.
func (m *Manager) Acquire(name string) (models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws := m.workspaces[name]
	if ws == nil {
		return models.Workspace{}, fmt.Errorf("%w: %s", ErrUnknownWorkspace, name)
	}
	if ws.State != models.WorkspaceCreated {
		return models.Workspace{}, fmt.Errorf("workspace %s is %s", name, ws.State)
	}
	ws.State = models.WorkspaceInUse
	return *ws, nil
}

// Get returns a snapshot of a tracked workspace.
func (m *Manager) Get(name string) (models.Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ws := m.workspaces[name]
	if ws == nil {
		return models.Workspace{}, false
	}
	return *ws, true
}

// Destroy removes a workspace. It is idempotent and never fails: removal
// errors are logged as warnings and followed by a forced recursive delete.
func (m *Manager) Destroy(name string) {
	m.mu.Lock()
	ws := m.workspaces[name]
	if ws == nil {
		m.mu.Unlock()
		return
	}
	delete(m.workspaces, name)
	ws.State = models.WorkspaceDestroyed
	m.destroyed++
	m.mu.Unlock()

	m.remove(ws.Root, ws.Branch)
	m.logger.Log("destroyed %s", name)
}

// remove tears down a copy, falling back to a forced delete.
func (m *Manager) remove(root, branch string) {
	if err := m.checkout.RemoveIsolatedCopy(root, branch); err != nil {
		m.logger.Warn("remove %s failed, forcing delete: %v", root, err)
	}
	if _, err := os.Stat(root); err == nil || !os.IsNotExist(err) {
		if err := os.RemoveAll(root); err != nil {
			m.logger.Warn("forced delete of %s failed: %v", root, err)
		}
		if err := m.checkout.Prune(); err != nil {
			m.logger.Warn("prune after forced delete failed: %v", err)
		}
	}
}

// DestroyAll destroys every tracked workspace and returns how many were
// destroyed. Call it exactly once per round from a deferred cleanup.
func (m *Manager) DestroyAll() int {
	m.mu.Lock()
	names := make([]string, 0, len(m.workspaces))
	for name, ws := range m.workspaces {
		if ws != nil {
			names = append(names, name)
		}
	}
	m.mu.Unlock()

	sort.Strings(names)
	for _, name := range names {
		m.Destroy(name)
	}
	return len(names)
}

// Count returns the number of live workspaces.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, ws := range m.workspaces {
		if ws != nil {
			n++
		}
	}
	return n
}

// Stats returns the lifetime created and destroyed counters.
func (m *Manager) Stats() (created, destroyed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, m.destroyed
}

// List returns snapshots of live workspaces sorted by name.
func (m *Manager) List() []models.Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		if ws != nil {
			out = append(out, *ws)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BaseDir returns the directory workspaces are created in.
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Mode returns the checkout mode.
func (m *Manager) Mode() string {
	return m.checkout.Mode()
}

// ListOrphans returns directories under the base directory that this
// manager does not track and that are not listed in keep. These are left
// behind by rounds that crashed before cleanup.
func (m *Manager) ListOrphans(keep []string) ([]string, error) {
	keepSet := make(map[string]bool, len(keep))
	for _, p := range keep {
		keepSet[filepath.Clean(p)] = true
	}

	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read workspace base directory: %w", err)
	}

	m.mu.Lock()
	tracked := make(map[string]bool, len(m.workspaces))
	for name := range m.workspaces {
		tracked[filepath.Join(m.baseDir, name)] = true
	}
	m.mu.Unlock()

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(m.baseDir, entry.Name())
		if tracked[path] || keepSet[path] {
			continue
		}
		orphans = append(orphans, path)
	}
	return orphans, nil
}

// CleanupOrphans removes the given orphan directories and returns how many
// were removed. If verbose is provided it is called for each removal.
func (m *Manager) CleanupOrphans(orphans []string, verbose func(path string)) int {
	removed := 0
	for _, path := range orphans {
		if !strings.HasPrefix(filepath.Clean(path), m.baseDir+string(filepath.Separator)) {
			m.logger.Warn("refusing to remove %s outside %s", path, m.baseDir)
			continue
		}
		m.remove(path, "")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			removed++
			if verbose != nil {
				verbose(path)
			}
		}
	}
	_ = m.checkout.Prune()
	return removed
}

// validateName rejects names that would escape the base directory.
func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if trimmed != name || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
