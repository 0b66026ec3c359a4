package workspace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/bakeoff/internal/git"
)

// Checkout is the primitive that materializes and removes isolated copies of
// the project tree. Implementations must tolerate concurrent calls with
// distinct destination paths.
type Checkout interface {
	// Mode names the primitive ("git" or "copy").
	Mode() string
	// CreateIsolatedCopy materializes the project at dest. branch names the
	// isolation branch and base the ref it starts from; copy-based
	// primitives ignore both.
	CreateIsolatedCopy(base, branch, dest string) error
	// RemoveIsolatedCopy removes the copy at dest and its isolation branch.
	RemoveIsolatedCopy(dest, branch string) error
	// Prune drops bookkeeping for copies whose directories are gone.
	Prune() error
}

// GitCheckout isolates workspaces as git worktrees, each on its own branch.
type GitCheckout struct {
	git git.Runner
}

// NewGitCheckout creates a worktree-based checkout primitive.
func NewGitCheckout(runner git.Runner) *GitCheckout {
	return &GitCheckout{git: runner}
}

// Mode returns "git".
func (g *GitCheckout) Mode() string { return ModeGit }

// CreateIsolatedCopy adds a worktree at dest on a new branch started from base.
func (g *GitCheckout) CreateIsolatedCopy(base, branch, dest string) error {
	if err := g.git.WorktreeAddNewBranch(dest, branch, base); err != nil {
		return fmt.Errorf("create worktree: %w", err)
	}
	return nil
}

// RemoveIsolatedCopy removes the worktree and deletes its branch. When branch
// is empty it is looked up from the worktree list.
func (g *GitCheckout) RemoveIsolatedCopy(dest, branch string) error {
	if branch == "" {
		if out, err := g.git.WorktreeListPorcelain(); err == nil {
			for _, wt := range parseWorktreeList(out) {
				if wt.Path == dest {
					branch = wt.Branch
					break
				}
			}
		}
	}

	_ = g.git.WorktreeUnlock(dest) // may not be locked

	var errs []error
	if err := g.git.WorktreeRemove(dest); err != nil {
		errs = append(errs, fmt.Errorf("remove worktree: %w", err))
	}
	if branch != "" {
		if err := g.git.DeleteBranch(branch); err != nil {
			errs = append(errs, fmt.Errorf("delete branch: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Prune removes references to worktrees that no longer exist on disk.
func (g *GitCheckout) Prune() error {
	return g.git.WorktreePruneExpireNow()
}

// worktreeEntry is one record of `git worktree list --porcelain`.
type worktreeEntry struct {
	Path   string
	Branch string
}

// parseWorktreeList parses the output of 'git worktree list --porcelain'.
func parseWorktreeList(output string) []worktreeEntry {
	var entries []worktreeEntry
	var current *worktreeEntry

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			if current != nil {
				entries = append(entries, *current)
				current = nil
			}
			continue
		}

		if strings.HasPrefix(line, "worktree ") {
			if current != nil {
				entries = append(entries, *current)
			}
			current = &worktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		} else if strings.HasPrefix(line, "branch ") && current != nil {
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}

	// Output may not end with a blank line
	if current != nil {
		entries = append(entries, *current)
	}
	return entries
}

// CopyCheckout isolates workspaces as full recursive copies of a source
// directory. It serves projects that are not git repositories.
type CopyCheckout struct {
	src  string
	skip map[string]bool
}

// NewCopyCheckout creates a copy-based checkout of src. Directories whose
// absolute paths appear in exclude (typically the workspace base directory
// when it lives inside the project) are not copied.
func NewCopyCheckout(src string, exclude ...string) *CopyCheckout {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[filepath.Clean(e)] = true
	}
	return &CopyCheckout{src: filepath.Clean(src), skip: skip}
}

// Mode returns "copy".
func (c *CopyCheckout) Mode() string { return ModeCopy }

// CreateIsolatedCopy copies the source tree into dest. dest must not exist.
// Files are copied rather than hard-linked: a hard link shares its inode with
// the primary tree, so a write inside the workspace would leak out.
func (c *CopyCheckout) CreateIsolatedCopy(_, _, dest string) error {
	info, err := os.Stat(c.src)
	if err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %q is not a directory", c.src)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create destination parent: %w", err)
	}
	if err := os.Mkdir(dest, info.Mode().Perm()); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	err = filepath.WalkDir(c.src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == c.src {
			return nil
		}
		if d.IsDir() && (d.Name() == ".git" || d.Name() == ".bakeoff" || c.skip[path]) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(c.src, path)
		if err != nil {
			return fmt.Errorf("resolve relative path: %w", err)
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.IsDir():
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.Mkdir(target, info.Mode().Perm())
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			// Sockets, devices and pipes are not part of a source tree.
			return nil
		}
	})
	if err != nil {
		_ = os.RemoveAll(dest)
		return fmt.Errorf("copy %q to %q: %w", c.src, dest, err)
	}
	return nil
}

// RemoveIsolatedCopy deletes the copied tree.
func (c *CopyCheckout) RemoveIsolatedCopy(dest, _ string) error {
	return os.RemoveAll(dest)
}

// Prune is a no-op for copies.
func (c *CopyCheckout) Prune() error { return nil }

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Verify implementations satisfy Checkout at compile time.
var (
	_ Checkout = (*GitCheckout)(nil)
	_ Checkout = (*CopyCheckout)(nil)
)
