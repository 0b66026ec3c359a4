package orchestrator

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/blake3"

	"github.com/ShayCichocki/bakeoff/internal/logging"
)

// Fingerprint identifies the content of the primary target at a point in time.
type Fingerprint struct {
	Exists bool
	Sum    [32]byte
}

// String returns the hex digest, or "absent" for a missing file.
func (f Fingerprint) String() string {
	if !f.Exists {
		return "absent"
	}
	return hex.EncodeToString(f.Sum[:])
}

// Equal reports whether two fingerprints describe the same content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Exists == other.Exists && bytes.Equal(f.Sum[:], other.Sum[:])
}

// FingerprintFile hashes the file at path with BLAKE3.
func FingerprintFile(path string) (Fingerprint, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Fingerprint{}, nil
	}
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return FingerprintContent(string(data)), nil
}

// FingerprintContent hashes content as if it were an existing file.
func FingerprintContent(content string) Fingerprint {
	return Fingerprint{Exists: true, Sum: blake3.Sum256([]byte(content))}
}

// DriftWatcher detects changes to the primary target while a round runs.
// It combines a filesystem watch, which catches edits that were later
// reverted, with a content fingerprint taken at round start.
type DriftWatcher struct {
	path     string
	baseline Fingerprint
	logger   *logging.Logger

	watcher *fsnotify.Watcher
	touched atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// WatchTarget starts watching path. baseline is the fingerprint of the
// content the round read. If the filesystem watch cannot be set up the
// watcher falls back to fingerprint comparison alone.
func WatchTarget(path string, baseline Fingerprint, logger *logging.Logger) *DriftWatcher {
	w := fingerprintOnly(path, baseline, logger)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("filesystem watch unavailable: %v", err)
		return w
	}
	// Watch the directory: the target may not exist yet, and editors often
	// replace files by rename.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		w.logger.Warn("watch %s: %v", filepath.Dir(path), err)
		fw.Close()
		return w
	}
	w.watcher = fw

	w.wg.Add(1)
	go w.loop()
	return w
}

// fingerprintOnly returns a watcher that compares fingerprints without a
// filesystem watch.
func fingerprintOnly(path string, baseline Fingerprint, logger *logging.Logger) *DriftWatcher {
	return &DriftWatcher{
		path:     path,
		baseline: baseline,
		logger:   logger.With("drift"),
		done:     make(chan struct{}),
	}
}

func (w *DriftWatcher) loop() {
	defer w.wg.Done()
	name := filepath.Clean(w.path)
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				w.logger.Log("target %s: %s", ev.Name, ev.Op)
				w.touched.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error: %v", err)
		}
	}
}

// Check reports whether the target changed since the baseline, and why.
func (w *DriftWatcher) Check() (bool, string) {
	current, err := FingerprintFile(w.path)
	if err != nil {
		return true, err.Error()
	}
	if !current.Equal(w.baseline) {
		return true, fmt.Sprintf("content changed (%s -> %s)", short(w.baseline), short(current))
	}
	if w.touched.Load() {
		return true, "file was modified during the round"
	}
	return false, ""
}

// Close stops the filesystem watch.
func (w *DriftWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
		w.wg.Wait()
	})
	return err
}

func short(f Fingerprint) string {
	s := f.String()
	if len(s) > 12 {
		return s[:12]
	}
	return s
}
