// Package staging manages per-task scratch directories. Every task owns exactly
// one directory; tasks never share disk state, so cross-task interference is
// impossible by construction.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Area is one task's exclusively-owned scratch directory. It holds the uploaded
// archive, the extracted assets, the concat manifest, and the output artifact.
type Area struct {
	dir     string
	release sync.Once
}

// New creates a fresh, empty directory under root, named by the task ID.
func New(root, taskID string) (*Area, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "task-"+taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Area{dir: dir}, nil
}

// Dir returns the directory path.
func (a *Area) Dir() string { return a.dir }

// Path joins name onto the staging directory.
func (a *Area) Path(name string) string { return filepath.Join(a.dir, name) }

// Release deletes the directory and everything in it. Safe to call from any
// exit path; only the first call does work.
func (a *Area) Release() error {
	var err error
	a.release.Do(func() {
		err = os.RemoveAll(a.dir)
	})
	return err
}

// Remove deletes a staging directory by path. Used by the eviction hook, where
// only the recorded path survives the task's lifetime.
func Remove(dir string) error {
	if dir == "" {
		return nil
	}
	return os.RemoveAll(dir)
}

// SweepStale removes task directories under root whose contents have not been
// touched within maxAge. Completed artifacts are reclaimed here once their
// retention window lapses. Returns the removed paths.
//
// A directory's mtime is fixed at population time and does not move while the
// transcoder runs, so age alone cannot distinguish an abandoned directory from
// one backing a long transcode. inUse is consulted with the owning task ID and
// a true result exempts the directory; nil means no exemptions.
func SweepStale(root string, maxAge time.Duration, inUse func(taskID string) bool, log *logrus.Logger) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) && log != nil {
			log.WithError(err).Warn("staging sweep: cannot read work dir")
		}
		return nil
	}

	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() || !isTaskDir(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if inUse != nil && inUse(taskIDFromDir(entry.Name())) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			if log != nil {
				log.WithError(err).WithField("path", dir).Warn("staging sweep: remove failed")
			}
			continue
		}
		removed = append(removed, dir)
		if log != nil {
			log.WithField("path", dir).Info("removed stale staging directory")
		}
	}
	return removed
}

func isTaskDir(name string) bool {
	return len(name) > 5 && name[:5] == "task-"
}

func taskIDFromDir(name string) string {
	return name[5:]
}
