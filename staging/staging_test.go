package staging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArea_AcquireAndRelease(t *testing.T) {
	root := t.TempDir()

	area, err := New(root, "abc123")
	require.NoError(t, err)
	assert.DirExists(t, area.Dir())
	assert.Equal(t, filepath.Join(root, "task-abc123"), area.Dir())

	require.NoError(t, os.WriteFile(area.Path("output.mp4"), []byte("video"), 0o644))

	require.NoError(t, area.Release())
	assert.NoDirExists(t, area.Dir())
}

func TestArea_ReleaseIsIdempotent(t *testing.T) {
	area, err := New(t.TempDir(), "abc123")
	require.NoError(t, err)

	require.NoError(t, area.Release())

	// Recreate the path out of band; the second call must not touch it.
	require.NoError(t, os.MkdirAll(area.Dir(), 0o755))
	require.NoError(t, area.Release())
	assert.DirExists(t, area.Dir())
}

func TestArea_DistinctTasksGetDistinctDirs(t *testing.T) {
	root := t.TempDir()

	a, err := New(root, "task-a")
	require.NoError(t, err)
	b, err := New(root, "task-b")
	require.NoError(t, err)

	assert.NotEqual(t, a.Dir(), b.Dir())

	require.NoError(t, a.Release())
	assert.DirExists(t, b.Dir())
}

func TestRemove(t *testing.T) {
	assert.NoError(t, Remove(""))

	dir := filepath.Join(t.TempDir(), "task-x")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, Remove(dir))
	assert.NoDirExists(t, dir)
}

func TestSweepStale(t *testing.T) {
	root := t.TempDir()

	oldDir := filepath.Join(root, "task-old")
	require.NoError(t, os.MkdirAll(oldDir, 0o755))
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldDir, stale, stale))

	freshDir := filepath.Join(root, "task-fresh")
	require.NoError(t, os.MkdirAll(freshDir, 0o755))

	// Non-task directories are never touched.
	otherDir := filepath.Join(root, "unrelated")
	require.NoError(t, os.MkdirAll(otherDir, 0o755))
	require.NoError(t, os.Chtimes(otherDir, stale, stale))

	removed := SweepStale(root, time.Hour, nil, nil)

	assert.Equal(t, []string{oldDir}, removed)
	assert.NoDirExists(t, oldDir)
	assert.DirExists(t, freshDir)
	assert.DirExists(t, otherDir)
}

func TestSweepStale_SkipsDirsOfActiveTasks(t *testing.T) {
	root := t.TempDir()
	stale := time.Now().Add(-13 * time.Hour)

	// A transcode can outlive the retention window; its directory ages past
	// the cutoff while the task is still running.
	liveDir := filepath.Join(root, "task-longrun")
	require.NoError(t, os.MkdirAll(liveDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(liveDir, "output.mp4"), []byte("partial"), 0o644))
	require.NoError(t, os.Chtimes(liveDir, stale, stale))

	deadDir := filepath.Join(root, "task-abandoned")
	require.NoError(t, os.MkdirAll(deadDir, 0o755))
	require.NoError(t, os.Chtimes(deadDir, stale, stale))

	var asked []string
	inUse := func(taskID string) bool {
		asked = append(asked, taskID)
		return taskID == "longrun"
	}

	removed := SweepStale(root, 12*time.Hour, inUse, nil)

	assert.Equal(t, []string{deadDir}, removed)
	assert.DirExists(t, liveDir)
	assert.FileExists(t, filepath.Join(liveDir, "output.mp4"))
	assert.NoDirExists(t, deadDir)
	assert.ElementsMatch(t, []string{"longrun", "abandoned"}, asked)
}

func TestSweepStale_MissingRoot(t *testing.T) {
	assert.Nil(t, SweepStale(filepath.Join(t.TempDir(), "nope"), time.Hour, nil, nil))
}
