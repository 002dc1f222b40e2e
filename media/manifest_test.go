package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteManifest(t *testing.T) {
	t.Run("assigns per-image duration and repeats the final image", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "images.txt")
		images := []string{"/work/a.png", "/work/b.png", "/work/c.png"}

		require.NoError(t, WriteManifest(path, images, 10.0))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		want := "file '/work/a.png'\n" +
			"duration 10\n" +
			"file '/work/b.png'\n" +
			"duration 10\n" +
			"file '/work/c.png'\n" +
			"duration 10\n" +
			"file '/work/c.png'\n"
		assert.Equal(t, want, string(raw))
	})

	t.Run("fractional durations survive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "images.txt")

		require.NoError(t, WriteManifest(path, []string{"/work/a.png"}, 7.5))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "duration 7.5\n")
	})

	t.Run("escapes single quotes in paths", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "images.txt")

		require.NoError(t, WriteManifest(path, []string{"/work/it's a pic.png"}, 1.0))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `file '/work/it'\''s a pic.png'`)
	})

	t.Run("rejects an empty image list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "images.txt")
		err := WriteManifest(path, nil, 1.0)
		assert.Error(t, err)
		assert.NoFileExists(t, path)
	})
}
