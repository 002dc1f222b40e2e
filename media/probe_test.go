package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProbe writes an executable that stands in for ffprobe.
func stubProbe(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestProbeDuration(t *testing.T) {
	t.Run("parses the reported duration", func(t *testing.T) {
		bin := stubProbe(t, `echo "30.025000"`)

		seconds, err := ProbeDuration(context.Background(), bin, "/work/track.mp3")
		require.NoError(t, err)
		assert.InDelta(t, 30.025, seconds, 0.001)
	})

	t.Run("rejects non-numeric output", func(t *testing.T) {
		bin := stubProbe(t, `echo "N/A"`)

		_, err := ProbeDuration(context.Background(), bin, "/work/track.mp3")
		assert.Error(t, err)
	})

	t.Run("rejects non-positive durations", func(t *testing.T) {
		bin := stubProbe(t, `echo "0.000000"`)

		_, err := ProbeDuration(context.Background(), bin, "/work/track.mp3")
		assert.Error(t, err)
	})

	t.Run("fails when the probe exits non-zero", func(t *testing.T) {
		bin := stubProbe(t, `exit 1`)

		_, err := ProbeDuration(context.Background(), bin, "/work/track.mp3")
		assert.Error(t, err)
	})

	t.Run("is bounded by the context deadline", func(t *testing.T) {
		bin := stubProbe(t, `sleep 30`)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := ProbeDuration(ctx, bin, "/work/track.mp3")
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}
