package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCommand(t *testing.T) {
	t.Run("wires manifest, audio and output in order", func(t *testing.T) {
		args, err := BuildCommand("/work/images.txt", "/work/track.mp3", "/work/output.mp4", "")
		require.NoError(t, err)

		assert.Equal(t, "-y", args[0])
		assert.Contains(t, args, "concat")
		assert.Contains(t, args, "libx264")
		assert.Contains(t, args, "-shortest")

		// First -i is the concat manifest, second is the audio track.
		var inputs []string
		for i, a := range args {
			if a == "-i" {
				inputs = append(inputs, args[i+1])
			}
		}
		assert.Equal(t, []string{"/work/images.txt", "/work/track.mp3"}, inputs)

		// FFmpeg's last argument is the output file.
		assert.Equal(t, "/work/output.mp4", args[len(args)-1])
	})

	t.Run("extra args land before the output path", func(t *testing.T) {
		args, err := BuildCommand("/work/images.txt", "/work/track.mp3", "/work/output.mp4", "-threads 2")
		require.NoError(t, err)

		n := len(args)
		assert.Equal(t, []string{"-threads", "2", "/work/output.mp4"}, args[n-3:])
	})

	t.Run("rejects unparsable extra args", func(t *testing.T) {
		_, err := BuildCommand("/work/images.txt", "/work/track.mp3", "/work/output.mp4", `-metadata title="unterminated`)
		assert.Error(t, err)
	})

	t.Run("rejects shell metacharacters in extra args", func(t *testing.T) {
		_, err := BuildCommand("/work/images.txt", "/work/track.mp3", "/work/output.mp4", "-threads 2|rm")
		assert.Error(t, err)
	})
}

func TestSplitCommand(t *testing.T) {
	args, err := SplitCommand(`-metadata title='My Video' -threads 2`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-metadata", "title=My Video", "-threads", "2"}, args)
}

func TestValidateArgs(t *testing.T) {
	assert.NoError(t, ValidateArgs([]string{"-threads", "2"}))

	for _, bad := range []string{"a|b", "a;b", "a`b", "$(x)", "a>b"} {
		assert.Error(t, ValidateArgs([]string{bad}), bad)
	}
}
