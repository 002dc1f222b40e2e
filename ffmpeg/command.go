package ffmpeg

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// BuildCommand assembles the transcode invocation: the concat manifest drives
// the slide timings, the audio track is muxed in, and -shortest pins the video
// to the audio's length. Operator-supplied extra arguments are inserted before
// the output path, which ffmpeg requires to be last.
func BuildCommand(manifestPath, audioPath, outputPath, extraArgs string) ([]string, error) {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", manifestPath,
		"-i", audioPath,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-r", "1", // 1 fps, the manifest durations carry the timing
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-shortest",
		"-movflags", "+faststart",
		"-max_muxing_queue_size", "9999",
		"-avoid_negative_ts", "make_zero",
	}

	if strings.TrimSpace(extraArgs) != "" {
		extra, err := SplitCommand(extraArgs)
		if err != nil {
			return nil, err
		}
		if err := ValidateArgs(extra); err != nil {
			return nil, err
		}
		args = append(args, extra...)
	}

	return append(args, outputPath), nil
}

// SplitCommand securely splits a command string into a slice of arguments.
// It prevents shell injection by not using a shell.
func SplitCommand(command string) ([]string, error) {
	args, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command syntax: %w", err)
	}
	return args, nil
}

// ValidateArgs rejects shell-like metacharacters in configured arguments,
// though exec.Command prevents their execution.
func ValidateArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsAny(arg, "|&;`$()<>") {
			return fmt.Errorf("disallowed character found in argument: %s", arg)
		}
	}
	return nil
}
