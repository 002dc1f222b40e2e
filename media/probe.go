package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeDuration asks ffprobe for the audio track's length in seconds. The
// caller bounds the call with ctx; a track whose duration cannot be parsed as
// a number is an error.
func ProbeDuration(ctx context.Context, binary, audioPath string) (float64, error) {
	if binary == "" {
		binary = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, binary,
		"-i", audioPath,
		"-show_entries", "format=duration",
		"-v", "quiet",
		"-of", "csv=p=0",
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	raw := strings.TrimSpace(string(output))
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned non-numeric duration %q: %w", raw, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe returned non-positive duration %v", seconds)
	}
	return seconds, nil
}
