package media

import (
	"fmt"
	"os"
	"strings"
)

// WriteManifest writes the ffmpeg concat-demuxer input list. Each image gets
// perImage seconds; the final image is listed once more without a duration,
// which is how the concat demuxer pins the end of the last segment.
func WriteManifest(path string, images []string, perImage float64) error {
	if len(images) == 0 {
		return fmt.Errorf("manifest requires at least one image")
	}

	var b strings.Builder
	for _, img := range images {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(img))
		fmt.Fprintf(&b, "duration %g\n", perImage)
	}
	fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(images[len(images)-1]))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// escapeConcatPath escapes single quotes for the concat demuxer's quoted-path
// syntax.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
