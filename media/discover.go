package media

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoAudio means the archive contained no qualifying audio track.
	ErrNoAudio = errors.New("no audio file found in archive")
	// ErrNoImages means the archive contained no qualifying images.
	ErrNoImages = errors.New("no images found in archive")
)

var (
	audioExtensions = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true}
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}
)

// Discover walks the extracted tree and locates the audio track and the image
// sequence. The first audio file encountered wins; images are returned sorted
// lexicographically by full path so slide order is deterministic.
func Discover(root string) (audio string, images []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		switch {
		case audioExtensions[ext]:
			if audio == "" {
				audio = path
			}
		case imageExtensions[ext]:
			images = append(images, path)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	if audio == "" {
		return "", nil, ErrNoAudio
	}
	if len(images) == 0 {
		return "", nil, ErrNoImages
	}

	sort.Strings(images)
	return audio, images, nil
}
