package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"slidecast/config"
	"slidecast/ffmpeg"
	"slidecast/media"
	"slidecast/staging"
)

// Transcoder runs one supervised external transcode to a terminal outcome.
type Transcoder interface {
	Run(ctx context.Context, args []string, onProgress func(int)) (ffmpeg.Outcome, error)
}

// Coordinator drives one task end to end: stage the upload, extract, discover
// assets, probe the audio, build the manifest, supervise the transcode, and
// publish the result. It is the sole writer of any task it owns.
type Coordinator struct {
	cfg        *config.Config
	reg        *Registry
	transcoder Transcoder
	log        *logrus.Logger

	// Collaborators, swappable in tests.
	extract        func(archivePath, destDir string) error
	discover       func(root string) (audio string, images []string, err error)
	probe          func(ctx context.Context, bin, path string) (float64, error)
	manifest       func(path string, images []string, perImage float64) error
	checkResources func() error
}

func NewCoordinator(cfg *config.Config, reg *Registry, transcoder Transcoder, log *logrus.Logger) *Coordinator {
	if log == nil {
		log = logrus.New()
	}
	return &Coordinator{
		cfg:        cfg,
		reg:        reg,
		transcoder: transcoder,
		log:        log,
		extract:    media.ExtractZip,
		discover:   media.Discover,
		probe:      media.ProbeDuration,
		manifest:   media.WriteManifest,
		checkResources: func() error {
			thr := ffmpeg.Thresholds{
				IdleCPU:  cfg.ThrottleCPU,
				FreeMem:  cfg.ThrottleFreeMem,
				FreeDisk: cfg.ThrottleFreeDisk,
			}
			return ffmpeg.CheckResources(thr, cfg.WorkDir, log)
		},
	}
}

// Process runs the pipeline for an already-registered task. It returns nil on
// completion, or a *Error describing the failure; either way the registry
// reflects the terminal state before it returns. On every failure path,
// including panics, the staging area is released exactly once. On completion
// the staging area is retained, since it holds the artifact, and is reclaimed
// by eviction.
func (c *Coordinator) Process(ctx context.Context, taskID string, payload io.Reader, filename string) (err error) {
	logf := c.log.WithField("task_id", taskID)

	area, aerr := staging.New(c.cfg.WorkDir, taskID)
	if aerr != nil {
		err = NewError(KindInternal, "Could not allocate working space for the task.", aerr)
		c.reg.Fail(taskID, AsError(err).UserMessage)
		return err
	}
	c.reg.SetStagingDir(taskID, area.Dir())

	completed := false
	defer func() {
		if r := recover(); r != nil {
			err = NewError(KindInternal, "An unexpected error occurred while processing the file.", fmt.Errorf("panic: %v", r))
			logf.WithField("panic", r).Error("task pipeline panicked")
		}
		if completed {
			return
		}
		if rerr := area.Release(); rerr != nil {
			logf.WithError(rerr).Warn("staging release failed")
		}
		te := AsError(err)
		c.reg.Fail(taskID, te.UserMessage)
		logf.WithField("kind", te.Kind).WithError(te).Error("task failed")
	}()

	archivePath := area.Path(safeFilename(filename))
	if err := savePayload(archivePath, payload); err != nil {
		return NewError(KindInternal, "Failed to save the uploaded file.", err)
	}

	c.reg.Update(taskID, StateExtracting, 10, "Extracting archive...")
	if eerr := c.extract(archivePath, area.Dir()); eerr != nil {
		return NewError(KindCorruptArchive, "The uploaded file is not a valid ZIP archive.", eerr)
	}

	c.reg.Update(taskID, StateSearching, 20, "Searching for media files...")
	audio, images, derr := c.discover(area.Dir())
	if derr != nil {
		switch {
		case errors.Is(derr, media.ErrNoAudio):
			return NewError(KindMissingAudio, "No audio file (MP3, WAV, M4A, AAC) found in the archive.", derr)
		case errors.Is(derr, media.ErrNoImages):
			return NewError(KindMissingImages, "No images (PNG, JPG, JPEG) found in the archive.", derr)
		default:
			return NewError(KindInternal, "Failed to scan the extracted files.", derr)
		}
	}

	c.reg.Update(taskID, StateAnalyzing, 30, fmt.Sprintf("Found %d images and one audio track", len(images)))

	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	duration, perr := c.probe(probeCtx, c.cfg.FFProbeBin, audio)
	cancel()
	if perr != nil {
		return NewError(KindProbeFailure, "Could not read the audio track's duration.", perr)
	}

	c.reg.Update(taskID, StatePreparing, 40, fmt.Sprintf("Audio duration: %.1f seconds", duration))

	perImage := duration / float64(len(images))
	manifestPath := area.Path("images.txt")
	if merr := c.manifest(manifestPath, images, perImage); merr != nil {
		return NewError(KindInternal, "Failed to prepare the video manifest.", merr)
	}

	if rerr := c.checkResources(); rerr != nil {
		return NewError(KindInternal, "The server is too busy to start a new video job. Please try again shortly.", rerr)
	}

	outputPath := area.Path("output.mp4")
	args, berr := ffmpeg.BuildCommand(manifestPath, audio, outputPath, c.cfg.FFExtraArgs)
	if berr != nil {
		return NewError(KindInternal, "Invalid transcoder configuration.", berr)
	}

	c.reg.Update(taskID, StateProcessing, 50, "Creating the video with FFmpeg...")
	logf.WithFields(logrus.Fields{"images": len(images), "audio_seconds": duration}).Info("starting transcode")

	outcome, serr := c.transcoder.Run(ctx, args, func(p int) {
		c.reg.Update(taskID, StateProcessing, p, fmt.Sprintf("Processing video... (%d%%)", p))
	})
	if serr != nil {
		return NewError(KindInternal, "Video processing was interrupted.", serr)
	}

	switch outcome.Kind {
	case ffmpeg.OutcomeSuccess:
		completed = true
		c.reg.Complete(taskID, outputPath)
		logf.Info("task completed")
		return nil
	case ffmpeg.OutcomeNonZeroExit:
		return NewError(KindTranscodeFailed,
			"Video creation failed: "+Truncate(outcome.Stderr, 120),
			fmt.Errorf("ffmpeg exit code %d", outcome.ExitCode))
	case ffmpeg.OutcomeTimedOut:
		return NewError(KindTranscodeTimeout, "Video processing timed out.", nil)
	case ffmpeg.OutcomeUnresponsive:
		return NewError(KindTranscodeUnresponsive, "The video encoder stopped responding and was aborted.", nil)
	default:
		return NewError(KindInternal, "An unexpected error occurred while processing the file.",
			fmt.Errorf("unknown transcode outcome %q", outcome.Kind))
	}
}

// safeFilename strips any path components from the uploaded filename.
func safeFilename(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "uploaded.zip"
	}
	return name
}

func savePayload(path string, payload io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, payload); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
