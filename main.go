// slidecast/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"slidecast/api"
	"slidecast/config"
	"slidecast/ffmpeg"
	"slidecast/staging"
	"slidecast/task"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	// 2. Verify the external tools exist before accepting work
	if _, err := exec.LookPath(cfg.FFBin); err != nil {
		logger.WithField("bin", cfg.FFBin).Fatal("ffmpeg binary not found in PATH")
	}
	if _, err := exec.LookPath(cfg.FFProbeBin); err != nil {
		logger.WithField("bin", cfg.FFProbeBin).Fatal("ffprobe binary not found in PATH")
	}

	// 3. Working directory for all staging areas
	if cfg.WorkDir == "" {
		workDir, err := os.MkdirTemp("", "slidecast_")
		if err != nil {
			logger.WithError(err).Fatal("could not create work directory")
		}
		cfg.WorkDir = workDir
	} else if err := os.MkdirAll(cfg.WorkDir, 0o755); err != nil {
		logger.WithError(err).Fatal("could not create work directory")
	}
	logger.WithField("dir", cfg.WorkDir).Info("using work directory")

	// 4. Wire the core: registry, supervisor, coordinator
	registry := task.NewRegistry(cfg.TaskRetention, logger)
	registry.OnEvict(func(t task.Task) {
		if err := staging.Remove(t.StagingDir); err != nil {
			logger.WithError(err).WithField("task_id", t.ID).Warn("failed to remove evicted staging directory")
		}
	})

	supervisor := &ffmpeg.Supervisor{
		Binary:             cfg.FFBin,
		MaxRunDuration:     cfg.TranscodeTimeout,
		LivenessInterval:   cfg.LivenessInterval,
		ResponsiveInterval: cfg.ResponsiveInterval,
		MaxUnresponsive:    cfg.MaxUnresponsive,
		KillGrace:          cfg.KillGrace,
		Log:                logger,
	}

	coordinator := task.NewCoordinator(cfg, registry, supervisor, logger)

	// 5. Set up router and server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := api.SetupRouter(ctx, registry, coordinator, cfg, logger)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// 6. Background sweeps: expired registry entries and orphaned staging dirs
	registry.Start(ctx)
	go func() {
		ticker := time.NewTicker(cfg.TaskRetention / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				staging.SweepStale(cfg.WorkDir, cfg.TaskRetention, registry.Active, logger)
			}
		}
	}()

	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("listen failed")
		}
	}()

	// 7. Wait for interrupt signal for graceful shutdown
	<-ctx.Done()

	// Restore default behavior on the interrupt signal and notify user of shutdown.
	stop()
	logger.Info("shutting down gracefully, press Ctrl+C again to force")

	// Canceling ctx has already signaled live transcoders to terminate; give
	// in-flight requests a short window to drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("server forced to shutdown")
	}

	logger.Info("server exiting")
}
