// slidecast/config/config_test.go
package config_test // Use an external test package

import (
	"testing"
	"time"

	"slidecast/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		// Ensure no env vars are lingering from other tests
		t.Setenv("SLIDECAST_PORT", "")
		t.Setenv("SLIDECAST_TRANSCODE_TIMEOUT", "")
		t.Setenv("SLIDECAST_TASK_RETENTION", "")
		t.Setenv("SLIDECAST_MAX_UPLOAD_SIZE", "")
		t.Setenv("SLIDECAST_AUTH_ENABLE", "")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "5000", cfg.Port)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "ffprobe", cfg.FFProbeBin)
		assert.Equal(t, 20*time.Hour, cfg.TranscodeTimeout)
		assert.Equal(t, 60*time.Second, cfg.ProbeTimeout)
		assert.Equal(t, 12*time.Hour, cfg.TaskRetention)
		assert.Equal(t, 5*time.Second, cfg.LivenessInterval)
		assert.Equal(t, 30*time.Second, cfg.ResponsiveInterval)
		assert.Equal(t, 3, cfg.MaxUnresponsive)
		assert.Equal(t, int64(1024*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, false, cfg.AuthEnable)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("SLIDECAST_PORT", "9999")
		t.Setenv("SLIDECAST_TRANSCODE_TIMEOUT", "30m")
		t.Setenv("SLIDECAST_MAX_UPLOAD_SIZE", "50MB")
		t.Setenv("SLIDECAST_AUTH_ENABLE", "true")
		t.Setenv("SLIDECAST_AUTH_KEY", "newsecret")
		t.Setenv("SLIDECAST_FF_EXTRA_ARGS", "-threads 2")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 30*time.Minute, cfg.TranscodeTimeout)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxUploadSize)
		assert.Equal(t, true, cfg.AuthEnable)
		assert.Equal(t, "newsecret", cfg.AuthKey)
		assert.Equal(t, "-threads 2", cfg.FFExtraArgs)
	})
}
