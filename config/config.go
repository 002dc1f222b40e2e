// slidecast/config/config.go
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	FFBin              string        `mapstructure:"FF_BIN"`
	FFProbeBin         string        `mapstructure:"FFPROBE_BIN"`
	FFExtraArgs        string        `mapstructure:"FF_EXTRA_ARGS"`
	TranscodeTimeout   time.Duration `mapstructure:"TRANSCODE_TIMEOUT"`
	ProbeTimeout       time.Duration `mapstructure:"PROBE_TIMEOUT"`
	TaskRetention      time.Duration `mapstructure:"TASK_RETENTION"`
	LivenessInterval   time.Duration `mapstructure:"LIVENESS_INTERVAL"`
	ResponsiveInterval time.Duration `mapstructure:"RESPONSIVE_INTERVAL"`
	MaxUnresponsive    int           `mapstructure:"MAX_UNRESPONSIVE"`
	KillGrace          time.Duration `mapstructure:"KILL_GRACE"`
	MaxUploadSize      int64         `mapstructure:"MAX_UPLOAD_SIZE"`
	ThrottleCPU        float64       `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem    int64         `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk   int64         `mapstructure:"THROTTLE_FREEDISK"`
	AuthEnable         bool          `mapstructure:"AUTH_ENABLE"`
	AuthKey            string        `mapstructure:"AUTH_KEY"`
	Port               string        `mapstructure:"PORT"`
	BaseURL            string        `mapstructure:"BASE"`
	WorkDir            string        `mapstructure:"WORK_DIR"`
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// We only care about converting strings to time.Duration.
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// We only care about converting strings to int64s for byte sizes.
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("FF_EXTRA_ARGS", "")
	vp.SetDefault("TRANSCODE_TIMEOUT", "20h")
	vp.SetDefault("PROBE_TIMEOUT", "60s")
	vp.SetDefault("TASK_RETENTION", "12h")
	vp.SetDefault("LIVENESS_INTERVAL", "5s")
	vp.SetDefault("RESPONSIVE_INTERVAL", "30s")
	vp.SetDefault("MAX_UNRESPONSIVE", 3)
	vp.SetDefault("KILL_GRACE", "10s")
	vp.SetDefault("MAX_UPLOAD_SIZE", "1GB")
	vp.SetDefault("THROTTLE_CPU", 50.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "200MB")
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "123456")
	vp.SetDefault("PORT", "5000")
	vp.SetDefault("BASE", "")
	vp.SetDefault("WORK_DIR", "")

	// Load from config file
	vp.SetConfigName("slidecast_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/slidecast/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("SLIDECAST")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	// Unmarshal the config, providing our custom composed hooks.
	// The order matters: the first hook that succeeds is used.
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
		),
	))
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
