// Package config loads framescriptd's configuration from the environment
// using a struct-of-structs-with-envconfig-tags layout.
package config

import (
	"time"

	"github.com/inhies/go-bytesize"
	"github.com/kelseyhightower/envconfig"
)

// Config is the top-level configuration for framescriptd.
type Config struct {
	Decoder Decoder
	Cache   Cache
	Logging Logging
}

// Decoder configures the external decode binaries.
type Decoder struct {
	FFmpegPath     string `envconfig:"FRAMESCRIPT_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath    string `envconfig:"FRAMESCRIPT_FFPROBE_PATH" default:"ffprobe"`
	HWAccelEnabled bool   `envconfig:"FRAMESCRIPT_HWACCEL_ENABLED" default:"false"`
}

// Cache configures the process-wide byte budget and GC cadence.
type Cache struct {
	MaxCacheBytes string        `envconfig:"FRAMESCRIPT_MAX_CACHE_BYTES" default:"4GiB"`
	GCInterval    time.Duration `envconfig:"FRAMESCRIPT_GC_INTERVAL" default:"5s"`
}

// MaxCacheBytesValue parses MaxCacheBytes as a byte count.
func (c Cache) MaxCacheBytesValue() (uint64, error) {
	v, err := bytesize.Parse(c.MaxCacheBytes)
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// Logging configures the structured logger.
type Logging struct {
	Level string `envconfig:"FRAMESCRIPT_LOG_LEVEL" default:"info"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
