// Package config loads the engine's optional TOML configuration file and
// holds the mutable option set that "setoption" updates at runtime.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Options is the engine-wide configuration, populated from defaults, then
// from an optional TOML file, then mutated in place by "setoption".
type Options struct {
	HashMB        int    `toml:"hash_mb"`
	MultiPV       int    `toml:"multi_pv"`
	TimeBufferMS  int    `toml:"time_buffer_ms"`
	Ponder        bool   `toml:"ponder"`
	MagicSeed     uint64 `toml:"magic_seed"`
	LogLevel      string `toml:"log_level"`
}

// Default returns the engine's out-of-the-box configuration.
func Default() Options {
	return Options{
		HashMB:       64,
		MultiPV:      1,
		TimeBufferMS: 50,
		LogLevel:     "INFO",
	}
}

// Load reads path, overlaying any fields it sets onto Default(). An empty
// path skips loading and returns the defaults; a path that cannot be read
// or decoded is an error.
func Load(path string) (Options, error) {
	opts := Default()
	if path == "" {
		return opts, nil
	}
	if _, err := toml.DecodeFile(path, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// TimeBuffer returns the configured time buffer as a Duration.
func (o Options) TimeBuffer() time.Duration {
	return time.Duration(o.TimeBufferMS) * time.Millisecond
}
