package bcycle

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config holds the engine settings. Field tags allow it to be parsed from the
// environment with github.com/caarlos0/env, optionally under a prefix.
type Config struct {
	// AsyncTimeout bounds how long a request may stay suspended on a future. The
	// watchdog is only armed once a request suspends. Zero disables it.
	AsyncTimeout time.Duration `env:"ASYNC_TIMEOUT" envDefault:"0s"`

	// MaxRequestSize is the largest request body that is accepted at all.
	MaxRequestSize int64 `env:"MAX_REQUEST_SIZE" envDefault:"10000000"`

	// MaxCachedBodySize is the largest declared body that is kept in memory after the first read.
	MaxCachedBodySize int64 `env:"MAX_CACHED_BODY_SIZE" envDefault:"1000000"`

	AutogenerateEtags      bool `env:"AUTOGENERATE_ETAGS" envDefault:"false"`
	PreferMethodNotAllowed bool `env:"PREFER_405" envDefault:"false"`
	IgnoreTrailingSlashes  bool `env:"IGNORE_TRAILING_SLASHES" envDefault:"true"`

	// RequestIDHeader names the response header carrying the request id. Empty disables it.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-Id"`

	Compression CompressionConfig `envPrefix:"COMPRESSION_"`
}

// CompressionConfig selects the response compression decorator.
type CompressionConfig struct {
	Gzip        bool     `env:"GZIP" envDefault:"true"`
	GzipLevel   int      `env:"GZIP_LEVEL" envDefault:"6"`
	Brotli      bool     `env:"BROTLI" envDefault:"false"`
	BrotliLevel int      `env:"BROTLI_LEVEL" envDefault:"4"`
	MinSize     int      `env:"MIN_SIZE" envDefault:"1500"`
	Types       []string `env:"TYPES" envSeparator:"," envDefault:"text/,application/json,application/javascript,application/xml,image/svg+xml"`
}

// DefaultConfig returns the configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic("bcycle: invalid config defaults: " + err.Error())
	}
	return cfg
}

// ParseConfig reads the configuration from the process environment. Every
// variable is looked up under prefix, e.g. "BC_ASYNC_TIMEOUT".
func ParseConfig(prefix string) (cfg Config, err error) {
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: prefix}); err != nil {
		return cfg, errors.Wrap(err, "failed to parse config")
	}
	return cfg, cfg.Validate()
}

// Validate checks that the settings are usable.
func (c Config) Validate() error {
	switch {
	case c.AsyncTimeout < 0:
		return errors.Newf("async timeout must not be negative, got %s", c.AsyncTimeout)
	case c.MaxRequestSize <= 0:
		return errors.Newf("max request size must be positive, got %d", c.MaxRequestSize)
	case c.MaxCachedBodySize < 0:
		return errors.Newf("max cached body size must not be negative, got %d", c.MaxCachedBodySize)
	case c.Compression.GzipLevel < -2 || c.Compression.GzipLevel > 9:
		return errors.Newf("gzip level must be between -2 and 9, got %d", c.Compression.GzipLevel)
	case c.Compression.BrotliLevel < 0 || c.Compression.BrotliLevel > 11:
		return errors.Newf("brotli level must be between 0 and 11, got %d", c.Compression.BrotliLevel)
	}
	return nil
}

func (c CompressionConfig) compressible(contentType string) bool {
	if contentType == "" {
		return false
	}
	contentType = strings.ToLower(contentType)
	for _, t := range c.Types {
		if t != "" && strings.HasPrefix(contentType, strings.ToLower(strings.TrimSpace(t))) {
			return true
		}
	}
	return false
}
