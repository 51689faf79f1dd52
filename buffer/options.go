package buffer

import "log/slog"

const DEFAULT_POOL_SIZE = 64

type Config struct {
	PoolSize int
	Replacer ReplacerKind
	LrukK    int
	Logger   *slog.Logger

	// replacer overrides Replacer when set through WithCustomReplacer
	replacer Replacer
}

type Option func(*Config)

func DefaultConfig() Config {
	return Config{
		PoolSize: DEFAULT_POOL_SIZE,
		Replacer: CLOCK,
		LrukK:    2,
		Logger:   slog.Default(),
	}
}

func WithPoolSize(numFrames int) Option {
	return func(config *Config) {
		config.PoolSize = numFrames
	}
}

func WithReplacer(kind ReplacerKind) Option {
	return func(config *Config) {
		config.Replacer = kind
	}
}

func WithLrukK(k int) Option {
	return func(config *Config) {
		config.LrukK = k
	}
}

// WithCustomReplacer plugs in a replacer built by the caller. It must be
// sized for the pool.
func WithCustomReplacer(replacer Replacer) Option {
	return func(config *Config) {
		config.replacer = replacer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(config *Config) {
		if logger != nil {
			config.Logger = logger
		}
	}
}
