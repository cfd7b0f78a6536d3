// Package config centralises runtime configuration for the broker.
package config

import (
	"runtime"
	"strconv"

	"github.com/kbroker/kbroker/errs"
)

const (
	// DefaultQueueCapacity bounds each per-key queue when the caller leaves
	// QueueCapacity unset.
	DefaultQueueCapacity = 256
	// DefaultBucketCount sizes the sharded map's bucket array when the
	// caller leaves BucketCount unset.
	DefaultBucketCount = 32
)

// Config tunes a Processor's worker pool, per-queue capacity and registry
// sharding. The zero value is valid: Normalize fills every unset field.
type Config struct {
	// MaxThreads bounds the number of worker-pool goroutines driving
	// delivery tasks. Zero defaults to runtime.GOMAXPROCS(0).
	MaxThreads int
	// QueueCapacity bounds each key's BoundedQueue. Zero defaults to
	// DefaultQueueCapacity.
	QueueCapacity int
	// BucketCount sizes the ShardedMap's bucket array. Zero defaults to
	// DefaultBucketCount.
	BucketCount int
}

// Default returns a Config with every field set to its default value.
func Default() Config {
	return Config{
		MaxThreads:    runtime.GOMAXPROCS(0),
		QueueCapacity: DefaultQueueCapacity,
		BucketCount:   DefaultBucketCount,
	}
}

// Option mutates a Config when applied via Apply.
type Option func(*Config)

// WithMaxThreads overrides the worker-pool size.
func WithMaxThreads(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxThreads = n
		}
	}
}

// WithQueueCapacity overrides the per-queue capacity.
func WithQueueCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.QueueCapacity = n
		}
	}
}

// WithBucketCount overrides the registry's bucket count.
func WithBucketCount(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.BucketCount = n
		}
	}
}

// Apply applies opts to a copy of base and returns the result; base is left
// untouched.
func Apply(base Config, opts ...Option) Config {
	cfg := base
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// normalize fills zero-valued (and negative) fields with their defaults. It
// never rejects a Config: negative values are reported separately by Validate.
func (c Config) normalize() Config {
	def := Default()
	if c.MaxThreads <= 0 {
		c.MaxThreads = def.MaxThreads
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.BucketCount <= 0 {
		c.BucketCount = def.BucketCount
	}
	return c
}

// Normalize returns c with zero-valued (and negative) fields replaced by
// their defaults.
func (c Config) Normalize() Config {
	return c.normalize()
}

// Validate reports an explicitly negative field as an error, where normalize
// would silently replace it with the default. It returns nil for the zero
// value, since normalize treats zero as "use the default".
func (c Config) Validate() error {
	if c.MaxThreads < 0 {
		return errs.New("config", errs.CodeInvalidConfig,
			errs.WithMessage("MaxThreads must not be negative"),
			errs.WithField("MaxThreads", strconv.Itoa(c.MaxThreads)))
	}
	if c.QueueCapacity < 0 {
		return errs.New("config", errs.CodeInvalidConfig,
			errs.WithMessage("QueueCapacity must not be negative"),
			errs.WithField("QueueCapacity", strconv.Itoa(c.QueueCapacity)))
	}
	if c.BucketCount < 0 {
		return errs.New("config", errs.CodeInvalidConfig,
			errs.WithMessage("BucketCount must not be negative"),
			errs.WithField("BucketCount", strconv.Itoa(c.BucketCount)))
	}
	return nil
}
