package config

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultFillsEveryField(t *testing.T) {
	cfg := Default()
	require.Equal(t, runtime.GOMAXPROCS(0), cfg.MaxThreads)
	require.Equal(t, DefaultQueueCapacity, cfg.QueueCapacity)
	require.Equal(t, DefaultBucketCount, cfg.BucketCount)
}

func TestNormalizeFillsOnlyZeroFields(t *testing.T) {
	cfg := Config{QueueCapacity: 64}
	normalized := cfg.Normalize()

	require.Equal(t, 64, normalized.QueueCapacity)
	require.Equal(t, runtime.GOMAXPROCS(0), normalized.MaxThreads)
	require.Equal(t, DefaultBucketCount, normalized.BucketCount)
}

func TestApplyOptionsCloneAndMutate(t *testing.T) {
	base := Default()

	applied := Apply(base,
		WithMaxThreads(4),
		WithQueueCapacity(128),
		WithBucketCount(16),
		WithMaxThreads(0), // ignored: non-positive values are no-ops
	)

	require.Equal(t, 4, applied.MaxThreads)
	require.Equal(t, 128, applied.QueueCapacity)
	require.Equal(t, 16, applied.BucketCount)

	// base must be untouched.
	require.Equal(t, runtime.GOMAXPROCS(0), base.MaxThreads)
	require.Equal(t, DefaultQueueCapacity, base.QueueCapacity)
}

func TestValidateRejectsNegativeFields(t *testing.T) {
	require.NoError(t, Config{}.Validate())
	require.NoError(t, Default().Validate())

	err := Config{MaxThreads: -1}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "MaxThreads")

	err = Config{QueueCapacity: -1}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "QueueCapacity")

	err = Config{BucketCount: -1}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "BucketCount")
}
