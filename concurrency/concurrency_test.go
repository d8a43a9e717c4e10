package concurrency

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryAcquire(t *testing.T) {
	m, err := NewManager(1)
	require.NoError(t, err)

	assert.True(t, m.TryAcquire())
	assert.False(t, m.TryAcquire())
	assert.Equal(t, int32(0), m.Available())

	m.Release()
	assert.True(t, m.TryAcquire())
	assert.Equal(t, int64(1), m.GetMetrics()["rejected_count"])
}

func TestAcquireTimeout(t *testing.T) {
	m, _ := NewManager(1)
	require.NoError(t, m.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Acquire(ctx), context.DeadlineExceeded)
}

func TestNewManagerInvalid(t *testing.T) {
	_, err := NewManager(0)
	assert.Error(t, err)
}

func TestReleaseWithoutAcquire(t *testing.T) {
	m, _ := NewManager(1)
	assert.Panics(t, m.Release)
}
