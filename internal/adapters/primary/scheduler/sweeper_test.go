package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (c *fakeCleaner) CleanupExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestNewSweeper_RejectsBadSchedule(t *testing.T) {
	_, err := NewSweeper(&fakeCleaner{}, "every now and then")
	assert.Error(t, err)
}

func TestRunOnce(t *testing.T) {
	c := &fakeCleaner{n: 2}
	s, err := NewSweeper(c, "@every 1m")
	require.NoError(t, err)

	assert.EqualValues(t, 2, s.RunOnce(context.Background()))

	c.err = errors.New("db down")
	assert.Zero(t, s.RunOnce(context.Background()))
	assert.EqualValues(t, 2, c.calls.Load())
}

func TestSweeperRunsOnSchedule(t *testing.T) {
	c := &fakeCleaner{}
	s, err := NewSweeper(c, "@every 1s")
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return c.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
