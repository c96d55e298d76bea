package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct{ runs atomic.Int32 }

func (c *countingSweeper) Sweep() int {
	c.runs.Add(1)
	return 1
}

func (c *countingSweeper) Len() int { return 0 }

func TestRunOnceSweepsEveryCache(t *testing.T) {
	a, b := &countingSweeper{}, &countingSweeper{}
	s := New(time.Minute)
	s.Register("a", a)
	s.Register("b", b)

	s.RunOnce()

	assert.Equal(t, int32(1), a.runs.Load())
	assert.Equal(t, int32(1), b.runs.Load())
}

func TestStartRunsOnInterval(t *testing.T) {
	sw := &countingSweeper{}
	s := New(50 * time.Millisecond)
	s.Register("memory", sw)

	require.NoError(t, s.Start())
	t.Cleanup(s.Stop)

	assert.Eventually(t, func() bool { return sw.runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartWithoutCachesIsNoop(t *testing.T) {
	s := New(0)
	require.NoError(t, s.Start())
	s.Stop()
	assert.Equal(t, 5*time.Minute, s.interval)
}
