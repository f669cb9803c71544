package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) SetPresence(_ context.Context, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, status)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestRotatePicksConfiguredStatus(t *testing.T) {
	rec := &recorder{}
	s := NewService([]string{"a", "b", "c"}, 0, rec)
	s.pick = func(n int) int { return n - 1 }

	s.Rotate(context.Background())
	assert.Equal(t, "c", s.Current())
	assert.Equal(t, []string{"c"}, rec.got)
	assert.Equal(t, 10*time.Second, s.interval)
}

func TestStartRotatesUntilCancelled(t *testing.T) {
	rec := &recorder{}
	s := NewService([]string{"x"}, time.Second, rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return rec.count() >= 2 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStartWithoutStatuses(t *testing.T) {
	rec := &recorder{}
	s := NewService(nil, time.Second, rec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
	assert.Zero(t, rec.count())
}
