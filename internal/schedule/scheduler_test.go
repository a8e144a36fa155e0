package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	t.Run("rejects invalid jobs", func(t *testing.T) {
		s := New()
		assert.Error(t, s.Register(Job{Interval: time.Second, Run: func(context.Context) error { return nil }}))
		assert.Error(t, s.Register(Job{Name: "x", Run: func(context.Context) error { return nil }}))
		assert.Error(t, s.Register(Job{Name: "x", Interval: time.Second}))
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		s := New()
		job := Job{Name: "report", Interval: time.Second, Run: func(context.Context) error { return nil }}
		require.NoError(t, s.Register(job))
		err := s.Register(job)
		assert.ErrorIs(t, err, ErrJobExists)
	})

	t.Run("rejects registration after start", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		err := s.Register(Job{Name: "late", Interval: time.Second, Run: func(context.Context) error { return nil }})
		assert.ErrorIs(t, err, ErrAlreadyStarted)
	})
}

func TestStart(t *testing.T) {
	t.Run("runs jobs on their interval", func(t *testing.T) {
		s := New()
		var runs atomic.Int64
		require.NoError(t, s.Register(Job{
			Name:     "tick",
			Interval: 10 * time.Millisecond,
			Run: func(context.Context) error {
				runs.Add(1)
				return nil
			},
		}))

		require.NoError(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
		s.Stop()
	})

	t.Run("run on start fires immediately", func(t *testing.T) {
		s := New()
		ran := make(chan struct{}, 1)
		require.NoError(t, s.Register(Job{
			Name:       "eager",
			Interval:   time.Hour,
			RunOnStart: true,
			Run: func(context.Context) error {
				ran <- struct{}{}
				return nil
			},
		}))

		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()

		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatal("job did not run on start")
		}
	})

	t.Run("double start fails", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Start(context.Background()))
		defer s.Stop()
		assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
	})

	t.Run("job errors do not stop the loop", func(t *testing.T) {
		s := New()
		var runs atomic.Int64
		require.NoError(t, s.Register(Job{
			Name:     "flaky",
			Interval: 10 * time.Millisecond,
			Run: func(context.Context) error {
				runs.Add(1)
				return errors.New("boom")
			},
		}))

		require.NoError(t, s.Start(context.Background()))
		assert.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
		s.Stop()
	})

	t.Run("stop waits for cancellation", func(t *testing.T) {
		s := New()
		require.NoError(t, s.Register(Job{
			Name:     "slow",
			Interval: 10 * time.Millisecond,
			Run: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
		}))

		ctx, cancel := context.WithCancel(context.Background())
		require.NoError(t, s.Start(ctx))
		cancel()
		s.Stop() // must not hang
	})
}
