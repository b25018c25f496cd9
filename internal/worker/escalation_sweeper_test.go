package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-support/internal/observability"
)

type countingSweeper struct {
	calls  int
	marked int
	err    error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls++
	return s.marked, s.err
}

type stubLocker struct {
	held     bool
	err      error
	released int
}

func (l *stubLocker) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released++
		return nil
	}, true, nil
}

func TestEscalationSweeper_RunOnce(t *testing.T) {
	sweeper := &countingSweeper{marked: 3}
	locker := &stubLocker{}
	metrics := observability.NewMetrics()
	w, err := NewEscalationSweeper(sweeper, locker, metrics, nil, SweeperConfig{Interval: time.Minute})
	require.NoError(t, err)

	marked, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, marked)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, int64(3), metrics.Snapshot().TicketsEscalated)
}

func TestEscalationSweeper_SkipsWhenLockHeld(t *testing.T) {
	sweeper := &countingSweeper{marked: 3}
	w, err := NewEscalationSweeper(sweeper, &stubLocker{held: true}, nil, nil, SweeperConfig{})
	require.NoError(t, err)

	marked, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.Zero(t, sweeper.calls)
}

func TestEscalationSweeper_LockError(t *testing.T) {
	boom := errors.New("redis down")
	w, err := NewEscalationSweeper(&countingSweeper{}, &stubLocker{err: boom}, nil, nil, SweeperConfig{})
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestEscalationSweeper_StartStop(t *testing.T) {
	w, err := NewEscalationSweeper(&countingSweeper{}, &stubLocker{}, nil, nil, SweeperConfig{Interval: time.Hour})
	require.NoError(t, err)
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx)
}
