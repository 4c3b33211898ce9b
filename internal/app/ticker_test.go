package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweepRunner struct {
	mu    sync.Mutex
	calls int
	runFn func(ctx context.Context) (*SweepReport, error)
}

func (m *mockSweepRunner) Run(ctx context.Context) (*SweepReport, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.runFn != nil {
		return m.runFn(ctx)
	}
	return &SweepReport{}, nil
}

func (m *mockSweepRunner) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockLeaderLock struct {
	mu           sync.Mutex
	tryAcquireFn func(ctx context.Context) (bool, error)
	released     bool
}

func (m *mockLeaderLock) TryAcquire(ctx context.Context) (bool, error) {
	if m.tryAcquireFn != nil {
		return m.tryAcquireFn(ctx)
	}
	return false, errors.New("not implemented")
}

func (m *mockLeaderLock) Release(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

func (m *mockLeaderLock) wasReleased() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

func startTicker(t *testing.T, ticker *SweepTicker, clock *clockwork.FakeClock) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ticker.Run(ctx)
		close(done)
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	return func() {
		cancel()
		<-done
	}
}

func TestTicker_SweepsEveryInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &mockSweepRunner{}
	ticker := NewSweepTicker(runner, nil, clock, time.Minute)
	stop := startTicker(t, ticker, clock)
	defer stop()

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runner.getCalls() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runner.getCalls() == 2 }, time.Second, 5*time.Millisecond)
}

func TestTicker_NoSweepBeforeInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &mockSweepRunner{}
	ticker := NewSweepTicker(runner, nil, clock, time.Minute)
	stop := startTicker(t, ticker, clock)

	clock.Advance(30 * time.Second)
	stop()
	assert.Zero(t, runner.getCalls())
}

func TestTicker_FollowerSkipsSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &mockSweepRunner{}
	acquired := make(chan struct{}, 1)
	lock := &mockLeaderLock{tryAcquireFn: func(context.Context) (bool, error) {
		acquired <- struct{}{}
		return false, nil
	}}
	ticker := NewSweepTicker(runner, lock, clock, time.Minute)
	stop := startTicker(t, ticker, clock)

	clock.Advance(time.Minute)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("leader lock was not consulted")
	}
	stop()

	assert.Zero(t, runner.getCalls())
	assert.True(t, lock.wasReleased())
}

func TestTicker_LeaderSweeps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &mockSweepRunner{}
	lock := &mockLeaderLock{tryAcquireFn: func(context.Context) (bool, error) { return true, nil }}
	ticker := NewSweepTicker(runner, lock, clock, time.Minute)
	stop := startTicker(t, ticker, clock)
	defer stop()

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runner.getCalls() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTicker_LockErrorStillSweeps(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &mockSweepRunner{}
	lock := &mockLeaderLock{tryAcquireFn: func(context.Context) (bool, error) {
		return false, errors.New("redis: connection refused")
	}}
	ticker := NewSweepTicker(runner, lock, clock, time.Minute)
	stop := startTicker(t, ticker, clock)
	defer stop()

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runner.getCalls() == 1 }, time.Second, 5*time.Millisecond)
}

func TestTicker_SweepErrorKeepsTicking(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &mockSweepRunner{runFn: func(context.Context) (*SweepReport, error) {
		return nil, errors.New("db down")
	}}
	ticker := NewSweepTicker(runner, nil, clock, time.Minute)
	stop := startTicker(t, ticker, clock)
	defer stop()

	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runner.getCalls() == 1 }, time.Second, 5*time.Millisecond)
	clock.Advance(time.Minute)
	assert.Eventually(t, func() bool { return runner.getCalls() == 2 }, time.Second, 5*time.Millisecond)
}
