package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/i474232898/weather-radar-loop/internal/radar"
)

type runnerFunc func(ctx context.Context) (radar.Artifact, error)

func (f runnerFunc) BuildLoop(ctx context.Context) (radar.Artifact, error) { return f(ctx) }

func TestStartRunsInitialBuildSynchronously(t *testing.T) {
	calls := atomic.NewInt32(0)
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		calls.Inc()
		return radar.Artifact{Name: "radar_with_map_20240501123700.gif"}, nil
	}), time.Hour, "")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.EqualValues(t, 1, calls.Load())
	st := s.Status()
	assert.False(t, st.Running)
	assert.EqualValues(t, 1, st.Runs)
	assert.Equal(t, "radar_with_map_20240501123700.gif", st.LastLoop)
	assert.Empty(t, st.LastError)
}

func TestRunNowSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		close(started)
		<-release
		return radar.Artifact{}, nil
	}), time.Hour, "")

	done := make(chan struct{})
	go func() {
		s.RunNow()
		close(done)
	}()
	<-started

	assert.True(t, s.Status().Running)
	s.RunNow() // must return immediately
	assert.EqualValues(t, 1, s.Status().Skipped)

	close(release)
	<-done
	assert.False(t, s.Status().Running)
	assert.EqualValues(t, 1, s.Status().Runs)
}

func TestStopCancelsAndWaitsForInFlightRun(t *testing.T) {
	calls := atomic.NewInt32(0)
	started := make(chan struct{})
	finished := atomic.NewBool(false)

	s := New(runnerFunc(func(ctx context.Context) (radar.Artifact, error) {
		if calls.Inc() == 1 {
			return radar.Artifact{}, nil
		}
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
		return radar.Artifact{}, ctx.Err()
	}), time.Hour, "")
	require.NoError(t, s.Start(context.Background()))

	go s.RunNow()
	<-started

	s.Stop()

	assert.True(t, finished.Load(), "Stop returned before the run finished")
	assert.Contains(t, s.Status().LastError, context.Canceled.Error())
}

func TestNoFramesIsNotAnError(t *testing.T) {
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		return radar.Artifact{}, radar.ErrNoFrames
	}), time.Hour, "")

	s.RunNow()

	assert.Empty(t, s.Status().LastError)
}

func TestFailedRunIsRecorded(t *testing.T) {
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		return radar.Artifact{}, errors.New("base map missing")
	}), time.Hour, "")

	s.RunNow()

	st := s.Status()
	assert.Equal(t, "base map missing", st.LastError)
	assert.False(t, st.Running)
}

func TestIntervalTriggersRuns(t *testing.T) {
	calls := atomic.NewInt32(0)
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		calls.Inc()
		return radar.Artifact{}, nil
	}), time.Second, "")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 50*time.Millisecond)
}

func TestFirstTickCountsFromInitialRunStart(t *testing.T) {
	var (
		mu     sync.Mutex
		starts []time.Time
	)
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		first := len(starts) == 1
		mu.Unlock()
		if first {
			time.Sleep(time.Second)
		}
		return radar.Artifact{}, nil
	}), 2*time.Second, "")

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(starts) >= 2
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	gap := starts[1].Sub(starts[0])
	mu.Unlock()
	assert.Less(t, gap, 2500*time.Millisecond, "first tick must not wait a full interval after the initial run ended")
	assert.GreaterOrEqual(t, gap, 1900*time.Millisecond)
}

func TestCronSchedule(t *testing.T) {
	s := New(runnerFunc(func(context.Context) (radar.Artifact, error) {
		return radar.Artifact{}, nil
	}), 0, "0 0 1 1 *")

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.EqualValues(t, 1, s.Status().Runs)
}
