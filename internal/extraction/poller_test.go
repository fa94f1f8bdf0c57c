// internal/extraction/poller_test.go
package extraction

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"menuscan/internal/common/errors"
	"menuscan/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pollStep struct {
	job *Job
	err error
}

// scriptedStatus replays the given steps in order, repeating the final step
// if polled again.
func scriptedStatus(steps []pollStep) StatusFunc {
	var idx atomic.Int64
	return func(ctx context.Context, handle JobHandle) (*Job, error) {
		i := int(idx.Add(1)) - 1
		if i >= len(steps) {
			i = len(steps) - 1
		}
		step := steps[i]
		if step.err != nil {
			return nil, step.err
		}
		jobCopy := *step.job
		return &jobCopy, nil
	}
}

func newTestPoller(t *testing.T, status StatusFunc) *Poller {
	t.Helper()
	return NewPoller(status, PollerOptions{
		Interval:            time.Millisecond,
		MaxTransportRetries: 3,
	}, logger.NewTestLogger(t))
}

func TestPoller_HappyPath(t *testing.T) {
	results := []RawItem{{"name": "Doro Wat", "price": "250"}}
	poller := newTestPoller(t, scriptedStatus([]pollStep{
		{job: &Job{ID: "j1", Status: StatusPending, Progress: 0}},
		{job: &Job{ID: "j1", Status: StatusProcessing, Progress: 40}},
		{job: &Job{ID: "j1", Status: StatusProcessing, Progress: 80}},
		{job: &Job{ID: "j1", Status: StatusCompleted, Progress: 100, Results: results}},
	}))

	var observed []Job
	got, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, func(job Job) {
		observed = append(observed, job)
	})
	require.NoError(t, err)
	assert.Equal(t, results, got)

	// Progress is strictly non-decreasing and exactly one terminal snapshot
	// is observed.
	require.Len(t, observed, 4)
	terminal := 0
	for i, job := range observed {
		if i > 0 {
			assert.GreaterOrEqual(t, job.Progress, observed[i-1].Progress)
		}
		if job.IsTerminal() {
			terminal++
		}
	}
	assert.Equal(t, 1, terminal)
	assert.Equal(t, StatusCompleted, observed[len(observed)-1].Status)
}

func TestPoller_ProgressRegressionClamped(t *testing.T) {
	poller := newTestPoller(t, scriptedStatus([]pollStep{
		{job: &Job{Status: StatusProcessing, Progress: 60}},
		{job: &Job{Status: StatusProcessing, Progress: 20}}, // backend hiccup
		{job: &Job{Status: StatusCompleted, Progress: 100}},
	}))

	var progresses []int
	_, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, func(job Job) {
		progresses = append(progresses, job.Progress)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{60, 60, 100}, progresses)
}

func TestPoller_FailedJobNeverCompletes(t *testing.T) {
	poller := newTestPoller(t, scriptedStatus([]pollStep{
		{job: &Job{Status: StatusProcessing, Progress: 30}},
		{job: &Job{Status: StatusFailed, Progress: 30, Error: "unreadable image"}},
		// Would-be resurrection that must never be reached.
		{job: &Job{Status: StatusCompleted, Progress: 100}},
	}))

	var observed []Job
	_, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, func(job Job) {
		observed = append(observed, job)
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExtractionFailed))

	for _, job := range observed {
		assert.NotEqual(t, StatusCompleted, job.Status)
	}
}

func TestPoller_SingleTransportBlipTolerated(t *testing.T) {
	poller := newTestPoller(t, scriptedStatus([]pollStep{
		{job: &Job{Status: StatusProcessing, Progress: 10}},
		{err: fmt.Errorf("connection reset")},
		{job: &Job{Status: StatusCompleted, Progress: 100, Results: []RawItem{{"name": "Tibs"}}}},
	}))

	got, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestPoller_ConsecutiveTransportFailuresExhaust(t *testing.T) {
	var calls atomic.Int64
	status := func(ctx context.Context, handle JobHandle) (*Job, error) {
		calls.Add(1)
		return nil, fmt.Errorf("network down")
	}
	poller := newTestPoller(t, status)

	_, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodePollingExhausted))
	assert.Equal(t, int64(3), calls.Load())
}

func TestPoller_TransportCounterResetsOnSuccess(t *testing.T) {
	poller := newTestPoller(t, scriptedStatus([]pollStep{
		{err: fmt.Errorf("blip 1")},
		{err: fmt.Errorf("blip 2")},
		{job: &Job{Status: StatusProcessing, Progress: 50}},
		{err: fmt.Errorf("blip 3")},
		{err: fmt.Errorf("blip 4")},
		{job: &Job{Status: StatusCompleted, Progress: 100}},
	}))

	_, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, nil)
	assert.NoError(t, err)
}

func TestPoller_AuthErrorAbortsImmediately(t *testing.T) {
	var calls atomic.Int64
	status := func(ctx context.Context, handle JobHandle) (*Job, error) {
		calls.Add(1)
		return nil, errors.NewAuthError("token expired")
	}
	poller := newTestPoller(t, status)

	_, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAuth))
	assert.Equal(t, int64(1), calls.Load(), "auth errors are not retried automatically")
}

func TestPoller_MalformedCompletedResults(t *testing.T) {
	poller := newTestPoller(t, scriptedStatus([]pollStep{
		{job: &Job{Status: StatusCompleted, Progress: 100, Results: []RawItem{{"price": "90"}}}},
	}))

	_, err := poller.Run(context.Background(), JobHandle{JobID: "j1"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedResult))
}

// A late-resolving status response after cancellation must not reach the
// observer or mutate anything.
func TestPoller_CancellationSuppressesLateResponse(t *testing.T) {
	release := make(chan struct{})
	status := func(ctx context.Context, handle JobHandle) (*Job, error) {
		<-release // simulate an in-flight request resolving after cancel
		return &Job{Status: StatusCompleted, Progress: 100, Results: []RawItem{{"name": "x"}}}, nil
	}
	poller := newTestPoller(t, status)

	ctx, cancel := context.WithCancel(context.Background())

	var observeCalls atomic.Int64
	done := make(chan error, 1)
	go func() {
		_, err := poller.Run(ctx, JobHandle{JobID: "j1"}, func(job Job) {
			observeCalls.Add(1)
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond) // let the first tick enter status
	cancel()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
	assert.Equal(t, int64(0), observeCalls.Load(),
		"no observer call may happen after cancellation")
}

func TestPoller_CancellationBeforeNextTick(t *testing.T) {
	poller := NewPoller(scriptedStatus([]pollStep{
		{job: &Job{Status: StatusProcessing, Progress: 10}},
	}), PollerOptions{Interval: time.Hour, MaxTransportRetries: 3}, logger.NewTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := poller.Run(ctx, JobHandle{JobID: "j1"}, nil)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller kept waiting for the next tick after cancellation")
	}
}
