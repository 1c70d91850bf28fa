// internal/schedule/scheduler_test.go
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

type countingJob struct {
	name  string
	runs  atomic.Int32
	block chan struct{}
	err   error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

func TestAddJob_InvalidSpec(t *testing.T) {
	s := NewCronScheduler()
	err := s.AddJob(&countingJob{name: "retrain"}, "not a cron spec")
	require.Error(t, err)
}

func TestAddJob_Duplicate(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "retrain"}, "@hourly"))
	require.Error(t, s.AddJob(&countingJob{name: "retrain"}, "@daily"))

	next, ok := s.Next("retrain")
	require.True(t, ok)
	_ = next

	_, ok = s.Next("missing")
	assert.False(t, ok)
}

func TestWrap_RunsJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "retrain", err: errors.New("boom")}

	run := s.wrap(job, "@every 1m")
	run()
	run()
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestWrap_SkipsWhileRunning(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "retrain", block: make(chan struct{})}
	run := s.wrap(job, "@every 1m")

	done := make(chan struct{})
	go func() {
		run()
		close(done)
	}()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Overlapping tick is dropped.
	run()
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	<-done
	run()
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestStartStop(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "retrain"}
	require.NoError(t, s.AddJob(job, "@every 1s"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	require.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	s.Stop()
}
