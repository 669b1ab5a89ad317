package ingest

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	ticks atomic.Int32
}

func (j *countingJob) Tick(ctx context.Context) {
	j.ticks.Add(1)
}

func TestScheduler_RunOnStartAndTrigger(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, time.Hour, true, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.ticks.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.Trigger()
	assert.Eventually(t, func() bool { return job.ticks.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_Ticks(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, 20*time.Millisecond, false, nil)

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return job.ticks.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := job.ticks.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, job.ticks.Load(), "no ticks after Stop")
}

func TestScheduler_StartErrors(t *testing.T) {
	s := NewScheduler(&countingJob{}, 0, false, nil)
	assert.Error(t, s.Start(context.Background()))

	s = NewScheduler(&countingJob{}, time.Hour, false, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorContains(t, s.Start(context.Background()), "already running")
	require.NoError(t, s.Stop(context.Background()))

	// Stopping twice is fine.
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_StopWaitsForTick(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	job := jobFunc(func(ctx context.Context) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	s := NewScheduler(job, time.Hour, true, nil)
	require.NoError(t, s.Start(context.Background()))
	<-started

	// Stop cancels the tick's context, so it returns without release.
	require.NoError(t, s.Stop(context.Background()))
}

type jobFunc func(ctx context.Context)

func (f jobFunc) Tick(ctx context.Context) { f(ctx) }

func TestConfig_EffectiveInterval(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Hour, cfg.EffectiveInterval(true))
	assert.Equal(t, 10*time.Second, cfg.EffectiveInterval(false))

	cfg.Interval = time.Minute
	assert.Equal(t, time.Minute, cfg.EffectiveInterval(true))
	assert.Equal(t, time.Minute, cfg.EffectiveInterval(false))
}

func TestConfig_EnvAndValidate(t *testing.T) {
	t.Setenv("STORYFEED_INGEST_INTERVAL", "90s")
	var cfg Config
	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 90*time.Second, cfg.Interval)
	assert.NoError(t, cfg.Validate())

	cfg.Admission = "item.points >"
	assert.Error(t, cfg.Validate())
}
