package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicebigrose/stock-analysis-system/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	failures int // fail this many times, then succeed

	mu    sync.Mutex
	calls int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }

func (j *stubJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	if j.calls <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func newTestScheduler() *Scheduler {
	return New(logger.Nop(), WithRetry(2, time.Millisecond), WithTimeout(time.Second))
}

func TestAddJob(t *testing.T) {
	tests := []struct {
		name    string
		job     *stubJob
		wantErr string
	}{
		{"weekday close", &stubJob{name: "prices", schedule: "0 30 15 * * MON-FRI"}, ""},
		{"descriptor", &stubJob{name: "daily", schedule: "@daily"}, ""},
		{"five fields rejected", &stubJob{name: "bad", schedule: "30 15 * * *"}, "failed to schedule job bad"},
		{"garbage", &stubJob{name: "junk", schedule: "whenever"}, "failed to schedule job junk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler()
			err := s.AddJob(tt.job)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, s.GetAllJobs())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tt.job.name}, s.GetAllJobs())
		})
	}
}

func TestAddJobDuplicate(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}))

	err := s.AddJob(&stubJob{name: "a", schedule: "@daily"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "b", schedule: "@hourly"}))
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))
}

func TestRunJobRetries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "flaky", schedule: "@daily", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, job.calls)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.Equal(t, 3, history.Results[0].Attempts)
	assert.Equal(t, 1.0, history.SuccessRate())

	history.Results[0].Success = false
	again, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	assert.True(t, again.Results[0].Success, "history is returned as a copy")
}

func TestRunJobExhaustsRetries(t *testing.T) {
	s := newTestScheduler()
	job := &stubJob{name: "broken", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "broken")
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
	assert.Equal(t, 3, job.calls, "one attempt plus two retries")

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
	assert.Nil(t, stats.LastSuccess)
}

func TestRunJobUnknown(t *testing.T) {
	s := newTestScheduler()
	_, err := s.RunJob(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRunJobCancelledStopsRetrying(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := &stubJob{name: "slow", schedule: "@daily", failures: 10}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := s.RunJob(ctx, "slow")
	require.Error(t, err)
	assert.Equal(t, 1, job.calls)
	assert.Equal(t, context.DeadlineExceeded.Error(), result.Error)
}

func TestJobStatsNextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&stubJob{name: "a", schedule: "@hourly"}))

	before := s.GetJobStats()["a"].NextRun
	require.NotNil(t, before, "next run is parsed from the schedule before Start")
	assert.True(t, before.After(time.Now()))
	assert.False(t, before.After(time.Now().Add(time.Hour)))

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.GetJobStats()["a"].NextRun != nil
	}, time.Second, 10*time.Millisecond)

	stats := s.GetJobStats()["a"]
	assert.Equal(t, "@hourly", stats.Schedule)
	assert.True(t, stats.NextRun.After(time.Now()))
}

func TestJobHistoryTrims(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.Latest(5), 5)
	assert.Len(t, h.Latest(500), maxHistory)
	ok, failed := h.Counts()
	assert.Equal(t, maxHistory/2, ok)
	assert.Equal(t, maxHistory/2, failed)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
	assert.Empty(t, (&JobHistory{}).Latest(3))
}
