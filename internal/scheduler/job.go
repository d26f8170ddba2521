package scheduler

import (
	"context"
	"time"
)

// Job is one recurring task: a data refresh, a review or a cleanup
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run does one pass. A run that refreshes nothing at all fails;
	// partial success is success.
	Run(ctx context.Context) error

	// Schedule is a seconds-first cron spec, e.g. "0 30 15 * * MON-FRI"
	// (weekdays 15:30), or a descriptor such as "@weekly"
	Schedule() string
}

// JobResult is one run, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory is how many results are kept per job
const maxHistory = 100

// JobHistory is a bounded log of a job's runs, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a run and drops the oldest beyond maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = append([]JobResult(nil), h.Results[len(h.Results)-maxHistory:]...)
	}
}

// Latest returns up to n most recent runs, oldest first
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	return append([]JobResult{}, h.Results[len(h.Results)-n:]...)
}

// Counts returns successful and failed run totals
func (h *JobHistory) Counts() (succeeded, failed int) {
	for _, r := range h.Results {
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// SuccessRate is succeeded / runs, 0 with no runs
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	ok, _ := h.Counts()
	return float64(ok) / float64(len(h.Results))
}

// clone copies the log so callers never share the scheduler's slice
func (h *JobHistory) clone() *JobHistory {
	return &JobHistory{Results: append([]JobResult{}, h.Results...)}
}
