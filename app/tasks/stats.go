package tasks

import (
	"sort"
	"sync"
	"time"
)

// SourceRun is the outcome of the last job of one source.
type SourceRun struct {
	SourceID   string        `json:"source_id"`
	Kind       string        `json:"kind,omitempty"`
	Status     string        `json:"status"`
	Fetched    int           `json:"fetched"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Errors     int           `json:"errors"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
	FinishedAt time.Time     `json:"finished_at"`
}

type StatsSnapshot struct {
	JobsCompleted int64       `json:"jobs_completed"`
	JobsFailed    int64       `json:"jobs_failed"`
	Inserted      int64       `json:"inserted"`
	Duplicates    int64       `json:"duplicates"`
	Errors        int64       `json:"errors"`
	LastRuns      []SourceRun `json:"last_runs"`
}

type Stats struct {
	mu   sync.Mutex
	snap StatsSnapshot
	last map[string]SourceRun
}

func NewStats() *Stats {
	return &Stats{last: make(map[string]SourceRun)}
}

func (s *Stats) Record(run SourceRun) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.Error == "" {
		s.snap.JobsCompleted++
	} else {
		s.snap.JobsFailed++
	}
	s.snap.Inserted += int64(run.Inserted)
	s.snap.Duplicates += int64(run.Duplicates)
	s.snap.Errors += int64(run.Errors)
	s.last[run.SourceID] = run
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snap
	snap.LastRuns = make([]SourceRun, 0, len(s.last))
	for _, run := range s.last {
		snap.LastRuns = append(snap.LastRuns, run)
	}
	sort.Slice(snap.LastRuns, func(i, j int) bool {
		return snap.LastRuns[i].SourceID < snap.LastRuns[j].SourceID
	})
	return snap
}
