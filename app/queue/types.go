package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobFetchSource is the only job the pipeline knows about.
const JobFetchSource = "fetch-source"

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

type Job struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SourceID   string    `json:"sourceId"`
	RepeatKey  string    `json:"repeatKey,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// NewFetchJob addresses a one-off fetch of a source.
func NewFetchJob(sourceID string) Job {
	return Job{
		ID:         uuid.NewString(),
		Name:       JobFetchSource,
		SourceID:   sourceID,
		EnqueuedAt: time.Now().UTC(),
	}
}

// RepeatEntry is a registered recurring job. Next is the upcoming fire time.
type RepeatEntry struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	SourceID string    `json:"sourceId"`
	Pattern  string    `json:"pattern"`
	Next     time.Time `json:"next"`
}

// RepeatKey is the stable key of the recurring fetch of a source.
func RepeatKey(sourceID string) string {
	return "scheduled-" + sourceID
}

func (e RepeatEntry) job() Job {
	j := NewFetchJob(e.SourceID)
	j.Name = e.Name
	j.RepeatKey = e.Key
	return j
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Dequeue waits up to wait for a job and returns nil, nil on timeout.
	Dequeue(ctx context.Context, wait time.Duration) (*Job, error)

	// AddRepeatable registers or replaces the entry under entry.Key. A zero
	// Next is computed from the pattern.
	AddRepeatable(ctx context.Context, entry RepeatEntry) error
	RepeatableJobs(ctx context.Context) ([]RepeatEntry, error)
	RemoveRepeatable(ctx context.Context, key string) error
	// PromoteDue enqueues a job for every entry due at now and re-arms it.
	PromoteDue(ctx context.Context, now time.Time) (int, error)

	Close() error
}
