package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultCapacity bounds the in-process job buffer.
const DefaultCapacity = 300

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueue keeps jobs and repeat entries in process. Jobs are lost on exit.
type MemoryQueue struct {
	jobs    chan Job
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	repeats map[string]RepeatEntry
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryQueue{
		jobs:    make(chan Job, capacity),
		done:    make(chan struct{}),
		repeats: make(map[string]RepeatEntry),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, wait time.Duration) (*Job, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	case <-timer.C:
		return nil, nil
	}
}

func (q *MemoryQueue) AddRepeatable(_ context.Context, entry RepeatEntry) error {
	entry, err := prepareEntry(entry, time.Now())
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.repeats[entry.Key] = entry
	return nil
}

func (q *MemoryQueue) RepeatableJobs(context.Context) ([]RepeatEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := make([]RepeatEntry, 0, len(q.repeats))
	for _, e := range q.repeats {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (q *MemoryQueue) RemoveRepeatable(_ context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.repeats, key)
	return nil
}

// PromoteDue fires each due entry once, however many fire times it missed.
func (q *MemoryQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	promoted := 0
	var firstErr error
	for key, entry := range q.repeats {
		if entry.Next.After(now) {
			continue
		}

		next, err := nextRun(entry.Pattern, now)
		if err != nil {
			delete(q.repeats, key)
			firstErr = firstError(firstErr, err)
			continue
		}
		entry.Next = next
		q.repeats[key] = entry

		if err := q.Enqueue(ctx, entry.job()); err != nil {
			firstErr = firstError(firstErr, fmt.Errorf("failed to enqueue %s: %w", key, err))
			continue
		}
		promoted++
	}
	return promoted, firstErr
}

func (q *MemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })
	return nil
}

// Len is the number of jobs waiting.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

func firstError(current, err error) error {
	if current != nil {
		return current
	}
	return err
}
