package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/cti-comb/app/connector"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/ingest"
	"github.com/lysyi3m/cti-comb/app/metrics"
	"github.com/lysyi3m/cti-comb/app/queue"
)

var _ WorkerInterface = (*Worker)(nil)

const (
	DefaultConcurrency  = 3
	DefaultFetchTimeout = 30 * time.Second
	DefaultJobTimeout   = 5 * time.Minute
	defaultPollWait     = time.Second
)

type WorkerOptions struct {
	Concurrency  int
	FetchTimeout time.Duration
	JobTimeout   time.Duration
	PollWait     time.Duration
}

// Worker runs a fixed number of goroutines consuming fetch jobs from the queue.
type Worker struct {
	queue        queue.Queue
	sources      database.SourceRepository
	registry     *connector.Registry
	gateway      *ingest.Gateway
	concurrency  int
	fetchTimeout time.Duration
	jobTimeout   time.Duration
	pollWait     time.Duration
	stats        *Stats
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewWorker(q queue.Queue, sources database.SourceRepository, registry *connector.Registry,
	gateway *ingest.Gateway, opts WorkerOptions) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		queue:        q,
		sources:      sources,
		registry:     registry,
		gateway:      gateway,
		concurrency:  opts.Concurrency,
		fetchTimeout: opts.FetchTimeout,
		jobTimeout:   opts.JobTimeout,
		pollWait:     opts.PollWait,
		stats:        NewStats(),
		ctx:          ctx,
		cancel:       cancel,
	}
	if w.concurrency <= 0 {
		w.concurrency = DefaultConcurrency
	}
	if w.fetchTimeout <= 0 {
		w.fetchTimeout = DefaultFetchTimeout
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = DefaultJobTimeout
	}
	if w.pollWait <= 0 {
		w.pollWait = defaultPollWait
	}
	return w
}

func (w *Worker) Start() {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
	slog.Info("Worker started", "concurrency", w.concurrency)
}

// Stop stops taking new jobs and waits for the running ones to finish.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	slog.Info("Worker stopped")
}

func (w *Worker) EnqueueSource(ctx context.Context, sourceID string) (queue.Job, error) {
	job := queue.NewFetchJob(sourceID)
	if err := w.queue.Enqueue(ctx, job); err != nil {
		return job, fmt.Errorf("failed to enqueue source %s: %w", sourceID, err)
	}
	return job, nil
}

func (w *Worker) Stats() StatsSnapshot {
	return w.stats.Snapshot()
}

func (w *Worker) worker(id int) {
	defer w.wg.Done()

	for {
		if w.ctx.Err() != nil {
			return
		}

		job, err := w.queue.Dequeue(w.ctx, w.pollWait)
		if err != nil {
			if w.ctx.Err() != nil || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			slog.Error("Failed to dequeue job", "worker_id", id, "error", err)
			w.sleep(w.pollWait)
			continue
		}
		if job == nil {
			continue
		}

		w.executeJob(id, *job)
	}
}

// executeJob detaches from the worker context so that Stop drains the job
// instead of cancelling it.
func (w *Worker) executeJob(workerID int, job queue.Job) SourceRun {
	task := NewFetchSourceTask(job.SourceID, job.ID, w.sources, w.registry, w.gateway, w.fetchTimeout)
	task.Start()

	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	err := task.Execute(ctx)

	result := task.Result()
	run := SourceRun{
		SourceID:   job.SourceID,
		Kind:       string(result.Kind),
		Status:     metrics.StatusCompleted,
		Fetched:    result.Fetched,
		Inserted:   result.Inserted,
		Duplicates: result.Duplicates,
		Errors:     result.Errors,
		Duration:   task.GetDuration(),
		FinishedAt: time.Now().UTC(),
	}

	if err != nil {
		run.Status = metrics.StatusFailed
		run.Error = err.Error()
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"source", job.SourceID,
			"terminal", IsTerminal(err),
			"error", err)
	}

	metrics.JobsProcessed.WithLabelValues(run.Status).Inc()
	w.stats.Record(run)
	return run
}

func (w *Worker) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.ctx.Done():
	case <-t.C:
	}
}
