package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/metrics"
	"github.com/lysyi3m/cti-comb/app/queue"
)

const (
	reconcileTimeout = time.Minute
	retryInterval    = 30 * time.Second
)

type ReconcileResult struct {
	Removed   int       `json:"removed"`
	Scheduled []string  `json:"scheduled"`
	Skipped   []string  `json:"skipped"`
	At        time.Time `json:"at"`
}

// Scheduler owns the repeatable jobs of the queue. Reconcile replaces them
// wholesale with one entry per enabled source.
type Scheduler struct {
	queue    queue.Queue
	sources  database.SourceRepository
	interval time.Duration
	retry    time.Duration
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(q queue.Queue, sources database.SourceRepository, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		queue:    q,
		sources:  sources,
		interval: interval,
		retry:    retryInterval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start reconciles once and, with a positive interval, keeps reconciling
// in the background. A failed startup reconcile leaves the existing
// schedules in place and is retried until it succeeds.
func (s *Scheduler) Start() {
	reconciled := s.reconcile("Startup reconcile failed")
	if reconciled && s.interval <= 0 {
		return
	}

	s.wg.Add(1)
	go s.loop(reconciled)
}

func (s *Scheduler) loop(reconciled bool) {
	defer s.wg.Done()

	for {
		delay := s.interval
		if !reconciled {
			if delay <= 0 || delay > s.retry {
				delay = s.retry
			}
		} else if delay <= 0 {
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		msg := "Periodic reconcile failed"
		if !reconciled {
			msg = "Startup reconcile retry failed"
		}
		if s.reconcile(msg) {
			reconciled = true
		}
	}
}

func (s *Scheduler) reconcile(failureMsg string) bool {
	ctx, cancel := context.WithTimeout(s.ctx, reconcileTimeout)
	defer cancel()

	if _, err := s.Reconcile(ctx); err != nil {
		slog.Error(failureMsg, "error", err)
		return false
	}
	return true
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Reconcile loads the enabled sources before touching the queue, so a
// failed listing keeps the current schedules.
func (s *Scheduler) Reconcile(ctx context.Context) (ReconcileResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := ReconcileResult{Scheduled: []string{}, Skipped: []string{}}

	sources, invalid, err := s.sources.ListEnabledSources(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list enabled sources: %w", err)
	}
	for _, bad := range invalid {
		result.Skipped = append(result.Skipped, bad.ID)
	}

	entries := make([]queue.RepeatEntry, 0, len(sources))
	for _, src := range sources {
		if !queue.ValidPattern(src.Cron) {
			slog.Debug("Source has no valid cron, not scheduling", "source", src.ID, "cron", src.Cron)
			result.Skipped = append(result.Skipped, src.ID)
			continue
		}
		entries = append(entries, queue.RepeatEntry{
			Key:      queue.RepeatKey(src.ID),
			Name:     queue.JobFetchSource,
			SourceID: src.ID,
			Pattern:  src.Cron,
		})
	}

	existing, err := s.queue.RepeatableJobs(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list repeatable jobs: %w", err)
	}
	for _, entry := range existing {
		if err := s.queue.RemoveRepeatable(ctx, entry.Key); err != nil {
			return result, fmt.Errorf("failed to remove repeatable job %s: %w", entry.Key, err)
		}
		result.Removed++
	}

	for _, entry := range entries {
		if err := s.queue.AddRepeatable(ctx, entry); err != nil {
			return result, fmt.Errorf("failed to schedule source %s: %w", entry.SourceID, err)
		}
		slog.Debug("Scheduled source", "source", entry.SourceID, "cron", entry.Pattern)
		result.Scheduled = append(result.Scheduled, entry.SourceID)
	}

	result.At = time.Now().UTC()
	metrics.ScheduledSources.Set(float64(len(result.Scheduled)))
	slog.Info("Reconciled schedules",
		"removed", result.Removed,
		"scheduled", len(result.Scheduled),
		"skipped", len(result.Skipped))

	return result, nil
}

func (s *Scheduler) Schedules(ctx context.Context) ([]queue.RepeatEntry, error) {
	return s.queue.RepeatableJobs(ctx)
}
