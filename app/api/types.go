package api

import (
	"context"

	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/queue"
	"github.com/lysyi3m/cti-comb/app/scheduler"
	"github.com/lysyi3m/cti-comb/app/tasks"
)

type ReconcilerInterface interface {
	Reconcile(ctx context.Context) (scheduler.ReconcileResult, error)
	Schedules(ctx context.Context) ([]queue.RepeatEntry, error)
}

var (
	_ tasks.WorkerInterface = (*tasks.Worker)(nil)
	_ ReconcilerInterface   = (*scheduler.Scheduler)(nil)
)

// Handler serves the trigger and operations endpoints. The worker enqueues
// in every mode and reports stats only where it consumes jobs. The
// scheduler is nil in processes that do not run it.
type Handler struct {
	sources   database.SourceRepository
	items     database.ItemRepository
	queue     queue.Queue
	worker    tasks.WorkerInterface
	scheduler ReconcilerInterface
	mode      string
	version   string
}
