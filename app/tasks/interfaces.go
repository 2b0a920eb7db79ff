package tasks

import (
	"context"

	"github.com/lysyi3m/cti-comb/app/queue"
)

// WorkerInterface is what the entrypoint and the HTTP API need from the
// ingestion worker. The API enqueues through it in every process mode.
//
//	worker := NewWorker(q, sources, registry, gateway, opts)
//	worker.Start()
//	defer worker.Stop()
//	worker.EnqueueSource(ctx, "nvd-feed")
type WorkerInterface interface {
	Start()
	Stop()
	EnqueueSource(ctx context.Context, sourceID string) (queue.Job, error)
	Stats() StatsSnapshot
}
