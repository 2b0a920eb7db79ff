package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/cti-comb/app/connector"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/enrich"
	"github.com/lysyi3m/cti-comb/app/ingest"
	"github.com/lysyi3m/cti-comb/app/metrics"
	"github.com/lysyi3m/cti-comb/app/source"
)

var ErrSourceNotFound = errors.New("source not found")

// Result is the summary of one fetch job.
type Result struct {
	SourceID   string
	Kind       source.Kind
	Fetched    int
	Inserted   int
	Duplicates int
	Errors     int
}

type FetchSourceTask struct {
	Task
	sources      database.SourceRepository
	registry     *connector.Registry
	gateway      *ingest.Gateway
	fetchTimeout time.Duration
	result       Result
}

func NewFetchSourceTask(sourceID, jobID string, sources database.SourceRepository, registry *connector.Registry,
	gateway *ingest.Gateway, fetchTimeout time.Duration) *FetchSourceTask {
	return &FetchSourceTask{
		Task:         NewTask(TaskTypeFetchSource, sourceID, jobID),
		sources:      sources,
		registry:     registry,
		gateway:      gateway,
		fetchTimeout: fetchTimeout,
		result:       Result{SourceID: sourceID},
	}
}

func (t *FetchSourceTask) Result() Result {
	return t.result
}

func (t *FetchSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	src, err := t.sources.GetSource(ctx, t.SourceID)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}
	if src == nil {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, t.SourceID)
	}
	t.result.Kind = src.Kind

	conn, err := t.registry.Get(src.Kind)
	if err != nil {
		return err
	}

	items, err := t.fetch(ctx, conn, *src)
	if err != nil {
		return fmt.Errorf("failed to fetch source %s: %w", src.ID, err)
	}
	t.result.Fetched = len(items)

	for _, raw := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := enrich.Enrich(raw.Title, raw.Summary, raw.Content)
		outcome, err := t.gateway.Persist(ctx, *src, raw, e)
		if err != nil {
			t.result.Errors++
			metrics.ItemsProcessed.WithLabelValues(src.ID, "error").Inc()
			slog.Warn("Failed to persist item", "source", src.ID, "url", raw.URL, "error", err)
			continue
		}

		metrics.ItemsProcessed.WithLabelValues(src.ID, string(outcome)).Inc()
		switch outcome {
		case ingest.OutcomeInserted:
			t.result.Inserted++
		case ingest.OutcomeDuplicate:
			t.result.Duplicates++
		}
	}

	slog.Info("Task completed",
		"type", "FetchSource",
		"source", src.ID,
		"kind", string(src.Kind),
		"duration", t.GetDuration(),
		"total", t.result.Fetched,
		"inserted", t.result.Inserted,
		"duplicates", t.result.Duplicates,
		"errors", t.result.Errors)

	return nil
}

func (t *FetchSourceTask) fetch(ctx context.Context, conn connector.Connector, src source.Config) ([]connector.RawItem, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	defer cancel()

	started := time.Now()
	defer func() {
		metrics.FetchDuration.WithLabelValues(string(src.Kind)).Observe(time.Since(started).Seconds())
	}()

	return conn.Fetch(fetchCtx, src.URL, src.Headers, src.Mapping)
}

// IsTerminal reports errors that a rerun of the same job cannot fix.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrSourceNotFound) || errors.Is(err, connector.ErrUnknownKind)
}
