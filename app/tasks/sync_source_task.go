package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/source"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SyncSourceTask writes one YAML source definition into the store together
// with its categories.
type SyncSourceTask struct {
	Task
	Definition *source.Definition
	sources    database.SourceRepository
	categories database.CategoryRepository
}

func NewSyncSourceTask(def *source.Definition, sources database.SourceRepository,
	categories database.CategoryRepository) *SyncSourceTask {
	return &SyncSourceTask{
		Task:       NewTask(TaskTypeSyncSource, def.ID, ""),
		Definition: def,
		sources:    sources,
		categories: categories,
	}
}

func (t *SyncSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	cfg, err := t.Definition.Config()
	if err != nil {
		return fmt.Errorf("invalid source definition %s: %w", t.SourceID, err)
	}

	categoryIDs := make([]string, 0, len(t.Definition.Categories))
	for _, slug := range t.Definition.Categories {
		slug = strings.TrimSpace(strings.ToLower(slug))
		if slug == "" {
			continue
		}
		id, err := t.categories.UpsertCategory(ctx, slug, categoryName(slug))
		if err != nil {
			return fmt.Errorf("failed to sync category %s: %w", slug, err)
		}
		categoryIDs = append(categoryIDs, id)
	}

	if err := t.sources.UpsertSource(ctx, cfg); err != nil {
		slog.Error("Task failed", "type", "SyncSource", "source", t.SourceID, "error", err)
		return fmt.Errorf("failed to sync source to database: %w", err)
	}

	if err := t.sources.SetSourceCategories(ctx, cfg.ID, categoryIDs); err != nil {
		return fmt.Errorf("failed to link categories of %s: %w", cfg.ID, err)
	}

	slog.Info("Task completed",
		"type", "SyncSource",
		"source", t.SourceID,
		"kind", string(cfg.Kind),
		"categories", len(categoryIDs),
		"duration", t.GetDuration())

	return nil
}

// categoryName turns a slug like "threat-intel" into "Threat Intel".
func categoryName(slug string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(slug))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
