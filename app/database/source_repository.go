package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/lysyi3m/cti-comb/app/source"
)

var _ SourceRepository = (*SourceStore)(nil)

var sourceColumns = []string{
	"id", "name", "kind", "url", "schedule_cron", "enabled",
	"mapping_json", "headers_json", "visibility_scope", "visibility_group_ids",
}

// SourceStore reads source configurations and writes them for seeding.
type SourceStore struct {
	db *DB
}

func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SourceStore) GetSource(ctx context.Context, id string) (*source.Config, error) {
	query, args, err := r.db.sb.Select(sourceColumns...).From("sources").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build source query: %w", err)
	}

	cfg, err := scanSource(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source %s: %w", id, err)
	}

	links, err := r.categoryLinks(ctx, sq.Eq{"source_id": id})
	if err != nil {
		return nil, err
	}
	cfg.CategoryIDs = links[id]

	return cfg, nil
}

func (r *SourceStore) ListSources(ctx context.Context) ([]source.Config, []InvalidSource, error) {
	return r.list(ctx, nil)
}

func (r *SourceStore) ListEnabledSources(ctx context.Context) ([]source.Config, []InvalidSource, error) {
	return r.list(ctx, sq.Eq{"enabled": true})
}

func (r *SourceStore) list(ctx context.Context, where sq.Sqlizer) ([]source.Config, []InvalidSource, error) {
	builder := r.db.sb.Select(sourceColumns...).From("sources").OrderBy("id")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build source query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var (
		sources []source.Config
		invalid []InvalidSource
	)
	for rows.Next() {
		cfg, err := scanSource(rows)
		if errors.Is(err, ErrInvalidSource) {
			slog.Warn("Skipping source with undecodable configuration", "source", cfg.ID, "error", err)
			invalid = append(invalid, InvalidSource{ID: cfg.ID, Err: err})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate sources: %w", err)
	}

	links, err := r.categoryLinks(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	for i := range sources {
		sources[i].CategoryIDs = links[sources[i].ID]
	}

	return sources, invalid, nil
}

func (r *SourceStore) GetSourceCount(ctx context.Context) (int, error) {
	query, args, err := r.db.sb.Select("COUNT(*)").From("sources").ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sources: %w", err)
	}
	return count, nil
}

func (r *SourceStore) UpsertSource(ctx context.Context, cfg source.Config) error {
	mapping, err := encodeObject(cfg.Mapping)
	if err != nil {
		return err
	}
	headers, err := encodeObject(cfg.Headers)
	if err != nil {
		return err
	}

	query, args, err := r.db.sb.Insert("sources").
		Columns(sourceColumns...).
		Values(cfg.ID, cfg.Name, string(cfg.Kind), cfg.URL, cfg.Cron, cfg.Enabled,
			mapping, headers, cfg.VisibilityScope, encodeList(cfg.VisibilityGroupIDs)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			url = excluded.url,
			schedule_cron = excluded.schedule_cron,
			enabled = excluded.enabled,
			mapping_json = excluded.mapping_json,
			headers_json = excluded.headers_json,
			visibility_scope = excluded.visibility_scope,
			visibility_group_ids = excluded.visibility_group_ids,
			updated_at = CURRENT_TIMESTAMP`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build source upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert source %s: %w", cfg.ID, err)
	}
	return nil
}

// SetSourceCategories replaces the category links of a source.
func (r *SourceStore) SetSourceCategories(ctx context.Context, sourceID string, categoryIDs []string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := r.db.sb.Delete("source_categories").Where(sq.Eq{"source_id": sourceID}).ToSql()
		if err != nil {
			return fmt.Errorf("failed to build category unlink: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to unlink categories of %s: %w", sourceID, err)
		}

		for _, categoryID := range categoryIDs {
			query, args, err := r.db.sb.Insert("source_categories").
				Columns("source_id", "category_id").
				Values(sourceID, categoryID).
				Suffix("ON CONFLICT DO NOTHING").
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build category link: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to link category %s to %s: %w", categoryID, sourceID, err)
			}
		}
		return nil
	})
}

func (r *SourceStore) categoryLinks(ctx context.Context, where sq.Sqlizer) (map[string][]string, error) {
	builder := r.db.sb.Select("source_id", "category_id").From("source_categories").OrderBy("source_id", "category_id")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build category query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load source categories: %w", err)
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var sourceID, categoryID string
		if err := rows.Scan(&sourceID, &categoryID); err != nil {
			return nil, fmt.Errorf("failed to scan source category: %w", err)
		}
		links[sourceID] = append(links[sourceID], categoryID)
	}
	return links, rows.Err()
}

func scanSource(row rowScanner) (*source.Config, error) {
	var (
		cfg                      source.Config
		kind                     string
		mapping, headers, groups string
	)

	err := row.Scan(&cfg.ID, &cfg.Name, &kind, &cfg.URL, &cfg.Cron, &cfg.Enabled,
		&mapping, &headers, &cfg.VisibilityScope, &groups)
	if err != nil {
		return nil, err
	}

	// Unknown kinds are kept verbatim so dispatch can reject them per job.
	if parsed, err := source.ParseKind(kind); err == nil {
		cfg.Kind = parsed
	} else {
		cfg.Kind = source.Kind(kind)
	}

	if err := decodeObject(mapping, &cfg.Mapping); err != nil {
		return &cfg, fmt.Errorf("%w %s: mapping: %w", ErrInvalidSource, cfg.ID, err)
	}
	if err := decodeObject(headers, &cfg.Headers); err != nil {
		return &cfg, fmt.Errorf("%w %s: headers: %w", ErrInvalidSource, cfg.ID, err)
	}
	if cfg.VisibilityGroupIDs, err = decodeList(groups); err != nil {
		return &cfg, fmt.Errorf("%w %s: visibility groups: %w", ErrInvalidSource, cfg.ID, err)
	}

	return &cfg, nil
}
