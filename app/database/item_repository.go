package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var _ ItemRepository = (*ItemStore)(nil)

var itemColumns = []string{
	"id", "source_id", "title", "summary", "content", "url", "published_at", "raw_json",
	"fingerprint", "cves", "cwes", "tags", "vendors", "products", "severity",
	"visibility_scope", "visibility_group_ids", "collected_at",
}

type ItemStore struct {
	db *DB
}

func NewItemStore(db *DB) *ItemStore {
	return &ItemStore{db: db}
}

func (r *ItemStore) ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	query, args, err := r.db.sb.Select("1").From("items").Where(sq.Eq{"fingerprint": fingerprint}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build fingerprint query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return true, nil
}

func (r *ItemStore) InsertItem(ctx context.Context, item Item, categoryIDs []string) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CollectedAt.IsZero() {
		item.CollectedAt = time.Now().UTC()
	}

	var published sql.NullTime
	if item.PublishedAt != nil {
		published = sql.NullTime{Time: item.PublishedAt.UTC(), Valid: true}
	}

	var severity sql.NullString
	if item.Severity != "" {
		severity = sql.NullString{String: item.Severity, Valid: true}
	}

	query, args, err := r.db.sb.Insert("items").
		Columns(itemColumns...).
		Values(item.ID, item.SourceID, item.Title, item.Summary, item.Content, item.URL, published,
			nullableJSON(item.Raw), item.Fingerprint,
			encodeList(item.CVEs), encodeList(item.CWEs), encodeList(item.Tags),
			encodeList(item.Vendors), encodeList(item.Products), severity,
			item.VisibilityScope, encodeList(item.VisibilityGroupIDs), item.CollectedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build item insert: %w", err)
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isFingerprintViolation(err) {
				return ErrDuplicateFingerprint
			}
			return fmt.Errorf("failed to insert item: %w", err)
		}

		for _, categoryID := range categoryIDs {
			query, args, err := r.db.sb.Insert("item_categories").
				Columns("item_id", "category_id").
				Values(item.ID, categoryID).
				Suffix("ON CONFLICT DO NOTHING").
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build category link: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to link item to category %s: %w", categoryID, err)
			}
		}
		return nil
	})
}

// GetItemByFingerprint returns nil, nil when no item matches.
func (r *ItemStore) GetItemByFingerprint(ctx context.Context, fingerprint string) (*Item, error) {
	query, args, err := r.db.sb.Select(itemColumns...).From("items").Where(sq.Eq{"fingerprint": fingerprint}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build item query: %w", err)
	}

	item, err := scanItem(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	query, args, err = r.db.sb.Select("category_id").From("item_categories").
		Where(sq.Eq{"item_id": item.ID}).OrderBy("category_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build category query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load item categories: %w", err)
	}
	defer rows.Close()

	item.CategoryIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item category: %w", err)
		}
		item.CategoryIDs = append(item.CategoryIDs, id)
	}
	return item, rows.Err()
}

func (r *ItemStore) GetItemStats(ctx context.Context) (ItemStats, error) {
	var stats ItemStats

	query, args, err := r.db.sb.Select("COUNT(*)", "COUNT(DISTINCT source_id)").From("items").ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build stats query: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&stats.Total, &stats.Sources); err != nil {
		return stats, fmt.Errorf("failed to count items: %w", err)
	}

	// Plain column select keeps the declared type, which sqlite needs to
	// return a time value.
	query, args, err = r.db.sb.Select("collected_at").From("items").OrderBy("collected_at DESC").Limit(1).ToSql()
	if err != nil {
		return stats, fmt.Errorf("failed to build stats query: %w", err)
	}

	var last time.Time
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return stats, fmt.Errorf("failed to get last collection time: %w", err)
	default:
		stats.LastSeen = &last
	}

	return stats, nil
}

func scanItem(row rowScanner) (*Item, error) {
	var (
		item                                Item
		published                           sql.NullTime
		raw, severity                       sql.NullString
		cves, cwes, tags, vendors, products string
		groups                              string
	)

	err := row.Scan(&item.ID, &item.SourceID, &item.Title, &item.Summary, &item.Content, &item.URL,
		&published, &raw, &item.Fingerprint, &cves, &cwes, &tags, &vendors, &products, &severity,
		&item.VisibilityScope, &groups, &item.CollectedAt)
	if err != nil {
		return nil, err
	}

	if published.Valid {
		t := published.Time
		item.PublishedAt = &t
	}
	if raw.Valid {
		item.Raw = []byte(raw.String)
	}
	item.Severity = severity.String

	for _, col := range []struct {
		raw string
		dst *[]string
	}{
		{cves, &item.CVEs},
		{cwes, &item.CWEs},
		{tags, &item.Tags},
		{vendors, &item.Vendors},
		{products, &item.Products},
		{groups, &item.VisibilityGroupIDs},
	} {
		list, err := decodeList(col.raw)
		if err != nil {
			return nil, err
		}
		*col.dst = list
	}

	return &item, nil
}
