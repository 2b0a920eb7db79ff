package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

var _ CategoryRepository = (*CategoryStore)(nil)

type CategoryStore struct {
	db *DB
}

func NewCategoryStore(db *DB) *CategoryStore {
	return &CategoryStore{db: db}
}

func (r *CategoryStore) UpsertCategory(ctx context.Context, slug, name string) (string, error) {
	query, args, err := r.db.sb.Insert("categories").
		Columns("id", "name", "slug").
		Values(uuid.NewString(), name, slug).
		Suffix("ON CONFLICT (slug) DO UPDATE SET name = excluded.name RETURNING id").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build category upsert: %w", err)
	}

	var id string
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to upsert category %s: %w", slug, err)
	}
	return id, nil
}

func (r *CategoryStore) ListCategories(ctx context.Context) ([]Category, error) {
	query, args, err := r.db.sb.Select("id", "name", "slug").From("categories").OrderBy("slug").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build category query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
