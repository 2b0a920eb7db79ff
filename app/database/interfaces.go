package database

import (
	"context"

	"github.com/lysyi3m/cti-comb/app/source"
)

type SourceRepository interface {
	// GetSource returns nil, nil when no source has the id.
	GetSource(ctx context.Context, id string) (*source.Config, error)
	// The list queries skip rows that fail to decode and report them
	// separately. The error is reserved for the store itself.
	ListSources(ctx context.Context) ([]source.Config, []InvalidSource, error)
	ListEnabledSources(ctx context.Context) ([]source.Config, []InvalidSource, error)
	GetSourceCount(ctx context.Context) (int, error)

	UpsertSource(ctx context.Context, cfg source.Config) error
	SetSourceCategories(ctx context.Context, sourceID string, categoryIDs []string) error
}

type ItemRepository interface {
	ExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error)
	// InsertItem stores the item and links it to categoryIDs atomically.
	// A fingerprint collision yields ErrDuplicateFingerprint.
	InsertItem(ctx context.Context, item Item, categoryIDs []string) error
	GetItemByFingerprint(ctx context.Context, fingerprint string) (*Item, error)
	GetItemStats(ctx context.Context) (ItemStats, error)
}

type CategoryRepository interface {
	// UpsertCategory returns the id of the category with slug, creating it if needed.
	UpsertCategory(ctx context.Context, slug, name string) (string, error)
	ListCategories(ctx context.Context) ([]Category, error)
}
