package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/lysyi3m/cti-comb/app/connector"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/enrich"
	"github.com/lysyi3m/cti-comb/app/source"
)

type Outcome string

const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeDuplicate Outcome = "duplicate"
)

// Gateway turns enriched raw items into stored items, at most once per
// fingerprint.
type Gateway struct {
	items database.ItemRepository
}

func NewGateway(items database.ItemRepository) *Gateway {
	return &Gateway{items: items}
}

// Persist stores raw under src unless its fingerprint is already known. The
// unique index settles races between concurrent jobs; losing one is reported
// as a duplicate.
func (g *Gateway) Persist(ctx context.Context, src source.Config, raw connector.RawItem, e enrich.Result) (Outcome, error) {
	fp := Fingerprint(raw.URL, raw.Title, raw.Content)

	exists, err := g.items.ExistsByFingerprint(ctx, fp)
	if err != nil {
		return "", fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if exists {
		return OutcomeDuplicate, nil
	}

	item := database.Item{
		SourceID:           src.ID,
		Title:              raw.Title,
		Summary:            raw.Summary,
		Content:            raw.Content,
		URL:                raw.URL,
		PublishedAt:        raw.PublishedAt,
		Raw:                raw.Raw,
		Fingerprint:        fp,
		CVEs:               e.CVEs,
		CWEs:               e.CWEs,
		Tags:               e.Tags,
		Vendors:            e.Vendors,
		Products:           e.Products,
		Severity:           string(e.Severity),
		VisibilityScope:    visibilityScope(src),
		VisibilityGroupIDs: src.VisibilityGroupIDs,
	}

	err = g.items.InsertItem(ctx, item, src.CategoryIDs)
	if errors.Is(err, database.ErrDuplicateFingerprint) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to store item: %w", err)
	}

	return OutcomeInserted, nil
}

func visibilityScope(src source.Config) string {
	if src.VisibilityScope == "" {
		return source.VisibilityPublic
	}
	return src.VisibilityScope
}
