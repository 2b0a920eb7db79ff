package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/database/dbtest"
	"github.com/lysyi3m/cti-comb/app/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSource(id string, enabled bool) source.Config {
	return source.Config{
		ID:                 id,
		Name:               "Source " + id,
		Kind:               source.KindGenericAPI,
		URL:                "https://example.com/" + id,
		Headers:            map[string]string{"Authorization": "Bearer t"},
		Mapping:            source.Mapping{"arrayPath": "data.items", "titleField": "t"},
		Enabled:            enabled,
		Cron:               "*/15 * * * *",
		VisibilityScope:    source.VisibilityGroups,
		VisibilityGroupIDs: []string{"g1", "g2"},
	}
}

func TestSQLiteRepositories(t *testing.T) {
	runRepositorySuite(t, dbtest.OpenSQLite(t))
}

func runRepositorySuite(t *testing.T, db *database.DB) {
	t.Run("sources", func(t *testing.T) { testSources(t, db) })
	t.Run("items", func(t *testing.T) { testItems(t, db) })
	t.Run("undecodable sources", func(t *testing.T) { testUndecodableSources(t, db) })
}

func testSources(t *testing.T, db *database.DB) {
	ctx := context.Background()
	sources := database.NewSourceStore(db)

	missing, err := sources.GetSource(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	stored := dbtest.SeedSource(t, db, sampleSource("alpha", true), "vulnerabilities", "advisories")
	dbtest.SeedSource(t, db, sampleSource("beta", false))

	assert.Equal(t, "Source alpha", stored.Name)
	assert.Equal(t, source.KindGenericAPI, stored.Kind)
	assert.Equal(t, "Bearer t", stored.Headers["Authorization"])
	assert.Equal(t, "data.items", stored.Mapping.String("arrayPath", ""))
	assert.Equal(t, []string{"g1", "g2"}, stored.VisibilityGroupIDs)
	assert.Len(t, stored.CategoryIDs, 2)
	assert.True(t, stored.Enabled)

	enabled, invalid, err := sources.ListEnabledSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, invalid)
	require.Len(t, enabled, 1)
	assert.Equal(t, "alpha", enabled[0].ID)
	assert.Len(t, enabled[0].CategoryIDs, 2)

	all, _, err := sources.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := sources.GetSourceCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	updated := sampleSource("beta", true)
	updated.Cron = "0 * * * *"
	require.NoError(t, sources.UpsertSource(ctx, updated))

	beta, err := sources.GetSource(ctx, "beta")
	require.NoError(t, err)
	assert.True(t, beta.Enabled)
	assert.Equal(t, "0 * * * *", beta.Cron)
	assert.Empty(t, beta.CategoryIDs)

	categories, err := database.NewCategoryStore(db).ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 2)

	again, err := database.NewCategoryStore(db).UpsertCategory(ctx, "advisories", "Advisories")
	require.NoError(t, err)
	assert.Contains(t, stored.CategoryIDs, again, "upsert by slug keeps the id")
}

func testUndecodableSources(t *testing.T, db *database.DB) {
	ctx := context.Background()
	sources := database.NewSourceStore(db)

	dbtest.SeedSource(t, db, sampleSource("good", true))
	dbtest.SeedSource(t, db, sampleSource("bad-headers", true))
	dbtest.SeedSource(t, db, sampleSource("bad-mapping", true))
	dbtest.SetSourceColumn(t, db, "bad-headers", "headers_json", `{"X-Limit": 5}`)
	dbtest.SetSourceColumn(t, db, "bad-mapping", "mapping_json", `["not", "an", "object"]`)

	enabled, invalid, err := sources.ListEnabledSources(ctx)
	require.NoError(t, err)

	var ids []string
	for _, cfg := range enabled {
		ids = append(ids, cfg.ID)
	}
	assert.Contains(t, ids, "good")
	assert.NotContains(t, ids, "bad-headers")
	assert.NotContains(t, ids, "bad-mapping")

	require.Len(t, invalid, 2)
	assert.Equal(t, "bad-headers", invalid[0].ID)
	assert.Equal(t, "bad-mapping", invalid[1].ID)
	for _, bad := range invalid {
		assert.ErrorIs(t, bad.Err, database.ErrInvalidSource)
	}

	_, invalid, err = sources.ListSources(ctx)
	require.NoError(t, err)
	assert.Len(t, invalid, 2)

	_, err = sources.GetSource(ctx, "bad-headers")
	assert.ErrorIs(t, err, database.ErrInvalidSource)
}

func testItems(t *testing.T, db *database.DB) {
	ctx := context.Background()
	items := database.NewItemStore(db)
	src := dbtest.SeedSource(t, db, sampleSource("gamma", true), "exploits")

	published := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	item := database.Item{
		SourceID:           src.ID,
		Title:              "CVE-2024-0001 in Tomcat",
		Summary:            "summary",
		Content:            "content",
		URL:                "https://example.com/a",
		PublishedAt:        &published,
		Raw:                json.RawMessage(`{"t":"x"}`),
		Fingerprint:        "fp-1",
		CVEs:               []string{"CVE-2024-0001"},
		Tags:               []string{"java"},
		Vendors:            []string{"Apache"},
		Products:           []string{"tomcat"},
		Severity:           "HIGH",
		VisibilityScope:    src.VisibilityScope,
		VisibilityGroupIDs: src.VisibilityGroupIDs,
	}

	exists, err := items.ExistsByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, items.InsertItem(ctx, item, src.CategoryIDs))

	exists, err = items.ExistsByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	assert.True(t, exists)

	err = items.InsertItem(ctx, item, src.CategoryIDs)
	assert.True(t, errors.Is(err, database.ErrDuplicateFingerprint), "got %v", err)

	stored, err := items.GetItemByFingerprint(ctx, "fp-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.ID)
	assert.Equal(t, "CVE-2024-0001 in Tomcat", stored.Title)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, stored.PublishedAt.Equal(published))
	assert.JSONEq(t, `{"t":"x"}`, string(stored.Raw))
	assert.Equal(t, []string{"CVE-2024-0001"}, stored.CVEs)
	assert.Equal(t, []string{}, stored.CWEs)
	assert.Equal(t, "HIGH", stored.Severity)
	assert.Equal(t, []string{"g1", "g2"}, stored.VisibilityGroupIDs)
	assert.Equal(t, src.CategoryIDs, stored.CategoryIDs)
	assert.False(t, stored.CollectedAt.IsZero())

	bare := database.Item{SourceID: src.ID, Title: "t", URL: "u", Fingerprint: "fp-2", VisibilityScope: "public"}
	require.NoError(t, items.InsertItem(ctx, bare, nil))

	storedBare, err := items.GetItemByFingerprint(ctx, "fp-2")
	require.NoError(t, err)
	assert.Nil(t, storedBare.PublishedAt)
	assert.Empty(t, storedBare.Severity)
	assert.Empty(t, storedBare.Raw)
	assert.Empty(t, storedBare.CategoryIDs)

	none, err := items.GetItemByFingerprint(ctx, "fp-missing")
	require.NoError(t, err)
	assert.Nil(t, none)

	stats, err := items.GetItemStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Sources)
	assert.NotNil(t, stats.LastSeen)
}

func TestInsertItemUnknownSourceIsNotDuplicate(t *testing.T) {
	db := dbtest.OpenSQLite(t)

	err := database.NewItemStore(db).InsertItem(context.Background(), database.Item{
		SourceID: "ghost", Title: "t", URL: "u", Fingerprint: "fp", VisibilityScope: "public",
	}, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, database.ErrDuplicateFingerprint))
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := database.Open(context.Background(), "oracle", "")
	assert.Error(t, err)
}
