package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/lysyi3m/cti-comb/app/connector"
	"github.com/lysyi3m/cti-comb/app/database"
	"github.com/lysyi3m/cti-comb/app/database/dbtest"
	"github.com/lysyi3m/cti-comb/app/enrich"
	"github.com/lysyi3m/cti-comb/app/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	a := Fingerprint("https://x/1", "Title", "body")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("https://x/1", "Title", "body"))
	assert.NotEqual(t, a, Fingerprint("https://x/2", "Title", "body"))
	assert.NotEqual(t, a, Fingerprint("https://x/1", "Title!", "body"))
	assert.NotEqual(t, a, Fingerprint("https://x/1", "Title", "body2"))

	assert.Equal(t,
		"d1d055d96806a64f7d8c38f4f48fe9b4a02a93cdf92d3d5dc0f1931c8bc9c249",
		Fingerprint("https://example.com/a", "Title", "body"))
}

func TestFingerprintIgnoresContentPastLimit(t *testing.T) {
	base := strings.Repeat("ж", 500)

	assert.Equal(t,
		Fingerprint("u", "t", base+"tail one"),
		Fingerprint("u", "t", base+"another tail"))
	assert.NotEqual(t,
		Fingerprint("u", "t", base[:len(base)-2]+"x"),
		Fingerprint("u", "t", base))
}

// fakeItems is an in-memory ItemRepository.
type fakeItems struct {
	mu        sync.Mutex
	stored    map[string]database.Item
	links     map[string][]string
	insertErr error
	// raceOnInsert makes InsertItem report a concurrent winner.
	raceOnInsert bool
}

func newFakeItems() *fakeItems {
	return &fakeItems{stored: map[string]database.Item{}, links: map[string][]string{}}
}

func (f *fakeItems) ExistsByFingerprint(_ context.Context, fp string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[fp]
	return ok, nil
}

func (f *fakeItems) InsertItem(_ context.Context, item database.Item, categoryIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.raceOnInsert {
		return database.ErrDuplicateFingerprint
	}
	if _, ok := f.stored[item.Fingerprint]; ok {
		return database.ErrDuplicateFingerprint
	}
	f.stored[item.Fingerprint] = item
	f.links[item.Fingerprint] = categoryIDs
	return nil
}

func (f *fakeItems) GetItemByFingerprint(_ context.Context, fp string) (*database.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.stored[fp]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeItems) GetItemStats(context.Context) (database.ItemStats, error) {
	return database.ItemStats{Total: len(f.stored)}, nil
}

func rawItem() connector.RawItem {
	return connector.RawItem{
		Title:   "Critical Log4j flaw CVE-2021-44228",
		Summary: "s",
		Content: "Apache log4j RCE",
		URL:     "https://example.com/log4shell",
	}
}

func TestPersistInsertsThenReportsDuplicate(t *testing.T) {
	items := newFakeItems()
	g := NewGateway(items)
	src := source.Config{ID: "src", VisibilityGroupIDs: []string{"g"}, CategoryIDs: []string{"c1", "c2"}}
	raw := rawItem()
	e := enrich.Enrich(raw.Title, raw.Summary, raw.Content)

	outcome, err := g.Persist(context.Background(), src, raw, e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	outcome, err = g.Persist(context.Background(), src, raw, e)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)

	require.Len(t, items.stored, 1)
	stored := items.stored[Fingerprint(raw.URL, raw.Title, raw.Content)]
	assert.Equal(t, "src", stored.SourceID)
	assert.Equal(t, source.VisibilityPublic, stored.VisibilityScope)
	assert.Equal(t, []string{"g"}, stored.VisibilityGroupIDs)
	assert.Equal(t, []string{"CVE-2021-44228"}, stored.CVEs)
	assert.Equal(t, "CRITICAL", stored.Severity)
	assert.Equal(t, []string{"c1", "c2"}, items.links[stored.Fingerprint])
}

func TestPersistTreatsLostRaceAsDuplicate(t *testing.T) {
	items := newFakeItems()
	items.raceOnInsert = true

	outcome, err := NewGateway(items).Persist(context.Background(), source.Config{ID: "s"}, rawItem(), enrich.Result{})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestPersistSurfacesOtherErrors(t *testing.T) {
	items := newFakeItems()
	items.insertErr = errors.New("disk full")

	_, err := NewGateway(items).Persist(context.Background(), source.Config{ID: "s"}, rawItem(), enrich.Result{})
	assert.ErrorContains(t, err, "disk full")
}

func TestPersistConcurrentSameItemSQLite(t *testing.T) {
	db := dbtest.OpenSQLite(t)
	src := dbtest.SeedSource(t, db, source.Config{
		ID: "feed", Name: "feed", Kind: source.KindRSS, URL: "https://example.com/feed",
		Enabled: true, Cron: "* * * * *", VisibilityScope: source.VisibilityPublic,
	}, "news")

	g := NewGateway(database.NewItemStore(db))
	raw := rawItem()
	e := enrich.Enrich(raw.Title, raw.Summary, raw.Content)

	const writers = 4
	outcomes := make(chan Outcome, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := g.Persist(context.Background(), src, raw, e)
			if err != nil {
				t.Errorf("persist failed: %v", err)
				return
			}
			outcomes <- outcome
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := map[Outcome]int{}
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[OutcomeInserted])
	assert.Equal(t, writers-1, counts[OutcomeDuplicate])

	stored, err := database.NewItemStore(db).GetItemByFingerprint(context.Background(), Fingerprint(raw.URL, raw.Title, raw.Content))
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, src.CategoryIDs, stored.CategoryIDs)
}
