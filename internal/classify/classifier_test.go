package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"catalog/enricher/internal/ai"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/taxonomy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAI struct {
	picks        []string
	err          error
	gotWhitelist []ai.WhitelistEntry
}

func (f *fakeAI) EnrichProduct(context.Context, *domain.Product) (*domain.Enrichment, error) {
	return nil, nil
}

func (f *fakeAI) PickLeafSlugs(_ context.Context, _ *domain.Product, whitelist []ai.WhitelistEntry) ([]string, error) {
	f.gotWhitelist = whitelist
	return f.picks, f.err
}

func testStore(t *testing.T) *taxonomy.Store {
	t.Helper()
	definition := `[
		{
			"name": "AUDI",
			"children": [
				{"name": "AUDI Exteriér", "node_slug": "audi-exterier"},
				{"name": "AUDI Autokoberce", "node_slug": "audi-autokoberce"},
				{"name": "AUDI Ostatné", "node_slug": "ostatne"}
			]
		},
		{
			"name": "BMW",
			"children": [
				{"name": "BMW Exteriér", "node_slug": "bmw-exterier"}
			]
		}
	]`
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	require.NoError(t, os.WriteFile(path, []byte(definition), 0o644))
	store := taxonomy.NewStore(path)
	store.Load()
	return store
}

func TestDetectBrandCanonicalizesVariants(t *testing.T) {
	assert.Equal(t, "ŠKODA", DetectBrand([]string{"Koberce pre Škoda Octavia"}, nil))
	assert.Equal(t, "ŠKODA", DetectBrand([]string{"koberce pre skoda octavia"}, nil))
	assert.Equal(t, "AUDI", DetectBrand([]string{"Audi A4"}, nil))
	assert.Equal(t, "", DetectBrand([]string{"universal floor mats"}, nil))
}

func TestDetectBrandTableOrderIsPriority(t *testing.T) {
	// škoda precedes audi in the table, so it wins on a mixed signal.
	assert.Equal(t, "ŠKODA", DetectBrand([]string{"Škoda adapter for Audi"}, nil))
	assert.Equal(t, []string{"ŠKODA", "AUDI"}, DetectBrands([]string{"Škoda adapter for Audi"}, nil))
}

func TestClassifyAIPickFilteredAgainstWhitelist(t *testing.T) {
	svc := &fakeAI{picks: []string{"audi-exterier", "totally-foreign", "audi-exterier"}}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Spojler"}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Equal(t, "AUDI", result.DetectedBrand)
	assert.Equal(t, []string{"audi-exterier"}, result.LeafSlugPicks)
	assert.Equal(t, "ai-pick", result.Strategy)

	// The whitelist offered to the service covers the brand subtree only.
	slugs := make([]string, 0, len(svc.gotWhitelist))
	for _, entry := range svc.gotWhitelist {
		slugs = append(slugs, entry.Slug)
	}
	assert.ElementsMatch(t, []string{"audi-exterier", "audi-autokoberce", "ostatne"}, slugs)
}

func TestClassifyNoBrandSkipsEntirely(t *testing.T) {
	svc := &fakeAI{picks: []string{"audi-exterier"}}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Title: "Universal floor mats"}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Empty(t, result.DetectedBrand)
	assert.Empty(t, result.LeafSlugPicks)
}

func TestClassifyGenericPickFallsThroughToHeuristics(t *testing.T) {
	// AI names only the catch-all leaf; token overlap on the product text
	// still resolves the concrete leaf.
	svc := &fakeAI{picks: []string{"ostatne"}}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Exterier spojler"}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Equal(t, []string{"audi-exterier"}, result.LeafSlugPicks)
	assert.Equal(t, "token-overlap", result.Strategy)
}

func TestClassifyTagFallbackScenario(t *testing.T) {
	// Product tagged with a collection name and no AI picks: the fallback
	// derivation must resolve the AUDI Exteriér branch.
	svc := &fakeAI{picks: nil}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Tags: []string{"Audi", "Audi Exteriér"}}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	require.Equal(t, []string{"audi-exterier"}, result.LeafSlugPicks)

	branch := classifier.BranchForSlug(result.DetectedBrand, result.LeafSlugPicks[0])
	require.Len(t, branch, 2)
	assert.Equal(t, "AUDI", branch[0].DisplayName())
	assert.Equal(t, "AUDI Exteriér", branch[1].DisplayName())
}

func TestClassifyNoSignalReturnsNoPicks(t *testing.T) {
	svc := &fakeAI{picks: nil}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Produkt"}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Equal(t, "AUDI", result.DetectedBrand)
	assert.Empty(t, result.LeafSlugPicks, "never fabricate a guess without signal")
}

func TestClassifyMultiBrandSuppressesHeuristics(t *testing.T) {
	svc := &fakeAI{picks: nil}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Exterier spojler", Tags: []string{"BMW"}}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Empty(t, result.LeafSlugPicks)
}

func TestClassifyMultiBrandAIPickStillWins(t *testing.T) {
	svc := &fakeAI{picks: []string{"audi-exterier"}}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Spojler", Tags: []string{"BMW"}}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Equal(t, []string{"audi-exterier"}, result.LeafSlugPicks)
	assert.Equal(t, "ai-pick", result.Strategy)
}

func TestCountWordMatchesCountsEveryOccurrence(t *testing.T) {
	assert.Equal(t, 1, countWordMatches("koberce", "koberce"))
	assert.Equal(t, 2, countWordMatches("koberce koberce", "koberce"))
	assert.Equal(t, 3, countWordMatches("vana, vana a vana", "vana"))
	assert.Equal(t, 0, countWordMatches("autokoberce", "koberce"))
	assert.Equal(t, 0, countWordMatches("koberceko", "koberce"))
}

func TestTagFallbackScopedToBrandSubtree(t *testing.T) {
	// Both brands carry a leaf named "Sedačky"; resolution must stay inside
	// the detected brand's subtree even though the sibling's node comes
	// first in traversal order.
	definition := `[
		{"name": "AUDI", "children": [{"name": "Sedačky", "node_slug": "audi-potahy"}]},
		{"name": "BMW", "children": [{"name": "Sedačky", "node_slug": "bmw-potahy"}]}
	]`
	path := filepath.Join(t.TempDir(), "taxonomy.json")
	require.NoError(t, os.WriteFile(path, []byte(definition), 0o644))
	store := taxonomy.NewStore(path)
	store.Load()

	classifier := NewClassifier(store, &fakeAI{})
	product := &domain.Product{ID: 1, Vendor: "BMW", Tags: []string{"Sedačky"}}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Equal(t, []string{"bmw-potahy"}, result.LeafSlugPicks)
	assert.Equal(t, "tag-fallback", result.Strategy)
}

func TestKeywordTableToleratesBrandPrefixedSlugs(t *testing.T) {
	// The table names the bare "autokoberce" slug; the taxonomy carries it
	// with a brand prefix.
	svc := &fakeAI{picks: nil}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Gumové koberce A4"}
	result, err := classifier.Classify(context.Background(), product, &domain.Enrichment{})
	require.NoError(t, err)

	assert.Equal(t, []string{"audi-autokoberce"}, result.LeafSlugPicks)
	assert.Equal(t, "keyword-table", result.Strategy)
}

func TestCollectionNameStrategyResolvesEnrichmentNames(t *testing.T) {
	svc := &fakeAI{picks: nil}
	classifier := NewClassifier(testStore(t), svc)

	product := &domain.Product{ID: 1, Vendor: "Audi", Title: "Produkt"}
	enrichment := &domain.Enrichment{Collections: []string{"audi exterier"}}
	result, err := classifier.Classify(context.Background(), product, enrichment)
	require.NoError(t, err)

	assert.Equal(t, []string{"audi-exterier"}, result.LeafSlugPicks)
	assert.Equal(t, "ai-collection-names", result.Strategy)
}
