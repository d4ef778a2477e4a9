package ensure

import (
	"context"
	"testing"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/gateway/gatewaytest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func branch() []*domain.TaxonomyNode {
	return []*domain.TaxonomyNode{
		{Name: "AUDI"},
		{Name: "AUDI Interiér"},
		{Name: "AUDI Autokoberce", NodeSlug: "audi-autokoberce", Facets: []string{"interier", "koberce"}},
	}
}

func newEnsurer(fake *gatewaytest.Fake) *Ensurer {
	images := NewImageFinder(config.ImagesConfig{DefaultFile: "collection-default.webp"}, fake)
	return NewEnsurer(fake, images)
}

func TestEnsureBranchCreatesChainWithLevels(t *testing.T) {
	fake := gatewaytest.New()
	diags := &domain.Diagnostics{}

	ensured := newEnsurer(fake).EnsureBranch(context.Background(), branch(), diags)
	require.Len(t, ensured, 3)

	// Levels are exactly 0..n-1 with no gaps.
	for i, node := range ensured {
		assert.Equal(t, i, node.Level)
	}

	// ParentID/ChildID form a simple path, no branching, no cycles.
	assert.Zero(t, ensured[0].ParentID)
	assert.Equal(t, ensured[0].CollectionID, ensured[1].ParentID)
	assert.Equal(t, ensured[1].CollectionID, ensured[2].ParentID)
	assert.Equal(t, ensured[1].CollectionID, ensured[0].ChildID)
	assert.Equal(t, ensured[2].CollectionID, ensured[1].ChildID)
	assert.Zero(t, ensured[2].ChildID)

	assert.Equal(t, 3, fake.CallCount("CreateCollection"))
	assert.Equal(t, "0", fake.CollectionMetafield(ensured[0].CollectionID, TaxonomyNamespace, KeyLevel))
	assert.Equal(t, "2", fake.CollectionMetafield(ensured[2].CollectionID, TaxonomyNamespace, KeyLevel))
	assert.Equal(t, "audi-autokoberce", fake.CollectionMetafield(ensured[2].CollectionID, TaxonomyNamespace, KeyNodeSlug))
	assert.NotEmpty(t, fake.CollectionMetafield(ensured[0].CollectionID, TaxonomyNamespace, KeySubcollections))
}

func TestEnsureBranchIsIdempotent(t *testing.T) {
	fake := gatewaytest.New()
	ensurer := newEnsurer(fake)

	first := ensurer.EnsureBranch(context.Background(), branch(), &domain.Diagnostics{})
	second := ensurer.EnsureBranch(context.Background(), branch(), &domain.Diagnostics{})

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].CollectionID, second[i].CollectionID)
	}

	// Re-ensuring reuses collections instead of duplicating them.
	assert.Equal(t, 3, fake.CallCount("CreateCollection"))
	assert.Len(t, fake.Collections, 3)
}

func TestEnsureBranchReusesByNormalizedTitle(t *testing.T) {
	fake := gatewaytest.New()
	existing, err := fake.CreateCollection(context.Background(), "audi autokoberce")
	require.NoError(t, err)

	ensured := newEnsurer(fake).EnsureBranch(context.Background(), branch(), &domain.Diagnostics{})
	require.Len(t, ensured, 3)
	assert.Equal(t, existing.ID, ensured[2].CollectionID)
}

func TestEnsureBranchImageFailureIsBestEffort(t *testing.T) {
	fake := gatewaytest.New()
	fake.Files = []domain.File{{Filename: "collection-default.webp", URL: "https://cdn.example.com/collection-default.webp"}}
	fake.FailSetImage = true
	diags := &domain.Diagnostics{}

	ensured := newEnsurer(fake).EnsureBranch(context.Background(), branch(), diags)

	require.Len(t, ensured, 3, "image failures must not shorten the branch")
	assert.False(t, diags.Empty())
}

func TestEnsureBranchMetafieldFailureDoesNotAbort(t *testing.T) {
	fake := gatewaytest.New()
	fake.FailMetafieldWrite = true
	diags := &domain.Diagnostics{}

	ensured := newEnsurer(fake).EnsureBranch(context.Background(), branch(), diags)

	require.Len(t, ensured, 3)
	assert.False(t, diags.Empty())
	// Every node was still ensured and linked in memory.
	assert.Equal(t, ensured[0].CollectionID, ensured[1].ParentID)
}

func TestEnsureBranchNeverOverwritesExistingImage(t *testing.T) {
	fake := gatewaytest.New()
	existing, err := fake.CreateCollection(context.Background(), "AUDI")
	require.NoError(t, err)
	existing.Image = &domain.CollectionImage{Src: "https://cdn.example.com/original.webp"}
	fake.Files = []domain.File{{Filename: "collection-default.webp", URL: "https://cdn.example.com/new.webp"}}

	newEnsurer(fake).EnsureBranch(context.Background(), branch(), &domain.Diagnostics{})

	assert.Equal(t, "https://cdn.example.com/original.webp", existing.Image.Src)
}
