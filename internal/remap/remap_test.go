package remap

import (
	"testing"

	"catalog/enricher/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product() *domain.Product {
	return &domain.Product{
		ID: 1,
		Options: []domain.Option{
			{ID: 10, Name: "Color", Position: 1, Values: []string{"Black", "White"}},
			{ID: 11, Name: "Size", Position: 2, Values: []string{"S", "M"}},
		},
		Variants: []domain.Variant{
			{ID: 100, SelectedOptions: []domain.SelectedOption{{Name: "Color", Value: "Black"}, {Name: "Size", Value: "S"}}},
			{ID: 101, SelectedOptions: []domain.SelectedOption{{Name: "Color", Value: "White"}, {Name: "Size", Value: "M"}}},
		},
	}
}

func TestBuildVariantUpdatesTranslatesPositionally(t *testing.T) {
	replacements := map[int][]string{
		1: {"čierna", "biela"},
	}

	updates := BuildVariantUpdates(product(), replacements)
	require.Len(t, updates, 2)

	assert.Equal(t, int64(100), updates[0].VariantID)
	assert.Equal(t, []string{"čierna", "S"}, updates[0].Values)
	assert.Equal(t, []string{"biela", "M"}, updates[1].Values)
}

func TestBuildVariantUpdatesValueAbsentPassesThrough(t *testing.T) {
	p := product()
	p.Variants = append(p.Variants, domain.Variant{
		ID:              102,
		SelectedOptions: []domain.SelectedOption{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}},
	})

	updates := BuildVariantUpdates(p, map[int][]string{1: {"čierna", "biela"}})

	var red *domain.VariantUpdate
	for i := range updates {
		if updates[i].VariantID == 102 {
			red = &updates[i]
		}
	}
	require.Nil(t, red, "variant with no translatable value must produce no update")
}

func TestBuildVariantUpdatesShortReplacementListPassesThrough(t *testing.T) {
	// Replacement list shorter than the original: "White" (index 1) has no
	// counterpart and stays untranslated.
	updates := BuildVariantUpdates(product(), map[int][]string{1: {"čierna"}})

	require.Len(t, updates, 1)
	assert.Equal(t, int64(100), updates[0].VariantID)
	assert.Equal(t, []string{"čierna", "S"}, updates[0].Values)
}

func TestBuildVariantUpdatesNoReplacementsNoUpdates(t *testing.T) {
	assert.Empty(t, BuildVariantUpdates(product(), nil))
}

func TestBuildVariantUpdatesBothPositions(t *testing.T) {
	replacements := map[int][]string{
		1: {"čierna", "biela"},
		2: {"malá", "stredná"},
	}

	updates := BuildVariantUpdates(product(), replacements)
	require.Len(t, updates, 2)
	assert.Equal(t, []string{"čierna", "malá"}, updates[0].Values)
	assert.Equal(t, []string{"biela", "stredná"}, updates[1].Values)
}
