package remap

import (
	"catalog/enricher/internal/domain"
)

// BuildVariantUpdates rewrites every variant's option values index-for-index
// from the old vocabulary to the new. For each selected value, the option's
// 1-based position selects the replacement list; the old value's index in
// the original value list selects the replacement value at the same index.
// A missing replacement list, or an old value absent from the original list,
// passes the value through unchanged. Variant identity survives a full
// vocabulary swap as long as cardinality and order are preserved.
func BuildVariantUpdates(product *domain.Product, replacements map[int][]string) []domain.VariantUpdate {
	updates := make([]domain.VariantUpdate, 0, len(product.Variants))

	for _, variant := range product.Variants {
		update := domain.VariantUpdate{VariantID: variant.ID}
		changed := false

		for _, selected := range variant.SelectedOptions {
			value := selected.Value

			if option := product.OptionByName(selected.Name); option != nil {
				if mapped, ok := mapValue(option, replacements, value); ok {
					value = mapped
					changed = changed || mapped != selected.Value
				}
			}
			update.Values = append(update.Values, value)
		}

		if changed {
			updates = append(updates, update)
		}
	}

	return updates
}

func mapValue(option *domain.Option, replacements map[int][]string, old string) (string, bool) {
	newValues, ok := replacements[option.Position]
	if !ok {
		return "", false
	}

	for i, original := range option.Values {
		if original == old {
			if i < len(newValues) {
				return newValues[i], true
			}
			// Replacement list shorter than the original: untranslated
			// passthrough, not an error.
			return "", false
		}
	}
	return "", false
}
