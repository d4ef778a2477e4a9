package domain

// Enrichment is the structured response of the generative text service for
// the copy-rewrite contract.
type Enrichment struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	BaseTags    []string         `json:"base_tags"`
	Subtags     []string         `json:"subtags"`
	ExtraTags   []string         `json:"extra_tags"`
	Collections []string         `json:"collections,omitempty"`
	Options     []EnrichedOption `json:"options"`
}

type EnrichedOption struct {
	Name     string   `json:"name"`
	Position int      `json:"position,omitempty"`
	Values   []string `json:"values,omitempty"`
}

// AllTags concatenates base, sub and extra tags in order.
func (e *Enrichment) AllTags() []string {
	tags := make([]string, 0, len(e.BaseTags)+len(e.Subtags)+len(e.ExtraTags))
	tags = append(tags, e.BaseTags...)
	tags = append(tags, e.Subtags...)
	tags = append(tags, e.ExtraTags...)
	return tags
}

// ReplacementValuesByPosition maps each enriched option's 1-based position to
// its replacement value list. Options without a position fall back to their
// index order; options without values are skipped.
func (e *Enrichment) ReplacementValuesByPosition() map[int][]string {
	replacements := make(map[int][]string)
	for i, opt := range e.Options {
		if len(opt.Values) == 0 {
			continue
		}
		position := opt.Position
		if position == 0 {
			position = i + 1
		}
		replacements[position] = opt.Values
	}
	return replacements
}
