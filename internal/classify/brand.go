package classify

import "strings"

// brandKeyword maps a text signal to the canonical brand label. Table order
// functions as tie-break priority: the first matching entry wins, so
// diacritic variants of the same brand sit next to each other and ambiguous
// short keywords come last.
type brandKeyword struct {
	keyword   string
	canonical string
}

var brandTable = []brandKeyword{
	{"škoda", "ŠKODA"},
	{"skoda", "ŠKODA"},
	{"volkswagen", "VOLKSWAGEN"},
	{"audi", "AUDI"},
	{"cupra", "CUPRA"},
	{"bmw", "BMW"},
	{"mercedes", "MERCEDES-BENZ"},
	{"peugeot", "PEUGEOT"},
	{"citroën", "CITROËN"},
	{"citroen", "CITROËN"},
	{"renault", "RENAULT"},
	{"toyota", "TOYOTA"},
	{"hyundai", "HYUNDAI"},
	{"kia", "KIA"},
	{"ford", "FORD"},
	{"opel", "OPEL"},
	{"seat", "SEAT"},
	{"vw", "VOLKSWAGEN"},
}

// DetectBrand scans vendor, title, tags and AI-suggested tags for the first
// brand keyword and returns its canonical label, or "" when nothing matches.
func DetectBrand(productText []string, aiTags []string) string {
	brands := DetectBrands(productText, aiTags)
	if len(brands) == 0 {
		return ""
	}
	return brands[0]
}

// DetectBrands returns every distinct canonical brand present in the text
// signals, in table priority order. Used by the multi-brand guard.
func DetectBrands(productText []string, aiTags []string) []string {
	haystack := strings.ToLower(strings.Join(append(append([]string{}, productText...), aiTags...), " "))

	var brands []string
	seen := make(map[string]bool)
	for _, entry := range brandTable {
		if seen[entry.canonical] {
			continue
		}
		if strings.Contains(haystack, entry.keyword) {
			brands = append(brands, entry.canonical)
			seen[entry.canonical] = true
		}
	}
	return brands
}
