package classify

import (
	"context"
	"strings"

	"catalog/enricher/internal/ai"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/taxonomy"

	log "github.com/sirupsen/logrus"
)

// Input carries everything one classification pass works with.
type Input struct {
	Product       *domain.Product
	Brand         string
	BrandRoot     *domain.TaxonomyNode
	Whitelist     []domain.Leaf
	AITags        []string
	AICollections []string
}

// Strategy is one classifier in the ordered chain. It returns its slug picks
// and whether it is confident in them; a non-confident strategy defers to
// the next one in the chain.
type Strategy interface {
	Name() string
	Pick(ctx context.Context, in Input) ([]string, bool, error)
}

// genericSlugs are catch-all leaves an AI pick is allowed to name but which
// never count as a confident classification on their own.
var genericSlugs = map[string]bool{
	"ostatne":       true,
	"doplnky":       true,
	"prislusenstvo": true,
	"univerzalne":   true,
}

// isGeneric tolerates a brand prefix: "audi-ostatne" is as generic as
// "ostatne".
func isGeneric(slug string) bool {
	if genericSlugs[slug] {
		return true
	}
	for generic := range genericSlugs {
		if strings.HasSuffix(slug, "-"+generic) {
			return true
		}
	}
	return false
}

func whitelistSet(whitelist []domain.Leaf) map[string]bool {
	set := make(map[string]bool, len(whitelist))
	for _, leaf := range whitelist {
		set[leaf.Slug] = true
	}
	return set
}

func dedupe(slugs []string) []string {
	seen := make(map[string]bool, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out
}

// aiPickStrategy delegates to the generative service with the whitelist and
// filters the response against it. Defense in depth: anything not in the
// whitelist is discarded, never trusted blindly.
type aiPickStrategy struct {
	svc ai.Service
}

func (s *aiPickStrategy) Name() string { return "ai-pick" }

func (s *aiPickStrategy) Pick(ctx context.Context, in Input) ([]string, bool, error) {
	entries := make([]ai.WhitelistEntry, 0, len(in.Whitelist))
	for _, leaf := range in.Whitelist {
		entries = append(entries, ai.WhitelistEntry{Slug: leaf.Slug, Label: leaf.Label})
	}

	raw, err := s.svc.PickLeafSlugs(ctx, in.Product, entries)
	if err != nil {
		return nil, false, err
	}

	allowed := whitelistSet(in.Whitelist)
	var picks []string
	for _, slug := range raw {
		if allowed[slug] {
			picks = append(picks, slug)
		} else if slug != "" {
			log.Warnf("🚫 Discarding foreign slug %q from leaf pick response", slug)
		}
	}
	picks = dedupe(picks)

	// AI judgment wins as soon as it names anything non-generic.
	for _, slug := range picks {
		if !isGeneric(slug) {
			return picks, true, nil
		}
	}
	return picks, false, nil
}

// collectionNameStrategy resolves AI-suggested collection names from the
// enrichment response against the brand's subtree by normalized leaf name.
type collectionNameStrategy struct {
	store *taxonomy.Store
}

func (s *collectionNameStrategy) Name() string { return "ai-collection-names" }

func (s *collectionNameStrategy) Pick(_ context.Context, in Input) ([]string, bool, error) {
	allowed := whitelistSet(in.Whitelist)

	var picks []string
	for _, name := range in.AICollections {
		branch := s.store.FindBranchByLeafNameUnder(in.BrandRoot, name)
		if len(branch) == 0 {
			continue
		}
		leaf := branch[len(branch)-1]
		if leaf.NodeSlug != "" && allowed[leaf.NodeSlug] {
			picks = append(picks, leaf.NodeSlug)
		}
	}
	picks = dedupe(picks)
	return picks, len(picks) > 0, nil
}

// keywordStrategy is a small deterministic keyword→slug table, restricted to
// slugs present in the current whitelist.
type keywordStrategy struct{}

var keywordSlugTable = []struct {
	keyword string
	slug    string
}{
	{"koberc", "autokoberce"},
	{"rohoz", "autokoberce"},
	{"kufr", "vana-do-kufra"},
	{"kufor", "vana-do-kufra"},
	{"vana", "vana-do-kufra"},
	{"deflektor", "deflektory"},
	{"potah", "potahy-sedadiel"},
	{"navlek", "potahy-sedadiel"},
	{"osvetlen", "osvetlenie"},
	{"ziarovk", "osvetlenie"},
	{"spojler", "exterier"},
	{"lista", "exterier"},
	{"nalepk", "exterier"},
	{"opierk", "interier"},
}

func (s *keywordStrategy) Name() string { return "keyword-table" }

func (s *keywordStrategy) Pick(_ context.Context, in Input) ([]string, bool, error) {
	text := normalizedProductText(in.Product, in.AITags)

	for _, entry := range keywordSlugTable {
		slug := resolveWhitelistSlug(in.Whitelist, entry.slug)
		if slug == "" {
			continue
		}
		if strings.Contains(text, entry.keyword) {
			return []string{slug}, true, nil
		}
	}
	return nil, false, nil
}

// resolveWhitelistSlug matches a table slug against the whitelist, tolerating
// a brand prefix on the taxonomy side ("vana-do-kufra" matches
// "audi-vana-do-kufra").
func resolveWhitelistSlug(whitelist []domain.Leaf, slug string) string {
	for _, leaf := range whitelist {
		if leaf.Slug == slug || strings.HasSuffix(leaf.Slug, "-"+slug) {
			return leaf.Slug
		}
	}
	return ""
}

// tokenOverlapStrategy scores each whitelist leaf by counting word-boundary
// occurrences of its slug tokens in the normalized product text. The highest
// cumulative score above zero wins; ties resolve to the first-seen leaf.
type tokenOverlapStrategy struct{}

var tokenStopwords = map[string]bool{
	"auto": true,
	"pre":  true,
	"this": true,
	"with": true,
}

func (s *tokenOverlapStrategy) Name() string { return "token-overlap" }

func (s *tokenOverlapStrategy) Pick(_ context.Context, in Input) ([]string, bool, error) {
	text := normalizedProductText(in.Product, in.AITags)

	// The brand token is part of every slug in the whitelist and carries no
	// discriminative signal.
	brandToken := taxonomy.Normalize(in.Brand)

	bestSlug := ""
	bestScore := 0
	for _, leaf := range in.Whitelist {
		score := 0
		for _, token := range slugTokens(leaf.Slug) {
			if token == brandToken {
				continue
			}
			score += countWordMatches(text, token)
		}
		if score > bestScore {
			bestScore = score
			bestSlug = leaf.Slug
		}
	}

	if bestScore == 0 {
		return nil, false, nil
	}
	log.Debugf("Token overlap picked %q with score %d", bestSlug, bestScore)
	return []string{bestSlug}, true, nil
}

// slugTokens splits a slug into scoring tokens: word parts of at least four
// characters that are not stopwords.
func slugTokens(slug string) []string {
	parts := strings.FieldsFunc(slug, func(r rune) bool {
		return r == '-' || r == '_'
	})
	var tokens []string
	for _, part := range parts {
		if len(part) >= 4 && !tokenStopwords[part] {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

// countWordMatches counts whole-word occurrences of token in text. A plain
// index scan with explicit boundary checks, so adjacent occurrences separated
// by a single boundary character all count.
func countWordMatches(text, token string) int {
	if token == "" {
		return 0
	}

	count := 0
	for start := 0; ; {
		i := strings.Index(text[start:], token)
		if i < 0 {
			return count
		}
		pos := start + i
		end := pos + len(token)

		startsWord := pos == 0 || !isWordChar(text[pos-1])
		endsWord := end == len(text) || !isWordChar(text[end])
		if startsWord && endsWord {
			count++
		}
		start = pos + 1
	}
}

// isWordChar operates on bytes: the text is normalized to lowercase ASCII
// before scoring.
func isWordChar(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// tagFallbackStrategy derives a leaf from the product's own tags: the first
// tag resolving to a slugged node in the brand's subtree wins.
type tagFallbackStrategy struct {
	store *taxonomy.Store
}

func (s *tagFallbackStrategy) Name() string { return "tag-fallback" }

func (s *tagFallbackStrategy) Pick(_ context.Context, in Input) ([]string, bool, error) {
	allowed := whitelistSet(in.Whitelist)

	for _, tag := range in.Product.Tags {
		branch := s.store.FindBranchByLeafNameUnder(in.BrandRoot, tag)
		if len(branch) == 0 {
			continue
		}
		node := branch[len(branch)-1]
		if node.NodeSlug != "" && allowed[node.NodeSlug] {
			return []string{node.NodeSlug}, true, nil
		}
	}
	return nil, false, nil
}

func normalizedProductText(product *domain.Product, aiTags []string) string {
	parts := []string{product.Title, product.Vendor, ai.HTMLToText(product.BodyHTML)}
	parts = append(parts, product.Tags...)
	parts = append(parts, aiTags...)
	return taxonomy.Normalize(strings.Join(parts, " "))
}
