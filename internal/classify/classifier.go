package classify

import (
	"context"
	"fmt"

	"catalog/enricher/internal/ai"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/taxonomy"

	log "github.com/sirupsen/logrus"
)

// Classifier turns a product plus its AI enrichment into taxonomy leaf picks.
// The historical layering of AI-only, name, keyword and tag fallbacks is an
// explicit ordered chain here: each strategy either returns a confident
// result or defers to the next.
type Classifier struct {
	store      *taxonomy.Store
	strategies []Strategy
}

func NewClassifier(store *taxonomy.Store, svc ai.Service) *Classifier {
	return &Classifier{
		store: store,
		strategies: []Strategy{
			&aiPickStrategy{svc: svc},
			&collectionNameStrategy{store: store},
			&keywordStrategy{},
			&tokenOverlapStrategy{},
			&tagFallbackStrategy{store: store},
		},
	}
}

// Classify detects the product brand and runs the strategy chain against the
// brand subtree's leaves. With no detectable brand, or no taxonomy subtree
// for it, classification is skipped entirely: no error, no picks.
func (c *Classifier) Classify(ctx context.Context, product *domain.Product, enrichment *domain.Enrichment) (*domain.ClassificationResult, error) {
	aiTags := enrichment.AllTags()
	signals := append([]string{product.Vendor, product.Title}, product.Tags...)

	brands := DetectBrands(signals, aiTags)
	if len(brands) == 0 {
		log.Infof("ℹ️ No brand detected for product %d, skipping classification", product.ID)
		return &domain.ClassificationResult{}, nil
	}
	brand := brands[0]

	root := c.store.BrandRoot(brand)
	if root == nil {
		log.Warnf("⚠️ No taxonomy subtree for brand %q, skipping classification", brand)
		return &domain.ClassificationResult{DetectedBrand: brand}, nil
	}

	in := Input{
		Product:       product,
		Brand:         brand,
		BrandRoot:     root,
		Whitelist:     c.store.LeavesUnder(root),
		AITags:        aiTags,
		AICollections: enrichment.Collections,
	}

	// First confident strategy wins. The AI pick's raw (possibly generic)
	// slugs are kept as the last-resort result so a signal-free product
	// never gets a fabricated guess.
	var firstPicks []string
	firstStrategy := ""
	for _, strategy := range c.strategies {
		picks, confident, err := strategy.Pick(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("strategy %s failed: %w", strategy.Name(), err)
		}
		if confident {
			// Two or more brands in the signals suppress everything except
			// an explicit AI pick: brand-specific attachment from weaker
			// heuristics is too error-prone on multi-brand products.
			if len(brands) > 1 && strategy.Name() != "ai-pick" {
				log.Infof("ℹ️ Multiple brands %v detected, suppressing %s picks for product %d", brands, strategy.Name(), product.ID)
				return &domain.ClassificationResult{DetectedBrand: brand}, nil
			}
			log.Infof("✅ Strategy %s classified product %d into %v", strategy.Name(), product.ID, picks)
			return &domain.ClassificationResult{
				DetectedBrand: brand,
				LeafSlugPicks: picks,
				Strategy:      strategy.Name(),
			}, nil
		}
		if firstPicks == nil && len(picks) > 0 {
			firstPicks = picks
			firstStrategy = strategy.Name()
		}
	}

	if len(brands) > 1 && len(firstPicks) > 0 {
		log.Infof("ℹ️ Multiple brands %v detected, suppressing fallback picks for product %d", brands, product.ID)
		return &domain.ClassificationResult{DetectedBrand: brand}, nil
	}

	return &domain.ClassificationResult{
		DetectedBrand: brand,
		LeafSlugPicks: firstPicks,
		Strategy:      firstStrategy,
	}, nil
}

// BranchForSlug resolves one picked slug back to its root-to-leaf node path
// within the detected brand's subtree.
func (c *Classifier) BranchForSlug(brand, slug string) []*domain.TaxonomyNode {
	root := c.store.BrandRoot(brand)
	if root == nil {
		return nil
	}
	return c.store.FindBranchBySlug(root, slug)
}
