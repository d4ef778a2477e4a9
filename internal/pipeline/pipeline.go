package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalog/enricher/internal/ai"
	"catalog/enricher/internal/attach"
	"catalog/enricher/internal/classify"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/ensure"
	"catalog/enricher/internal/gateway"
	"catalog/enricher/internal/lock"
	"catalog/enricher/internal/remap"
	"catalog/enricher/internal/repository"

	log "github.com/sirupsen/logrus"
)

// Outcome classifies one invocation's result for the webhook response.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeNotReady         Outcome = "not_ready"
	OutcomeInFlight         Outcome = "in_flight"
	OutcomeFailed           Outcome = "failed"
)

// Result summarizes one enrichment invocation.
type Result struct {
	Outcome             Outcome
	ProductID           int64
	Brand               string
	AttachedCollections []int64
	Diagnostics         []string
}

const (
	variantUpdateRetries    = 3
	variantUpdateRetryDelay = 2 * time.Second
)

// Pipeline runs one webhook invocation end to end: fetch, enrich, write
// back, classify, ensure, attach, mark processed. Single logical flow; all
// remote calls are serialized by the gateway's rate gate.
type Pipeline struct {
	gw         gateway.Gateway
	ai         ai.Service
	classifier *classify.Classifier
	ensurer    *ensure.Ensurer
	attacher   *attach.Attacher
	lock       lock.ProductLock
	runs       repository.RunRepository
}

func New(
	gw gateway.Gateway,
	aiService ai.Service,
	classifier *classify.Classifier,
	ensurer *ensure.Ensurer,
	attacher *attach.Attacher,
	productLock lock.ProductLock,
	runs repository.RunRepository,
) *Pipeline {
	return &Pipeline{
		gw:         gw,
		ai:         aiService,
		classifier: classifier,
		ensurer:    ensurer,
		attacher:   attacher,
		lock:       productLock,
		runs:       runs,
	}
}

// HandleProductEvent processes one product create/update event. No partial
// rollback is attempted: the processed flag is the LAST write, so a failed
// run is safely retried from scratch on redelivery.
func (p *Pipeline) HandleProductEvent(ctx context.Context, productID int64) (*Result, error) {
	started := time.Now()

	acquired, err := p.lock.Acquire(ctx, productID)
	if err != nil {
		log.Warnf("⚠️ Lock backend unavailable for product %d: %v", productID, err)
		acquired = true // dedup is best-effort, the processed flag still guards
	}
	if !acquired {
		log.Infof("ℹ️ Product %d enrichment already in flight, skipping", productID)
		return &Result{Outcome: OutcomeInFlight, ProductID: productID}, nil
	}
	defer func() {
		if err := p.lock.Release(context.WithoutCancel(ctx), productID); err != nil {
			log.Warnf("⚠️ Failed to release lock for product %d: %v", productID, err)
		}
	}()

	result, err := p.run(ctx, productID)

	// Failed invocations are journaled too, with the error as the only
	// diagnostic, so the audit trail shows more than successes.
	record := result
	if record == nil {
		record = &Result{Outcome: OutcomeFailed, ProductID: productID}
		if err != nil {
			record.Diagnostics = []string{err.Error()}
		}
	}
	p.saveRun(ctx, record, time.Since(started))

	return result, err
}

func (p *Pipeline) run(ctx context.Context, productID int64) (*Result, error) {
	diags := &domain.Diagnostics{}

	product, err := p.gw.WaitForProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotReady) {
			log.Warnf("⏳ Product %d not ready, deferring to redelivery", productID)
			return &Result{Outcome: OutcomeNotReady, ProductID: productID}, nil
		}
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	if product.MetafieldValue(gateway.ProcessedFlagNamespace, gateway.ProcessedFlagKey) == "true" {
		log.Infof("ℹ️ Product %d already processed, short-circuiting", productID)
		return &Result{Outcome: OutcomeAlreadyProcessed, ProductID: productID}, nil
	}

	log.Infof("🔄 Enriching product %d (%q)", productID, product.Title)

	enrichment, err := p.ai.EnrichProduct(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("enrichment failed for product %d: %w", productID, err)
	}

	if err := p.writeCoreUpdates(ctx, product, enrichment); err != nil {
		return nil, err
	}

	classification, err := p.classifier.Classify(ctx, product, enrichment)
	if err != nil {
		return nil, fmt.Errorf("classification failed for product %d: %w", productID, err)
	}

	attached := p.classifyAndAttach(ctx, product, classification, diags)

	// Anti-reprocessing guard, deliberately the last write.
	if err := p.gw.SetProcessedFlag(ctx, productID); err != nil {
		return nil, fmt.Errorf("failed to mark product %d processed: %w", productID, err)
	}

	log.Infof("✅ Product %d enriched (%d collections attached, %d diagnostics)", productID, len(attached), len(diags.Entries()))
	return &Result{
		Outcome:             OutcomeProcessed,
		ProductID:           productID,
		Brand:               classification.DetectedBrand,
		AttachedCollections: attached,
		Diagnostics:         diags.Strings(),
	}, nil
}

// writeCoreUpdates performs the mandatory writes: product fields, option
// names and variant values. Failures here fail the invocation.
func (p *Pipeline) writeCoreUpdates(ctx context.Context, product *domain.Product, enrichment *domain.Enrichment) error {
	update := domain.ProductFieldUpdate{
		Title:    enrichment.Title,
		BodyHTML: enrichment.Description,
		Tags:     enrichment.AllTags(),
	}
	if err := p.gw.UpdateProductFields(ctx, product.ID, update); err != nil {
		return fmt.Errorf("failed to write enriched fields to product %d: %w", product.ID, err)
	}

	if renamed := renamedOptions(product, enrichment); len(renamed) > 0 {
		if err := p.gw.UpdateOptionNames(ctx, product.ID, renamed); err != nil {
			return fmt.Errorf("failed to rename options on product %d: %w", product.ID, err)
		}
	}

	updates := remap.BuildVariantUpdates(product, enrichment.ReplacementValuesByPosition())
	for _, variantUpdate := range updates {
		if err := p.updateVariantWithRetry(ctx, variantUpdate); err != nil {
			return fmt.Errorf("failed to update variant %d on product %d: %w", variantUpdate.VariantID, product.ID, err)
		}
	}

	return nil
}

// renamedOptions returns the full option list with new names applied, or nil
// when no enriched option changes anything.
func renamedOptions(product *domain.Product, enrichment *domain.Enrichment) []domain.Option {
	options := append([]domain.Option(nil), product.Options...)
	changed := false

	for i, opt := range enrichment.Options {
		if opt.Name == "" {
			continue
		}
		position := opt.Position
		if position == 0 {
			position = i + 1
		}
		for j := range options {
			if options[j].Position == position && options[j].Name != opt.Name {
				options[j].Name = opt.Name
				changed = true
			}
		}
	}

	if !changed {
		return nil
	}
	return options
}

// updateVariantWithRetry retries the "not found yet" condition caused by
// read-after-write lag on freshly created variants.
func (p *Pipeline) updateVariantWithRetry(ctx context.Context, update domain.VariantUpdate) error {
	var err error
	for attempt := 1; attempt <= variantUpdateRetries; attempt++ {
		err = p.gw.UpdateVariantValues(ctx, update)
		if err == nil || !errors.Is(err, gateway.ErrNotFound) {
			return err
		}

		log.Debugf("Variant %d not visible yet (attempt %d/%d)", update.VariantID, attempt, variantUpdateRetries)
		if attempt < variantUpdateRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(variantUpdateRetryDelay):
			}
		}
	}
	return err
}

// classifyAndAttach ensures and attaches the branch for every picked leaf.
// Everything in here is best-effort relative to the invocation: failures
// land in diagnostics, the core enrichment stands either way.
func (p *Pipeline) classifyAndAttach(ctx context.Context, product *domain.Product, classification *domain.ClassificationResult, diags *domain.Diagnostics) []int64 {
	if classification.DetectedBrand == "" || len(classification.LeafSlugPicks) == 0 {
		return nil
	}

	var attached []int64
	for _, slug := range classification.LeafSlugPicks {
		branch := p.classifier.BranchForSlug(classification.DetectedBrand, slug)
		if len(branch) == 0 {
			diags.Add("classify-resolve", slug, fmt.Errorf("slug not found in %s subtree", classification.DetectedBrand))
			continue
		}

		ensured := p.ensurer.EnsureBranch(ctx, branch, diags)
		p.attacher.Attach(ctx, product.ID, ensured, diags)

		for _, node := range ensured {
			attached = append(attached, node.CollectionID)
		}
	}
	return attached
}

func (p *Pipeline) saveRun(ctx context.Context, result *Result, duration time.Duration) {
	record := repository.RunRecord{
		ProductID:   result.ProductID,
		Outcome:     string(result.Outcome),
		Brand:       result.Brand,
		Collections: result.AttachedCollections,
		Diagnostics: result.Diagnostics,
		Duration:    duration,
	}
	if err := p.runs.SaveRun(context.WithoutCancel(ctx), record); err != nil {
		log.Warnf("⚠️ Failed to save run record for product %d: %v", result.ProductID, err)
	}
}
