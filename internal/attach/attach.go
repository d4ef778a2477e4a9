package attach

import (
	"context"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/gateway"

	log "github.com/sirupsen/logrus"
)

// Attacher associates a product with every collection of an ensured branch.
// Idempotent: membership is checked before creation, and a duplicate-create
// rejection from the remote store counts as success (the check-then-create
// race is tolerated).
type Attacher struct {
	gw      gateway.Gateway
	enabled bool
	dryRun  bool
}

func NewAttacher(gw gateway.Gateway, cfg config.AttachmentConfig) *Attacher {
	return &Attacher{
		gw:      gw,
		enabled: cfg.Enabled,
		dryRun:  cfg.DryRun,
	}
}

// Attach links the product to each branch collection. The kill-switch
// disables attachment entirely; dry-run logs intended attachments without
// performing them. Per-collection failures are best-effort diagnostics.
func (a *Attacher) Attach(ctx context.Context, productID int64, branch []domain.EnsuredNode, diags *domain.Diagnostics) {
	if !a.enabled {
		log.Infof("ℹ️ Collection attachment disabled, skipping %d collections for product %d", len(branch), productID)
		return
	}

	for _, node := range branch {
		if a.dryRun {
			log.Infof("🔎 [dry-run] Would attach product %d to collection %q (id %d)", productID, node.Title, node.CollectionID)
			continue
		}

		exists, err := a.gw.HasCollect(ctx, productID, node.CollectionID)
		if err != nil {
			diags.Add("attach-check", node.Title, err)
			continue
		}
		if exists {
			log.Debugf("Product %d already in collection %q", productID, node.Title)
			continue
		}

		if err := a.gw.CreateCollect(ctx, productID, node.CollectionID); err != nil {
			diags.Add("attach-create", node.Title, err)
			continue
		}
		log.Infof("✅ Attached product %d to collection %q", productID, node.Title)
	}
}
