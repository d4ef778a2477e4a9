package ensure

import (
	"context"
	"encoding/json"
	"strconv"

	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/gateway"

	log "github.com/sirupsen/logrus"
)

// Metafield namespace and keys for the structural attributes written on each
// ensured collection.
const (
	TaxonomyNamespace = "taxonomy"
	KeyLevel          = "level"
	KeyParent         = "parent"
	KeyChildren       = "children"
	KeyNodeSlug       = "node_slug"
	KeyFacets         = "facets"
	KeySubcollections = "subcollections"
)

// Ensurer guarantees that every node of a classified branch has a remote
// collection: existing ones are reused, missing ones created, images
// assigned by convention, and the chain linked parent to child.
type Ensurer struct {
	gw     gateway.Gateway
	images *ImageFinder
}

func NewEnsurer(gw gateway.Gateway, images *ImageFinder) *Ensurer {
	return &Ensurer{gw: gw, images: images}
}

// EnsureBranch processes the branch root→leaf. A lookup/create failure ends
// the chain early (the nodes ensured so far are returned); image and
// metafield failures are best-effort and land in the diagnostics collector.
// Idempotent: re-ensuring the same logical branch yields the same
// collections and never duplicates them.
func (e *Ensurer) EnsureBranch(ctx context.Context, branch []*domain.TaxonomyNode, diags *domain.Diagnostics) []domain.EnsuredNode {
	ensured := make([]domain.EnsuredNode, 0, len(branch))

	for level, node := range branch {
		title := node.DisplayName()

		collection, err := e.gw.FindCollectionByTitle(ctx, title)
		if err != nil {
			diags.Add("ensure-lookup", title, err)
			log.Errorf("❌ Branch ensure stopped at %q: %v", title, err)
			break
		}
		if collection == nil {
			collection, err = e.gw.CreateCollection(ctx, title)
			if err != nil {
				diags.Add("ensure-create", title, err)
				log.Errorf("❌ Branch ensure stopped at %q: %v", title, err)
				break
			}
		}

		if !collection.HasImage() {
			e.assignImage(ctx, collection, node, diags)
		}

		ensured = append(ensured, domain.EnsuredNode{
			CollectionID: collection.ID,
			Title:        collection.Title,
			NodeSlug:     node.NodeSlug,
			Facets:       node.Facets,
			Level:        level,
		})
	}

	e.linkAndPersist(ctx, ensured, diags)
	return ensured
}

// assignImage resolves and sets a collection image. Never overwrites an
// existing image; failure is a best-effort diagnostic.
func (e *Ensurer) assignImage(ctx context.Context, collection *domain.Collection, node *domain.TaxonomyNode, diags *domain.Diagnostics) {
	src := e.images.Resolve(ctx, node.NodeSlug)
	if src == "" {
		return
	}
	if err := e.gw.SetCollectionImage(ctx, collection.ID, src); err != nil {
		diags.Add("ensure-image", collection.Title, err)
		log.Warnf("⚠️ Failed to assign image to collection %q: %v", collection.Title, err)
		return
	}
	log.Infof("🖼️ Assigned image %s to collection %q", src, collection.Title)
}

// linkAndPersist wires each ensured node to its immediate predecessor and
// successor within this branch only and writes the structural metadata. Each
// metafield write is independent and idempotent; a failure is logged and
// does not abort the loop.
func (e *Ensurer) linkAndPersist(ctx context.Context, ensured []domain.EnsuredNode, diags *domain.Diagnostics) {
	for i := range ensured {
		if i > 0 {
			ensured[i].ParentID = ensured[i-1].CollectionID
		}
		if i < len(ensured)-1 {
			ensured[i].ChildID = ensured[i+1].CollectionID
		}
	}

	for _, node := range ensured {
		e.writeMetafield(ctx, node, KeyLevel, "number_integer", strconv.Itoa(node.Level), diags)
		e.writeMetafield(ctx, node, KeyNodeSlug, "single_line_text_field", node.NodeSlug, diags)

		if node.ParentID != 0 {
			e.writeMetafield(ctx, node, KeyParent, "number_integer", strconv.FormatInt(node.ParentID, 10), diags)
		}
		if node.ChildID != 0 {
			children, _ := json.Marshal([]int64{node.ChildID})
			e.writeMetafield(ctx, node, KeyChildren, "json", string(children), diags)

			// Navigation list from parent to child, kept separate from the
			// structural children attribute.
			subcollections, _ := json.Marshal([]int64{node.ChildID})
			e.writeMetafield(ctx, node, KeySubcollections, "json", string(subcollections), diags)
		}
		if len(node.Facets) > 0 {
			facets, _ := json.Marshal(node.Facets)
			e.writeMetafield(ctx, node, KeyFacets, "json", string(facets), diags)
		}
	}
}

func (e *Ensurer) writeMetafield(ctx context.Context, node domain.EnsuredNode, key, mfType, value string, diags *domain.Diagnostics) {
	if value == "" {
		return
	}
	err := e.gw.UpsertCollectionMetafield(ctx, node.CollectionID, domain.Metafield{
		Namespace: TaxonomyNamespace,
		Key:       key,
		Type:      mfType,
		Value:     value,
	})
	if err != nil {
		diags.Add("ensure-metafield", node.Title+"/"+key, err)
		log.Warnf("⚠️ Failed to write metafield %s on collection %q: %v", key, node.Title, err)
	}
}
