package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/taxonomy"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

type collectionEnvelope struct {
	Collection domain.Collection `json:"custom_collection"`
}

type collectionsEnvelope struct {
	Collections []domain.Collection `json:"custom_collections"`
}

type collectsEnvelope struct {
	Collects []domain.Collect `json:"collects"`
}

// FindCollectionByTitle looks a collection up by title: exact match against
// the remote store first, then a normalized-equality scan over the listing,
// then a prefix-tolerant fallback. Hits are cached by normalized title for
// the process lifetime; the cache never returns stale ids because collections
// are never deleted by this system.
func (c *catalogClient) FindCollectionByTitle(ctx context.Context, title string) (*domain.Collection, error) {
	normalized := taxonomy.Normalize(title)

	c.titleCacheMutex.RLock()
	id, cached := c.titleCache[normalized]
	c.titleCacheMutex.RUnlock()
	if cached {
		return c.GetCollection(ctx, id)
	}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("title", title).
			SetResult(&collectionsEnvelope{}).
			Get("/custom_collections.json")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find collection %q: %w", title, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to find collection %q: %w", title, err)
	}

	envelope, _ := resp.Result().(*collectionsEnvelope)
	if envelope != nil {
		if match := matchByTitle(envelope.Collections, normalized); match != nil {
			c.rememberTitle(normalized, match.ID)
			return match, nil
		}
	}

	// The title-filtered query missed; scan the listing for a normalized or
	// prefix match before concluding the collection does not exist.
	all, err := c.listCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections while resolving %q: %w", title, err)
	}
	if match := matchByTitle(all, normalized); match != nil {
		c.rememberTitle(normalized, match.ID)
		return match, nil
	}

	return nil, nil
}

func matchByTitle(collections []domain.Collection, normalized string) *domain.Collection {
	for i := range collections {
		if taxonomy.Normalize(collections[i].Title) == normalized {
			return &collections[i]
		}
	}
	for i := range collections {
		if strings.HasPrefix(taxonomy.Normalize(collections[i].Title), normalized) {
			return &collections[i]
		}
	}
	return nil
}

func (c *catalogClient) rememberTitle(normalized string, id int64) {
	c.titleCacheMutex.Lock()
	if _, exists := c.titleCache[normalized]; !exists {
		c.titleCache[normalized] = id
	}
	c.titleCacheMutex.Unlock()
}

func (c *catalogClient) listCollections(ctx context.Context) ([]domain.Collection, error) {
	var all []domain.Collection
	sinceID := int64(0)

	for {
		resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
			return c.httpClient.R().
				SetContext(ctx).
				SetQueryParam("limit", "250").
				SetQueryParam("since_id", strconv.FormatInt(sinceID, 10)).
				SetResult(&collectionsEnvelope{}).
				Get("/custom_collections.json")
		})
		if err != nil {
			return nil, err
		}
		if err := c.checkStatus(resp); err != nil {
			return nil, err
		}

		envelope, _ := resp.Result().(*collectionsEnvelope)
		if envelope == nil || len(envelope.Collections) == 0 {
			return all, nil
		}

		all = append(all, envelope.Collections...)
		sinceID = envelope.Collections[len(envelope.Collections)-1].ID

		if len(envelope.Collections) < 250 {
			return all, nil
		}
	}
}

func (c *catalogClient) CreateCollection(ctx context.Context, title string) (*domain.Collection, error) {
	payload := map[string]map[string]string{"custom_collection": {"title": title}}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			SetResult(&collectionEnvelope{}).
			Post("/custom_collections.json")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", title, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to create collection %q: %w", title, err)
	}

	envelope, ok := resp.Result().(*collectionEnvelope)
	if !ok || envelope.Collection.ID == 0 {
		return nil, fmt.Errorf("failed to create collection %q: empty response", title)
	}

	log.Infof("✅ Created collection %q (id %d)", title, envelope.Collection.ID)
	c.rememberTitle(taxonomy.Normalize(title), envelope.Collection.ID)
	return &envelope.Collection, nil
}

func (c *catalogClient) GetCollection(ctx context.Context, id int64) (*domain.Collection, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetResult(&collectionEnvelope{}).
			Get(fmt.Sprintf("/custom_collections/%d.json", id))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collection %d: %w", id, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch collection %d: %w", id, err)
	}

	envelope, ok := resp.Result().(*collectionEnvelope)
	if !ok || envelope.Collection.ID == 0 {
		return nil, fmt.Errorf("failed to fetch collection %d: empty response", id)
	}
	return &envelope.Collection, nil
}

func (c *catalogClient) SetCollectionImage(ctx context.Context, id int64, src string) error {
	payload := map[string]map[string]any{"custom_collection": {
		"id":    id,
		"image": map[string]string{"src": src},
	}}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			Put(fmt.Sprintf("/custom_collections/%d.json", id))
	})
	if err != nil {
		return fmt.Errorf("failed to set image on collection %d: %w", id, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to set image on collection %d: %w", id, err)
	}
	return nil
}

// UpsertCollectionMetafield writes one namespaced attribute on a collection.
// Each write is independent and idempotent: an existing metafield under the
// same namespace/key is updated in place.
func (c *catalogClient) UpsertCollectionMetafield(ctx context.Context, collectionID int64, mf domain.Metafield) error {
	existing, err := c.findCollectionMetafield(ctx, collectionID, mf.Namespace, mf.Key)
	if err != nil {
		return fmt.Errorf("failed to look up metafield %s.%s on collection %d: %w", mf.Namespace, mf.Key, collectionID, err)
	}

	var fn func(ctx context.Context) (*resty.Response, error)
	if existing != nil {
		mf.ID = existing.ID
		fn = func(ctx context.Context) (*resty.Response, error) {
			return c.httpClient.R().
				SetContext(ctx).
				SetBody(map[string]domain.Metafield{"metafield": mf}).
				Put(fmt.Sprintf("/metafields/%d.json", existing.ID))
		}
	} else {
		fn = func(ctx context.Context) (*resty.Response, error) {
			return c.httpClient.R().
				SetContext(ctx).
				SetBody(map[string]domain.Metafield{"metafield": mf}).
				Post(fmt.Sprintf("/collections/%d/metafields.json", collectionID))
		}
	}

	resp, err := c.do(ctx, fn)
	if err != nil {
		return fmt.Errorf("failed to upsert metafield %s.%s on collection %d: %w", mf.Namespace, mf.Key, collectionID, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to upsert metafield %s.%s on collection %d: %w", mf.Namespace, mf.Key, collectionID, err)
	}
	return nil
}

func (c *catalogClient) findCollectionMetafield(ctx context.Context, collectionID int64, namespace, key string) (*domain.Metafield, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("namespace", namespace).
			SetQueryParam("key", key).
			SetResult(&metafieldsEnvelope{}).
			Get(fmt.Sprintf("/collections/%d/metafields.json", collectionID))
	})
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	envelope, _ := resp.Result().(*metafieldsEnvelope)
	if envelope == nil {
		return nil, nil
	}
	for i := range envelope.Metafields {
		if envelope.Metafields[i].Namespace == namespace && envelope.Metafields[i].Key == key {
			return &envelope.Metafields[i], nil
		}
	}
	return nil, nil
}

func (c *catalogClient) HasCollect(ctx context.Context, productID, collectionID int64) (bool, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("product_id", strconv.FormatInt(productID, 10)).
			SetQueryParam("collection_id", strconv.FormatInt(collectionID, 10)).
			SetResult(&collectsEnvelope{}).
			Get("/collects.json")
	})
	if err != nil {
		return false, fmt.Errorf("failed to check membership product=%d collection=%d: %w", productID, collectionID, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return false, fmt.Errorf("failed to check membership product=%d collection=%d: %w", productID, collectionID, err)
	}

	envelope, _ := resp.Result().(*collectsEnvelope)
	return envelope != nil && len(envelope.Collects) > 0, nil
}

// CreateCollect attaches the product to the collection. A duplicate-creation
// rejection from the remote store counts as success: membership exists either
// way, and the check-then-create race is tolerated.
func (c *catalogClient) CreateCollect(ctx context.Context, productID, collectionID int64) error {
	payload := map[string]domain.Collect{"collect": {
		ProductID:    productID,
		CollectionID: collectionID,
	}}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			Post("/collects.json")
	})
	if err != nil {
		return fmt.Errorf("failed to attach product %d to collection %d: %w", productID, collectionID, err)
	}

	if resp.StatusCode() == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(resp.String()), "already exists") {
		log.Debugf("Product %d already attached to collection %d", productID, collectionID)
		return nil
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to attach product %d to collection %d: %w", productID, collectionID, err)
	}
	return nil
}
