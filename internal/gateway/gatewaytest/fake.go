package gatewaytest

import (
	"context"
	"fmt"
	"sync"

	"catalog/enricher/internal/domain"
	"catalog/enricher/internal/gateway"
	"catalog/enricher/internal/taxonomy"
)

// Fake is an in-memory gateway.Gateway for tests. It records every call by
// name so tests can assert on what was (not) written.
type Fake struct {
	mu sync.Mutex

	Products    map[int64]*domain.Product
	Collections map[int64]*domain.Collection
	Collects    []domain.Collect
	Metafields  map[int64][]domain.Metafield
	Files       []domain.File
	Processed   map[int64]bool

	// PendingReads makes GetProduct fail with ErrNotFound this many times
	// per product before serving it, emulating read-after-write lag.
	PendingReads map[int64]int

	FailSetImage       bool
	FailMetafieldWrite bool

	Calls      []string
	nextID     int64
	FieldWrite domain.ProductFieldUpdate
	Options    []domain.Option
	Variants   []domain.VariantUpdate
}

var _ gateway.Gateway = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		Products:     make(map[int64]*domain.Product),
		Collections:  make(map[int64]*domain.Collection),
		Metafields:   make(map[int64][]domain.Metafield),
		Processed:    make(map[int64]bool),
		PendingReads: make(map[int64]int),
		nextID:       1000,
	}
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

// CallCount returns how many recorded calls carry the given name.
func (f *Fake) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.Calls {
		if call == name {
			count++
		}
	}
	return count
}

func (f *Fake) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetProduct")

	if remaining := f.PendingReads[id]; remaining > 0 {
		f.PendingReads[id] = remaining - 1
		return nil, gateway.ErrNotFound
	}

	product, ok := f.Products[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return product, nil
}

func (f *Fake) WaitForProduct(ctx context.Context, id int64) (*domain.Product, error) {
	// Same bounded poll as the real client, without the delays.
	for attempt := 0; attempt < 5; attempt++ {
		product, err := f.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if err != gateway.ErrNotFound {
			return nil, err
		}
	}
	return nil, gateway.ErrNotReady
}

func (f *Fake) UpdateProductFields(_ context.Context, id int64, update domain.ProductFieldUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateProductFields")
	f.FieldWrite = update
	if product, ok := f.Products[id]; ok {
		product.Title = update.Title
		product.BodyHTML = update.BodyHTML
		product.Tags = update.Tags
	}
	return nil
}

func (f *Fake) UpdateOptionNames(_ context.Context, _ int64, options []domain.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateOptionNames")
	f.Options = options
	return nil
}

func (f *Fake) UpdateVariantValues(_ context.Context, update domain.VariantUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateVariantValues")
	f.Variants = append(f.Variants, update)
	return nil
}

func (f *Fake) SetProcessedFlag(_ context.Context, productID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetProcessedFlag")
	f.Processed[productID] = true
	return nil
}

func (f *Fake) FindCollectionByTitle(_ context.Context, title string) (*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("FindCollectionByTitle")

	normalized := taxonomy.Normalize(title)
	for _, collection := range f.Collections {
		if taxonomy.Normalize(collection.Title) == normalized {
			return collection, nil
		}
	}
	return nil, nil
}

func (f *Fake) CreateCollection(_ context.Context, title string) (*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCollection")

	f.nextID++
	collection := &domain.Collection{ID: f.nextID, Title: title}
	f.Collections[collection.ID] = collection
	return collection, nil
}

func (f *Fake) GetCollection(_ context.Context, id int64) (*domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCollection")

	collection, ok := f.Collections[id]
	if !ok {
		return nil, gateway.ErrNotFound
	}
	return collection, nil
}

func (f *Fake) SetCollectionImage(_ context.Context, id int64, src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetCollectionImage")

	if f.FailSetImage {
		return fmt.Errorf("image write rejected")
	}
	if collection, ok := f.Collections[id]; ok {
		collection.Image = &domain.CollectionImage{Src: src}
	}
	return nil
}

func (f *Fake) UpsertCollectionMetafield(_ context.Context, collectionID int64, mf domain.Metafield) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpsertCollectionMetafield")

	if f.FailMetafieldWrite {
		return fmt.Errorf("metafield write rejected")
	}

	existing := f.Metafields[collectionID]
	for i := range existing {
		if existing[i].Namespace == mf.Namespace && existing[i].Key == mf.Key {
			existing[i].Value = mf.Value
			existing[i].Type = mf.Type
			return nil
		}
	}
	f.Metafields[collectionID] = append(existing, mf)
	return nil
}

func (f *Fake) HasCollect(_ context.Context, productID, collectionID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("HasCollect")

	for _, collect := range f.Collects {
		if collect.ProductID == productID && collect.CollectionID == collectionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) CreateCollect(_ context.Context, productID, collectionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCollect")

	// Duplicate creation counts as success, like the real store contract.
	for _, collect := range f.Collects {
		if collect.ProductID == productID && collect.CollectionID == collectionID {
			return nil
		}
	}
	f.Collects = append(f.Collects, domain.Collect{
		ID:           int64(len(f.Collects) + 1),
		ProductID:    productID,
		CollectionID: collectionID,
	})
	return nil
}

func (f *Fake) SearchFiles(_ context.Context, name string) ([]domain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SearchFiles")

	var matches []domain.File
	for _, file := range f.Files {
		if file.Filename == name {
			matches = append(matches, file)
		}
	}
	return matches, nil
}

// CollectionMetafield returns the stored value for namespace/key on a
// collection, or "".
func (f *Fake) CollectionMetafield(collectionID int64, namespace, key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, mf := range f.Metafields[collectionID] {
		if mf.Namespace == namespace && mf.Key == key {
			return mf.Value
		}
	}
	return ""
}
