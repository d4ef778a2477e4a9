package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"catalog/enricher/internal/domain"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

type productEnvelope struct {
	Product wireProduct `json:"product"`
}

type wireProduct struct {
	ID       int64         `json:"id,omitempty"`
	Title    string        `json:"title,omitempty"`
	BodyHTML string        `json:"body_html,omitempty"`
	Vendor   string        `json:"vendor,omitempty"`
	Tags     string        `json:"tags,omitempty"`
	Options  []wireOption  `json:"options,omitempty"`
	Variants []wireVariant `json:"variants,omitempty"`
}

type wireOption struct {
	ID       int64    `json:"id,omitempty"`
	Name     string   `json:"name"`
	Position int      `json:"position,omitempty"`
	Values   []string `json:"values,omitempty"`
}

type wireVariant struct {
	ID      int64   `json:"id,omitempty"`
	Title   string  `json:"title,omitempty"`
	Option1 *string `json:"option1,omitempty"`
	Option2 *string `json:"option2,omitempty"`
	Option3 *string `json:"option3,omitempty"`
}

type metafieldsEnvelope struct {
	Metafields []domain.Metafield `json:"metafields"`
}

func (c *catalogClient) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetResult(&productEnvelope{}).
			Get(fmt.Sprintf("/products/%d.json", id))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("failed to fetch product %d: %w", id, err)
	}

	envelope, ok := resp.Result().(*productEnvelope)
	if !ok || envelope.Product.ID == 0 {
		return nil, fmt.Errorf("failed to fetch product %d: empty response", id)
	}

	product := fromWireProduct(envelope.Product)

	metafields, err := c.listProductMetafields(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metafields for product %d: %w", id, err)
	}
	product.Metafields = metafields

	return product, nil
}

// WaitForProduct polls for the product until the remote store serves it.
// Read-after-write consistency is not immediate after a create/update event,
// so a bounded number of attempts with a fixed delay is made before giving
// up with ErrNotReady.
func (c *catalogClient) WaitForProduct(ctx context.Context, id int64) (*domain.Product, error) {
	attempts := c.config.PollAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := c.pollDelay

	for attempt := 1; attempt <= attempts; attempt++ {
		product, err := c.GetProduct(ctx, id)
		if err == nil {
			return product, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		log.Debugf("Product %d not readable yet (attempt %d/%d)", id, attempt, attempts)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("product %d was never observed after %d attempts: %w", id, attempts, ErrNotReady)
}

func (c *catalogClient) UpdateProductFields(ctx context.Context, id int64, update domain.ProductFieldUpdate) error {
	payload := productEnvelope{Product: wireProduct{
		ID:       id,
		Title:    update.Title,
		BodyHTML: update.BodyHTML,
		Tags:     strings.Join(update.Tags, ", "),
	}}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			Put(fmt.Sprintf("/products/%d.json", id))
	})
	if err != nil {
		return fmt.Errorf("failed to update product %d fields: %w", id, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to update product %d fields: %w", id, err)
	}
	return nil
}

// UpdateOptionNames rewrites the product's option names. The full option list
// is sent back with positions preserved.
func (c *catalogClient) UpdateOptionNames(ctx context.Context, productID int64, options []domain.Option) error {
	wireOptions := make([]wireOption, 0, len(options))
	for _, opt := range options {
		wireOptions = append(wireOptions, wireOption{ID: opt.ID, Name: opt.Name, Position: opt.Position})
	}
	payload := productEnvelope{Product: wireProduct{ID: productID, Options: wireOptions}}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			Put(fmt.Sprintf("/products/%d.json", productID))
	})
	if err != nil {
		return fmt.Errorf("failed to update option names for product %d: %w", productID, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to update option names for product %d: %w", productID, err)
	}
	return nil
}

func (c *catalogClient) UpdateVariantValues(ctx context.Context, update domain.VariantUpdate) error {
	variant := wireVariant{ID: update.VariantID}
	for i, value := range update.Values {
		v := value
		switch i {
		case 0:
			variant.Option1 = &v
		case 1:
			variant.Option2 = &v
		case 2:
			variant.Option3 = &v
		}
	}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(map[string]wireVariant{"variant": variant}).
			Put(fmt.Sprintf("/variants/%d.json", update.VariantID))
	})
	if err != nil {
		return fmt.Errorf("failed to update variant %d: %w", update.VariantID, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to update variant %d: %w", update.VariantID, err)
	}
	return nil
}

// SetProcessedFlag persists the anti-reprocessing marker on the product.
func (c *catalogClient) SetProcessedFlag(ctx context.Context, productID int64) error {
	payload := map[string]domain.Metafield{"metafield": {
		Namespace: ProcessedFlagNamespace,
		Key:       ProcessedFlagKey,
		Type:      "boolean",
		Value:     "true",
	}}

	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetBody(payload).
			Post(fmt.Sprintf("/products/%d/metafields.json", productID))
	})
	if err != nil {
		return fmt.Errorf("failed to set processed flag on product %d: %w", productID, err)
	}
	if err := c.checkStatus(resp); err != nil {
		return fmt.Errorf("failed to set processed flag on product %d: %w", productID, err)
	}
	return nil
}

func (c *catalogClient) listProductMetafields(ctx context.Context, productID int64) ([]domain.Metafield, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetResult(&metafieldsEnvelope{}).
			Get(fmt.Sprintf("/products/%d/metafields.json", productID))
	})
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	envelope, ok := resp.Result().(*metafieldsEnvelope)
	if !ok {
		return nil, nil
	}
	return envelope.Metafields, nil
}

func fromWireProduct(w wireProduct) *domain.Product {
	product := &domain.Product{
		ID:       w.ID,
		Title:    w.Title,
		BodyHTML: w.BodyHTML,
		Vendor:   w.Vendor,
		Tags:     splitTags(w.Tags),
	}

	for _, opt := range w.Options {
		product.Options = append(product.Options, domain.Option{
			ID:       opt.ID,
			Name:     opt.Name,
			Position: opt.Position,
			Values:   opt.Values,
		})
	}

	for _, v := range w.Variants {
		variant := domain.Variant{ID: v.ID, Title: v.Title}
		raw := []*string{v.Option1, v.Option2, v.Option3}
		for position := 1; position <= len(raw); position++ {
			if raw[position-1] == nil {
				continue
			}
			name := "Option " + strconv.Itoa(position)
			if opt := product.OptionByPosition(position); opt != nil {
				name = opt.Name
			}
			variant.SelectedOptions = append(variant.SelectedOptions, domain.SelectedOption{
				Name:  name,
				Value: *raw[position-1],
			})
		}
		product.Variants = append(product.Variants, variant)
	}

	return product
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
