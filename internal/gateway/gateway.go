package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

var (
	// ErrNotFound is returned when the remote store does not know the
	// requested entity yet. Read-after-write lag surfaces as this error.
	ErrNotFound = errors.New("remote entity not found")

	// ErrNotReady is returned when a product never became readable within
	// the polling budget.
	ErrNotReady = errors.New("product not ready")

	// ErrRateLimited is returned after the retry budget for a rate-limit
	// rejection is exhausted.
	ErrRateLimited = errors.New("rate limited by remote store")
)

// Gateway is the remote catalog platform surface consumed by the pipeline.
// All calls are serialized through a process-wide minimum-interval gate.
type Gateway interface {
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	WaitForProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProductFields(ctx context.Context, id int64, update domain.ProductFieldUpdate) error
	UpdateOptionNames(ctx context.Context, productID int64, options []domain.Option) error
	UpdateVariantValues(ctx context.Context, update domain.VariantUpdate) error
	SetProcessedFlag(ctx context.Context, productID int64) error

	FindCollectionByTitle(ctx context.Context, title string) (*domain.Collection, error)
	CreateCollection(ctx context.Context, title string) (*domain.Collection, error)
	GetCollection(ctx context.Context, id int64) (*domain.Collection, error)
	SetCollectionImage(ctx context.Context, id int64, src string) error
	UpsertCollectionMetafield(ctx context.Context, collectionID int64, mf domain.Metafield) error

	HasCollect(ctx context.Context, productID, collectionID int64) (bool, error)
	CreateCollect(ctx context.Context, productID, collectionID int64) error

	SearchFiles(ctx context.Context, name string) ([]domain.File, error)
}

// ProcessedFlagNamespace/Key is the anti-reprocessing guard metafield. It is
// the LAST write of a successful run so a failed run retries from scratch.
const (
	ProcessedFlagNamespace = "enrichment"
	ProcessedFlagKey       = "processed"
)

type catalogClient struct {
	config     config.CatalogConfig
	rl         ratelimit.Limiter
	httpClient *resty.Client
	baseURL    string
	retryBase  time.Duration
	pollDelay  time.Duration

	// collection title -> id, keyed by normalized title. Populated once per
	// title and never rewritten; shared safely across invocations.
	titleCacheMutex sync.RWMutex
	titleCache      map[string]int64
}

func NewCatalogClient(cfg config.CatalogConfig) Gateway {
	// Transport-level retry stays off: do() owns the rate-limit retry budget,
	// and resty would otherwise retry 429 underneath it.
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Access-Token", cfg.AccessToken)

	rps := cfg.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	pollDelay := time.Duration(cfg.PollDelaySeconds) * time.Second
	if pollDelay <= 0 {
		pollDelay = 2 * time.Second
	}

	return &catalogClient{
		config:     cfg,
		rl:         ratelimit.New(rps),
		httpClient: client,
		baseURL:    cfg.BaseURL,
		retryBase:  time.Second,
		pollDelay:  pollDelay,
		titleCache: make(map[string]int64),
	}
}

// do serializes the call through the minimum-interval gate and retries
// rate-limit rejections with linearly increasing backoff.
func (c *catalogClient) do(ctx context.Context, fn func(ctx context.Context) (*resty.Response, error)) (*resty.Response, error) {
	maxAttempts := c.config.MaxRetries
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	for attempt := 1; ; attempt++ {
		c.rl.Take()

		resp, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode() != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt > maxAttempts {
			return nil, fmt.Errorf("gave up after %d rate-limited attempts: %w", attempt, ErrRateLimited)
		}

		wait := time.Duration(attempt) * c.retryBase
		log.Warnf("🚫 Rate limit rejection from remote store, retrying in %v (attempt %d/%d)", wait, attempt, maxAttempts)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *catalogClient) checkStatus(resp *resty.Response) error {
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}
	return nil
}
