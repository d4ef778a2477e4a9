package gateway

import (
	"context"
	"errors"
	"fmt"

	"catalog/enricher/internal/domain"

	"resty.dev/v3"
)

type filesEnvelope struct {
	Files []domain.File `json:"files"`
}

// SearchFiles queries the platform's file library by name. Used as the
// second source for collection images after the external asset base.
func (c *catalogClient) SearchFiles(ctx context.Context, name string) ([]domain.File, error) {
	resp, err := c.do(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.httpClient.R().
			SetContext(ctx).
			SetQueryParam("name", name).
			SetResult(&filesEnvelope{}).
			Get("/files.json")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search files for %q: %w", name, err)
	}
	if err := c.checkStatus(resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search files for %q: %w", name, err)
	}

	envelope, _ := resp.Result().(*filesEnvelope)
	if envelope == nil {
		return nil, nil
	}
	return envelope.Files, nil
}
