package ensure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/gateway"

	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// ImageFinder resolves a collection image URL by convention: the node's slug
// combined with each configured extension, else the default filename, probed
// against the external static asset base first and the platform's file
// library second.
type ImageFinder struct {
	cfg        config.ImagesConfig
	httpClient *resty.Client
	gw         gateway.Gateway
}

func NewImageFinder(cfg config.ImagesConfig, gw gateway.Gateway) *ImageFinder {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(1)

	return &ImageFinder{
		cfg:        cfg,
		httpClient: client,
		gw:         gw,
	}
}

// Resolve returns a usable image URL for the slug, or "" when nothing is
// found. Best-effort: errors along the way only demote a candidate.
func (f *ImageFinder) Resolve(ctx context.Context, slug string) string {
	candidates := f.candidates(slug)

	if f.cfg.BaseURL != "" {
		for _, name := range candidates {
			url := strings.TrimRight(f.cfg.BaseURL, "/") + "/" + name
			if f.probe(ctx, url) {
				return url
			}
		}
	}

	for _, name := range candidates {
		files, err := f.gw.SearchFiles(ctx, name)
		if err != nil {
			log.Debugf("File search for %q failed: %v", name, err)
			continue
		}
		if len(files) > 0 && files[0].URL != "" {
			return files[0].URL
		}
	}

	return ""
}

func (f *ImageFinder) candidates(slug string) []string {
	var names []string
	if slug != "" {
		for _, ext := range f.cfg.Extensions {
			names = append(names, slug+ext)
		}
	}
	if f.cfg.DefaultFile != "" {
		names = append(names, f.cfg.DefaultFile)
	}
	return names
}

// probe checks the URL with a HEAD request, retrying once with a
// cache-busting query parameter in case a stale negative sits in a CDN cache.
func (f *ImageFinder) probe(ctx context.Context, url string) bool {
	resp, err := f.httpClient.R().SetContext(ctx).Head(url)
	if err == nil && resp.IsSuccess() {
		return true
	}

	busted := fmt.Sprintf("%s?cb=%d", url, time.Now().UnixNano())
	resp, err = f.httpClient.R().SetContext(ctx).Head(busted)
	return err == nil && resp.IsSuccess()
}
