package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catalog/enricher/internal/config"
	"catalog/enricher/internal/domain"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	log "github.com/sirupsen/logrus"
)

// WhitelistEntry is one allowed classification outcome offered to the model.
type WhitelistEntry struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// Service is the generative text service. Two contracts: full copy rewrite
// (EnrichProduct) and constrained leaf classification (PickLeafSlugs).
type Service interface {
	EnrichProduct(ctx context.Context, product *domain.Product) (*domain.Enrichment, error)
	PickLeafSlugs(ctx context.Context, product *domain.Product, whitelist []WhitelistEntry) ([]string, error)
}

type claudeService struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

func NewClaudeService(cfg config.AIConfig) Service {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &claudeService{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: int64(maxTokens),
		timeout:   timeout,
	}
}

// EnrichProduct asks the model to rewrite the product copy and returns the
// structured result. A failed call or malformed JSON is a hard failure for
// the whole invocation.
func (s *claudeService) EnrichProduct(ctx context.Context, product *domain.Product) (*domain.Enrichment, error) {
	response, err := s.complete(ctx, enrichmentSystemPrompt, buildEnrichmentPrompt(product))
	if err != nil {
		return nil, fmt.Errorf("enrichment call failed: %w", err)
	}

	var enrichment domain.Enrichment
	if err := json.Unmarshal([]byte(ExtractJSON(response)), &enrichment); err != nil {
		return nil, fmt.Errorf("enrichment response is not valid JSON: %w", err)
	}
	if enrichment.Title == "" || enrichment.Description == "" {
		return nil, fmt.Errorf("enrichment response is missing required fields")
	}

	return &enrichment, nil
}

type leafPickResponse struct {
	CollectionsNodeSlugs []string `json:"collections_node_slugs"`
}

// PickLeafSlugs asks the model to pick taxonomy leaves from the whitelist.
// The raw picks are returned as-is; the classifier filters against the
// whitelist again, never trusting the response blindly.
func (s *claudeService) PickLeafSlugs(ctx context.Context, product *domain.Product, whitelist []WhitelistEntry) ([]string, error) {
	if len(whitelist) == 0 {
		return nil, nil
	}

	response, err := s.complete(ctx, leafPickSystemPrompt, buildLeafPickPrompt(product, whitelist))
	if err != nil {
		return nil, fmt.Errorf("leaf pick call failed: %w", err)
	}

	var picks leafPickResponse
	if err := json.Unmarshal([]byte(ExtractJSON(response)), &picks); err != nil {
		return nil, fmt.Errorf("leaf pick response is not valid JSON: %w", err)
	}

	log.Debugf("Leaf pick returned %d slugs", len(picks.CollectionsNodeSlugs))
	return picks.CollectionsNodeSlugs, nil
}

func (s *claudeService) complete(ctx context.Context, system, prompt string) (string, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("model call failed: %w", err)
	}

	response := textContent(resp)
	if response == "" {
		return "", fmt.Errorf("model returned no text content")
	}
	return response, nil
}

// textContent concatenates the text blocks of a response, skipping thinking
// and tool-use blocks.
func textContent(message *anthropic.Message) string {
	var b strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
