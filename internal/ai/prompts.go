package ai

import (
	"fmt"
	"strings"

	"catalog/enricher/internal/domain"
)

const enrichmentSystemPrompt = `You are a product copywriter and classifier for an automotive-accessories e-commerce catalog.
You always answer with a single JSON object and nothing else.`

const leafPickSystemPrompt = `You classify products into a fixed category taxonomy.
You always answer with a single JSON object and nothing else.`

func buildEnrichmentPrompt(product *domain.Product) string {
	var b strings.Builder

	b.WriteString("Rewrite and classify this product.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", product.Title)
	fmt.Fprintf(&b, "Vendor: %s\n", product.Vendor)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(product.Tags, ", "))
	fmt.Fprintf(&b, "Description: %s\n", HTMLToText(product.BodyHTML))

	if len(product.Options) > 0 {
		b.WriteString("Options:\n")
		for _, opt := range product.Options {
			fmt.Fprintf(&b, "  %d. %s: %s\n", opt.Position, opt.Name, strings.Join(opt.Values, ", "))
		}
	}

	b.WriteString(`
Respond with a JSON object with exactly these keys:
  "title": improved product title (string)
  "description": improved product description, plain HTML allowed (string)
  "base_tags": main category tags (array of strings)
  "subtags": more specific tags (array of strings)
  "extra_tags": any additional tags (array of strings)
  "collections": suggested collection names, optional (array of strings)
  "options": for each product option, {"name": translated option name, "position": 1-based position, "values": translated values in the SAME order and count as the original}
`)

	return b.String()
}

func buildLeafPickPrompt(product *domain.Product, whitelist []WhitelistEntry) string {
	var b strings.Builder

	b.WriteString("Pick the best matching category for this product.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", product.Title)
	fmt.Fprintf(&b, "Vendor: %s\n", product.Vendor)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(product.Tags, ", "))
	fmt.Fprintf(&b, "Description: %s\n\n", HTMLToText(product.BodyHTML))

	b.WriteString("Allowed categories (slug: label):\n")
	for _, entry := range whitelist {
		fmt.Fprintf(&b, "  %s: %s\n", entry.Slug, entry.Label)
	}

	b.WriteString(`
Respond with a JSON object: {"collections_node_slugs": [...]}.
Use ONLY slugs from the allowed list above. Pick one slug, or at most two when the product genuinely belongs to both.
`)

	return b.String()
}
