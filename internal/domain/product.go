package domain

// Product is the catalog platform's view of a product, read through the
// gateway together with its options, variants and metafields.
type Product struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	BodyHTML   string      `json:"body_html"`
	Vendor     string      `json:"vendor"`
	Tags       []string    `json:"tags"`
	Options    []Option    `json:"options"`
	Variants   []Variant   `json:"variants"`
	Metafields []Metafield `json:"metafields,omitempty"`
}

type Option struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Position int      `json:"position"` // 1-based
	Values   []string `json:"values"`
}

type Variant struct {
	ID              int64            `json:"id"`
	Title           string           `json:"title"`
	SelectedOptions []SelectedOption `json:"selected_options"`
}

// SelectedOption associates an option name with the value this variant
// selects for it. Ordered by option position.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// OptionByPosition returns the product option at the given 1-based position.
func (p *Product) OptionByPosition(position int) *Option {
	for i := range p.Options {
		if p.Options[i].Position == position {
			return &p.Options[i]
		}
	}
	return nil
}

// OptionByName returns the product option with the given name.
func (p *Product) OptionByName(name string) *Option {
	for i := range p.Options {
		if p.Options[i].Name == name {
			return &p.Options[i]
		}
	}
	return nil
}

// MetafieldValue returns the value of the metafield under namespace/key, or
// "" when the product carries no such metafield.
func (p *Product) MetafieldValue(namespace, key string) string {
	for _, mf := range p.Metafields {
		if mf.Namespace == namespace && mf.Key == key {
			return mf.Value
		}
	}
	return ""
}

// ProductFieldUpdate carries the AI-authored replacement copy written back to
// the product. Nil/empty fields are left untouched by the gateway.
type ProductFieldUpdate struct {
	Title    string
	BodyHTML string
	Tags     []string
}

// VariantUpdate is one variant's rewritten option values, ordered by option
// position.
type VariantUpdate struct {
	VariantID int64
	Values    []string
}
