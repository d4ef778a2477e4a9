package domain

// TaxonomyNode is one node of the category tree. The tree is a forest of
// brand roots, built once per process and read-only afterwards.
type TaxonomyNode struct {
	Name     string          `json:"name,omitempty"`
	Title    string          `json:"title,omitempty"`
	NodeSlug string          `json:"node_slug,omitempty"`
	Facets   []string        `json:"facets,omitempty"`
	Children []*TaxonomyNode `json:"children,omitempty"`
}

// DisplayName resolves the node's name, falling back to the template title
// field when the definition used "title" instead of "name".
func (n *TaxonomyNode) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Title
}

// IsLeaf reports whether the node is a sellable leaf: no children and a
// non-empty slug. Nodes with children are never leaves regardless of slug.
func (n *TaxonomyNode) IsLeaf() bool {
	return len(n.Children) == 0 && n.NodeSlug != ""
}

// Leaf is a sellable leaf node together with its root-to-leaf label path.
type Leaf struct {
	Slug   string
	Label  string
	Path   []string
	Facets []string
}

// ClassificationResult is the outcome of one classification pass, transient
// per webhook invocation.
type ClassificationResult struct {
	DetectedBrand string
	LeafSlugPicks []string
	Strategy      string // which classifier produced the picks
}
