package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"catalog/enricher/internal/domain"

	log "github.com/sirupsen/logrus"
)

// BrandPlaceholder is the token substituted with each brand when the
// definition ships a template instead of a pre-built tree.
const BrandPlaceholder = "{{BRAND}}"

// Store loads the category forest once per process and serves read-only
// lookups afterwards. A parse failure degrades to an empty forest so a
// malformed taxonomy never blocks the enrichment pipeline, only the
// collection-attachment stage.
type Store struct {
	path string

	once   sync.Once
	forest []*domain.TaxonomyNode
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// definition covers both accepted file shapes: a literal tree (array or
// single root) or a BRANDS/TEMPLATE pair.
type definition struct {
	Brands   []string             `json:"BRANDS"`
	Template *domain.TaxonomyNode `json:"TEMPLATE"`
}

// Load parses the definition file on first call and returns the cached
// forest on every call after that.
func (s *Store) Load() []*domain.TaxonomyNode {
	s.once.Do(func() {
		forest, err := s.parse()
		if err != nil {
			log.Errorf("❌ Failed to load taxonomy from %s: %v", s.path, err)
			s.forest = nil
			return
		}
		log.Infof("✅ Taxonomy loaded: %d brand roots", len(forest))
		s.forest = forest
	})
	return s.forest
}

func (s *Store) parse() ([]*domain.TaxonomyNode, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy definition: %w", err)
	}

	var def definition
	if err := json.Unmarshal(data, &def); err == nil && len(def.Brands) > 0 && def.Template != nil {
		return expandTemplate(def.Brands, def.Template), nil
	}

	var forest []*domain.TaxonomyNode
	if err := json.Unmarshal(data, &forest); err == nil {
		return forest, nil
	}

	var root domain.TaxonomyNode
	if err := json.Unmarshal(data, &root); err == nil && (root.DisplayName() != "" || len(root.Children) > 0) {
		return []*domain.TaxonomyNode{&root}, nil
	}

	return nil, fmt.Errorf("taxonomy definition is neither a tree nor a BRANDS/TEMPLATE pair")
}

// expandTemplate clones the template once per brand, substituting the brand
// placeholder in every node name, producing one independent root per brand.
func expandTemplate(brands []string, template *domain.TaxonomyNode) []*domain.TaxonomyNode {
	forest := make([]*domain.TaxonomyNode, 0, len(brands))
	for _, brand := range brands {
		forest = append(forest, cloneForBrand(template, brand))
	}
	return forest
}

func cloneForBrand(node *domain.TaxonomyNode, brand string) *domain.TaxonomyNode {
	clone := &domain.TaxonomyNode{
		Name:     strings.ReplaceAll(node.Name, BrandPlaceholder, brand),
		Title:    strings.ReplaceAll(node.Title, BrandPlaceholder, brand),
		NodeSlug: strings.ReplaceAll(node.NodeSlug, BrandPlaceholder, Normalize(brand)),
		Facets:   append([]string(nil), node.Facets...),
	}
	for _, child := range node.Children {
		clone.Children = append(clone.Children, cloneForBrand(child, brand))
	}
	return clone
}

// FindBranchByLeafName walks the forest depth-first and returns the
// root-to-leaf path of the first node whose normalized name matches.
// Duplicate names across subtrees resolve silently to the first hit in
// traversal order.
func (s *Store) FindBranchByLeafName(name string) []*domain.TaxonomyNode {
	want := Normalize(name)
	if want == "" {
		return nil
	}
	for _, root := range s.Load() {
		if branch := findByName(root, want, nil); branch != nil {
			return branch
		}
	}
	return nil
}

// FindBranchByLeafNameUnder is FindBranchByLeafName restricted to one
// subtree, so a duplicate name in a sibling brand's tree can never win.
func (s *Store) FindBranchByLeafNameUnder(root *domain.TaxonomyNode, name string) []*domain.TaxonomyNode {
	want := Normalize(name)
	if root == nil || want == "" {
		return nil
	}
	return findByName(root, want, nil)
}

func findByName(node *domain.TaxonomyNode, want string, path []*domain.TaxonomyNode) []*domain.TaxonomyNode {
	path = append(path, node)
	if Normalize(node.DisplayName()) == want {
		return append([]*domain.TaxonomyNode(nil), path...)
	}
	for _, child := range node.Children {
		if branch := findByName(child, want, path); branch != nil {
			return branch
		}
	}
	return nil
}

// FindBranchBySlug returns the root-to-leaf path to the node with exactly
// this slug, searching one brand root only.
func (s *Store) FindBranchBySlug(root *domain.TaxonomyNode, slug string) []*domain.TaxonomyNode {
	if root == nil || slug == "" {
		return nil
	}
	return findBySlug(root, slug, nil)
}

func findBySlug(node *domain.TaxonomyNode, slug string, path []*domain.TaxonomyNode) []*domain.TaxonomyNode {
	path = append(path, node)
	if node.NodeSlug == slug {
		return append([]*domain.TaxonomyNode(nil), path...)
	}
	for _, child := range node.Children {
		if branch := findBySlug(child, slug, path); branch != nil {
			return branch
		}
	}
	return nil
}

// BrandRoot returns the forest root whose normalized name matches the brand,
// or nil when the taxonomy has no subtree for it.
func (s *Store) BrandRoot(brand string) *domain.TaxonomyNode {
	want := Normalize(brand)
	for _, root := range s.Load() {
		if Normalize(root.DisplayName()) == want {
			return root
		}
	}
	return nil
}

// LeavesUnder flattens the subtree into its sellable leaves, each with the
// root-to-leaf label path. A leaf has no children and a non-empty slug.
func (s *Store) LeavesUnder(node *domain.TaxonomyNode) []domain.Leaf {
	if node == nil {
		return nil
	}
	var leaves []domain.Leaf
	collectLeaves(node, nil, &leaves)
	return leaves
}

func collectLeaves(node *domain.TaxonomyNode, path []string, leaves *[]domain.Leaf) {
	path = append(path, node.DisplayName())
	if node.IsLeaf() {
		*leaves = append(*leaves, domain.Leaf{
			Slug:   node.NodeSlug,
			Label:  node.DisplayName(),
			Path:   append([]string(nil), path...),
			Facets: append([]string(nil), node.Facets...),
		})
		return
	}
	for _, child := range node.Children {
		collectLeaves(child, path, leaves)
	}
}
