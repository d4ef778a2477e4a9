package domain

// Collection is a remote catalog collection. Owned by the platform; this
// system only ensures existence and annotates it.
type Collection struct {
	ID     int64            `json:"id"`
	Title  string           `json:"title"`
	Handle string           `json:"handle,omitempty"`
	Image  *CollectionImage `json:"image,omitempty"`
}

type CollectionImage struct {
	Src string `json:"src"`
}

// HasImage reports whether the collection already carries an image.
func (c *Collection) HasImage() bool {
	return c.Image != nil && c.Image.Src != ""
}

// Collect is a product-collection membership record.
type Collect struct {
	ID           int64 `json:"id"`
	ProductID    int64 `json:"product_id"`
	CollectionID int64 `json:"collection_id"`
}

// File is a platform-hosted asset found via file search.
type File struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// EnsuredNode is one link of an ensured branch: the remote collection backing
// a taxonomy node, together with its position in the chain. ParentID/ChildID
// form a simple path within this branch only; 0 means none.
type EnsuredNode struct {
	CollectionID int64
	Title        string
	NodeSlug     string
	Facets       []string
	Level        int // 0-based depth from branch root
	ParentID     int64
	ChildID      int64
}
