package graphcms

import "time"

// Post is the request-scoped representation of a post record. The backend
// owns the record; list queries omit Content, the detail query fills it.
type Post struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	CreatedAt     time.Time  `json:"createdAt"`
	FeaturedImage *Asset     `json:"featuredImage"`
	Categories    []Category `json:"category"`
	Author        *Author    `json:"author"`
	Content       *RichText  `json:"content"`
}

// Asset is a stored binary with a lifecycle independent of any post. A
// draft asset resolves to a nil FeaturedImage on public reads.
type Asset struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Category is a slug-unique label; posts carry zero or more.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Author of one or more posts.
type Author struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bio   string `json:"bio"`
	Email string `json:"email"`
	Photo *Asset `json:"photo"`
}

// PostRef identifies a written post record.
type PostRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// AssetRef identifies a reserved or stored asset.
type AssetRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
