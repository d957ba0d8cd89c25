// Package views renders the site's pages as templ components. Components
// are plain functions building HTML the way the engine's markdown renderer
// does, so there is no template generation step.
package views

import (
	"context"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/rivergrove/wardblog/graphcms"
)

// Site holds the site-wide values every page shell needs.
type Site struct {
	Name        string
	URL         string
	Description string
}

// PageMeta carries per-page title and SEO metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	URL         string
	OGType      string // "website" or "article"
}

func component(f func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		f(&b)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func esc(s string) string { return html.EscapeString(s) }

// page writes the shared shell: head, masthead with category navigation,
// body, footer.
func page(site Site, meta PageMeta, categories []graphcms.Category, body func(b *strings.Builder)) templ.Component {
	return component(func(b *strings.Builder) {
		title := site.Name
		if meta.Title != "" {
			title = meta.Title + " | " + site.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = site.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		b.WriteString("<!DOCTYPE html><html lang=\"en\"><head>")
		b.WriteString("<meta charset=\"utf-8\"/>")
		b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>")
		b.WriteString("<title>" + esc(title) + "</title>")
		if desc != "" {
			b.WriteString("<meta name=\"description\" content=\"" + esc(desc) + "\"/>")
		}
		if meta.URL != "" {
			b.WriteString("<link rel=\"canonical\" href=\"" + esc(meta.URL) + "\"/>")
			b.WriteString("<meta property=\"og:url\" content=\"" + esc(meta.URL) + "\"/>")
		}
		b.WriteString("<meta property=\"og:title\" content=\"" + esc(title) + "\"/>")
		b.WriteString("<meta property=\"og:type\" content=\"" + esc(ogType) + "\"/>")
		b.WriteString("<link rel=\"alternate\" type=\"application/rss+xml\" href=\"/feed.xml\"/>")
		b.WriteString("<link rel=\"stylesheet\" href=\"/public/style.css\"/>")
		b.WriteString("<script type=\"application/ld+json\">" + WebsiteJsonLD(site) + "</script>")
		b.WriteString("</head><body>")

		b.WriteString("<header class=\"masthead\"><div class=\"inner\">")
		b.WriteString("<a class=\"site-name\" href=\"/\">" + esc(site.Name) + "</a>")
		b.WriteString("<nav>")
		for _, cat := range categories {
			b.WriteString("<a href=\"/category/" + esc(cat.Slug) + "/\">" + esc(cat.Name) + "</a>")
		}
		b.WriteString("</nav></div></header>")

		b.WriteString("<main class=\"inner\">")
		body(b)
		b.WriteString("</main>")

		b.WriteString("<footer class=\"inner\"><p>" + esc(site.Name) + " &middot; <a href=\"/feed.xml\">RSS</a></p></footer>")
		b.WriteString("</body></html>")
	})
}
