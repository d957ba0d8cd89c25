package views

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/rivergrove/wardblog/graphcms"
)

// Home renders the feed of published posts with the category navigation.
func Home(site Site, posts []graphcms.Post, categories []graphcms.Category) templ.Component {
	meta := PageMeta{URL: buildURL(site.URL)}
	return page(site, meta, categories, func(b *strings.Builder) {
		if len(posts) == 0 {
			b.WriteString("<p class=\"empty\">No posts yet. Check back soon.</p>")
			return
		}
		b.WriteString("<section class=\"feed\">")
		for _, p := range posts {
			postCard(b, p)
		}
		b.WriteString("</section>")
	})
}

// Category renders the posts carrying one category. An empty list is a
// normal state, not an error.
func Category(site Site, category graphcms.Category, posts []graphcms.Post, categories []graphcms.Category) templ.Component {
	meta := PageMeta{
		Title: category.Name,
		URL:   buildURL(site.URL, "category", category.Slug),
	}
	return page(site, meta, categories, func(b *strings.Builder) {
		b.WriteString("<h1>" + esc(category.Name) + "</h1>")
		if len(posts) == 0 {
			b.WriteString("<p class=\"empty\">Nothing here yet.</p>")
			return
		}
		b.WriteString("<section class=\"feed\">")
		for _, p := range posts {
			postCard(b, p)
		}
		b.WriteString("</section>")
	})
}

// Post renders a full post detail page with the rich-text body and up to
// three similar posts.
func Post(site Site, post graphcms.Post, similar []graphcms.Post, categories []graphcms.Category) templ.Component {
	meta := PageMeta{
		Title:       post.Title,
		Description: post.Excerpt,
		URL:         buildURL(site.URL, "post", post.Slug),
		OGType:      "article",
	}
	return page(site, meta, categories, func(b *strings.Builder) {
		b.WriteString("<article class=\"post\">")
		// A featured image that is still in draft stage resolves to nil on
		// public reads, so it simply does not render here.
		if post.FeaturedImage != nil && post.FeaturedImage.URL != "" {
			b.WriteString("<img class=\"featured\" src=\"" + esc(post.FeaturedImage.URL) + "\" alt=\"" + esc(post.Title) + "\"/>")
		}
		b.WriteString("<h1>" + esc(post.Title) + "</h1>")
		postMeta(b, post)
		if post.Content != nil {
			renderRichText(b, post.Content.Raw)
		}
		b.WriteString("<script type=\"application/ld+json\">" + BlogPostingJsonLD(site, post) + "</script>")
		b.WriteString("</article>")

		if post.Author != nil && post.Author.Bio != "" {
			b.WriteString("<aside class=\"author-bio\">")
			if post.Author.Photo != nil && post.Author.Photo.URL != "" {
				b.WriteString("<img src=\"" + esc(post.Author.Photo.URL) + "\" alt=\"" + esc(post.Author.Name) + "\"/>")
			}
			b.WriteString("<h2>" + esc(post.Author.Name) + "</h2>")
			b.WriteString("<p>" + esc(post.Author.Bio) + "</p>")
			b.WriteString("</aside>")
		}

		if len(similar) > 0 {
			b.WriteString("<aside class=\"similar\"><h2>More like this</h2><ul>")
			for _, s := range similar {
				b.WriteString("<li><a href=\"/post/" + esc(s.Slug) + "/\">" + esc(s.Title) + "</a>")
				b.WriteString(" <span class=\"date\">" + esc(formatDate(s.CreatedAt)) + "</span></li>")
			}
			b.WriteString("</ul></aside>")
		}
	})
}

func postCard(b *strings.Builder, p graphcms.Post) {
	b.WriteString("<article class=\"card\">")
	if p.FeaturedImage != nil && p.FeaturedImage.URL != "" {
		b.WriteString("<a href=\"/post/" + esc(p.Slug) + "/\"><img src=\"" + esc(p.FeaturedImage.URL) + "\" alt=\"" + esc(p.Title) + "\"/></a>")
	}
	b.WriteString("<h2><a href=\"/post/" + esc(p.Slug) + "/\">" + esc(p.Title) + "</a></h2>")
	postMeta(b, p)
	if p.Excerpt != "" {
		b.WriteString("<p>" + esc(p.Excerpt) + "</p>")
	}
	b.WriteString("</article>")
}

func postMeta(b *strings.Builder, p graphcms.Post) {
	b.WriteString("<p class=\"meta\">")
	if p.Author != nil {
		b.WriteString("<span class=\"author\">" + esc(p.Author.Name) + "</span> &middot; ")
	}
	b.WriteString("<time>" + esc(formatDate(p.CreatedAt)) + "</time>")
	for _, cat := range p.Categories {
		b.WriteString(" <a class=\"category\" href=\"/category/" + esc(cat.Slug) + "/\">" + esc(cat.Name) + "</a>")
	}
	b.WriteString("</p>")
}

// NotFound is the empty-state page for unknown slugs and routes.
func NotFound(site Site) templ.Component {
	return page(site, PageMeta{Title: "Not Found"}, nil, func(b *strings.Builder) {
		b.WriteString("<h1>Page not found</h1>")
		b.WriteString("<p>That page doesn't exist. <a href=\"/\">Back to the blog</a>.</p>")
	})
}

// ServerError is the generic load-failure page shown when the content
// backend is unreachable.
func ServerError(site Site) templ.Component {
	return page(site, PageMeta{Title: "Something went wrong"}, nil, func(b *strings.Builder) {
		b.WriteString("<h1>Something went wrong</h1>")
		b.WriteString("<p>We couldn't load the blog right now. Please try again in a moment.</p>")
	})
}
