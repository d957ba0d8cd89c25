package wardblog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rivergrove/wardblog/graphcms"
	"github.com/rivergrove/wardblog/views"
)

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.Posts(ctx)
	if err != nil {
		return err
	}
	categories, err := a.Cache.Categories(ctx)
	if err != nil {
		return err
	}
	return Render(c, views.Home(a.site(), posts, categories))
}

func (a *App) handleCategory(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	categories, err := a.Cache.Categories(ctx)
	if err != nil {
		return err
	}
	var category *graphcms.Category
	for i := range categories {
		if categories[i].Slug == slug {
			category = &categories[i]
			break
		}
	}
	if category == nil {
		return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
	}

	// An empty category is a normal page, not an error.
	posts, err := a.Content.PostsByCategory(ctx, slug)
	if err != nil {
		return err
	}
	return Render(c, views.Category(a.site(), *category, posts, categories))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	post, err := a.Content.GetPost(ctx, slug)
	if err != nil {
		if errors.Is(err, graphcms.ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		}
		return err
	}

	categories, err := a.Cache.Categories(ctx)
	if err != nil {
		return err
	}

	return Render(c, views.Post(a.site(), post, a.relatedPosts(c, post), categories))
}

// relatedPosts fills the sidebar under a post: posts sharing a category,
// falling back to the newest posts when the categories yield nothing.
// This is decoration; a lookup failure never fails the page.
func (a *App) relatedPosts(c echo.Context, post graphcms.Post) []graphcms.Post {
	ctx := c.Request().Context()

	var catSlugs []string
	for _, cat := range post.Categories {
		catSlugs = append(catSlugs, cat.Slug)
	}
	similar, err := a.Content.SimilarPosts(ctx, catSlugs, post.Slug)
	if err != nil {
		a.log.Warn("similar posts", "slug", post.Slug, "error", err)
		return nil
	}
	if len(similar) > 0 {
		return similar
	}

	recent, err := a.Content.RecentPosts(ctx)
	if err != nil {
		return nil
	}
	kept := recent[:0]
	for _, p := range recent {
		if p.Slug != post.Slug {
			kept = append(kept, p)
		}
	}
	return kept
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleSitemap(c echo.Context) error {
	ctx := c.Request().Context()
	posts, err := a.Cache.Posts(ctx)
	if err != nil {
		return err
	}
	categories, err := a.Cache.Categories(ctx)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts, categories)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nDisallow: /admin/\nSitemap: " +
		strings.TrimSuffix(a.Config.SiteURL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if errors.Is(err, graphcms.ErrNotFound) {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
		return
	}
	if code >= 500 {
		a.log.Error("server error", "uri", c.Request().RequestURI, "error", err)
		_ = RenderStatus(c, code, views.ServerError(a.site()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
