package wardblog

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rivergrove/wardblog/cognito"
	"github.com/rivergrove/wardblog/graphcms"
	"github.com/rivergrove/wardblog/views"
)

func (a *App) handleAdmin(c echo.Context) error {
	op, ok := currentOperator(c)
	if !ok {
		return Render(c, views.AdminLogin(a.site(), c.QueryParam("msg"), csrfToken(c)))
	}
	err := a.renderDashboard(c, op, c.QueryParam("msg"))
	if errors.Is(err, graphcms.ErrUnauthorized) {
		return a.forceSignOut(c)
	}
	return err
}

func (a *App) handleAdminLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return RenderStatus(c, http.StatusTooManyRequests,
			views.AdminLogin(a.site(), "Too many attempts. Try again in a minute.", csrfToken(c)))
	}

	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")

	sess, err := a.Sessions.SignIn(c.Request().Context(), email, password)
	if err != nil {
		if errors.Is(err, cognito.ErrInvalidCredentials) {
			a.loginLimiter.Record(ip)
			return RenderStatus(c, http.StatusUnauthorized,
				views.AdminLogin(a.site(), "Wrong email or password.", csrfToken(c)))
		}
		a.log.Error("sign in", "error", err)
		return RenderStatus(c, http.StatusBadGateway,
			views.AdminLogin(a.site(), "Sign-in is unavailable right now. Try again shortly.", csrfToken(c)))
	}

	if err := setOperatorSession(c, sess); err != nil {
		return err
	}
	a.log.Info("operator signed in", "email", sess.Email)
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func handleAdminLogout(c echo.Context) error {
	if err := clearOperatorSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func (a *App) handleAdminNew(c echo.Context) error {
	op := requestOperator(c)
	categories, err := a.Cache.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, views.AdminForm(a.site(), op.Email, nil, categories, csrfToken(c)))
}

func (a *App) handleAdminEdit(c echo.Context) error {
	ctx := c.Request().Context()
	op := requestOperator(c)
	slug := c.Param("slug")

	// Draft stage, so a post whose publish failed is still editable.
	post, err := a.Content.GetPostAny(ctx, slug)
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
	return Render(c, views.AdminForm(a.site(), op.Email, &post, categories, csrfToken(c)))
}

// draftFromForm collects the editor fields. Title validation happens in
// the publisher, where it guards the backend writes.
func draftFromForm(c echo.Context, authorID string) graphcms.Draft {
	return graphcms.Draft{
		Title:           strings.TrimSpace(c.FormValue("title")),
		Excerpt:         strings.TrimSpace(c.FormValue("excerpt")),
		Content:         c.FormValue("content"),
		AuthorID:        authorID,
		CategorySlugs:   FilterEmpty(c.Request().Form["category"]),
		FeaturedImageID: strings.TrimSpace(c.FormValue("featuredImageId")),
	}
}

// resolveAuthor maps the signed-in operator to their author record in the
// backend. Posts are always attributed to the operator who writes them.
func (a *App) resolveAuthor(c echo.Context, op operator) (graphcms.Author, error) {
	author, err := a.Content.AuthorByEmail(c.Request().Context(), op.Email)
	if err != nil {
		if errors.Is(err, graphcms.ErrNotFound) {
			return graphcms.Author{}, echo.NewHTTPError(http.StatusConflict,
				"no author profile is linked to "+op.Email)
		}
		return graphcms.Author{}, err
	}
	return author, nil
}

func (a *App) handleAdminCreate(c echo.Context) error {
	ctx := c.Request().Context()
	op := requestOperator(c)

	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	author, err := a.resolveAuthor(c, op)
	if err != nil {
		return err
	}

	result, err := a.Publisher.CreatePost(ctx, draftFromForm(c, author.ID))
	if err != nil {
		return a.writeFailure(c, op, err, "Could not save the post")
	}

	a.Cache.Invalidate()
	msg := "Saved and published."
	if !result.Published {
		a.log.Warn("post saved but not published", "slug", result.Ref.Slug, "error", result.PublishErr)
		msg = "Saved, but publishing failed. The post is in draft; edit and save again to retry."
	}
	return redirectDashboard(c, msg)
}

func (a *App) handleAdminUpdate(c echo.Context) error {
	ctx := c.Request().Context()
	op := requestOperator(c)
	slug := c.Param("slug")

	if err := c.Request().ParseForm(); err != nil {
		return err
	}
	author, err := a.resolveAuthor(c, op)
	if err != nil {
		return err
	}

	result, err := a.Publisher.UpdatePost(ctx, slug, draftFromForm(c, author.ID))
	if err != nil {
		return a.writeFailure(c, op, err, "Could not save the changes")
	}

	a.Cache.Invalidate()
	return redirectDashboard(c, updateMessage(result))
}

// updateMessage folds the per-phase outcomes into one operator-facing
// line. Each phase succeeds or fails on its own, so a partial save names
// exactly what did not stick.
func updateMessage(r graphcms.UpdateResult) string {
	failed := r.Failed()
	if len(failed) == 0 && r.Published {
		return "Saved and published."
	}
	if len(failed) == 0 {
		return "Saved, but re-publishing failed. Save again to retry."
	}
	names := make([]string, 0, len(failed))
	for _, p := range failed {
		switch p.Phase {
		case graphcms.PhaseCore:
			names = append(names, "text")
		case graphcms.PhaseImage:
			names = append(names, "featured image")
		case graphcms.PhaseCategories:
			names = append(names, "categories")
		}
	}
	msg := "Some changes did not save: " + strings.Join(names, ", ") + "."
	if r.Published {
		msg += " Everything else was published."
	}
	return msg
}

func (a *App) handleAdminDelete(c echo.Context) error {
	op := requestOperator(c)
	slug := c.Param("slug")

	if err := a.Publisher.DeletePost(c.Request().Context(), slug); err != nil {
		if errors.Is(err, graphcms.ErrNotFound) {
			// Already gone; deleting twice is not an error worth showing.
			return redirectDashboard(c, "Post deleted.")
		}
		return a.writeFailure(c, op, err, "Could not delete the post")
	}
	a.Cache.Invalidate()
	a.log.Info("post deleted", "slug", slug, "by", op.Email)
	return redirectDashboard(c, "Post deleted.")
}

const maxUploadSize = 10 << 20 // 10MB

func (a *App) handleAdminUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file provided")
	}
	if file.Size > maxUploadSize {
		return echo.NewHTTPError(http.StatusBadRequest, "file too large (max 10MB)")
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	data, err := processImage(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "not a usable image: "+err.Error())
	}

	result, err := a.Uploader.Upload(c.Request().Context(), data, jpegName(file.Filename))
	if err != nil {
		var vErr *graphcms.ValidationError
		if errors.As(err, &vErr) {
			return echo.NewHTTPError(http.StatusBadRequest, vErr.Error())
		}
		if errors.Is(err, graphcms.ErrUnauthorized) {
			return a.forceSignOut(c)
		}
		a.log.Error("image upload", "file", file.Filename, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "upload failed")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":        result.ID,
		"url":       result.URL,
		"activated": result.Activated,
	})
}

func (a *App) handleAdminAuthors(c echo.Context) error {
	op := requestOperator(c)
	authors, err := a.Content.ListAuthors(c.Request().Context())
	if err != nil {
		if errors.Is(err, graphcms.ErrUnauthorized) {
			return a.forceSignOut(c)
		}
		return err
	}
	return Render(c, views.AdminAuthors(a.site(), op.Email, authors, csrfToken(c)))
}

func (a *App) handleAdminStats(c echo.Context) error {
	op := requestOperator(c)
	if a.analytics == nil {
		return RenderStatus(c, http.StatusNotFound, views.NotFound(a.site()))
	}
	stats, err := a.analytics.Stats(30)
	if err != nil {
		return err
	}
	return Render(c, views.AdminStats(a.site(), op.Email, stats, csrfToken(c)))
}

func (a *App) renderDashboard(c echo.Context, op operator, msg string) error {
	// Management read: the dashboard shows drafts too, not just what the
	// public feed carries.
	posts, err := a.Content.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, views.AdminDashboard(a.site(), op.Email, posts, msg, csrfToken(c)))
}

// writeFailure maps a failed backend write to the right operator
// response. A rejected credential means the token is stale or revoked,
// so the session ends; anything else surfaces as a message the operator
// can act on.
func (a *App) writeFailure(c echo.Context, op operator, err error, prefix string) error {
	var vErr *graphcms.ValidationError
	if errors.As(err, &vErr) {
		return redirectDashboard(c, prefix+": "+vErr.Reason+".")
	}
	if errors.Is(err, graphcms.ErrUnauthorized) {
		a.log.Warn("backend rejected credential", "operator", op.Email)
		return a.forceSignOut(c)
	}
	a.log.Error("backend write failed", "operator", op.Email, "error", err)
	return redirectDashboard(c, prefix+". The content service may be down; try again.")
}

func (a *App) forceSignOut(c echo.Context) error {
	if err := clearOperatorSession(c); err != nil {
		return err
	}
	if wantsJSON(c) {
		return echo.NewHTTPError(http.StatusUnauthorized, "signed out")
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape("Your session is no longer valid. Sign in again."))
}

func redirectDashboard(c echo.Context, msg string) error {
	return c.Redirect(http.StatusSeeOther, "/admin/?msg="+url.QueryEscape(msg))
}
