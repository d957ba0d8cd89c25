package wardblog

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rivergrove/wardblog/cognito"
)

const sessionName = "operator_session"

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	// The slash redirect must run before anything inspects the request,
	// CSRF in particular. 308 keeps the method and body across the hop.
	e.Pre(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusPermanentRedirect,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/public") ||
				path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt"
		},
	}))

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			a.log.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/public/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token,form:csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieSameSite: http.SameSiteLaxMode,
		CookieSecure:   a.Config.CookieSecure,
		ErrorHandler: func(err error, c echo.Context) error {
			return c.String(http.StatusForbidden, "Forbidden")
		},
	}))

	e.Use(cacheControlMiddleware)

	if a.Config.AnalyticsEnabled {
		e.Use(a.recordVisitMiddleware)
	}
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		switch {
		case strings.HasPrefix(path, "/public/"):
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		case path == "/sitemap.xml" || path == "/feed.xml" || path == "/robots.txt":
			c.Response().Header().Set("Cache-Control", "public, max-age=86400")
		case strings.HasPrefix(path, "/admin"):
			c.Response().Header().Set("Cache-Control", "no-store")
		default:
			c.Response().Header().Set("Cache-Control", "public, max-age=3600")
		}
		return next(c)
	}
}

// recordVisitMiddleware counts public page views. Recording is
// best-effort; a full visits table never blocks a page render.
func (a *App) recordVisitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		if a.analytics == nil || c.Request().Method != http.MethodGet {
			return err
		}
		path := c.Request().URL.Path
		if strings.HasPrefix(path, "/admin") || strings.HasPrefix(path, "/public") {
			return err
		}
		if c.Response().Status >= 400 {
			return err
		}
		if rerr := a.analytics.RecordVisit(c.RealIP(), c.Request().UserAgent(), path); rerr != nil {
			a.log.Warn("record visit", "error", rerr)
		}
		return err
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 12,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}

// operator is the session view the admin handlers work from.
type operator struct {
	Email   string
	IDToken string
}

// currentOperator returns the signed-in operator, or false when there is
// no session or the stored expiry has passed. Expiry is checked here,
// synchronously, on every admin request; nothing phones the identity
// service.
func currentOperator(c echo.Context) (operator, bool) {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return operator{}, false
	}
	email, _ := sess.Values["email"].(string)
	expiresAt, _ := sess.Values["expires_at"].(int64)
	if email == "" || time.Now().Unix() >= expiresAt {
		return operator{}, false
	}
	token, _ := sess.Values["id_token"].(string)
	return operator{Email: email, IDToken: token}, true
}

func setOperatorSession(c echo.Context, s cognito.Session) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["email"] = s.Email
	sess.Values["id_token"] = s.IDToken
	sess.Values["expires_at"] = s.ExpiresAt.Unix()
	return sess.Save(c.Request(), c.Response())
}

func clearOperatorSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// requireOperator gates the admin routes. An expired or missing session
// bounces to the login page before any handler, and before any backend
// call, runs.
func (a *App) requireOperator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		op, ok := currentOperator(c)
		if !ok {
			if wantsJSON(c) {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}
			return c.Redirect(http.StatusSeeOther, "/admin/")
		}
		c.Set("operator", op)
		return next(c)
	}
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "application/json") ||
		c.Path() == "/admin/upload/"
}

func requestOperator(c echo.Context) operator {
	op, _ := c.Get("operator").(operator)
	return op
}

// csrfToken extracts the CSRF token the middleware stored on the context.
func csrfToken(c echo.Context) string {
	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return token
}
