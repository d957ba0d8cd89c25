// Package wardblog is the web application for a small congregation blog.
// Content lives in a hosted headless GraphQL backend; this process renders
// the public site from it, and gives signed-in operators a small admin
// area for writing, publishing, and deleting posts. The only state kept
// locally is the visit counter database.
package wardblog

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rivergrove/wardblog/analytics"
	"github.com/rivergrove/wardblog/cognito"
	"github.com/rivergrove/wardblog/graphcms"
	"github.com/rivergrove/wardblog/views"
)

// analyticsRetentionDays bounds how long visit rows stay on disk.
const analyticsRetentionDays = 365

// App wires the content client, the identity manager, the cache, and the
// Echo server together.
type App struct {
	Config    Config
	Echo      *echo.Echo
	Content   *graphcms.Client
	Cache     *ContentCache
	Publisher *graphcms.Publisher
	Uploader  *graphcms.Uploader
	Sessions  *cognito.Manager

	loginLimiter *loginLimiter
	analytics    *analytics.Store
	stopPrune    func()
	log          *slog.Logger
}

// New validates the configuration and builds the app. Nothing touches the
// network here; the first backend call happens on the first request.
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	content, err := graphcms.NewClient(graphcms.Config{
		Endpoint: cfg.GraphCMSEndpoint,
		Token:    cfg.GraphCMSToken,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}

	sessions, err := cognito.New(cognito.Config{
		UserPoolID: cfg.UserPoolID,
		ClientID:   cfg.UserPoolClientID,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:       cfg,
		Echo:         echo.New(),
		Content:      content,
		Cache:        NewContentCache(content, cfg.CacheTTL),
		Publisher:    graphcms.NewPublisher(content),
		Uploader:     graphcms.NewUploader(content),
		Sessions:     sessions,
		loginLimiter: newLoginLimiter(5, time.Minute),
		log:          log,
	}
	a.Echo.HideBanner = true
	return a, nil
}

// Start opens the analytics store when enabled, installs middleware and
// routes, and runs the server until it is shut down.
func (a *App) Start() error {
	if a.Config.AnalyticsEnabled {
		store, err := analytics.NewStore(a.Config.AnalyticsDBPath)
		if err != nil {
			return fmt.Errorf("wardblog: init analytics: %w", err)
		}
		a.analytics = store
		a.stopPrune = store.StartPruneScheduler(analyticsRetentionDays, 24*time.Hour)
	}

	a.setupMiddleware()
	a.setupRoutes()

	a.log.Info("listening", "addr", a.Config.Addr, "site", a.Config.SiteURL)
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.StaticFS("/public", echo.MustSubFS(staticFS, "static"))
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/category/:slug/", a.handleCategory)
	e.GET("/post/:slug/", a.handlePost)

	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", handleAdminLogout)

	admin := e.Group("/admin", a.requireOperator)
	admin.GET("/new/", a.handleAdminNew)
	admin.GET("/edit/:slug/", a.handleAdminEdit)
	admin.POST("/save/", a.handleAdminCreate)
	admin.POST("/save/:slug/", a.handleAdminUpdate)
	admin.POST("/delete/:slug/", a.handleAdminDelete)
	admin.POST("/upload/", a.handleAdminUpload)
	admin.GET("/authors/", a.handleAdminAuthors)
	admin.GET("/stats/", a.handleAdminStats)
}

// Close releases local resources. The backend needs no goodbye.
func (a *App) Close() error {
	if a.stopPrune != nil {
		a.stopPrune()
	}
	if a.analytics != nil {
		return a.analytics.Close()
	}
	return nil
}

func (a *App) site() views.Site {
	return views.Site{
		Name:        a.Config.SiteName,
		URL:         a.Config.SiteURL,
		Description: a.Config.SiteDescription,
	}
}
