package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"itemcatalog/internal/auth"
	"itemcatalog/internal/config"
	"itemcatalog/internal/database"
	"itemcatalog/internal/export"
	"itemcatalog/internal/logger"
	"itemcatalog/internal/metrics"
	"itemcatalog/internal/middleware"
	"itemcatalog/internal/session"
	"itemcatalog/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const latestItemsLimit = 10

// App carries the dependencies shared by every handler.
type App struct {
	DB       *sqlx.DB
	Sessions session.Store
	Provider auth.Provider
	Config   *config.Config
}

// NewRouter builds a gin engine with the templates, static assets and all
// routes of the catalog.
func NewRouter(app *App) (*gin.Engine, error) {
	if !app.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// category names may contain an escaped '/'; match on the raw path and
	// unescape the parameter afterwards
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.RecoveryWithWriter(logger.GetLogger().Logrus().WriterLevel(logrus.ErrorLevel)))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", web.Static())

	SetupRoutes(r, app)
	return r, nil
}

func SetupRoutes(r *gin.Engine, app *App) {
	r.Use(middleware.LogRequests())
	r.Use(metrics.Instrument())
	r.Use(middleware.SecurityHeaders(app.Config))
	r.Use(middleware.CORS(app.Config.AllowedOrigins))
	r.Use(middleware.RateLimit(app.Config))
	r.Use(middleware.TrimSpaces())

	r.GET("/healthz", app.handleHealth)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/catalog.json", app.handleExport(export.JSON))
	r.GET("/catalog.yaml", app.handleExport(export.YAML))

	authLimit := middleware.AuthRateLimit(app.Config)

	r.Use(middleware.Sessions(app.Sessions))
	r.NoRoute(app.notFound)

	r.GET("/login", app.handleLoginPage)
	r.POST("/login", authLimit, app.handleLogin)
	r.POST("/gconnect", authLimit, app.handleGConnect)
	r.GET("/gdisconnect", app.handleGDisconnect)
	r.GET("/logout", app.handleLogout)

	catalog := r.Group("/")
	catalog.Use(middleware.CSRF())
	{
		catalog.GET("/", app.handleHome)

		catalog.GET("/categories/:name", app.handleCategory)
		catalog.GET("/categories/:name/edit", app.handleEditCategoryPage)
		catalog.POST("/categories/:name/edit", app.handleEditCategory)
		catalog.GET("/categories/:name/delete", app.handleDeleteCategoryPage)
		catalog.POST("/categories/:name/delete", app.handleDeleteCategory)
		catalog.GET("/category_add", app.handleNewCategoryPage)
		catalog.POST("/category_add", app.handleCreateCategory)

		catalog.GET("/items/add", app.handleNewItemPage)
		catalog.POST("/items/add", app.handleCreateItem)
		catalog.GET("/items/:id", app.handleItem)
		catalog.GET("/items/:id/edit", app.handleEditItemPage)
		catalog.POST("/items/:id/edit", app.handleEditItem)
		catalog.GET("/items/:id/delete", app.handleDeleteItemPage)
		catalog.POST("/items/:id/delete", app.handleDeleteItem)
	}
}

// saveSession persists the request session if a handler changed it. A
// failed save is logged; the response still goes out.
func (a *App) saveSession(c *gin.Context) {
	s := middleware.Session(c)
	if !s.Changed() {
		return
	}
	if err := a.Sessions.Save(c.Writer, c.Request, s); err != nil {
		logger.Error("Failed to save session", "path", c.Request.URL.Path, "error", err)
	}
}

// render adds the signed-in user, the CSRF token and pending flashes to data
// and writes the page.
func (a *App) render(c *gin.Context, status int, name string, data gin.H) {
	s := middleware.Session(c)
	data["User"] = auth.CurrentUser(s)
	data["CSRFToken"] = middleware.CSRFToken(s)
	data["Flashes"] = s.PopFlashes()

	a.saveSession(c)
	c.HTML(status, name, data)
}

func (a *App) redirect(c *gin.Context, location string) {
	a.saveSession(c)
	c.Redirect(http.StatusFound, location)
}

func (a *App) flashRedirect(c *gin.Context, message, location string) {
	middleware.Session(c).AddFlash(message)
	a.redirect(c, location)
}

func (a *App) notFound(c *gin.Context) {
	a.render(c, http.StatusNotFound, "error.html", gin.H{
		"Title":   "Not Found",
		"Message": "The page you are looking for does not exist.",
	})
}

// fail renders the error page for err: missing entities become a 404,
// anything else is logged and reported as a 500.
func (a *App) fail(c *gin.Context, err error) {
	if errors.Is(err, database.ErrNotFound) {
		a.notFound(c)
		return
	}

	logger.Error("Request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	a.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"Title":   "Something went wrong",
		"Message": "The request could not be completed. Please try again later.",
	})
}

// requireLogin sends anonymous users to the login page. It reports whether
// the handler may continue.
func (a *App) requireLogin(c *gin.Context) bool {
	if auth.IsLoggedIn(middleware.Session(c)) {
		return true
	}
	a.redirect(c, "/login")
	return false
}

// itemID parses the :id route parameter. Anything that is not a positive
// integer cannot name an item.
func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (a *App) handleHealth(c *gin.Context) {
	if err := a.DB.PingContext(c.Request.Context()); err != nil {
		logger.Error("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *App) handleHome(c *gin.Context) {
	ctx := c.Request.Context()

	categories, err := database.ListCategories(ctx, a.DB)
	if err != nil {
		a.fail(c, err)
		return
	}

	latest, err := database.GetLatestItems(ctx, a.DB, latestItemsLimit)
	if err != nil {
		a.fail(c, err)
		return
	}

	stats, err := database.GetStats(ctx, a.DB)
	if err != nil {
		a.fail(c, err)
		return
	}

	a.render(c, http.StatusOK, "home.html", gin.H{
		"Title":       "Catalog",
		"Categories":  categories,
		"LatestItems": latest,
		"Stats":       stats,
	})
}

func (a *App) handleExport(format export.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		catalog, err := database.GetCatalog(c.Request.Context(), a.DB)
		if err != nil {
			logger.Error("Failed to load catalog for export", "format", string(format), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
			return
		}

		data, err := export.Marshal(format, catalog)
		if err != nil {
			logger.Error("Failed to encode catalog", "format", string(format), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode catalog"})
			return
		}

		metrics.RecordExport(string(format))
		c.Data(http.StatusOK, format.ContentType(), data)
	}
}
