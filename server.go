package main

import (
	"html/template"
	"net/http"
	"time"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/draft"
	"github.com/Zachkp/folio/internal/gate"
	"github.com/Zachkp/folio/internal/logging"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/prompts"
	"github.com/Zachkp/folio/internal/viewport"
	"github.com/Zachkp/folio/web"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// server holds everything the handlers need.
type server struct {
	cfg       *config.Config
	logger    *zap.Logger
	projects  *portfolio.Store
	gate      *gate.Gate
	drafts    *draft.Assistant
	views     *viewport.Hub
	visitors  *analytics.Tracker // nil when analytics is disabled
	mailer    contact.Mailer
	limiter   *contact.Limiter
	templates *template.Template

	// terminal limits public AI terminal prompts per client.
	terminal *contact.Limiter
	library  *prompts.Library
}

func (s *server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.RequestID(), logging.RequestLogger(s.logger.Named("http")))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", logging.RequestIDHeader},
			ExposeHeaders:    []string{logging.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if s.visitors != nil {
		r.Use(s.visitors.Middleware())
	}

	r.SetHTMLTemplate(s.templates)
	r.StaticFS("/static", http.FS(web.Static()))

	r.GET("/", s.index)
	r.GET("/privacy", s.privacy)
	r.GET("/xcloud", s.xcloud)
	r.GET("/go/:code", s.followLink)
	r.GET("/healthz", s.health)

	r.GET("/contact-form", s.contactForm)
	r.POST("/contact", s.contactSubmit)
	r.POST("/terminal", s.terminalPrompt)

	r.GET("/prompts", s.promptsPage)
	r.POST("/prompts/unlock", s.promptsUnlock)

	r.GET("/viewport/stream", s.viewportStream)
	r.POST("/viewport/:view/layout", s.viewportLayout)
	r.POST("/viewport/:view/scroll", s.viewportScroll)
	r.POST("/viewport/:view/visibility", s.viewportVisibility)

	s.setupAdminRoutes(r)
	return r
}

// page returns the data every full page layout needs.
func (s *server) page(title string) gin.H {
	return gin.H{
		"Title":            title,
		"Sections":         s.views.Sections(),
		"ViewportMode":     s.cfg.Viewport.Mode,
		// Milliseconds between client scroll reports.
		"ViewportThrottle": s.cfg.Viewport.Throttle.Milliseconds(),
	}
}

// partial reports whether htmx asked for a fragment rather than a full page.
// History restores always get the full page.
func partial(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true" && c.GetHeader("HX-History-Restore-Request") != "true"
}

func isHTMX(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// render writes the full page template, or only its content template for
// htmx navigation.
func render(c *gin.Context, status int, page, fragment string, data gin.H) {
	if partial(c) {
		c.HTML(status, fragment, data)
		return
	}
	c.HTML(status, page, data)
}
