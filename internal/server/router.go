package server

import (
	"html/template"
	"strings"
	"time"

	"github.com/abduss/bucketlist/internal/auth"
	"github.com/abduss/bucketlist/internal/config"
	"github.com/abduss/bucketlist/internal/item"
	"github.com/abduss/bucketlist/internal/logger"
	"github.com/abduss/bucketlist/internal/metrics"
	"github.com/abduss/bucketlist/internal/web"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	Templates   *template.Template
	AuthService *auth.Service
	ItemService *item.Service
	Checks      []HealthCheck
}

const apiPrefix = "/v1"

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())
	router.Use(metrics.Middleware())
	if origins := deps.Config.CORS.AllowedOrigins; len(origins) > 0 {
		router.Use(apiCORS(origins))
	}

	registerHealthRoutes(router, deps.Checks)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	if deps.AuthService == nil || deps.ItemService == nil {
		return router
	}

	if deps.Templates != nil {
		router.SetHTMLTemplate(deps.Templates)
		pages := web.NewHandler(deps.AuthService, deps.ItemService, deps.Config.Server.SecureCookies)
		web.RegisterRoutes(router, pages)
	}

	api := router.Group(apiPrefix)
	auth.RegisterRoutes(api, deps.AuthService)

	protected := api.Group("/")
	protected.Use(auth.AuthMiddleware(deps.AuthService))
	item.RegisterRoutes(protected, deps.ItemService)

	return router
}

// apiCORS answers cross-origin requests, preflights included, for the JSON
// API. It runs on the engine so an OPTIONS request is handled before
// routing; the server-rendered pages stay same-origin.
func apiCORS(origins []string) gin.HandlerFunc {
	handle := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", logger.CorrelationIDHeader},
		ExposeHeaders:    []string{logger.CorrelationIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, apiPrefix+"/") {
			c.Next()
			return
		}
		handle(c)
	}
}
