// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	// GenerateLimiter guards the generate endpoint. Nil disables limiting.
	GenerateLimiter *RateLimiter
	// EnableMetrics serves /metrics. The collectors register globally, so
	// it is enabled once per process.
	EnableMetrics bool
	Logger        *zap.Logger
}

// SetupRouter builds the gin engine.
func SetupRouter(handler *Handler, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(GinZapLogger(logger.Named("http")))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	// must precede the routes, gin only applies middleware to later routes
	if opts.EnableMetrics {
		p := ginprometheus.NewPrometheus("gin")
		p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
			// session ids would explode the label set
			if path := c.FullPath(); path != "" {
				return path
			}
			return "unmatched"
		}
		p.Use(r)
	}

	r.NoRoute(func(c *gin.Context) {
		handler.Response.NotFound(c, "Route not found.")
	})

	// ===============================
	// System
	// ===============================
	r.GET("/health", handler.Health)

	// WebSocket
	r.GET("/ws/sessions/:id/status", handler.StatusWebSocket)

	// ===============================
	// API
	// ===============================
	api := r.Group("/api")
	{
		api.GET("/options", handler.GetOptions)

		// ===============================
		// Credentials
		// ===============================
		credentials := api.Group("/credentials")
		{
			credentials.GET("", handler.GetCredentials)
			credentials.POST("/select", handler.SelectKey)
		}

		// ===============================
		// Sessions
		// ===============================
		sessions := api.Group("/sessions")
		{
			sessions.POST("", handler.CreateSession)
			sessions.GET("/:id", handler.GetSession)
			sessions.DELETE("/:id", handler.DeleteSession)

			sessions.POST("/:id/scenes", handler.AddScene)
			sessions.DELETE("/:id/scenes/:index", handler.RemoveScene)
			sessions.PATCH("/:id/scenes/:index", handler.UpdateScene)
			sessions.PUT("/:id/format", handler.SetFormat)

			// generation
			sessions.POST("/:id/compile", handler.Compile)
			generate := []gin.HandlerFunc{handler.Generate}
			if opts.GenerateLimiter != nil {
				generate = append([]gin.HandlerFunc{opts.GenerateLimiter.Middleware(handler.Response)}, generate...)
			}
			sessions.POST("/:id/generate", generate...)
			sessions.POST("/:id/connection/check", handler.CheckConnection)

			// export
			sessions.GET("/:id/output", handler.DownloadOutput)
			sessions.POST("/:id/output/save", handler.SaveOutput)
			sessions.GET("/:id/exports", handler.ListExports)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	config.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	config.ExposeHeaders = []string{requestIDHeader, "Content-Disposition"}
	config.MaxAge = 12 * time.Hour
	return config
}
