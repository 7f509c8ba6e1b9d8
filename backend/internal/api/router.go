package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"kgraph-atlas/backend/internal/graph"
	"kgraph-atlas/backend/internal/layout"
	"kgraph-atlas/backend/internal/metrics"
)

// Deps are the collaborators the HTTP API is built from
type Deps struct {
	Source         graph.Source
	Editor         graph.Editor
	Metrics        *metrics.Collector
	Registry       *Registry
	DefaultMode    layout.Mode
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter wires every route onto a new gin engine
func NewRouter(deps Deps) *gin.Engine {
	h := NewHandler(deps)

	router := gin.New()
	router.Use(ginLogger(h.logger))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(metricsMiddleware(deps.Metrics))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "views": h.registry.Len()})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/conversations/:id/graph", h.GetConversationGraph)

		api.POST("/views", h.CreateView)

		views := api.Group("/views/:view")
		{
			views.GET("", h.GetView)
			views.DELETE("", h.CloseView)

			views.POST("/hover", h.Hover)
			views.POST("/select", h.Select)
			views.POST("/filter", h.SetFilter)
			views.POST("/highlight", h.SetHighlight)
			views.POST("/layout", h.SetLayoutMode)
			views.POST("/positions", h.NotePositionChange)
			views.POST("/reset", h.ResetLayout)
			views.POST("/refresh", h.Refresh)
			views.POST("/conversation", h.SwitchConversation)
			views.POST("/edit", h.BeginEdit)

			views.GET("/viewport", h.Viewport)
			views.GET("/positions", h.ExportPositions)
			views.PUT("/positions", h.ImportPositions)
			views.GET("/export.svg", h.ExportSVG)

			views.PATCH("/nodes/:node", h.UpdateNode)
			views.DELETE("/nodes/:node", h.DeleteNode)
			views.PATCH("/edges/:edge", h.UpdateEdge)
			views.DELETE("/edges/:edge", h.DeleteEdge)
		}
	}

	return router
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func metricsMiddleware(m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
