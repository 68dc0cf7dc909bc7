package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Controllers whose dependency is nil are not mounted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(cfg.Logger))
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Registry, cfg.Version)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	api := router.Group("/api")

	// Source registry endpoints
	if cfg.Registry != nil {
		sourcesController := NewSourcesController(cfg.Registry)
		api.GET("/sources", sourcesController.ListSources)
		api.GET("/sources/:source/books/:id/content", sourcesController.GetBookContent)
	}

	// Import job endpoints
	if cfg.ImportService != nil {
		importsController := NewImportsController(cfg.ImportService)
		api.POST("/imports", importsController.StartImport)
		api.GET("/imports", importsController.ListImports)
		api.GET("/imports/:id", importsController.GetImport)
	}

	// Imported books endpoints
	if cfg.BookStore != nil {
		var covers CoverCache
		if cfg.Covers != nil {
			covers = cfg.Covers
		}
		booksController := NewBooksController(cfg.BookStore, covers)
		api.GET("/books", booksController.ListBooks)
		api.GET("/books/stats", booksController.GetBookStats)
		api.GET("/books/:id", booksController.GetBook)
		api.GET("/books/:id/cover", booksController.GetBookCover)
	}

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}

// requestLogger logs one line per request.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Info()
		if status >= 500 {
			event = log.Error()
		} else if status >= 400 {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
