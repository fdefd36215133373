package http

import (
	"chat-relay/infrastructure/http/controller"
	"chat-relay/observability"
	"chat-relay/services"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	Socket         controller.SocketConfig
	// Monitoring enables GET /api/v1/stats when set.
	Monitoring *observability.MonitoringManager
}

// NewRouter builds the gin engine serving the REST API under /api/v1 and the realtime socket at /ws.
func NewRouter(log *slog.Logger, chat services.IChatService, query services.IQueryService, config RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log), corsMiddleware(config.AllowedOrigins))

	socketCtl := controller.NewSocketController(log, chat, config.Socket)
	r.GET("/ws", socketCtl.Handle())

	api := r.Group("/api/v1")
	RegisterRoutes(api, chat, query, config.RequestTimeout)
	if config.Monitoring != nil {
		api.GET("/stats", controller.Stats(config.Monitoring))
	}
	return r
}

// RegisterRoutes mounts the message and contact endpoints on g.
func RegisterRoutes(g *gin.RouterGroup, chat services.IChatService, query services.IQueryService, timeout time.Duration) {
	messagesCtl := controller.NewMessagesController(query, chat, timeout)
	contactsCtl := controller.NewContactsController(query, timeout)

	g.GET("/messages", messagesCtl.List())
	g.POST("/messages", messagesCtl.Post())

	g.GET("/contacts/internal", contactsCtl.Internal())
	g.GET("/contacts/:id", contactsCtl.ByID())
	g.PUT("/contacts/:id", contactsCtl.Save())
	g.POST("/contacts/touch", contactsCtl.Touch())

	g.GET("/up", controller.Health())
}

// corsMiddleware allows every origin when none is configured.
func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= 500 {
			level = slog.LevelWarn
		}
		log.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		)
	}
}
