package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/medrelay/signal-server/internal/config"
	"github.com/medrelay/signal-server/internal/core"
	"github.com/medrelay/signal-server/internal/store"
)

// NewServer builds the HTTP server: health, the signaling WebSocket, and the
// read-only call log / chat history API.
func NewServer(hub *core.Hub, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(CORS(cfg.AllowedOrigins))

	router.GET("/health", healthHandler)

	ws := NewWSHandler(hub, cfg.AllowedOrigins, logger)
	router.GET("/ws", gin.WrapH(ws))

	api := newAPIHandlers(st, logger)
	router.GET("/api/calls", api.listCalls)
	router.GET("/api/messages", api.listMessages)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"status": "ok"})
}
