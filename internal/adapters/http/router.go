package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Courier/internal/adapters/chat"
	"github.com/dkeye/Courier/internal/app"
	"github.com/dkeye/Courier/internal/config"
)

// SetupRouter wires the liveness text, the read-only REST surface and
// the websocket endpoint.
func SetupRouter(ctx context.Context, cfg *config.Config, broker *app.Broker, history *app.HistoryGateway) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Courier chat server is running")
	})

	api := r.Group("/api")

	api.GET("/messages", func(c *gin.Context) {
		msgs, err := history.All(c.Request.Context())
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("fetch all messages")
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch messages."})
			return
		}
		c.JSON(http.StatusOK, msgs)
	})

	api.GET("/users", func(c *gin.Context) {
		c.JSON(http.StatusOK, broker.Registry().Snapshot())
	})

	ctrl := chat.NewChatWSController(broker, cfg)
	r.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Msg("ws endpoint hit")
		ctrl.HandleChat(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
