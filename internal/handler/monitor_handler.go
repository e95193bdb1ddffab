package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/edulab/studytrace-backend/internal/config"
	"github.com/edulab/studytrace-backend/internal/middleware"
	ws "github.com/edulab/studytrace-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live phase-transition events to researcher
// dashboards over WebSocket.
type MonitorHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// PhaseMonitorStream godoc
// WS /ws/v1/admin/monitor
// Upgrades to WebSocket and forwards every phase-transition event published
// by the phase engine.
func (h *MonitorHandler) PhaseMonitorStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Int("admin_id", claims.AdminID).Logger()
	wsLog.Info().Msg("Monitor connected")

	ctx := c.Request.Context()
	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.PhaseMonitorChannel())
	defer pubsub.Close()

	// Drain client messages: answer pings, detect disconnects.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
				continue
			}
			_ = ws.WriteError(conn, "unknown action")
		}
	}()

	events := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			wsLog.Info().Msg("Monitor disconnected")
			return
		case <-clientGone:
			wsLog.Info().Msg("Monitor closed connection")
			return
		case msg, ok := <-events:
			if !ok {
				wsLog.Warn().Msg("Monitor subscription closed")
				return
			}
			out := ws.PhaseEventMessage{
				Event:   ws.EventPhaseEvent,
				Payload: json.RawMessage(msg.Payload),
			}
			if err := ws.WriteTyped(conn, out); err != nil {
				wsLog.Debug().Err(err).Msg("Monitor write failed")
				return
			}
		}
	}
}
