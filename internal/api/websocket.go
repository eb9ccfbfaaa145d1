package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"go-board/internal/auth"
	ws "go-board/internal/websocket"
)

type WebSocketHandler struct {
	hub      *ws.Hub
	relay    *ws.Relay
	resolver *auth.PrincipalResolver
	cfg      ws.Config
	upgrader gws.Upgrader
	log      zerolog.Logger
}

func NewWebSocketHandler(hub *ws.Hub, relay *ws.Relay, resolver *auth.PrincipalResolver, cfg ws.Config, allowedOrigin string, log zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		relay:    relay,
		resolver: resolver,
		cfg:      cfg,
		upgrader: gws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
		log: log,
	}
}

// originChecker admits browser requests from the configured frontend origin.
// An empty configuration admits any origin; requests without an Origin header
// (non-browser clients) always pass.
func originChecker(allowed string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if allowed == "" {
			return true
		}
		origin := r.Header.Get("Origin")
		return origin == "" || origin == allowed
	}
}

// HandleWebSocket authenticates the bearer credential once, at connection
// establishment, then upgrades and hands the socket to a session. A failed
// resolution rejects the connection before it ever reaches the active state.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		credential, _ = c.Cookie("token")
	}

	identity, err := h.resolver.Resolve(credential)
	if err != nil {
		var failure *auth.AuthFailure
		if errors.As(err, &failure) {
			h.log.Debug().Str("reason", string(failure.Reason)).Msg("websocket auth rejected")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := ws.NewSession(h.hub, h.relay, conn, identity, h.cfg, h.log)
	session.Run()
}

// GetConnectionInfo reports per-board subscriber counts.
func (h *WebSocketHandler) GetConnectionInfo(c *gin.Context) {
	stats := h.hub.Stats()

	boardStats := make(map[string]int, len(stats))
	total := 0
	for boardID, count := range stats {
		boardStats[strconv.FormatUint(uint64(boardID), 10)] = count
		total += count
	}

	c.JSON(200, gin.H{
		"total_subscriptions": total,
		"board_stats":         boardStats,
		"server_time":         time.Now().Format(time.RFC3339),
	})
}
