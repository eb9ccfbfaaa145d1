package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	a "go-board/internal/auth"
	"go-board/internal/middleware"
	ws "go-board/internal/websocket"
)

type Router struct {
	ah *AuthHandlers
	bh *BoardHandlers
	mh *MessageHandlers
	wh *WebSocketHandler
	am *a.AuthMiddleware
}

func NewRouter(db *gorm.DB, hub *ws.Hub, relay *ws.Relay, cfg ws.Config, allowedOrigin string, log zerolog.Logger) *Router {
	return &Router{
		ah: NewAuthHandlers(db),
		bh: NewBoardHandlers(db),
		mh: NewMessageHandlers(db),
		wh: NewWebSocketHandler(hub, relay, a.NewPrincipalResolver(db), cfg, allowedOrigin, log),
		am: a.NewAuthMiddleware(),
	}
}

func (r *Router) RegisterRoutes(router *gin.Engine) {
	strict := middleware.NewIPRateLimiter(middleware.StrictRateLimit)
	standard := middleware.NewIPRateLimiter(middleware.StandardRateLimit)

	{
		unprotected := router.Group("/")
		unprotected.GET("/hc", HealthCheckHandler)
		unprotected.POST("/register", middleware.RateLimitMiddleware(strict), r.ah.RegisterHandler)
		unprotected.POST("/login", middleware.RateLimitMiddleware(strict), r.ah.LoginHandler)
	}

	// The websocket endpoint authenticates its own credential (query token or
	// cookie), so it sits outside the cookie middleware.
	router.GET("/ws", middleware.RateLimitMiddleware(standard), r.wh.HandleWebSocket)

	{
		protected := router.Group("/api")
		protected.Use(middleware.RateLimitMiddleware(standard), r.am.RequireAuth())
		protected.POST("/logout", r.ah.LogoutHandler)
		protected.POST("/refresh_token", r.ah.RefreshTokenHandler)

		protected.POST("/boards", r.bh.CreateBoardHandler)
		protected.GET("/boards", r.bh.GetBoardsHandler)
		protected.POST("/boards/:id/join", r.bh.JoinBoardHandler)
		protected.POST("/boards/:id/leave", r.bh.LeaveBoardHandler)
		protected.DELETE("/boards/:id", r.bh.DeleteBoardHandler)
		protected.GET("/boards/:id/members", r.bh.GetBoardMembersHandler)
		protected.DELETE("/boards/:id/members/:userId", r.bh.RemoveMemberHandler)
		protected.GET("/boards/:id/messages", r.mh.GetBoardMessagesHandler)

		protected.GET("/ws/info", r.wh.GetConnectionInfo)
	}
}

func HealthCheckHandler(c *gin.Context) {
	c.String(200, "Running")
}
