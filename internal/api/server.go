package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"go-board/internal/auth"
	"go-board/internal/board"
	"go-board/internal/config"
	"go-board/internal/message"
	"go-board/internal/storage"
	ws "go-board/internal/websocket"
)

func Serve(cfg *config.Config, log zerolog.Logger) error {
	db, err := storage.Connect(cfg.DBPath)
	if err != nil {
		return err
	}

	auth.SetSecret(cfg.AppSecret)

	hub := ws.NewHub(log)
	gate := board.NewMembershipGate(db)
	relay := ws.NewRelay(hub, gate, message.NewMessageService(db), log)

	sessionCfg := ws.Config{
		MaxFrameBytes:  cfg.MaxFrameBytes,
		SendQueueDepth: cfg.SendQueueDepth,
		IdleTimeout:    cfg.IdleTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	}

	r := gin.Default()
	router := NewRouter(db, hub, relay, sessionCfg, cfg.AllowedOrigin, log)
	router.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Info().Str("addr", addr).Msg("listening")
	return r.Run(addr)
}
