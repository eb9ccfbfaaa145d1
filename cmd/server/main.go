package main

import (
	"go-board/internal/api"
	"go-board/internal/config"
	"go-board/internal/observability"
)

func main() {
	logger := observability.InitLogger("go-board")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("loading configuration")
	}

	if err := api.Serve(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
