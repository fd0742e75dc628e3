package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/danmuck/sliplink/internal/config"
	"github.com/danmuck/sliplink/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/sliplinkd/config.toml", "path to sliplink config")
	flag.Parse()

	logging.ConfigureRuntime()
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log.Info().Str("path", *configPath).Int("links", len(cfg.Links)).Msg("loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("sliplinkd stopped")
	}
	log.Info().Msg("sliplinkd stopped")
}
