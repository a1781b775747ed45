// Package main provides the arena server binary: a websocket front door for
// realtime multiplayer sessions coordinated through a shared Redis store.
package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/arenalabs/arena/internal/config"
	"github.com/arenalabs/arena/internal/game/matchmaking"
	"github.com/arenalabs/arena/internal/game/room"
	"github.com/arenalabs/arena/internal/game/state"
	"github.com/arenalabs/arena/internal/gateway"
	"github.com/arenalabs/arena/internal/observability"
	"github.com/arenalabs/arena/internal/server"
	"github.com/arenalabs/arena/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	st, err := store.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("connecting to shared store", zap.Error(err))
	}
	logger.Info("shared store connected", zap.String("url", cfg.Redis.URL))

	rooms := room.NewRegistry(st)
	queue := matchmaking.NewQueue(st, rooms)
	states := state.NewStore(st, logger)

	conns := gateway.NewRegistry()
	broadcaster := gateway.NewBroadcaster(conns, rooms, states, logger)
	gw := gateway.NewGateway(conns, rooms, queue, states, broadcaster, cfg.Matchmaking.RoomSize, logger)
	ws := gateway.NewServer(cfg.Server, gw, st, logger)

	// Shutdown runs in reverse order: the websocket server drains before the
	// store connection closes.
	lc := server.NewLifecycle(logger)
	lc.Add("store", &server.FuncService{
		StartFn: func() error { return nil },
		StopFn: func() {
			if err := st.Close(); err != nil {
				logger.Warn("closing shared store", zap.Error(err))
			}
		},
	})
	lc.Add("websocket", ws)

	if err := lc.Run(ctx); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
