package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/uhyunpark/bulkboard/params"
	"github.com/uhyunpark/bulkboard/pkg/api"
	"github.com/uhyunpark/bulkboard/pkg/board"
	"github.com/uhyunpark/bulkboard/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.LogFile)

	// ---- Storage ----
	var store *board.Store
	if cfg.Storage.DBPath != "" {
		store, err = board.NewStore(cfg.Storage.DBPath)
		if err != nil {
			sugar.Fatalw("store_open_failed", "path", cfg.Storage.DBPath, "err", err)
		}
		defer store.Close()
		sugar.Infow("store_opened", "path", cfg.Storage.DBPath)
	} else {
		sugar.Info("persistence disabled - running ephemeral")
	}

	// ---- Engine ----
	engine, err := board.NewEngine(store, util.RealClock{}, sugar)
	if err != nil {
		sugar.Fatalw("engine_init_failed", "err", err)
	}

	// ---- User roster (optional) ----
	var roster *board.Roster
	if cfg.UsersFile != "" {
		roster, err = board.LoadRoster(cfg.UsersFile)
		if err != nil {
			sugar.Warnw("roster_load_failed", "path", cfg.UsersFile, "err", err)
		} else {
			sugar.Infow("roster_loaded", "path", cfg.UsersFile, "users", len(roster.List()))
		}
	}

	// ---- API server ----
	server := api.NewServer(engine, roster, sugar, cfg.API.AllowedOrigins)

	// Push offer changes out over the websocket hub
	engine.OnOfferUpdate = server.BroadcastOfferUpdate
	engine.OnOfferDelete = server.BroadcastOfferDelete

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("boardd_started",
		"addr", cfg.API.Addr,
		"offers", len(engine.ListOffers()))

	<-ctx.Done()
	sugar.Info("shutting down")
}
