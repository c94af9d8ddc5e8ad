package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	router "github.com/Rohan357015/raja-mantri-game/internal/adapters/http"
	wsignal "github.com/Rohan357015/raja-mantri-game/internal/adapters/signal"
	"github.com/Rohan357015/raja-mantri-game/internal/app"
	"github.com/Rohan357015/raja-mantri-game/internal/config"
	"github.com/Rohan357015/raja-mantri-game/internal/core"
	"github.com/Rohan357015/raja-mantri-game/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	roomStore, storeKind, disconnect := selectStore(ctx, cfg)
	defer disconnect()
	log.Info().Str("store", storeKind).Msg("room store selected")

	reg := app.NewRegistry()
	gw := wsignal.NewGateway(reg)
	lobby := app.NewLobby(roomStore, reg, gw, app.Options{
		MaxPlayers: cfg.MaxPlayers,
		MinPlayers: cfg.MinPlayers,
	})
	ctl := wsignal.NewController(lobby, reg)

	janitor := app.NewJanitor(lobby, cfg.RoomTTL, cfg.SweepEvery)
	go janitor.Run(ctx)

	h := router.NewHandler(lobby, roomStore, storeKind)
	r := router.SetupRouter(ctx, cfg, h, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("lobby server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

// selectStore is the startup capability check: use mongo when it is
// configured and answers a ping, otherwise fall back to the in-memory
// store. Both satisfy the same contract, so nothing downstream cares.
func selectStore(ctx context.Context, cfg *config.Config) (core.RoomStore, string, func()) {
	codes := store.NewCodeGenerator()
	noop := func() {}

	if cfg.MongoURI == "" {
		log.Warn().Msg("mongo_uri not set, using in-memory store; rooms will not survive a restart")
		return store.NewMemoryStore(codes), "memory", noop
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		err = client.Ping(connectCtx, nil)
	}
	if err != nil {
		log.Warn().Err(err).Msg("mongo unreachable, falling back to in-memory store")
		return store.NewMemoryStore(codes), "memory", noop
	}

	mongoStore := store.NewMongoStore(client.Database(cfg.MongoDB), codes)
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("mongo index setup failed, falling back to in-memory store")
		_ = client.Disconnect(context.Background())
		return store.NewMemoryStore(codes), "memory", noop
	}

	disconnect := func() {
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
	}
	return mongoStore, "mongo", disconnect
}
