package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fortuna/crease/internal/api/rest"
	"github.com/fortuna/crease/internal/api/websocket"
	"github.com/fortuna/crease/internal/cache"
	"github.com/fortuna/crease/internal/config"
	"github.com/fortuna/crease/internal/logger"
	"github.com/fortuna/crease/internal/publisher"
	"github.com/fortuna/crease/internal/service"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

const (
	serviceName     = "crease"
	shutdownTimeout = 5 * time.Second
	redisRetries    = 30
	redisRetryDelay = 2 * time.Second
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info().Str("service", serviceName).Msg("starting live scoring service")

	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(cfg.LogLevel)

	db, err := store.NewDatabase(cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisCache, err := connectRedis(log, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisCache.Close()

	redisPublisher, err := publisher.NewRedisPublisher(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize publisher")
	}
	defer redisPublisher.Close()

	matchRepo := repository.NewMatchRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	inningRepo := repository.NewInningRepository(db)
	ballRepo := repository.NewBallRepository(db)
	cardRepo := repository.NewScorecardRepository(db)

	scoringService := service.NewScoringService(
		matchRepo, teamRepo, inningRepo, ballRepo, cardRepo,
		redisCache, redisPublisher, log,
	)

	restServer := rest.NewServer(cfg.RESTPort, scoringService, log)
	wsServer := websocket.NewServer(redisCache.Client(), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.RESTPort).Msg("rest api listening")
		return restServer.Start()
	})
	g.Go(func() error {
		return wsServer.Start(gctx, cfg.WSPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := wsServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("websocket server shutdown failed")
		}
		return restServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server exited")
	}
	log.Info().Msg("stopped")
}

// connectRedis retries the initial connection; in container environments
// Redis often comes up after the service.
func connectRedis(log zerolog.Logger, redisURL string) (*cache.RedisCache, error) {
	var lastErr error
	for attempt := 1; attempt <= redisRetries; attempt++ {
		c, err := cache.NewRedisCache(redisURL)
		if err == nil {
			return c, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("redis not ready, retrying")
		time.Sleep(redisRetryDelay)
	}
	return nil, lastErr
}
