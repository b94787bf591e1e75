package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"genq/internal/api"
	"genq/internal/config"
	"genq/internal/ephemeral"
	"genq/internal/objstore"
	"genq/internal/queue"
	"genq/internal/ratelimit"
	"genq/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	objects, err := objstore.NewS3Store(ctx, objstore.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure object storage")
	}

	uploads := ephemeral.NewScheduler(objects)
	server := api.NewServer(cfg, st, queue.New(st, cfg.JobTTL), ratelimit.New(st), objects, uploads)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down cleanly")
		}
		// Flush pending ephemeral deletions instead of abandoning them.
		uploads.Stop()
	}()

	log.Info().Str("addr", cfg.ListenAddr).Str("queue", cfg.QueueName).Msg("api listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
