package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"genq/internal/config"
	"genq/internal/generate"
	"genq/internal/notify"
	"genq/internal/queue"
	"genq/internal/store"
	"genq/internal/worker"
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

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	mux := worker.NewMux()
	mux.Handle("video", generate.Video(cfg.StageDelay))
	mux.Handle("poster", generate.Poster(cfg.StageDelay))
	mux.Handle("voice", generate.Voice(cfg.StageDelay))

	w := worker.New(
		queue.New(st, cfg.JobTTL),
		mux.Dispatch,
		notify.New(st, cfg.NotifyChannel),
		worker.Config{
			Queue:         cfg.QueueName,
			MaxConcurrent: cfg.MaxConcurrent,
			PollTimeout:   cfg.PollTimeout,
			JobTimeout:    cfg.JobTimeout,
		},
	)

	// Run exits once the signal context cancels and in-flight jobs drain.
	w.Run(ctx)
}
