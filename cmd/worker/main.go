package main

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/pos-gateway/internal/config"
	"github.com/noah-isme/pos-gateway/internal/notify"
	"github.com/noah-isme/pos-gateway/internal/obs"
	"github.com/noah-isme/pos-gateway/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	deliveryWorker := &notify.DeliveryWorker{
		WebhookURL: cfg.ReceiptWebhookURL,
		Secret:     cfg.ReceiptWebhookSecret,
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{},
			Breaker: resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).
				WithTarget("receipt-webhook", &logger),
			BaseBackoff: cfg.RetryBaseBackoff,
			MaxAttempts: 1, // asynq owns the retry schedule
			Timeout:     cfg.UpstreamTimeout,
			Target:      "receipt-webhook",
			Logger:      &logger,
		},
		Logger: logger,
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     redisOpts.Addr,
			Username: redisOpts.Username,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		},
		asynq.Config{
			Concurrency: envInt("WORKER_CONCURRENCY", 5),
			Queues: map[string]int{
				notify.QueueReceipts: 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TypeReceiptDeliver, deliveryWorker.HandleReceiptDeliver)

	logger.Info().Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}
