package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deorejayesh9663/UniTrade/internal/media/consumer"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"github.com/deorejayesh9663/UniTrade/pkg/pubsub"
	"github.com/deorejayesh9663/UniTrade/pkg/storage/gcs"
)

const serviceKind = "media-deletion-worker"

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	blob, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer blob.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	requireResource(ctx, logg, "image deletion subscription",
		pubsubClient.EnsureSubscription(ctx, cfg.PubSub.ImageDeletionSubscription))

	deletionConsumer, err := consumer.NewDeletionConsumer(
		blob,
		pubsubClient.ImageDeletionSubscriber(),
		logg,
		metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer),
	)
	requireResource(ctx, logg, "image deletion consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "media deletion worker ready")

	if err := deletionConsumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "media deletion worker stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
