package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deorejayesh9663/UniTrade/internal/admin"
	"github.com/deorejayesh9663/UniTrade/internal/cron"
	"github.com/deorejayesh9663/UniTrade/internal/listings"
	"github.com/deorejayesh9663/UniTrade/internal/media"
	"github.com/deorejayesh9663/UniTrade/internal/users"
	"github.com/deorejayesh9663/UniTrade/pkg/bigquery"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/db"
	"github.com/deorejayesh9663/UniTrade/pkg/instance"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
	"github.com/deorejayesh9663/UniTrade/pkg/metrics"
	"github.com/deorejayesh9663/UniTrade/pkg/migrate"
	"github.com/deorejayesh9663/UniTrade/pkg/pubsub"
	"github.com/deorejayesh9663/UniTrade/pkg/redis"
	"github.com/deorejayesh9663/UniTrade/pkg/storage/gcs"
)

const (
	serviceKind = "cron-worker"
	jobTimeout  = 30 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceKind})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var lock cron.Lock = &cron.LocalLock{}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisLock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind), 0)
		requireResource(ctx, logg, "cron lock", err)
		lock = redisLock
	}

	blob, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer blob.Close()

	var images listings.ImageRemover = media.NewDirectRemover(blob)
	if cfg.FeatureFlags.AsyncImagePurge {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer pubsubClient.Close()
		images = media.NewScheduledRemover(blob, pubsubClient.ImageDeletionPublisher())
	}

	marketMetrics := metrics.NewMarketplaceMetrics(prometheus.DefaultRegisterer)
	conn := dbClient.DB()

	userService, err := users.NewService(users.ServiceParams{
		Repo:        users.NewRepository(conn),
		JWT:         cfg.JWT,
		Password:    cfg.Password,
		Marketplace: cfg.Marketplace,
	})
	requireResource(ctx, logg, "user service", err)

	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:         listings.NewRepository(conn),
		Images:       images,
		DefaultImage: cfg.Marketplace.DefaultListingImage,
		Logger:       logg,
		Metrics:      marketMetrics,
	})
	requireResource(ctx, logg, "listing service", err)

	adminService, err := admin.NewService(admin.ServiceParams{
		Repo:          admin.NewRepository(conn),
		Users:         userService,
		Listings:      listingService,
		DefaultFee:    cfg.Marketplace.Fee(),
		SoldRetention: cfg.Marketplace.SoldRetention(),
		Logger:        logg,
	})
	requireResource(ctx, logg, "admin service", err)

	cleanupJob, err := cron.NewSoldListingCleanupJob(cron.SoldListingCleanupParams{
		Logger:    logg,
		Purger:    adminService,
		Retention: cfg.Marketplace.SoldRetention(),
	})
	requireResource(ctx, logg, "sold listing cleanup job", err)

	registry, err := cron.NewRegistry(cleanupJob)
	requireResource(ctx, logg, "cron registry", err)

	if cfg.BigQuery.Enabled() {
		bq, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		requireResource(ctx, logg, "bigquery", err)
		defer func() {
			if err := bq.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery", err)
			}
		}()
		snapshotJob, err := cron.NewPlatformStatsSnapshotJob(cron.PlatformStatsSnapshotParams{
			Logger: logg,
			Stats:  adminService,
			Sink:   bq,
		})
		requireResource(ctx, logg, "platform stats snapshot job", err)
		requireResource(ctx, logg, "cron registry", registry.Register(snapshotJob))
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Marketplace.CronInterval,
		JobTimeout: jobTimeout,
	})
	requireResource(ctx, logg, "cron service", err)

	logg.Info(logg.WithField(ctx, "jobs", registry.Len()), "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
