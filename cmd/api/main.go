package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/deorejayesh9663/UniTrade/api/controllers"
	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/api/routes"
	"github.com/deorejayesh9663/UniTrade/internal/admin"
	"github.com/deorejayesh9663/UniTrade/internal/conversations"
	"github.com/deorejayesh9663/UniTrade/internal/listings"
	"github.com/deorejayesh9663/UniTrade/internal/live"
	"github.com/deorejayesh9663/UniTrade/internal/media"
	"github.com/deorejayesh9663/UniTrade/internal/messages"
	"github.com/deorejayesh9663/UniTrade/internal/reports"
	"github.com/deorejayesh9663/UniTrade/internal/reviews"
	"github.com/deorejayesh9663/UniTrade/internal/users"
	"github.com/deorejayesh9663/UniTrade/internal/wishlist"
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

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"database": dbClient}

	// Without Redis the API runs as a single instance: live fan-out stays
	// in-process and rate limits are not enforced.
	var (
		broker         live.Broker = live.NewHub()
		rateLimitStore middleware.RateLimitStore
		messageLimiter messages.RateLimiter
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisBroker := live.NewRedisBroker(redisClient, logg)
		go func() {
			if err := redisBroker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "live relay stopped", err)
			}
		}()
		broker = redisBroker
		rateLimitStore = redisClient
		messageLimiter = redisClient
		readiness["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, running single-instance")
	}

	blob, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer blob.Close()
	readiness["gcs"] = blob

	var images listings.ImageRemover = media.NewDirectRemover(blob)
	if cfg.FeatureFlags.AsyncImagePurge {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
		images = media.NewScheduledRemover(blob, pubsubClient.ImageDeletionPublisher())
		readiness["pubsub"] = pubsubClient
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	marketMetrics := metrics.NewMarketplaceMetrics(reg)

	conn := dbClient.DB()
	userService, err := users.NewService(users.ServiceParams{
		Repo:        users.NewRepository(conn),
		JWT:         cfg.JWT,
		Password:    cfg.Password,
		Marketplace: cfg.Marketplace,
	})
	requireService(ctx, logg, "users", err)

	listingService, err := listings.NewService(listings.ServiceParams{
		Repo:         listings.NewRepository(conn),
		Images:       images,
		DefaultImage: cfg.Marketplace.DefaultListingImage,
		Logger:       logg,
		Metrics:      marketMetrics,
	})
	requireService(ctx, logg, "listings", err)

	conversationService, err := conversations.NewService(conversations.ServiceParams{
		DB:       conn,
		Listings: listingService,
		Broker:   broker,
		Logger:   logg,
		Metrics:  marketMetrics,
	})
	requireService(ctx, logg, "conversations", err)

	messageService, err := messages.NewService(messages.ServiceParams{
		DB:            conn,
		Conversations: conversationService,
		Broker:        broker,
		Limiter:       messageLimiter,
		RateLimit: messages.RateLimit{
			Limit:  cfg.MessageRateLimit.Limit,
			Window: cfg.MessageRateLimit.Window,
		},
		Logger:  logg,
		Metrics: marketMetrics,
	})
	requireService(ctx, logg, "messages", err)

	wishlistService, err := wishlist.NewService(wishlist.NewRepository(conn), listingService)
	requireService(ctx, logg, "wishlist", err)

	reviewService, err := reviews.NewService(reviews.NewRepository(conn))
	requireService(ctx, logg, "reviews", err)

	adminService, err := admin.NewService(admin.ServiceParams{
		Repo:          admin.NewRepository(conn),
		Users:         userService,
		Listings:      listingService,
		DefaultFee:    cfg.Marketplace.Fee(),
		SoldRetention: cfg.Marketplace.SoldRetention(),
		Logger:        logg,
	})
	requireService(ctx, logg, "admin", err)

	reportService, err := reports.NewService(reports.ServiceParams{
		Repo:     reports.NewRepository(conn),
		Listings: listingService,
		Logger:   logg,
	})
	requireService(ctx, logg, "reports", err)

	mediaService, err := media.NewService(media.ServiceParams{
		Blob:     blob,
		MaxBytes: cfg.Media.MaxUploadBytes(),
		Logger:   logg,
	})
	requireService(ctx, logg, "media", err)

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:        cfg,
			Logger:        logg,
			Readiness:     readiness,
			RateLimits:    rateLimitStore,
			Gatherer:      reg,
			Users:         userService,
			Listings:      listingService,
			Conversations: conversationService,
			Messages:      messageService,
			Wishlist:      wishlistService,
			Reviews:       reviewService,
			Admin:         adminService,
			Reports:       reportService,
			Media:         mediaService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "service", name), "failed to create service", err)
	os.Exit(1)
}
