package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/deorejayesh9663/UniTrade/api/controllers"
	"github.com/deorejayesh9663/UniTrade/api/middleware"
	"github.com/deorejayesh9663/UniTrade/internal/admin"
	"github.com/deorejayesh9663/UniTrade/internal/conversations"
	"github.com/deorejayesh9663/UniTrade/internal/listings"
	"github.com/deorejayesh9663/UniTrade/internal/media"
	"github.com/deorejayesh9663/UniTrade/internal/messages"
	"github.com/deorejayesh9663/UniTrade/internal/reports"
	"github.com/deorejayesh9663/UniTrade/internal/reviews"
	"github.com/deorejayesh9663/UniTrade/internal/users"
	"github.com/deorejayesh9663/UniTrade/internal/wishlist"
	"github.com/deorejayesh9663/UniTrade/pkg/config"
	"github.com/deorejayesh9663/UniTrade/pkg/logger"
)

// Params carries everything the HTTP surface is built from. Nil services
// answer with an internal error instead of panicking.
type Params struct {
	Config *config.Config
	Logger *logger.Logger
	// Readiness maps dependency names to their health checks.
	Readiness map[string]controllers.Pinger
	// RateLimits backs the auth throttles; nil disables them.
	RateLimits middleware.RateLimitStore
	Gatherer   prometheus.Gatherer

	Users         users.Service
	Listings      listings.Service
	Conversations conversations.Service
	Messages      messages.Service
	Wishlist      wishlist.Service
	Reviews       reviews.Service
	Admin         admin.Service
	Reports       reports.Service
	Media         media.Service
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Name:     "login",
		Window:   cfg.AuthRateLimit.LoginWindow,
		PerIP:    cfg.AuthRateLimit.LoginIPLimit,
		PerEmail: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Name:     "register",
		Window:   cfg.AuthRateLimit.RegisterWindow,
		PerIP:    cfg.AuthRateLimit.RegisterIPLimit,
		PerEmail: cfg.AuthRateLimit.RegisterEmailLimit,
	}
	upgrader := controllers.NewUpgrader(cfg.App.AllowedOrigins())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Readiness))
	})
	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimits, logg)).Post("/login", controllers.AuthLogin(p.Users, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimits, logg)).Post("/register", controllers.AuthRegister(p.Users, logg))
		})

		// Browsing is public; a token only scopes the feed to the caller's campus.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/listings", controllers.ListingsList(p.Listings, logg))
			r.Get("/listings/{listingId}", controllers.ListingGet(p.Listings, logg))
			r.Get("/listings/{listingId}/related", controllers.ListingRelated(p.Listings, logg))
			r.Get("/users/{userId}/listings", controllers.SellerListings(p.Listings, logg))
			r.Get("/users/{userId}/reviews", controllers.SellerReviews(p.Reviews, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/me", controllers.AuthMe(p.Users, logg))

			r.Post("/listings", controllers.ListingCreate(p.Listings, logg))
			r.Patch("/listings/{listingId}", controllers.ListingUpdate(p.Listings, logg))
			r.Post("/listings/{listingId}/sold", controllers.ListingMarkSold(p.Listings, logg))
			r.Delete("/listings/{listingId}", controllers.ListingDelete(p.Listings, logg))
			r.Post("/media/listing-images", controllers.MediaUploadListingImage(p.Media, cfg.Media.MaxUploadBytes(), logg))

			r.Get("/wishlist", controllers.WishlistList(p.Wishlist, logg))
			r.Get("/wishlist/{listingId}", controllers.WishlistStatus(p.Wishlist, logg))
			r.Post("/wishlist/{listingId}/toggle", controllers.WishlistToggle(p.Wishlist, logg))

			r.Post("/users/{userId}/reviews", controllers.ReviewCreate(p.Reviews, logg))
			r.Post("/reports", controllers.ReportCreate(p.Reports, logg))

			r.Get("/conversations", controllers.ConversationsList(p.Conversations, logg))
			r.Post("/conversations", controllers.ConversationOpen(p.Conversations, logg))
			r.Get("/conversations/ws", controllers.InboxStream(p.Conversations, upgrader, logg))
			r.Get("/conversations/{conversationId}", controllers.ConversationGet(p.Conversations, logg))
			r.Get("/conversations/{conversationId}/messages", controllers.MessagesList(p.Messages, logg))
			r.Post("/conversations/{conversationId}/messages", controllers.MessageSend(p.Messages, logg))
			r.Get("/conversations/{conversationId}/ws", controllers.ConversationStream(p.Messages, upgrader, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))
				r.Get("/stats", controllers.AdminStats(p.Admin, logg))
				r.Get("/settings", controllers.AdminSettings(p.Admin, logg))
				r.Put("/settings/fee", controllers.AdminUpdateFee(p.Admin, logg))
				r.Post("/cleanup", controllers.AdminCleanup(p.Admin, logg))
				r.Get("/listings", controllers.AdminListings(p.Listings, logg))
				r.Delete("/listings/{listingId}", controllers.ListingDelete(p.Listings, logg))
				r.Get("/reports", controllers.AdminReportsPending(p.Reports, logg))
				r.Post("/reports/{reportId}/resolve", controllers.AdminReportResolve(p.Reports, logg))
			})
		})
	})

	return r
}
