package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/stashbot/api/controllers"
	"github.com/angelmondragon/stashbot/api/middleware"
	"github.com/angelmondragon/stashbot/internal/buyers"
	"github.com/angelmondragon/stashbot/internal/inventory"
	"github.com/angelmondragon/stashbot/internal/notifications"
	"github.com/angelmondragon/stashbot/internal/orders"
	"github.com/angelmondragon/stashbot/internal/sessions"
	"github.com/angelmondragon/stashbot/internal/stats"
	"github.com/angelmondragon/stashbot/internal/wallets"
	"github.com/angelmondragon/stashbot/pkg/auth"
	"github.com/angelmondragon/stashbot/pkg/config"
	"github.com/angelmondragon/stashbot/pkg/db"
	"github.com/angelmondragon/stashbot/pkg/logger"
	"github.com/angelmondragon/stashbot/pkg/redis"
)

// Deps carries everything the HTTP surface dispatches to. Redis may be nil.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         *redis.Client
	Gatherer      prometheus.Gatherer
	Inventory     inventory.Service
	Buyers        buyers.Service
	Wallets       wallets.Service
	Sessions      sessions.Service
	Orders        orders.Coordinator
	Notifications notifications.Service
	Stats         stats.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{"db": d.DB, "redis": nil}
	if d.Redis != nil {
		ready["redis"] = d.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, ready))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	submitLimit := middleware.RateLimit(
		middleware.NewRateLimitPolicy("submit", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.BuyerLimit, "buyerID"),
		rateStore(d.Redis),
		logg,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(d.Inventory, logg))

		r.Post("/buyers", controllers.TouchBuyer(d.Buyers, logg))
		r.Route("/buyers/{buyerID}", func(r chi.Router) {
			r.Get("/", controllers.GetBuyer(d.Buyers, logg))

			r.Post("/session", controllers.StartSession(d.Sessions, logg))
			r.Get("/session", controllers.GetSession(d.Sessions, logg))
			r.Delete("/session", controllers.CancelSession(d.Sessions, logg))

			r.With(submitLimit).Post("/orders", controllers.SubmitOrder(d.Orders, logg))
			r.Get("/orders", controllers.ListBuyerOrders(d.Orders, logg))

			r.Get("/notifications", controllers.ListNotifications(d.Notifications, logg))
		})

		r.Get("/orders/{ref}", controllers.GetOrder(d.Orders, logg))
		r.Post("/notifications/{notificationID}/sent", controllers.MarkNotificationSent(d.Notifications, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin, logg))
		r.Use(middleware.RequireRole(logg, auth.RoleAdmin))

		r.Post("/products", controllers.AdminCreateProduct(d.Inventory, logg))
		r.Delete("/products/{productID}", controllers.AdminDeleteProduct(d.Inventory, logg))
		r.Post("/products/{productID}/stash", controllers.AdminImportStash(d.Inventory, logg))
		r.Get("/products/{productID}/stock", controllers.AdminProductStock(d.Inventory, logg))

		r.Get("/wallets", controllers.AdminListWallets(d.Wallets, logg))
		r.Put("/wallets/{currency}", controllers.AdminSetWallet(d.Wallets, logg))

		r.Get("/stats", controllers.AdminStats(d.Stats, logg))
	})

	return r
}

// rateStore keeps a nil client from becoming a non-nil interface value.
func rateStore(client *redis.Client) middleware.RateLimiterStore {
	if client == nil {
		return nil
	}
	return client
}
