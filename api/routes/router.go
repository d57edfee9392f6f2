package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hondusoft/fieldsales-backend/api/controllers"
	cartcontrollers "github.com/hondusoft/fieldsales-backend/api/controllers/cart"
	ordercontrollers "github.com/hondusoft/fieldsales-backend/api/controllers/orders"
	"github.com/hondusoft/fieldsales-backend/api/middleware"
	authsvc "github.com/hondusoft/fieldsales-backend/internal/auth"
	cartsvc "github.com/hondusoft/fieldsales-backend/internal/cart"
	catalogsvc "github.com/hondusoft/fieldsales-backend/internal/catalog"
	collectionsvc "github.com/hondusoft/fieldsales-backend/internal/collections"
	ordersvc "github.com/hondusoft/fieldsales-backend/internal/orders"
	"github.com/hondusoft/fieldsales-backend/pkg/auth/session"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	"github.com/hondusoft/fieldsales-backend/pkg/db"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
	"github.com/hondusoft/fieldsales-backend/pkg/metrics"
	"github.com/hondusoft/fieldsales-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	cache redis.Pinger,
	idemStore redis.IdempotencyStore,
	limiter middleware.RateLimiterStore,
	sessions session.UpstreamTokenResolver,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	authService authsvc.Service,
	catalogService catalogsvc.Service,
	cartService cartsvc.Service,
	ordersService ordersvc.Service,
	collectionsService collectionsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUserLimit,
	)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Post("/logout", controllers.AuthLogout(authService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(cartService, logg))
			r.Delete("/", cartcontrollers.Clear(cartService, logg))
			r.Post("/items", cartcontrollers.AddItem(cartService, logg))
			r.Patch("/items/{itemCode}", cartcontrollers.UpdateItem(cartService, logg))
			r.Delete("/items/{itemCode}", cartcontrollers.RemoveItem(cartService, logg))
			r.Put("/customer", cartcontrollers.SetCustomer(cartService, logg))
			r.Delete("/customer", cartcontrollers.ClearCustomer(cartService, logg))
			r.Put("/comments", cartcontrollers.SetComments(cartService, logg))
			r.Post("/edit-mode", cartcontrollers.EnterEditMode(cartService, logg))
			r.Delete("/edit-mode", cartcontrollers.ClearEditMode(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Submit(ordersService, logg))
			r.Get("/last", ordercontrollers.LastOrder(ordersService, logg))
			r.Get("/{docEntry}", ordercontrollers.GetOrder(ordersService, logg))
		})

		r.Get("/catalog/products", controllers.CatalogProducts(catalogService, logg))
		r.Post("/collections", controllers.RecordCollection(collectionsService, logg))
	})

	return r
}
