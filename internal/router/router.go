package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/config"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/enum"
	"github.com/tablekit/restaurant-api/internal/events"
	"github.com/tablekit/restaurant-api/internal/handler"
	mw "github.com/tablekit/restaurant-api/internal/middleware"
	"github.com/tablekit/restaurant-api/internal/service"
	"github.com/tablekit/restaurant-api/internal/ws"
	"go.uber.org/zap"
)

// Deps are the process-wide collaborators the routes are built from.
type Deps struct {
	Config    *config.Config
	Queries   *database.Queries
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Cache     cache.Cache
	Publisher events.Publisher
	Gateway   service.PaymentGateway
	Logger    *zap.Logger
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, restaurant scoping, and role-based middleware as needed.
func New(d Deps) chi.Router {
	cfg := d.Config
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(d.Queries, cfg.JWTSecret, d.Logger)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/restaurants/{rid}/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(
		d.Pool,
		d.Queries,
		func(db database.DBTX) service.OrderStore {
			return database.New(db)
		},
		d.Cache,
		d.Publisher,
		d.Logger.Named("orders"),
		service.OrderConfig{
			TaxRate:  decimal.NewFromFloat(cfg.TaxRate),
			CacheTTL: cfg.CacheTTL,
		},
	)
	kitchenService := service.NewKitchenService(d.Queries, d.Cache, d.Publisher, d.Logger.Named("kitchen"), cfg.KitchenCacheTTL)
	paymentService := service.NewPaymentService(d.Queries, d.Gateway, d.Cache, d.Publisher, d.Logger.Named("payments"))

	orderHandler := handler.NewOrderHandler(orderService, d.Logger)
	kitchenHandler := handler.NewKitchenHandler(kitchenService, d.Logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, d.Logger)
	menuHandler := handler.NewMenuHandler(d.Queries, d.Logger)
	userHandler := handler.NewUserHandler(d.Queries, d.Logger)

	managers := mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Restaurant-scoped routes
		r.Route("/restaurants/{rid}", func(r chi.Router) {
			r.Use(mw.RequireRestaurant)

			// Orders
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)

				// Payments (nested under orders)
				r.Route("/{id}/payments", paymentHandler.RegisterOrderRoutes)
			})

			// Kitchen display
			r.Route("/kitchen", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleKitchen, enum.UserRoleServer))
				kitchenHandler.RegisterRoutes(r)
			})

			// Refunds and payment reports
			r.Route("/payments", func(r chi.Router) {
				r.Use(managers)
				paymentHandler.RegisterRoutes(r)
			})

			// Menu catalog: everyone reads, managers write
			r.Route("/menu-items", func(r chi.Router) {
				r.Get("/", menuHandler.ListItems)
				r.With(managers).Post("/", menuHandler.CreateItem)
				r.With(managers).Patch("/{id}", menuHandler.UpdateItem)
			})
			r.Route("/modifiers", func(r chi.Router) {
				r.Get("/", menuHandler.ListModifiers)
				r.With(managers).Post("/", menuHandler.CreateModifier)
			})

			// Staff accounts
			r.Route("/users", func(r chi.Router) {
				r.Use(managers)
				userHandler.RegisterRoutes(r)
			})
		})
	})

	d.Logger.Info("router initialized",
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("kitchen_cache_ttl", cfg.KitchenCacheTTL),
		zap.String("events_broker", cfg.EventsBroker),
	)
	return r
}

// Timeouts used by cmd/server for the http.Server wrapping this router.
const (
	ReadTimeout  = 15 * time.Second
	WriteTimeout = 30 * time.Second
	IdleTimeout  = 60 * time.Second
)
