package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/middleware"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/service"
)

// authBurst is how many auth attempts a client may make back to back.
const authBurst = 5

// RouterConfig holds the HTTP-level settings of the API.
type RouterConfig struct {
	AllowedOrigins    []string
	RequestTimeout    time.Duration
	AuthRatePerMinute int
	// TrustProxy resolves client addresses from forwarding headers. Left
	// off, those headers are client controlled and ignored.
	TrustProxy        bool
	Health            *HealthHandler
}

// NewRouter wires handlers and middleware into the API router.
func NewRouter(cfg RouterConfig, products *service.ProductService, auth *service.AuthService, log *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler(log, "dev", nil)
	}

	productHandler := NewProductHandler(products, log)
	authHandler := NewAuthHandler(auth, log)
	nutriHandler := NewNutriScoreHandler(products, log)

	authenticate := middleware.Authenticate(auth, log)
	authLimit := middleware.RateLimit(middleware.NewIPRateLimiter(cfg.AuthRatePerMinute, authBurst))

	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	if cfg.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "Route not found", log)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", log)
	})

	// Register health check endpoint
	r.Get("/health", cfg.Health.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// Long-lived; kept out of the request timeout.
		r.Get("/nutriscore/live", nutriHandler.Live)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

			r.Post("/nutriscore/preview", nutriHandler.Preview)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", productHandler.ListProducts)
				r.Get("/categories", productHandler.Categories)
				r.Get("/ratings", productHandler.Ratings)
				r.Get("/{productId}", productHandler.GetProduct)
				r.Get("/{productId}/suggestions", productHandler.Suggestions)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)
					r.Use(middleware.RequireAdmin)

					r.Post("/", productHandler.CreateProduct)
					r.Put("/{productId}", productHandler.UpdateProduct)
					r.Delete("/{productId}", productHandler.DeleteProduct)
				})
			})

			r.Route("/auth", func(r chi.Router) {
				r.With(authLimit).Post("/register", authHandler.Register)
				r.With(authLimit).Post("/login", authHandler.Login)
				r.With(authLimit).Post("/forgot-password", authHandler.ForgotPassword)
				r.Post("/reset-password", authHandler.ResetPassword)

				r.Group(func(r chi.Router) {
					r.Use(authenticate)

					r.Post("/logout", authHandler.Logout)
					r.Get("/validate", authHandler.Me)
					r.Get("/me", authHandler.Me)
				})
			})
		})
	})

	return r
}
