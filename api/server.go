/*
server.go - HTTP router and middleware configuration

ROUTER: chi

MIDDLEWARE STACK:
  1. RequestID:       Unique ID per request, echoed in access logs
  2. RealIP:          Client address for rate limiting
  3. RequestLogger:   zap access log
  4. Recoverer:       Panic recovery (500 instead of crash)
  5. CORS:            Cross-origin requests from the SPA
  6. Authenticate:    Bearer token -> identity in context (never rejects)
  7. SimulateLatency: Optional artificial delay on /api

ROUTE GROUPS:
  /healthz               Liveness
  /api/auth/*            Login, signup (rate limited per IP), logout
  /api/me, /api/dashboards/{route}
  /api/leave/*           Balances, quotas, day-count preview
  /api/leave-requests/*  Submit, cancel, history, export
  /api/holidays/*        Calendar (writes: hr, superadmin)
  /api/audit             hr, superadmin
  /api/scenarios/*       Demo data (writes: superadmin)
  /*                     Static files (frontend), when StaticDir exists

SEE ALSO:
  - handlers.go, auth_handlers.go, scenarios.go: Handlers
  - middleware.go: Auth, latency, rate limiting
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/empowerflow/portal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	AllowedOrigins []string
	Latency        time.Duration
	// LoginRate is requests per second per IP on login/signup. Zero
	// disables the limiter.
	LoginRate  rate.Limit
	LoginBurst int
	StaticDir  string
}

// DefaultRouterConfig is what the server uses when nothing is configured.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		LoginRate:      rate.Limit(1),
		LoginBurst:     5,
		StaticDir:      "./web/dist",
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))
	r.Use(h.Authenticate)

	r.Get("/healthz", h.Health)

	admins := RequireRole(auth.RoleHR, auth.RoleSuperAdmin)
	superadmin := RequireRole(auth.RoleSuperAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Use(SimulateLatency(cfg.Latency))

		r.Route("/auth", func(r chi.Router) {
			r.With(RateLimitByIP(cfg.LoginRate, cfg.LoginBurst)).Post("/login", h.Login)
			r.With(RateLimitByIP(cfg.LoginRate, cfg.LoginBurst)).Post("/signup", h.Signup)
			r.Post("/logout", h.Logout)
		})

		// Route gating also answers anonymous callers (redirect to login).
		r.Get("/dashboards/{route}", h.Dashboard)

		r.Group(func(r chi.Router) {
			r.Use(RequireIdentity)

			r.Get("/me", h.Me)

			r.Route("/leave", func(r chi.Router) {
				r.Get("/balances", h.ListBalances)
				r.Get("/quotas", h.ListQuotas)
				r.Get("/calculate", h.Calculate)
			})

			r.Route("/leave-requests", func(r chi.Router) {
				r.Get("/", h.ListLeaveRequests)
				r.Post("/", h.SubmitLeaveRequest)
				r.Get("/export", h.ExportLeaveRequests)
				r.Delete("/{id}", h.CancelLeaveRequest)
			})

			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidays)
				r.Get("/upcoming", h.UpcomingHolidays)
				r.With(admins).Post("/", h.CreateHoliday)
				r.With(admins).Delete("/{id}", h.DeleteHoliday)
			})

			r.With(admins).Get("/audit", h.ListAudit)

			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.With(superadmin).Post("/load", h.LoadScenario)
				r.With(superadmin).Post("/reset", h.ResetDatabase)
			})
		})
	})

	if cfg.StaticDir != "" {
		if _, err := os.Stat(cfg.StaticDir); err == nil {
			mountSPA(r, cfg.StaticDir)
		}
	}
	return r
}

// mountSPA serves the built frontend, falling back to index.html for
// client-side routes.
func mountSPA(r chi.Router, dir string) {
	fileServer := http.FileServer(http.Dir(dir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(filepath.Join(dir, filepath.Clean(r.URL.Path))); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
