package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/ticketless/admin-console/internal/api/handlers"
	"github.com/ticketless/admin-console/internal/audit"
	"github.com/ticketless/admin-console/internal/config"
	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/form"
	"github.com/ticketless/admin-console/internal/logger"
	"github.com/ticketless/admin-console/middleware"
)

// Sessions resolves request tokens and manages logins.
type Sessions interface {
	middleware.SessionResolver
	handlers.SessionManager
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config    *config.Config
	Resources *downstream.Resources
	Sessions  Sessions
	Forms     *form.Registry
	Audit     *audit.Logger
	// Redis is optional; without it rate limits are kept per process.
	Redis    *redis.Client
	Checkers []handlers.ReadinessChecker
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing("admin-console"))
	r.Use(middleware.Metrics)
	r.Use(middleware.RequestLogger(logger.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	ready := handlers.NewReadinessHandler(d.Checkers...)
	r.Get("/api/healthz", ready.Healthz)
	r.Get("/api/readyz", ready.Readyz)

	var rl *middleware.RedisRateLimiter
	if d.Redis != nil {
		rl = middleware.NewRedisRateLimiter(d.Redis)
	}

	auth := handlers.NewAuthHandler(d.Sessions, d.Audit, d.Forms, handlers.CookieConfig{
		Name:   cfg.SessionCookie,
		Secure: cfg.DeployEnv != "local",
	})
	lists := handlers.NewListHandler(d.Resources)
	forms := handlers.NewFormHandler(d.Forms)
	console := handlers.NewConsoleHandler(d.Resources, cfg.Endpoints, d.Sessions, d.Audit)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(d.Sessions, cfg.SessionCookie))

		r.With(limit(rl, cfg.LoginRateLimit, cfg.LoginRateWindow, middleware.KeyByIP)).
			Post("/auth/login", auth.Login)
		r.Post("/auth/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession)

			r.Get("/", handlers.Root)
			r.Get("/views", handlers.Views)
			r.Get("/auth/session", auth.Me)

			r.Get("/events", lists.Events)
			r.Get("/events/{id}/link", console.EventLink)
			r.Get("/calendar", console.Calendar)
			r.Get("/tickets", lists.Tickets)

			r.Get("/account", console.Account)
			r.Patch("/account", console.UpdateAccount)
			r.With(limit(rl, cfg.LoginRateLimit, cfg.LoginRateWindow, middleware.KeyByUser)).
				Post("/account/password", console.ChangePassword)

			r.With(middleware.RequireView(domain.ViewOverview)).Get("/overview", console.Overview)
			r.Route("/organizations", func(r chi.Router) {
				r.Use(middleware.RequireView(domain.ViewOrganizations))
				r.Get("/", lists.Organizations)
				r.Post("/{id}/members", console.AddMember)
			})
			r.With(middleware.RequireView(domain.ViewUsers)).Get("/users", lists.Users)
			r.With(middleware.RequireView(domain.ViewAdvertisements)).Get("/advertisements", lists.Advertisements)
			r.With(middleware.RequireView(domain.ViewFiles)).Get("/files", lists.Files)

			// Forms check the resource's view themselves.
			r.Route("/forms/{resource}", func(r chi.Router) {
				r.Get("/", forms.Get)
				r.Post("/", forms.Open)
				r.Delete("/", forms.Cancel)
				r.Post("/submit", forms.Submit)
				r.Post("/remove", forms.Remove)
				r.Post("/remove/cancel", forms.CancelRemove)
				r.Post("/remove/confirm", forms.ConfirmRemove)
			})
		})
	})

	return r
}

// limit applies a fixed window limit, shared through Redis when available.
func limit(rl *middleware.RedisRateLimiter, n int, window time.Duration, key func(*http.Request) string) func(http.Handler) http.Handler {
	if rl != nil {
		return rl.Middleware(middleware.RateLimitConfig{Limit: n, Window: window, KeyFn: key})
	}
	return httprate.Limit(n, window, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		return key(r), nil
	}))
}

// AuditChanges forwards completed form mutations to the audit trail.
func AuditChanges(l *audit.Logger) form.ChangeHook {
	return func(ctx context.Context, c form.Change) {
		e := audit.Event{
			Action:   string(c.Action),
			Resource: c.Resource,
			RecordID: c.RecordID,
			Fields:   c.Fields,
		}
		if c.Actor != nil {
			e.ActorID = c.Actor.UserID
			e.ActorEmail = c.Actor.Email
		}
		l.Record(ctx, e)
	}
}
