package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ticketless/admin-console/internal/api"
	"github.com/ticketless/admin-console/internal/api/handlers"
	"github.com/ticketless/admin-console/internal/audit"
	"github.com/ticketless/admin-console/internal/config"
	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/form"
	"github.com/ticketless/admin-console/internal/logger"
	"github.com/ticketless/admin-console/internal/session"
	"github.com/ticketless/admin-console/internal/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logger.Init()
	log := logger.Log.With().Str("env", cfg.DeployEnv).Logger()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Tracing ----
	tp, err := tracing.Init(rootCtx, tracing.Config{
		ServiceVersion: cfg.ServiceVersion,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TracingEnabled,
		SampleRatio:    cfg.TraceSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("tracing init failed")
	}

	// ---- Session store ----
	var rdb *redis.Client
	var store session.Store
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(rootCtx, 2*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed (continuing)")
		} else {
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
		}
		cancel()
		store = session.NewRedisStore(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, sessions are kept in process memory")
		store = session.NewMemoryStore()
	}

	// ---- Backend clients ----
	client := downstream.NewClient(downstream.ClientConfig{
		ReadTimeout:  cfg.DownstreamReadTimeout,
		WriteTimeout: cfg.DownstreamWriteTimeout,
	})
	res := downstream.NewResources(client, cfg.Endpoints)
	res.LoginTimeout = cfg.LoginTimeout

	allow := domain.NewAllowlist(cfg.SuperadminEmails)
	if allow.Len() == 0 {
		log.Warn().Msg("SUPERADMIN_EMAILS is empty, nobody gets the elevated views")
	}
	sessions := session.NewManager(store, session.NewBackend(res), allow, cfg.SessionTTL)

	// ---- Audit trail ----
	var pub audit.Publisher = audit.Nop{}
	if cfg.AuditRabbitURL != "" {
		rp, err := audit.NewRabbitPublisher(audit.RabbitConfig{
			URL:      cfg.AuditRabbitURL,
			Exchange: cfg.AuditExchange,
			Attempts: 3,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("audit broker unreachable, audit events are only logged")
		} else {
			pub = rp
		}
	}
	defer pub.Close()
	auditLog := audit.New(log, pub)

	// ---- Forms ----
	forms := form.NewRegistry(form.Specs(res), api.AuditChanges(auditLog))
	go sweepForms(rootCtx, forms, cfg.FormIdleTimeout)

	checkers := []handlers.ReadinessChecker{handlers.NewPingChecker("session_store", sessions.Ping)}
	if cfg.BackendHealthURL != "" {
		checkers = append(checkers, handlers.NewHTTPReadinessChecker("ticketless_api", cfg.BackendHealthURL))
	}

	// ---- HTTP server ----
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.NewRouter(api.Deps{
			Config:    cfg,
			Resources: res,
			Sessions:  sessions,
			Forms:     forms,
			Audit:     auditLog,
			Redis:     rdb,
			Checkers:  checkers,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Logins may wait on the backend for up to LoginTimeout.
		WriteTimeout: cfg.LoginTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("api", cfg.Endpoints.APIBaseURL).Msg("admin console starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server crashed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("tracer shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}

// sweepForms discards abandoned form drafts until ctx ends.
func sweepForms(ctx context.Context, forms *form.Registry, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	t := time.NewTicker(maxIdle / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := forms.Sweep(maxIdle); n > 0 {
				logger.Log.Debug().Int("drafts", n).Msg("discarded idle forms")
			}
		}
	}
}
