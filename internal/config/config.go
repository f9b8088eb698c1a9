package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Endpoints holds the three base URLs the console talks to or hands out.
// It is built once at startup and passed to every client constructor.
type Endpoints struct {
	APIBaseURL       string
	AppBaseURL       string
	EventCalendarURL string
}

type Config struct {
	Port      string
	DeployEnv string // local / development / production

	Endpoints Endpoints

	// SuperadminEmails is the allow-list that grants the elevated views.
	SuperadminEmails []string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionTTL    time.Duration
	SessionCookie string

	DownstreamReadTimeout  time.Duration
	DownstreamWriteTimeout time.Duration
	LoginTimeout           time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration

	CORSOrigins []string

	// BackendHealthURL, when set, is probed by /api/readyz.
	BackendHealthURL string

	TracingEnabled   bool
	TraceSampleRatio float64
	OTLPEndpoint     string
	ServiceVersion   string
	AuditRabbitURL   string
	AuditExchange    string
	ShutdownTimeout  time.Duration

	// FormIdleTimeout discards open form drafts nobody touched for this long.
	FormIdleTimeout time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("HTTP_PORT", "8080"),
		DeployEnv:     getEnv("DEPLOY_ENV", "local"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		SessionCookie: getEnv("SESSION_COOKIE", "ticketlessAdminAuthToken"),
		OTLPEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		// Version is stamped by the build.
		ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
		AuditRabbitURL: os.Getenv("AUDIT_RABBIT_URL"),
		AuditExchange:  getEnv("AUDIT_EXCHANGE", "ticketless.admin"),

		BackendHealthURL: os.Getenv("BACKEND_HEALTH_URL"),
	}

	ep, err := EndpointsFor(cfg.DeployEnv)
	if err != nil {
		return nil, err
	}
	ep.APIBaseURL = strings.TrimRight(getEnv("API_BASE_URL", ep.APIBaseURL), "/")
	ep.AppBaseURL = strings.TrimRight(getEnv("APP_BASE_URL", ep.AppBaseURL), "/")
	ep.EventCalendarURL = strings.TrimRight(getEnv("EVENT_CALENDAR_URL", ep.EventCalendarURL), "/")
	if err := ep.Validate(); err != nil {
		return nil, err
	}
	cfg.Endpoints = ep

	cfg.SuperadminEmails = splitList(os.Getenv("SUPERADMIN_EMAILS"))
	cfg.CORSOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:9002"))

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DownstreamReadTimeout, err = getDuration("DOWNSTREAM_READ_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DownstreamWriteTimeout, err = getDuration("DOWNSTREAM_WRITE_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.LoginTimeout, err = getDuration("LOGIN_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.LoginRateLimit, err = getInt("LOGIN_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.LoginRateWindow, err = getDuration("LOGIN_RATE_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FormIdleTimeout, err = getDuration("FORM_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.TracingEnabled, err = getBool("TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if v := os.Getenv("TRACE_SAMPLE_RATIO"); v != "" {
		if cfg.TraceSampleRatio, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid float for TRACE_SAMPLE_RATIO: %q: %w", v, err)
		}
	}

	return cfg, nil
}

// EndpointsFor returns the built-in base URLs for a deployment environment.
// Unknown environments are rejected; an empty one means local development.
func EndpointsFor(env string) (Endpoints, error) {
	switch env {
	case "", "local":
		return Endpoints{
			APIBaseURL:       "http://192.168.33.10",
			AppBaseURL:       "http://localhost:9001",
			EventCalendarURL: "http://localhost:9003",
		}, nil
	case "development":
		return Endpoints{
			APIBaseURL:       "https://dev-api.ticketless.fi",
			AppBaseURL:       "https://dev-app.ticketless.fi",
			EventCalendarURL: "https://dev-event-calendar.ticketless.fi",
		}, nil
	case "production":
		return Endpoints{
			APIBaseURL:       "https://api.ticketless.fi",
			AppBaseURL:       "https://app.ticketless.fi",
			EventCalendarURL: "https://event-calendar.ticketless.fi",
		}, nil
	default:
		return Endpoints{}, fmt.Errorf("unknown DEPLOY_ENV %q", env)
	}
}

// Validate rejects base URLs without a scheme or host.
func (e Endpoints) Validate() error {
	for _, f := range []struct{ name, raw string }{
		{"API_BASE_URL", e.APIBaseURL},
		{"APP_BASE_URL", e.AppBaseURL},
		{"EVENT_CALENDAR_URL", e.EventCalendarURL},
	} {
		u, err := url.Parse(f.raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s %q", f.name, f.raw)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
