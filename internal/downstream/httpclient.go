package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ticketless/admin-console/internal/logger"
	"github.com/ticketless/admin-console/middleware"
)

// ClientConfig holds configuration for the HTTP client wrapper
type ClientConfig struct {
	// ReadTimeout is used for GET requests
	ReadTimeout time.Duration
	// WriteTimeout is used for POST, PUT, PATCH, DELETE requests
	WriteTimeout time.Duration
	// Transport overrides the underlying round tripper. Tests leave it nil.
	Transport http.RoundTripper
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
}

// Client is the single HTTP client every resource shares. It:
// 1. Injects X-Request-ID and the session's bearer token from context
// 2. Enforces timeouts based on HTTP method (read vs write)
// 3. Maps transport failures to ErrTimeout / ErrUnavailable
// 4. Logs and measures each call
type Client struct {
	baseClient *http.Client
	config     ClientConfig
}

func NewClient(config ClientConfig) *Client {
	transport := config.Transport
	if transport == nil {
		transport = &middleware.TracingTransport{Base: http.DefaultTransport}
	}
	return &Client{
		baseClient: &http.Client{
			// No global timeout - we set per-request timeouts
			Timeout:   0,
			Transport: transport,
		},
		config: config,
	}
}

type ctxKeyCallTimeout struct{}

// WithCallTimeout overrides the method-based timeout for calls made with ctx.
func WithCallTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, ctxKeyCallTimeout{}, d)
}

// Do executes an HTTP request with:
// - Request-ID and Authorization header injection
// - Method-based timeout enforcement
// - Unified error handling and logging
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, context.CancelFunc, error) {
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	token, ok := ctx.Value(ctxKeyToken{}).(string)
	if !ok {
		token = middleware.GetToken(ctx)
	}
	if token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	timeout := c.config.ReadTimeout
	if isWriteMethod(req.Method) {
		timeout = c.config.WriteTimeout
	}
	if d, ok := ctx.Value(ctxKeyCallTimeout{}).(time.Duration); ok && d > 0 {
		timeout = d
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	req = req.WithContext(ctx)

	log := logger.Ctx(ctx).With().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Logger()

	start := time.Now()
	resp, err := c.baseClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		cancel()
		mapped := c.mapError(err)
		middleware.ObserveBackendCall(req.Method, outcomeOf(mapped), duration)
		log.Warn().
			Err(err).
			Dur("duration", duration).
			Msg("downstream_request_failed")
		return nil, nil, mapped
	}

	middleware.ObserveBackendCall(req.Method, strconv.Itoa(resp.StatusCode), duration)
	log.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("downstream_request_completed")

	return resp, cancel, nil
}

// mapError converts low-level errors to domain errors
func (c *Client) mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout
	}
	// Connection refused, DNS errors, etc.
	return ErrUnavailable
}

func outcomeOf(err error) string {
	if errors.Is(err, ErrTimeout) {
		return "timeout"
	}
	return "unavailable"
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// envelope is a backend response body: a JSON object whose named keys wrap
// the payload, e.g. {"event": {...}} or {"events": [...]}.
type envelope map[string]json.RawMessage

// doJSON sends body (if any) as JSON and decodes a 2xx response as an
// envelope. Non-2xx answers become *StatusError. A 2xx body that is not a
// JSON object yields a nil envelope and a nil error; callers decide whether
// that is acceptable.
func (c *Client) doJSON(ctx context.Context, method, url string, body any) (envelope, error) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, cancel, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.mapError(err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil
	}
	return env, nil
}
