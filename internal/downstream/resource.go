package downstream

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/logger"
)

// Config describes one backend collection. It is bound once at startup.
type Config struct {
	// Path is the collection path below the API root, e.g. "superadmin/users".
	Path string
	// IDField names the identifier property. Defaults to "id".
	IDField string
	// SingularKey wraps single-object responses.
	SingularKey string
	// PluralKey wraps list responses. Defaults to Path.
	PluralKey string

	BeforeCreate func(domain.Record) domain.Record
	BeforePatch  func(domain.Record) domain.Record
}

func (c Config) withDefaults() Config {
	if c.IDField == "" {
		c.IDField = "id"
	}
	if c.PluralKey == "" {
		c.PluralKey = c.Path
	}
	return c
}

// OwnerKind is a parent collection that owns child resources.
type OwnerKind string

const (
	OwnerUsers         OwnerKind = "users"
	OwnerEvents        OwnerKind = "events"
	OwnerOrganizations OwnerKind = "organizations"
)

// Resource is a stateless CRUD client for one collection. Every operation is a
// single round trip without retries or caching.
type Resource[T any] struct {
	client  *Client
	apiRoot string
	cfg     Config
}

func NewResource[T any](client *Client, apiRoot string, cfg Config) *Resource[T] {
	return &Resource[T]{
		client:  client,
		apiRoot: strings.TrimRight(apiRoot, "/"),
		cfg:     cfg.withDefaults(),
	}
}

func (r *Resource[T]) Config() Config { return r.cfg }

func (r *Resource[T]) IDField() string { return r.cfg.IDField }

func (r *Resource[T]) baseURL() string {
	return r.apiRoot + "/" + r.cfg.Path
}

func (r *Resource[T]) url(path string) string {
	return r.apiRoot + "/" + strings.TrimLeft(path, "/")
}

// Records is the same collection seen as loosely typed records.
func (r *Resource[T]) Records() *Resource[domain.Record] {
	return &Resource[domain.Record]{client: r.client, apiRoot: r.apiRoot, cfg: r.cfg}
}

func (r *Resource[T]) FetchOne(ctx context.Context, id int64) (T, error) {
	var zero T
	if id == 0 {
		return zero, domain.ErrMissingParameter(r.cfg.IDField)
	}
	return getOne[T](ctx, r.client, fmt.Sprintf("%s/%d", r.baseURL(), id), r.cfg.SingularKey)
}

func (r *Resource[T]) FetchAll(ctx context.Context) ([]T, error) {
	return getMany[T](ctx, r.client, r.baseURL(), r.cfg.PluralKey)
}

// FetchAllByOwner lists the collection below a parent, e.g. users/5/tickets.
func (r *Resource[T]) FetchAllByOwner(ctx context.Context, owner OwnerKind, ownerID int64) ([]T, error) {
	if ownerID == 0 {
		return nil, domain.ErrMissingParameter(string(owner) + " id")
	}
	return getMany[T](ctx, r.client, r.url(fmt.Sprintf("%s/%d/%s", owner, ownerID, r.cfg.Path)), r.cfg.PluralKey)
}

// Create posts data and returns the created object. onCreated, when given,
// receives the object; its failure is logged and never fails the create.
func (r *Resource[T]) Create(ctx context.Context, data domain.Record, onCreated func(T) error) (T, error) {
	var zero T
	payload := maps.Clone(data)
	if payload == nil {
		payload = domain.Record{}
	}
	if r.cfg.BeforeCreate != nil {
		payload = r.cfg.BeforeCreate(payload)
	}

	env, err := r.client.doJSON(ctx, http.MethodPost, r.baseURL(), payload)
	if err != nil {
		return zero, err
	}
	created, err := unwrapOne[T](env, r.cfg.SingularKey)
	if err != nil {
		return zero, err
	}

	if onCreated != nil {
		runCallback(ctx, r.cfg.Path, func() error { return onCreated(created) })
	}
	return created, nil
}

// Patch sends a partial update. data must carry a truthy identifier.
// subpath, when non-empty, is appended to the collection URL.
func (r *Resource[T]) Patch(ctx context.Context, data domain.Record, subpath string) (T, error) {
	var zero T
	if !Truthy(data[r.cfg.IDField]) {
		return zero, domain.ErrMissingParameter(r.cfg.IDField)
	}
	payload := maps.Clone(data)
	if r.cfg.BeforePatch != nil {
		payload = r.cfg.BeforePatch(payload)
	}

	url := r.baseURL()
	if subpath = strings.Trim(subpath, "/"); subpath != "" {
		url += "/" + subpath
	}

	env, err := r.client.doJSON(ctx, http.MethodPatch, url, payload)
	if err != nil {
		return zero, err
	}
	return unwrapOne[T](env, r.cfg.SingularKey)
}

// Save creates when data has no usable identifier and patches otherwise.
// An explicit null identifier is dropped before creating.
func (r *Resource[T]) Save(ctx context.Context, data domain.Record) (T, error) {
	id, present := data[r.cfg.IDField]
	if Truthy(id) {
		return r.Patch(ctx, data, "")
	}
	payload := maps.Clone(data)
	if present && id == nil {
		delete(payload, r.cfg.IDField)
	}
	return r.Create(ctx, payload, nil)
}

// DeleteOne removes a resource. The identifier travels in the JSON body.
func (r *Resource[T]) DeleteOne(ctx context.Context, id int64) error {
	if id == 0 {
		return domain.ErrInvalidParameter("Invalid resourceID provided on delete.")
	}
	_, err := r.client.doJSON(ctx, http.MethodDelete, r.baseURL(), domain.Record{r.cfg.IDField: id})
	return err
}

func getOne[T any](ctx context.Context, c *Client, url, key string) (T, error) {
	env, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return unwrapOne[T](env, key)
}

func getMany[T any](ctx context.Context, c *Client, url, key string) ([]T, error) {
	env, err := c.doJSON(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return unwrapMany[T](env, key)
}

func unwrapOne[T any](env envelope, key string) (T, error) {
	var out T
	raw, ok := env[key]
	if env == nil || !ok || isNull(raw) {
		logger.Log.Error().Str("key", key).Msg("backend response is missing the expected object")
		return out, domain.ErrInvalidResponse(key)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Log.Error().Err(err).Str("key", key).Msg("backend object has unexpected shape")
		return out, domain.ErrInvalidResponse(key)
	}
	return out, nil
}

func unwrapMany[T any](env envelope, key string) ([]T, error) {
	raw, ok := env[key]
	if env == nil || !ok {
		logger.Log.Error().Str("key", key).Msg("backend response is missing the expected list")
		return nil, domain.ErrInvalidResponse(key)
	}
	out := make([]T, 0)
	if isNull(raw) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Log.Error().Err(err).Str("key", key).Msg("backend list has unexpected shape")
		return nil, domain.ErrInvalidResponse(key)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func runCallback(ctx context.Context, resource string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Ctx(ctx).Error().Interface("panic", rec).Str("resource", resource).Msg("create callback panicked")
		}
	}()
	if err := fn(); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("resource", resource).Msg("create callback failed")
	}
}

// Truthy reports whether an identifier value counts as present:
// nil, zero numbers, empty strings and false do not.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int32:
		return x != 0
	case int64:
		return x != 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

// IDOf extracts a positive integer identifier from a record value. Anything
// that is not a whole positive number yields zero.
func IDOf(v any) int64 {
	var n int64
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 {
			return 0
		}
		n = int64(x)
	case int:
		n = int64(x)
	case int64:
		n = x
	case json.Number:
		n, _ = strconv.ParseInt(x.String(), 10, 64)
	case string:
		n, _ = strconv.ParseInt(x, 10, 64)
	}
	if n < 0 {
		return 0
	}
	return n
}
