package listing

import (
	"context"
	"sync"
	"time"

	"github.com/ticketless/admin-console/internal/logger"
)

// DegradedFetchFailed marks a page served from a stale or empty snapshot
// because the backend fetch failed.
const DegradedFetchFailed = "fetch_failed"

// Fetcher loads the full collection behind a view.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// View owns the snapshot of one list. Refresh replaces it on success and
// keeps the previous one on failure. After Close, results of fetches still
// in flight are discarded.
type View[T any] struct {
	name  string
	fetch Fetcher[T]

	mu      sync.Mutex
	items   []T
	loading bool
	closed  bool
	failed  bool
}

func NewView[T any](name string, fetch Fetcher[T]) *View[T] {
	return &View[T]{name: name, fetch: fetch, items: []T{}}
}

// Refresh fetches the collection once. The returned error is informational;
// the snapshot is always left in a usable state.
func (v *View[T]) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.loading = true
	v.mu.Unlock()

	items, err := v.fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return nil
	}
	v.loading = false
	if err != nil {
		v.failed = true
		logger.Ctx(ctx).Error().Err(err).Str("view", v.name).Msg("list fetch failed")
		return err
	}
	if items == nil {
		items = []T{}
	}
	v.items = items
	v.failed = false
	return nil
}

// Close unmounts the view.
func (v *View[T]) Close() {
	v.mu.Lock()
	v.closed = true
	v.loading = false
	v.mu.Unlock()
}

func (v *View[T]) Loading() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loading
}

// Page is one rendered list response.
type Page[T any] struct {
	Items    []T    `json:"items"`
	Total    int    `json:"total"`
	Degraded string `json:"degraded,omitempty"`
}

// Page filters the current snapshot by term and orders it newest first.
// Total counts the whole snapshot, before filtering.
func (v *View[T]) Page(term string, fields Fields[T], createdAt func(T) time.Time) Page[T] {
	v.mu.Lock()
	items := v.items
	failed := v.failed
	v.mu.Unlock()

	p := Page[T]{
		Items: NewestFirst(Search(items, term, fields), createdAt),
		Total: len(items),
	}
	if failed {
		p.Degraded = DegradedFetchFailed
	}
	return p
}
