package form

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/logger"
	"github.com/ticketless/admin-console/internal/tracing"
)

// Action names a completed mutation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change describes a mutation that reached the backend.
type Change struct {
	Resource string
	Action   Action
	RecordID int64
	Fields   []string
	Actor    *domain.Principal
}

// ChangeHook is told about every successful save or delete.
type ChangeHook func(ctx context.Context, c Change)

// Snapshot is the client-facing state of an open form.
type Snapshot struct {
	FormID   uuid.UUID     `json:"formID"`
	Resource string        `json:"resource"`
	State    State         `json:"state"`
	RecordID int64         `json:"recordID,omitempty"`
	Values   domain.Record `json:"values"`
	Dirty    []string      `json:"dirty"`
	Notice   string        `json:"notice,omitempty"`
}

// Result is returned by operations that may close the form. Refresh tells the
// caller to refetch the list from the server.
type Result struct {
	Snapshot
	Refresh bool `json:"refresh"`
}

type key struct {
	owner    string
	resource string
}

type draft struct {
	id       uuid.UUID
	spec     Spec
	machine  Machine
	recordID int64
	original domain.Record
	current  domain.Record
	notice   string
	// busy is set while a delete is in flight.
	busy    bool
	touched time.Time
}

// Registry keeps at most one open draft per owner and resource.
type Registry struct {
	specs map[string]Spec
	hook  ChangeHook
	now   func() time.Time

	mu     sync.Mutex
	drafts map[key]*draft
}

func NewRegistry(specs map[string]Spec, hook ChangeHook) *Registry {
	return &Registry{
		specs:  specs,
		hook:   hook,
		now:    time.Now,
		drafts: make(map[key]*draft),
	}
}

// Spec returns the rules registered for resource.
func (r *Registry) Spec(resource string) (Spec, bool) {
	s, ok := r.specs[resource]
	return s, ok
}

// Open starts a form. A zero id creates, anything else loads the record for
// editing. An idle draft for the same resource is discarded.
func (r *Registry) Open(ctx context.Context, owner string, p *domain.Principal, resource string, id int64) (Snapshot, error) {
	spec, ok := r.specs[resource]
	if !ok {
		return Snapshot{}, domain.ErrInvalidParameter("Unknown form resource " + resource)
	}
	if id == 0 && spec.NoCreate {
		return Snapshot{}, domain.ErrMissingParameter(spec.IDField)
	}

	k := key{owner, resource}
	r.mu.Lock()
	if d, ok := r.drafts[k]; ok && (d.machine.State() == Saving || d.busy) {
		r.mu.Unlock()
		return Snapshot{}, invalid(d.machine.State(), "open")
	}
	r.mu.Unlock()

	d := &draft{id: uuid.New(), spec: spec, recordID: id}
	if id != 0 {
		rec, err := spec.Persister.Load(ctx, id)
		if err != nil {
			return Snapshot{}, err
		}
		d.original = withoutKeys(rec, spec.ReadOnly)
		d.current = maps.Clone(d.original)
	} else {
		d.original = domain.Record{}
		d.current = domain.Record{}
		if spec.Defaults != nil {
			maps.Copy(d.current, spec.Defaults(p))
		}
	}
	if err := d.machine.Open(id == 0); err != nil {
		return Snapshot{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.drafts[k]; ok && (prev.machine.State() == Saving || prev.busy) {
		return Snapshot{}, invalid(prev.machine.State(), "open")
	}
	d.touched = r.now()
	r.drafts[k] = d
	return d.snapshot(), nil
}

// Get returns the open draft for resource.
func (r *Registry) Get(owner, resource string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.lookup(owner, resource, uuid.Nil)
	if err != nil {
		return Snapshot{}, err
	}
	return d.snapshot(), nil
}

// Submit merges values into the draft, validates it and saves. Validation
// and backend failures keep the form open with the user's input.
func (r *Registry) Submit(ctx context.Context, owner string, p *domain.Principal, resource string, formID uuid.UUID, values domain.Record) (Result, error) {
	r.mu.Lock()
	d, err := r.lookup(owner, resource, formID)
	if err != nil {
		r.mu.Unlock()
		return Result{}, err
	}
	if d.busy {
		r.mu.Unlock()
		return Result{}, invalid(Removing, "save")
	}
	state := d.machine.State()
	if state != Creating && state != Editing {
		r.mu.Unlock()
		return Result{}, invalid(state, "save")
	}

	next := maps.Clone(d.current)
	for k, v := range withoutKeys(values, d.spec.ReadOnly) {
		if k == d.spec.IDField {
			continue
		}
		next[k] = v
	}
	if state == Editing {
		for _, f := range d.spec.Immutable {
			if ov, ok := d.original[f]; ok && !sameValue(ov, next[f]) {
				d.current = next
				d.touched = r.now()
				r.mu.Unlock()
				return Result{}, domain.ErrValidation(map[string]string{f: "immutable"})
			}
		}
	}
	if d.spec.Adjust != nil {
		d.spec.Adjust(next)
	}
	d.current = next
	d.touched = r.now()
	if d.spec.Validate != nil {
		if err := d.spec.Validate(next); err != nil {
			r.mu.Unlock()
			return Result{}, err
		}
	}

	var payload domain.Record
	var action Action
	if state == Creating {
		payload, action = CreatePayload(next, d.spec.IDField), ActionCreate
	} else {
		payload, action = Diff(d.original, next, d.spec.IDField), ActionUpdate
	}
	dirty := DirtyFields(d.original, next, d.spec.IDField)
	if state == Editing && len(dirty) == 0 {
		_ = d.machine.Cancel()
		delete(r.drafts, key{owner, resource})
		res := Result{Snapshot: d.snapshot()}
		res.Notice = "Nothing to save"
		r.mu.Unlock()
		return res, nil
	}
	_ = d.machine.BeginSave()
	r.mu.Unlock()

	spanCtx, span := tracing.StartSpan(ctx, "form.save "+resource)
	saved, err := d.spec.Persister.Save(spanCtx, d.recordID, payload)
	span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		_ = d.machine.SaveFailed()
		d.notice = "Saving failed"
		logger.Ctx(ctx).Warn().Err(err).Str("resource", resource).Msg("form save failed")
		return Result{}, err
	}
	_ = d.machine.SaveSucceeded()
	r.dropIfCurrent(key{owner, resource}, d)

	recordID := d.recordID
	if recordID == 0 && saved != nil {
		recordID = downstream.IDOf(saved[d.spec.IDField])
	}
	res := Result{Snapshot: d.snapshot(), Refresh: true}
	res.RecordID = recordID
	if saved != nil {
		res.Values = saved
	}
	res.Notice = "Saved"

	r.emit(ctx, Change{Resource: resource, Action: action, RecordID: recordID, Fields: dirty, Actor: p})
	return res, nil
}

// Remove asks for delete confirmation.
func (r *Registry) Remove(owner, resource string) (Snapshot, error) {
	return r.transition(owner, resource, (*Machine).BeginRemove)
}

// CancelRemove returns to editing without deleting.
func (r *Registry) CancelRemove(owner, resource string) (Snapshot, error) {
	return r.transition(owner, resource, func(m *Machine) error {
		return m.CancelRemove()
	})
}

// ConfirmRemove deletes the record. On failure the form stays in Removing.
func (r *Registry) ConfirmRemove(ctx context.Context, owner string, p *domain.Principal, resource string) (Result, error) {
	r.mu.Lock()
	d, err := r.lookup(owner, resource, uuid.Nil)
	if err != nil {
		r.mu.Unlock()
		return Result{}, err
	}
	if d.machine.State() != Removing || d.busy {
		r.mu.Unlock()
		return Result{}, invalid(d.machine.State(), "confirm remove")
	}
	d.busy = true
	r.mu.Unlock()

	spanCtx, span := tracing.StartSpan(ctx, "form.delete "+resource)
	err = d.spec.Persister.Delete(spanCtx, d.recordID)
	span.End()

	r.mu.Lock()
	defer r.mu.Unlock()
	d.busy = false
	d.touched = r.now()
	if err != nil {
		d.notice = "Deleting failed"
		logger.Ctx(ctx).Warn().Err(err).Str("resource", resource).Int64("id", d.recordID).Msg("form delete failed")
		return Result{}, err
	}
	_ = d.machine.RemoveSucceeded()
	r.dropIfCurrent(key{owner, resource}, d)

	res := Result{Snapshot: d.snapshot(), Refresh: true}
	res.Notice = "Deleted"
	r.emit(ctx, Change{Resource: resource, Action: ActionDelete, RecordID: d.recordID, Actor: p})
	return res, nil
}

// Cancel closes the form and discards the draft. Cancelling a form that is
// not open is a no-op.
func (r *Registry) Cancel(owner, resource string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{owner, resource}
	d, ok := r.drafts[k]
	if !ok {
		return nil
	}
	if d.busy {
		return invalid(Removing, "cancel")
	}
	if err := d.machine.Cancel(); err != nil {
		return err
	}
	delete(r.drafts, k)
	return nil
}

// DropOwner discards every draft of owner, e.g. on logout.
func (r *Registry) DropOwner(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, d := range r.drafts {
		if k.owner == owner && d.machine.State() != Saving && !d.busy {
			delete(r.drafts, k)
		}
	}
}

// Sweep discards idle drafts untouched for longer than maxIdle and reports how many.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	n := 0
	for k, d := range r.drafts {
		if d.touched.Before(cutoff) && d.machine.State() != Saving && !d.busy {
			delete(r.drafts, k)
			n++
		}
	}
	return n
}

func (r *Registry) transition(owner, resource string, fn func(*Machine) error) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, err := r.lookup(owner, resource, uuid.Nil)
	if err != nil {
		return Snapshot{}, err
	}
	if d.busy {
		return Snapshot{}, invalid(Removing, "change form")
	}
	if err := fn(&d.machine); err != nil {
		return Snapshot{}, err
	}
	d.notice = ""
	d.touched = r.now()
	return d.snapshot(), nil
}

// lookup must be called with mu held. A non-nil formID must match the open draft.
func (r *Registry) lookup(owner, resource string, formID uuid.UUID) (*draft, error) {
	if _, ok := r.specs[resource]; !ok {
		return nil, domain.ErrInvalidParameter("Unknown form resource " + resource)
	}
	d, ok := r.drafts[key{owner, resource}]
	if !ok {
		return nil, domain.ErrInvalidState("no open " + resource + " form")
	}
	if formID != uuid.Nil && formID != d.id {
		return nil, domain.ErrInvalidState("form was reopened elsewhere")
	}
	return d, nil
}

func (r *Registry) dropIfCurrent(k key, d *draft) {
	if r.drafts[k] == d {
		delete(r.drafts, k)
	}
}

func (r *Registry) emit(ctx context.Context, c Change) {
	if r.hook == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Ctx(ctx).Error().Interface("panic", rec).Str("resource", c.Resource).Msg("change hook panicked")
		}
	}()
	r.hook(ctx, c)
}

func (d *draft) snapshot() Snapshot {
	dirty := DirtyFields(d.original, d.current, d.spec.IDField)
	if dirty == nil {
		dirty = []string{}
	}
	return Snapshot{
		FormID:   d.id,
		Resource: d.spec.Resource,
		State:    d.machine.State(),
		RecordID: d.recordID,
		Values:   maps.Clone(d.current),
		Dirty:    dirty,
		Notice:   d.notice,
	}
}

func withoutKeys(r domain.Record, keys []string) domain.Record {
	out := maps.Clone(r)
	if out == nil {
		out = domain.Record{}
	}
	for k := range out {
		if slices.Contains(keys, k) {
			delete(out, k)
		}
	}
	return out
}
