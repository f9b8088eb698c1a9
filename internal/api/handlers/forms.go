package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/form"
	"github.com/ticketless/admin-console/middleware"
)

// Forms is the draft registry the form endpoints drive.
type Forms interface {
	Spec(resource string) (form.Spec, bool)
	Open(ctx context.Context, owner string, p *domain.Principal, resource string, id int64) (form.Snapshot, error)
	Get(owner, resource string) (form.Snapshot, error)
	Submit(ctx context.Context, owner string, p *domain.Principal, resource string, formID uuid.UUID, values domain.Record) (form.Result, error)
	Remove(owner, resource string) (form.Snapshot, error)
	CancelRemove(owner, resource string) (form.Snapshot, error)
	ConfirmRemove(ctx context.Context, owner string, p *domain.Principal, resource string) (form.Result, error)
	Cancel(owner, resource string) error
}

type FormHandler struct {
	forms Forms
}

func NewFormHandler(forms Forms) *FormHandler {
	return &FormHandler{forms: forms}
}

type openRequest struct {
	ID int64 `json:"id"`
}

type submitRequest struct {
	FormID uuid.UUID     `json:"formID"`
	Values domain.Record `json:"values"`
}

// target resolves the resource of the request and checks the principal may
// reach its view. Unknown and hidden resources both answer 404.
func (h *FormHandler) target(w http.ResponseWriter, r *http.Request) (string, *domain.Principal, bool) {
	p, ok := principal(w, r)
	if !ok {
		return "", nil, false
	}
	resource := chi.URLParam(r, "resource")
	spec, ok := h.forms.Spec(resource)
	if !ok || !domain.Allowed(p, spec.View) {
		http.NotFound(w, r)
		return "", nil, false
	}
	return resource, p, true
}

// owner keys drafts by session so two tabs of one session share a form.
func owner(r *http.Request) string {
	return middleware.GetToken(r.Context())
}

func (h *FormHandler) Open(w http.ResponseWriter, r *http.Request) {
	resource, p, ok := h.target(w, r)
	if !ok {
		return
	}
	var req openRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	snap, err := h.forms.Open(r.Context(), owner(r), p, resource, req.ID)
	if err != nil {
		handleError(w, r, err, "failed to open form")
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, snap)
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	resource, _, ok := h.target(w, r)
	if !ok {
		return
	}
	snap, err := h.forms.Get(owner(r), resource)
	if err != nil {
		handleError(w, r, err, "failed to load form")
		return
	}
	render.JSON(w, r, snap)
}

func (h *FormHandler) Submit(w http.ResponseWriter, r *http.Request) {
	resource, p, ok := h.target(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.forms.Submit(r.Context(), owner(r), p, resource, req.FormID, req.Values)
	if err != nil {
		handleError(w, r, err, "failed to save "+resource)
		return
	}
	render.JSON(w, r, res)
}

func (h *FormHandler) Remove(w http.ResponseWriter, r *http.Request) {
	resource, _, ok := h.target(w, r)
	if !ok {
		return
	}
	snap, err := h.forms.Remove(owner(r), resource)
	if err != nil {
		handleError(w, r, err, "failed to start removal")
		return
	}
	render.JSON(w, r, snap)
}

func (h *FormHandler) CancelRemove(w http.ResponseWriter, r *http.Request) {
	resource, _, ok := h.target(w, r)
	if !ok {
		return
	}
	snap, err := h.forms.CancelRemove(owner(r), resource)
	if err != nil {
		handleError(w, r, err, "failed to cancel removal")
		return
	}
	render.JSON(w, r, snap)
}

func (h *FormHandler) ConfirmRemove(w http.ResponseWriter, r *http.Request) {
	resource, p, ok := h.target(w, r)
	if !ok {
		return
	}
	res, err := h.forms.ConfirmRemove(r.Context(), owner(r), p, resource)
	if err != nil {
		handleError(w, r, err, "failed to delete "+resource)
		return
	}
	render.JSON(w, r, res)
}

func (h *FormHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	resource, _, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.forms.Cancel(owner(r), resource); err != nil {
		handleError(w, r, err, "failed to close form")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
