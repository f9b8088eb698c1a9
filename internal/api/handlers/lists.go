package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
	"github.com/ticketless/admin-console/internal/listing"
)

// ListHandler serves the searchable list views. Backend failures degrade
// the page instead of failing the request.
type ListHandler struct {
	res *downstream.Resources
}

func NewListHandler(res *downstream.Resources) *ListHandler {
	return &ListHandler{res: res}
}

// servePage fetches one snapshot, filters it by ?q= and writes the page.
// The view is closed when the request ends, so a fetch finishing after the
// client went away is dropped.
func servePage[T any](w http.ResponseWriter, r *http.Request, name string, fetch listing.Fetcher[T], fields listing.Fields[T], createdAt func(T) time.Time) {
	v := listing.NewView(name, fetch)
	defer v.Close()

	_ = v.Refresh(r.Context())
	if r.Context().Err() != nil {
		return
	}
	render.JSON(w, r, v.Page(r.URL.Query().Get("q"), fields, createdAt))
}

func (h *ListHandler) Events(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	scope := domain.ScopeOf(p)
	servePage(w, r, "events", func(ctx context.Context) ([]domain.Event, error) {
		switch {
		case scope.All:
			return downstream.AllEvents(ctx, h.res.Events)
		case scope.Empty():
			return []domain.Event{}, nil
		default:
			return downstream.OrganizationEvents(ctx, h.res.Events)
		}
	}, listing.EventFields, listing.EventCreated)
}

func (h *ListHandler) Tickets(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	scope := domain.ScopeOf(p)
	servePage(w, r, "tickets", func(ctx context.Context) ([]domain.Ticket, error) {
		switch {
		case scope.All:
			return h.res.Tickets.FetchAll(ctx)
		case scope.Empty():
			return []domain.Ticket{}, nil
		default:
			return downstream.TicketsByOrganization(ctx, h.res.Tickets, scope.OrganizationID)
		}
	}, listing.TicketFields, listing.TicketCreated)
}

type usersPage struct {
	listing.Page[domain.User]
	Organizations []domain.Organization `json:"organizations"`
}

// Users also returns the organizations for the organization picker of the
// user form. The two collections are fetched concurrently.
func (h *ListHandler) Users(w http.ResponseWriter, r *http.Request) {
	users := listing.NewView("users", h.res.Users.FetchAll)
	orgs := listing.NewView("organizations", h.res.Organizations.FetchAll)
	defer users.Close()
	defer orgs.Close()

	var orgErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		orgErr = orgs.Refresh(r.Context())
	}()
	_ = users.Refresh(r.Context())
	<-done
	if r.Context().Err() != nil {
		return
	}

	resp := usersPage{
		Page:          users.Page(r.URL.Query().Get("q"), listing.UserFields, listing.UserCreated),
		Organizations: orgs.Page("", listing.OrganizationFields, listing.OrganizationCreated).Items,
	}
	if orgErr != nil {
		resp.Degraded = listing.DegradedFetchFailed
	}
	render.JSON(w, r, resp)
}

func (h *ListHandler) Organizations(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, "organizations", h.res.Organizations.FetchAll, listing.OrganizationFields, listing.OrganizationCreated)
}

func (h *ListHandler) Advertisements(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, "advertisements", h.res.Advertisements.FetchAll, listing.AdvertisementFields, listing.AdvertisementCreated)
}

func (h *ListHandler) Files(w http.ResponseWriter, r *http.Request) {
	servePage(w, r, "files", h.res.Files.FetchAll, listing.FileFields, listing.FileCreated)
}
