package downstream

import (
	"context"
	"fmt"

	"github.com/ticketless/admin-console/internal/domain"
)

// EventByTicketID loads the event a ticket is listed under.
func EventByTicketID(ctx context.Context, events *Resource[domain.Event], ticketID int64) (domain.Event, error) {
	if ticketID == 0 {
		return domain.Event{}, domain.ErrMissingParameter("ticketID")
	}
	return getOne[domain.Event](ctx, events.client, events.url(fmt.Sprintf("events/ticket/%d", ticketID)), events.cfg.SingularKey)
}

// OrganizationEvents lists the events of the caller's own organization.
func OrganizationEvents(ctx context.Context, events *Resource[domain.Event]) ([]domain.Event, error) {
	return getMany[domain.Event](ctx, events.client, events.url("admin/events"), events.cfg.PluralKey)
}

// AllEvents lists every event on the platform. Superadmin only.
func AllEvents(ctx context.Context, events *Resource[domain.Event]) ([]domain.Event, error) {
	return getMany[domain.Event](ctx, events.client, events.url("superadmin/events"), events.cfg.PluralKey)
}
