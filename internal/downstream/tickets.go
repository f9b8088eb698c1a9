package downstream

import (
	"context"
	"fmt"

	"github.com/ticketless/admin-console/internal/domain"
)

func TicketByTicketID(ctx context.Context, tickets *Resource[domain.Ticket], ticketID int64) (domain.Ticket, error) {
	if ticketID == 0 {
		return domain.Ticket{}, domain.ErrMissingParameter("ticketID")
	}
	return getOne[domain.Ticket](ctx, tickets.client, tickets.url(fmt.Sprintf("tickets/ticket/%d", ticketID)), tickets.cfg.SingularKey)
}

// TicketsByOrganization lists tickets sold for an organization's events.
func TicketsByOrganization(ctx context.Context, tickets *Resource[domain.Ticket], organizationID int64) ([]domain.Ticket, error) {
	if organizationID == 0 {
		return nil, domain.ErrMissingParameter("organizationID")
	}
	return tickets.FetchAllByOwner(ctx, OwnerOrganizations, organizationID)
}
