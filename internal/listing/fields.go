package listing

import (
	"time"

	"github.com/ticketless/admin-console/internal/domain"
)

var (
	EventFields = Fields[domain.Event]{
		func(e domain.Event) string { return e.Name },
		func(e domain.Event) string { return e.Location },
		func(e domain.Event) string { return e.Type },
	}
	TicketFields = Fields[domain.Ticket]{
		func(t domain.Ticket) string { return t.Header },
		func(t domain.Ticket) string { return t.Description },
	}
	UserFields = Fields[domain.User]{
		func(u domain.User) string { return u.FirstName },
		func(u domain.User) string { return u.LastName },
		func(u domain.User) string { return u.Email },
		func(u domain.User) string { return u.City },
	}
	OrganizationFields = Fields[domain.Organization]{
		func(o domain.Organization) string { return o.Name },
		func(o domain.Organization) string { return deref(o.Location) },
	}
	AdvertisementFields = Fields[domain.Advertisement]{
		func(a domain.Advertisement) string { return a.Advertiser },
		func(a domain.Advertisement) string { return a.ContentHTML },
	}
	FileFields = Fields[domain.File]{
		func(f domain.File) string { return f.FileName },
	}
)

func EventCreated(e domain.Event) time.Time { return e.CreatedAt.Time }

func TicketCreated(t domain.Ticket) time.Time { return t.CreatedAt.Time }

func UserCreated(u domain.User) time.Time { return u.CreatedAt.Time }

func OrganizationCreated(o domain.Organization) time.Time { return o.CreatedAt.Time }

func AdvertisementCreated(a domain.Advertisement) time.Time { return a.CreatedAt.Time }

func FileCreated(f domain.File) time.Time { return f.CreatedAt.Time }
