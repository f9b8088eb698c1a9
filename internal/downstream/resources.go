package downstream

import (
	"time"

	"github.com/ticketless/admin-console/internal/config"
	"github.com/ticketless/admin-console/internal/domain"
)

// Resources is the set of configured backend clients the console talks to.
type Resources struct {
	Client  *Client
	APIRoot string
	// LoginTimeout bounds login and password checks. Zero means DefaultLoginTimeout.
	LoginTimeout time.Duration

	Events         *Resource[domain.Event]
	Tickets        *Resource[domain.Ticket]
	Users          *Resource[domain.User]
	Organizations  *Resource[domain.Organization]
	Advertisements *Resource[domain.Advertisement]
	Files          *Resource[domain.File]
	Overview       *Resource[domain.Record]
}

func NewResources(client *Client, endpoints config.Endpoints) *Resources {
	root := endpoints.APIBaseURL
	return &Resources{
		Client:  client,
		APIRoot: root,
		Events: NewResource[domain.Event](client, root, Config{
			Path: "events", IDField: "eventID", SingularKey: "event",
		}),
		Tickets: NewResource[domain.Ticket](client, root, Config{
			Path: "tickets", IDField: "ticketID", SingularKey: "ticket",
		}),
		Users: NewResource[domain.User](client, root, Config{
			Path: "superadmin/users", IDField: "userID", SingularKey: "user", PluralKey: "users",
		}),
		Organizations: NewResource[domain.Organization](client, root, Config{
			Path: "superadmin/organizations", IDField: "organizationID", SingularKey: "organization", PluralKey: "organizations",
			BeforeCreate: stripKeys("members"),
			BeforePatch:  stripKeys("members"),
		}),
		Advertisements: NewResource[domain.Advertisement](client, root, Config{
			Path: "superadmin/advertisements", IDField: "advertisementID", SingularKey: "advertisement", PluralKey: "advertisements",
			BeforeCreate: stripKeys("views", "clicks"),
			BeforePatch:  stripKeys("views", "clicks"),
		}),
		Files: NewResource[domain.File](client, root, Config{
			Path: "superadmin/files", IDField: "fileID", SingularKey: "file", PluralKey: "files",
		}),
		Overview: NewResource[domain.Record](client, root, Config{
			Path: "meta", SingularKey: "meta",
		}),
	}
}

// stripKeys drops server-maintained fields from outgoing payloads.
func stripKeys(keys ...string) func(domain.Record) domain.Record {
	return func(r domain.Record) domain.Record {
		for _, k := range keys {
			delete(r, k)
		}
		return r
	}
}
