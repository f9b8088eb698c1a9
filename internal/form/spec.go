package form

import (
	"context"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/internal/downstream"
)

// Persister moves drafts to and from the backend.
type Persister interface {
	Load(ctx context.Context, id int64) (domain.Record, error)
	// Save sends payload. id is zero when creating.
	Save(ctx context.Context, id int64, payload domain.Record) (domain.Record, error)
	Delete(ctx context.Context, id int64) error
}

// Spec binds a resource's form rules to its persister.
type Spec struct {
	Resource string
	View     domain.View
	IDField  string
	// ReadOnly fields are server maintained and never sent.
	ReadOnly []string
	// Validate checks the merged draft.
	Validate func(draft domain.Record) error
	// Adjust reacts to edits before validation, e.g. clearing dependent fields.
	Adjust func(draft domain.Record)
	// Defaults seeds a new draft for the principal.
	Defaults func(p *domain.Principal) domain.Record
	// Immutable fields may be set on create but not changed afterwards.
	Immutable []string
	// NoCreate forms can only edit existing records.
	NoCreate  bool

	Persister Persister
}

type recordPersister struct {
	res *downstream.Resource[domain.Record]
}

// ResourcePersister persists through the generic resource client.
func ResourcePersister(res *downstream.Resource[domain.Record]) Persister {
	return recordPersister{res: res}
}

func (p recordPersister) Load(ctx context.Context, id int64) (domain.Record, error) {
	return p.res.FetchOne(ctx, id)
}

func (p recordPersister) Save(ctx context.Context, id int64, payload domain.Record) (domain.Record, error) {
	if id != 0 {
		payload[p.res.IDField()] = id
	}
	return p.res.Save(ctx, payload)
}

func (p recordPersister) Delete(ctx context.Context, id int64) error {
	return p.res.DeleteOne(ctx, id)
}

// userPersister routes saves and deletes through the dedicated user calls.
type userPersister struct {
	users *downstream.Resource[domain.User]
}

func UserPersister(users *downstream.Resource[domain.User]) Persister {
	return userPersister{users: users}
}

func (p userPersister) Load(ctx context.Context, id int64) (domain.Record, error) {
	return p.users.Records().FetchOne(ctx, id)
}

func (p userPersister) Save(ctx context.Context, id int64, payload domain.Record) (domain.Record, error) {
	u, err := downstream.UpdateUser(ctx, p.users, id, payload)
	if err != nil || u == nil {
		return nil, err
	}
	return toRecord(u)
}

func (p userPersister) Delete(ctx context.Context, id int64) error {
	return downstream.DeleteUser(ctx, p.users, id)
}

// Specs builds the form rules for every editable resource.
func Specs(res *downstream.Resources) map[string]Spec {
	specs := []Spec{
		{
			Resource:  "events",
			View:      domain.ViewEvents,
			IDField:   res.Events.IDField(),
			Validate:  checkDraft[eventDraft],
			Defaults:  eventDefaults,
			Persister: ResourcePersister(res.Events.Records()),
		},
		{
			Resource:  "tickets",
			View:      domain.ViewTickets,
			IDField:   res.Tickets.IDField(),
			Validate:  checkDraft[ticketDraft],
			Immutable: []string{"isSelling"},
			Persister: ResourcePersister(res.Tickets.Records()),
		},
		{
			Resource:  "users",
			View:      domain.ViewUsers,
			IDField:   res.Users.IDField(),
			Validate:  checkDraft[userDraft],
			NoCreate:  true,
			Persister: UserPersister(res.Users),
		},
		{
			Resource:  "organizations",
			View:      domain.ViewOrganizations,
			IDField:   res.Organizations.IDField(),
			ReadOnly:  []string{"members"},
			Validate:  checkDraft[organizationDraft],
			Defaults:  func(*domain.Principal) domain.Record { return domain.Record{"license": "free"} },
			Persister: ResourcePersister(res.Organizations.Records()),
		},
		{
			Resource:  "advertisements",
			View:      domain.ViewAdvertisements,
			IDField:   res.Advertisements.IDField(),
			ReadOnly:  []string{"views", "clicks"},
			Validate:  checkDraft[advertisementDraft],
			Adjust:    adjustAdvertisement,
			Defaults:  func(*domain.Principal) domain.Record { return domain.Record{"type": string(domain.AdGlobal), "isActive": true} },
			Persister: ResourcePersister(res.Advertisements.Records()),
		},
		{
			Resource:  "files",
			View:      domain.ViewFiles,
			IDField:   res.Files.IDField(),
			Validate:  checkDraft[fileDraft],
			Persister: ResourcePersister(res.Files.Records()),
		},
	}

	out := make(map[string]Spec, len(specs))
	for _, s := range specs {
		out[s.Resource] = s
	}
	return out
}

func eventDefaults(p *domain.Principal) domain.Record {
	d := domain.Record{"status": string(domain.EventActive)}
	if p.HasOrganization() {
		d["organizationID"] = *p.OrganizationID
	}
	return d
}

// adjustAdvertisement clears the location of anything that is not a local ad.
// A location that is already absent or null is left alone so it never shows
// up as a change.
func adjustAdvertisement(draft domain.Record) {
	if t, _ := draft["type"].(string); t == string(domain.AdLocal) {
		return
	}
	if loc, ok := draft["location"]; ok && loc != nil {
		draft["location"] = nil
	}
}
