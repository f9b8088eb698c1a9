package downstream

import (
	"context"
	"maps"
	"net/http"

	"github.com/ticketless/admin-console/internal/domain"
)

// UpdateUser patches a user account. The backend identifies the target by
// userToUpdate rather than userID; a zero userID sends the changes as they are.
// The returned user is nil when the backend does not echo it back.
func UpdateUser(ctx context.Context, users *Resource[domain.User], userID int64, changes domain.Record) (*domain.User, error) {
	payload := maps.Clone(changes)
	if payload == nil {
		payload = domain.Record{}
	}
	delete(payload, users.cfg.IDField)
	if userID != 0 {
		payload["userToUpdate"] = userID
	}
	if users.cfg.BeforePatch != nil {
		payload = users.cfg.BeforePatch(payload)
	}

	env, err := users.client.doJSON(ctx, http.MethodPatch, users.baseURL(), payload)
	if err != nil {
		return nil, err
	}
	if _, ok := env[users.cfg.SingularKey]; !ok {
		return nil, nil
	}
	u, err := unwrapOne[domain.User](env, users.cfg.SingularKey)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func DeleteUser(ctx context.Context, users *Resource[domain.User], userID int64) error {
	if userID == 0 {
		return domain.ErrInvalidParameter("Invalid userID provided on delete.")
	}
	_, err := users.client.doJSON(ctx, http.MethodDelete, users.baseURL(), domain.Record{"userToDelete": userID})
	return err
}
