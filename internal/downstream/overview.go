package downstream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ticketless/admin-console/internal/domain"
)

// SuperAdminMeta returns the platform wide collection counters keyed by
// lower-case collection name. A response without counters yields an empty map.
func SuperAdminMeta(ctx context.Context, overview *Resource[domain.Record]) (map[string]domain.MetaCount, error) {
	env, err := overview.client.doJSON(ctx, http.MethodGet, overview.url("superadmin/meta"), nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.MetaCount)
	raw, ok := env[overview.cfg.SingularKey]
	if !ok || isNull(raw) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.ErrInvalidResponse(overview.cfg.SingularKey)
	}
	return out, nil
}
