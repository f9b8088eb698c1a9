package form

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"

	"github.com/ticketless/admin-console/internal/domain"
)

// Diff returns the fields of current that differ from original, plus the
// identifier taken from original. Fields absent from current are unchanged.
func Diff(original, current domain.Record, idField string) domain.Record {
	out := domain.Record{}
	for k, v := range current {
		if k == idField {
			continue
		}
		if ov, ok := original[k]; ok && sameValue(ov, v) {
			continue
		}
		out[k] = v
	}
	if id, ok := original[idField]; ok {
		out[idField] = id
	}
	return out
}

// DirtyFields lists the changed field names in a stable order.
func DirtyFields(original, current domain.Record, idField string) []string {
	d := Diff(original, current, idField)
	delete(d, idField)
	return slices.Sorted(maps.Keys(d))
}

// CreatePayload is the full draft with null fields dropped.
func CreatePayload(draft domain.Record, idField string) domain.Record {
	out := domain.Record{}
	for k, v := range draft {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// sameValue compares two JSON-ish values. Numbers compare by value whatever
// their Go type, so 3 and 3.0 are equal.
func sameValue(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}
		return out
	case domain.Record:
		return normalize(map[string]any(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// toRecord converts a typed value into a loosely typed record.
func toRecord(v any) (domain.Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out domain.Record
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
