package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// timestampLayouts are the formats the backend has been seen to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02",
}

// Timestamp is a backend time value such as created_at. Values in an unknown
// format are kept verbatim and sort as the zero time, so one odd row never
// fails a whole collection.
type Timestamp struct {
	time.Time
	raw string
}

// TimestampOf wraps t.
func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	*t = Timestamp{}
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		t.raw = string(b)
		return nil
	}
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			break
		}
	}
	t.raw = s
	return nil
}

// MarshalJSON writes back what the backend sent; constructed values use RFC3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	switch {
	case t.raw != "":
		return json.Marshal(t.raw)
	case t.Time.IsZero():
		return []byte("null"), nil
	default:
		return json.Marshal(t.Time.Format(time.RFC3339Nano))
	}
}

// String is the backend's own rendering when there is one.
func (t Timestamp) String() string {
	if t.raw != "" {
		return t.raw
	}
	if t.Time.IsZero() {
		return ""
	}
	return t.Time.Format(time.RFC3339Nano)
}
