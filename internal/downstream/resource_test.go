package downstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless/admin-console/internal/config"
	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/middleware"
)

type recorded struct {
	Method string
	Path   string
	Body   map[string]any
	Header http.Header
}

// fakeBackend answers every request with status/body and records what it saw.
func fakeBackend(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.Body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestResources(url string) *Resources {
	client := NewClient(ClientConfig{ReadTimeout: time.Second, WriteTimeout: time.Second, Transport: http.DefaultTransport})
	return NewResources(client, config.Endpoints{APIBaseURL: url})
}

func TestFetchOne_UnwrapsSingularKey(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"event":{"eventID":5,"name":"Spring Gala"}}`)
	res := newTestResources(srv.URL)

	ctx := middleware.SetRequestIDForTest(context.Background(), "req-1")
	ev, err := res.Events.FetchOne(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), ev.EventID)
	assert.Equal(t, "Spring Gala", ev.Name)
	require.Len(t, *calls, 1)
	assert.Equal(t, "/events/5", (*calls)[0].Path)
	assert.Equal(t, "req-1", (*calls)[0].Header.Get("X-Request-ID"))
}

func TestFetchOne_MissingID(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{}`)
	res := newTestResources(srv.URL)

	_, err := res.Events.FetchOne(context.Background(), 0)
	assert.True(t, domain.IsKind(err, domain.KindMissingParameter))
	assert.Empty(t, *calls)
}

func TestFetchOne_WrongEnvelope(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"data":{"eventID":5}}`)
	res := newTestResources(srv.URL)

	_, err := res.Events.FetchOne(context.Background(), 5)
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindInvalidResponse, de.Kind)
	assert.Contains(t, de.Details, "event")
}

func TestFetchOne_NonObjectBody(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `"ok"`)
	res := newTestResources(srv.URL)

	_, err := res.Tickets.FetchOne(context.Background(), 1)
	assert.True(t, domain.IsKind(err, domain.KindInvalidResponse))
}

func TestFetchAll_UsesPluralKey(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"users":[{"userID":1},{"userID":2}]}`)
	res := newTestResources(srv.URL)

	users, err := res.Users.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "/superadmin/users", (*calls)[0].Path)

	_, err = res.Organizations.FetchAll(context.Background())
	assert.True(t, domain.IsKind(err, domain.KindInvalidResponse))
}

func TestFetchAll_PluralDefaultsToPath(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"tickets":null}`)
	res := newTestResources(srv.URL)

	tickets, err := res.Tickets.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tickets)
	assert.Empty(t, tickets)
}

func TestFetchAllByOwner(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"tickets":[{"ticketID":3}]}`)
	res := newTestResources(srv.URL)

	got, err := res.Tickets.FetchAllByOwner(context.Background(), OwnerUsers, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got[0].TicketID)
	assert.Equal(t, "/users/9/tickets", (*calls)[0].Path)
}

func TestCreate_CallbackFailureDoesNotPropagate(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusCreated, `{"advertisement":{"advertisementID":11,"advertiser":"Acme"}}`)
	res := newTestResources(srv.URL)

	var seen int64
	ad, err := res.Advertisements.Create(context.Background(),
		domain.Record{"advertiser": "Acme", "views": 10, "clicks": 2},
		func(a domain.Advertisement) error {
			seen = a.AdvertisementID
			return errors.New("listener broke")
		})
	require.NoError(t, err)
	assert.Equal(t, int64(11), ad.AdvertisementID)
	assert.Equal(t, int64(11), seen)

	body := (*calls)[0].Body
	assert.Equal(t, "POST", (*calls)[0].Method)
	assert.NotContains(t, body, "views")
	assert.NotContains(t, body, "clicks")
}

func TestCreate_CallbackPanicIsContained(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusCreated, `{"file":{"fileID":1}}`)
	res := newTestResources(srv.URL)

	assert.NotPanics(t, func() {
		_, err := res.Files.Create(context.Background(), domain.Record{"fileName": "a.png"},
			func(domain.File) error { panic("boom") })
		assert.NoError(t, err)
	})
}

func TestPatch_RequiresID(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"event":{}}`)
	res := newTestResources(srv.URL)

	for _, id := range []any{nil, 0, float64(0), "", false} {
		_, err := res.Events.Patch(context.Background(), domain.Record{"eventID": id, "name": "x"}, "")
		var de *domain.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, domain.KindMissingParameter, de.Kind)
		assert.Equal(t, "Missing eventID", de.Details)
	}
	assert.Empty(t, *calls)
}

func TestPatch_Subpath(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"event":{"eventID":4,"status":"inactive"}}`)
	res := newTestResources(srv.URL)

	ev, err := res.Events.Patch(context.Background(), domain.Record{"eventID": 4, "status": "inactive"}, "status")
	require.NoError(t, err)
	assert.Equal(t, domain.EventInactive, ev.Status)
	assert.Equal(t, "PATCH", (*calls)[0].Method)
	assert.Equal(t, "/events/status", (*calls)[0].Path)
}

func TestSave_RoutesOnID(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"ticket":{"ticketID":8}}`)
	res := newTestResources(srv.URL)

	_, err := res.Tickets.Save(context.Background(), domain.Record{"ticketID": nil, "header": "Front row"})
	require.NoError(t, err)
	_, err = res.Tickets.Save(context.Background(), domain.Record{"ticketID": 8, "header": "Back row"})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, "POST", (*calls)[0].Method)
	assert.NotContains(t, (*calls)[0].Body, "ticketID")
	assert.Equal(t, "PATCH", (*calls)[1].Method)
	assert.Equal(t, float64(8), (*calls)[1].Body["ticketID"])
}

func TestDeleteOne(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{}`)
	res := newTestResources(srv.URL)

	require.NoError(t, res.Files.DeleteOne(context.Background(), 7))
	assert.Equal(t, "DELETE", (*calls)[0].Method)
	assert.Equal(t, "/superadmin/files", (*calls)[0].Path)
	assert.Equal(t, map[string]any{"fileID": float64(7)}, (*calls)[0].Body)

	err := res.Files.DeleteOne(context.Background(), 0)
	assert.True(t, domain.IsKind(err, domain.KindInvalidParameter))
	assert.Len(t, *calls, 1)
}

func TestStatusErrorPassesThrough(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusForbidden, `{"error":"Forbidden"}`)
	res := newTestResources(srv.URL)

	_, err := res.Users.FetchAll(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "Forbidden", se.Message)
	assert.True(t, IsUnauthorized(err))
}

func TestDecodeError_Shapes(t *testing.T) {
	cases := map[string]struct {
		body    string
		code    string
		message string
	}{
		"structured": {`{"error":{"code":"not_found","message":"no such event"}}`, "not_found", "no such event"},
		"text":       {`{"error":"bad things"}`, "downstream_error", "bad things"},
		"message":    {`{"message":"slow down"}`, "downstream_error", "slow down"},
		"garbage":    {`<html>`, "downstream_error", "unexpected status: 500"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := fakeBackend(t, http.StatusInternalServerError, tc.body)
			res := newTestResources(srv.URL)

			_, err := res.Events.FetchAll(context.Background())
			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.code, se.Code)
			assert.Equal(t, tc.message, se.Message)
		})
	}
}

func TestTimeoutMapsToErrTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{ReadTimeout: 20 * time.Millisecond, WriteTimeout: 20 * time.Millisecond, Transport: http.DefaultTransport})
	res := NewResources(client, config.Endpoints{APIBaseURL: srv.URL})

	_, err := res.Events.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, int32(1), hits.Load(), "no retries")
}

func TestUnavailableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := newTestResources(url)
	_, err := res.Events.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRecordsView(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"organization":{"organizationID":2,"name":"Kide","license":"pro"}}`)
	res := newTestResources(srv.URL)

	rec, err := res.Organizations.Records().FetchOne(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "pro", rec["license"])
	assert.Equal(t, "organizationID", res.Organizations.Records().IDField())
}

func TestTruthy(t *testing.T) {
	for _, v := range []any{nil, 0, int64(0), float64(0), "", false, json.Number("0")} {
		assert.False(t, Truthy(v), "%#v", v)
	}
	for _, v := range []any{1, float64(3), "x", true, json.Number("2")} {
		assert.True(t, Truthy(v), "%#v", v)
	}
}

func TestIDOf(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{float64(7), 7},
		{7, 7},
		{int64(12), 12},
		{json.Number("42"), 42},
		{"15", 15},
		{float64(7.9), 0},
		{json.Number("7.5"), 0},
		{"12abc", 0},
		{"", 0},
		{float64(-3), 0},
		{nil, 0},
		{true, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IDOf(tc.in), "%#v", tc.in)
	}
}

func TestFetchAll_ToleratesBackendTimestampFormats(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"events":[
		{"eventID":1,"name":"Legacy","created_at":"2024-03-01 10:00:00"},
		{"eventID":2,"name":"Modern","created_at":"2024-03-02T10:00:00Z"},
		{"eventID":3,"name":"Odd","created_at":"last tuesday"}
	]}`)
	res := newTestResources(srv.URL)

	events, err := AllEvents(context.Background(), res.Events)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), events[0].CreatedAt.Time)
	assert.Equal(t, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), events[1].CreatedAt.Time)
	assert.True(t, events[2].CreatedAt.IsZero())

	raw, err := json.Marshal(events[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"created_at":"2024-03-01 10:00:00"`)
	raw, err = json.Marshal(events[2])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"created_at":"last tuesday"`)
}
