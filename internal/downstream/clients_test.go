package downstream

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless/admin-console/internal/domain"
	"github.com/ticketless/admin-console/middleware"
)

func TestEventQueries(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"events":[{"eventID":1}],"event":{"eventID":2}}`)
	res := newTestResources(srv.URL)
	ctx := context.Background()

	_, err := AllEvents(ctx, res.Events)
	require.NoError(t, err)
	_, err = OrganizationEvents(ctx, res.Events)
	require.NoError(t, err)
	ev, err := EventByTicketID(ctx, res.Events, 33)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ev.EventID)

	paths := []string{(*calls)[0].Path, (*calls)[1].Path, (*calls)[2].Path}
	assert.Equal(t, []string{"/superadmin/events", "/admin/events", "/events/ticket/33"}, paths)
}

func TestTicketQueries(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"tickets":[],"ticket":{"ticketID":4}}`)
	res := newTestResources(srv.URL)

	_, err := TicketsByOrganization(context.Background(), res.Tickets, 6)
	require.NoError(t, err)
	_, err = TicketByTicketID(context.Background(), res.Tickets, 4)
	require.NoError(t, err)

	assert.Equal(t, "/organizations/6/tickets", (*calls)[0].Path)
	assert.Equal(t, "/tickets/ticket/4", (*calls)[1].Path)

	_, err = TicketsByOrganization(context.Background(), res.Tickets, 0)
	assert.True(t, domain.IsKind(err, domain.KindMissingParameter))
}

func TestUpdateUser_SendsUserToUpdate(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"user":{"userID":3,"email":"new@org.fi"}}`)
	res := newTestResources(srv.URL)

	u, err := UpdateUser(context.Background(), res.Users, 3, domain.Record{"userID": 3, "email": "new@org.fi"})
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "new@org.fi", u.Email)

	call := (*calls)[0]
	assert.Equal(t, "PATCH", call.Method)
	assert.Equal(t, "/superadmin/users", call.Path)
	assert.Equal(t, map[string]any{"email": "new@org.fi", "userToUpdate": float64(3)}, call.Body)
}

func TestUpdateUser_NoEcho(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"message":"ok"}`)
	res := newTestResources(srv.URL)

	u, err := UpdateUser(context.Background(), res.Users, 3, domain.Record{"city": "Turku"})
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDeleteUser(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{}`)
	res := newTestResources(srv.URL)

	require.NoError(t, DeleteUser(context.Background(), res.Users, 12))
	assert.Equal(t, map[string]any{"userToDelete": float64(12)}, (*calls)[0].Body)
	assert.True(t, domain.IsKind(DeleteUser(context.Background(), res.Users, 0), domain.KindInvalidParameter))
}

func TestAddOrganizationMember(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{}`)
	res := newTestResources(srv.URL)

	require.NoError(t, AddOrganizationMember(context.Background(), res.Organizations, 5, " m@org.fi ", ""))
	call := (*calls)[0]
	assert.Equal(t, "PATCH", call.Method)
	assert.Equal(t, "/organization/5/members", call.Path)
	assert.Equal(t, map[string]any{"email": "m@org.fi", "role": "user"}, call.Body)

	err := AddOrganizationMember(context.Background(), res.Organizations, 5, "m@org.fi", domain.RoleSuperadmin)
	assert.True(t, domain.IsKind(err, domain.KindInvalidParameter))
}

func TestSuperAdminMeta(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"meta":{"users":{"count":42},"events":{"count":7}}}`)
	res := newTestResources(srv.URL)

	meta, err := SuperAdminMeta(context.Background(), res.Overview)
	require.NoError(t, err)
	assert.Equal(t, int64(42), meta["users"].Count)
	assert.Equal(t, "/superadmin/meta", (*calls)[0].Path)
}

func TestLogin(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"token":"jwt","user":{"userID":1,"email":"a@org.fi","userType":"admin"}}`)
	res := newTestResources(srv.URL)

	out, err := Login(context.Background(), res, "a@org.fi", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt", out.Token)
	assert.Equal(t, domain.RoleAdmin, out.User.UserType)
	assert.Equal(t, "/admin/user/login", (*calls)[0].Path)

	_, err = Login(context.Background(), res, "", "secret")
	assert.True(t, domain.IsKind(err, domain.KindMissingParameter))
	assert.Len(t, *calls, 1)
}

func TestLogin_NoToken(t *testing.T) {
	srv, _ := fakeBackend(t, http.StatusOK, `{"user":{"userID":1}}`)
	res := newTestResources(srv.URL)

	_, err := Login(context.Background(), res, "a@org.fi", "secret")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.KindInvalidResponse, de.Kind)
	assert.Equal(t, "Invalid response from the server.", de.Details)
}

func TestValidateToken_SendsToken(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"user":{"userID":9}}`)
	res := newTestResources(srv.URL)

	u, err := ValidateToken(context.Background(), res, "tok")
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.UserID)
	assert.Equal(t, "Bearer tok", (*calls)[0].Header.Get("Authorization"))
	assert.Equal(t, "tok", (*calls)[0].Body["token"])
}

func TestSessionTokenForwarded(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"files":[]}`)
	res := newTestResources(srv.URL)

	ctx := middleware.WithSession(context.Background(), "session-token", &domain.Principal{UserID: 1})
	_, err := res.Files.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bearer session-token", (*calls)[0].Header.Get("Authorization"))
}

func TestPasswordCalls(t *testing.T) {
	srv, calls := fakeBackend(t, http.StatusOK, `{"isValid":true}`)
	res := newTestResources(srv.URL)

	ok, err := CheckPassword(context.Background(), res, 4, "old-password")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, ChangePassword(context.Background(), res, 4, "new-password"))

	assert.Equal(t, "/users/check-password", (*calls)[0].Path)
	assert.Equal(t, "PATCH", (*calls)[1].Method)
	assert.Equal(t, "/users", (*calls)[1].Path)
	assert.Equal(t, "new-password", (*calls)[1].Body["password"])
}
