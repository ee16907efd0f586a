package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/platform/httpx"
)

func serveUsers(t *testing.T, f *userFixture, d *access.Decider, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(access.ContextWithDecider(r.Context(), d)))
		})
	})
	NewHandler(nil, f.svc).MountRoutes(router)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func actionRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/functions/user-management", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUserManagementCreateWithIdempotencyKey(t *testing.T) {
	f := newUserFixture()
	body := `{"action":"create_user","email":"li@bistro.test","password":"long-enough","first_name":"Li"}`

	req := actionRequest(body)
	req.Header.Set(IdempotencyHeader, "abc")
	rec := serveUsers(t, f, f.manager, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var res httpx.ActionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)

	req = actionRequest(body)
	req.Header.Set(IdempotencyHeader, "abc")
	rec = serveUsers(t, f, f.manager, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestUserManagementRequiresEditPermission(t *testing.T) {
	f := newUserFixture()
	viewer := actor(f.tenant, "viewer", false)

	rec := serveUsers(t, f, viewer, actionRequest(`{"action":"create_user"}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.repo.users)
}

func TestUserManagementRejectsUnknownAction(t *testing.T) {
	f := newUserFixture()
	rec := serveUsers(t, f, f.manager, actionRequest(`{"action":"delete_user"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsersEndpoint(t *testing.T) {
	f := newUserFixture()
	rec := serveUsers(t, f, f.manager, httptest.NewRequest(http.MethodGet, "/users?page=1&per_page=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Users      []User `json:"users"`
		Pagination struct {
			PerPage int `json:"per_page"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Users)
	assert.Equal(t, 10, body.Pagination.PerPage)
}
