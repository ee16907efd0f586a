package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "innsuite_session", time.Hour, false), mr
}

func TestSessionRoundTripViaCookie(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("8d5c1f8e-3f5e-4c9e-9d6f-1f2a3b4c5d6e")
	sess.Set(SessionEmailKey, "owner@bistro.test")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "owner@bistro.test", loaded.Get(SessionEmailKey))
	assert.False(t, loaded.Bearer())
}

func TestSessionViaBearerToken(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+sess.ID)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "user-1", loaded.User())
	assert.True(t, loaded.Bearer())

	csrf := NewCSRFManager("secret")
	assert.NoError(t, csrf.VerifyToken(ctx, loaded, ""))
}

func TestUnknownSessionIDIsNotReused(t *testing.T) {
	sm, _ := newTestSessions(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "forged"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, "forged", sess.ID)
	assert.Empty(t, sess.User())
}

func TestDestroyRemovesStoredSession(t *testing.T) {
	sm, mr := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1")
	require.NoError(t, sm.Commit(ctx, httptest.NewRecorder(), sess))
	require.True(t, mr.Exists(sm.redisKey(sess.ID)))

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	assert.False(t, mr.Exists(sm.redisKey(sess.ID)))
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestCSRFRequiresMatchingToken(t *testing.T) {
	sm, _ := newTestSessions(t)
	ctx := context.Background()
	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	csrf := NewCSRFManager("secret")
	token, err := csrf.EnsureToken(ctx, sess)
	require.NoError(t, err)

	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)
	assert.ErrorIs(t, csrf.VerifyToken(ctx, sess, "nope"), ErrCSRFTokenMismatch)
	assert.NoError(t, csrf.VerifyToken(ctx, sess, token))
}

func TestPageFromRequestClamps(t *testing.T) {
	page, perPage := PageFromRequest(httptest.NewRequest(http.MethodGet, "/users?page=-2&per_page=500", nil))
	assert.Equal(t, 1, page)
	assert.Equal(t, maxPerPage, perPage)

	p := NewPagination(3, 10, 45)
	assert.Equal(t, 5, p.TotalPages)
	assert.Equal(t, 20, p.Offset())
}

func TestSessionUserID(t *testing.T) {
	_, ok := SessionUserID(context.Background())
	assert.False(t, ok)

	sess := &Session{}
	_, ok = SessionUserID(ContextWithSession(context.Background(), sess))
	assert.False(t, ok)

	sess.SetUser("not-a-uuid")
	_, ok = SessionUserID(ContextWithSession(context.Background(), sess))
	assert.False(t, ok)

	want := uuid.New()
	sess.SetUser(want.String())
	got, ok := SessionUserID(ContextWithSession(context.Background(), sess))
	require.True(t, ok)
	assert.Equal(t, want, got)
}
