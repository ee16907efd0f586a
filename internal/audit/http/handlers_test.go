package audithttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innsuite/innsuite/internal/access"
	"github.com/innsuite/innsuite/internal/audit"
	"github.com/innsuite/innsuite/internal/shared"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	err         error
	lastFilters audit.TimelineFilters
	calls       int
}

func (s *stubTimelineService) Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.calls++
	s.lastFilters = filters
	return s.result, s.err
}

func (s *stubTimelineService) Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.calls++
	s.lastFilters = filters
	return s.exportRows, s.err
}

func newAuditHandler(service *stubTimelineService) *Handler {
	handler := NewHandler(nil, service)
	handler.now = func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC) }
	return handler
}

func withDecider(req *http.Request, tenant *uuid.UUID, perms ...string) *http.Request {
	d := access.NewDecider(access.Grants{
		Identity:          &access.Identity{ID: uuid.New(), RestaurantID: tenant},
		Permissions:       perms,
		PermissionsLoaded: true,
	}, nil)
	return req.WithContext(access.ContextWithDecider(req.Context(), d))
}

func TestTimelineScopesToTenant(t *testing.T) {
	tenant := uuid.New()
	rows := []audit.TimelineRow{{At: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), Actor: "owner@demo.test", Action: "role.update", Entity: "roles", EntityID: "1"}}
	service := &stubTimelineService{result: audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: 20}}}
	handler := newAuditHandler(service)

	req := withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs?from=2024-03-01&to=2024-03-15&action=role.update", nil), &tenant)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "owner@demo.test", got.Rows[0].Actor)
	assert.Equal(t, tenant, service.lastFilters.RestaurantID)
	assert.Equal(t, "2024-03-01", service.lastFilters.From.Format("2006-01-02"))
	assert.Equal(t, "role.update", service.lastFilters.Action)
}

func TestTimelineDefaults(t *testing.T) {
	tenant := uuid.New()
	service := &stubTimelineService{}
	handler := newAuditHandler(service)

	req := withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs?page_size=500", nil), &tenant)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-03-15", service.lastFilters.To.Format("2006-01-02"))
	assert.Equal(t, "2024-03-08", service.lastFilters.From.Format("2006-01-02"))
	assert.Equal(t, 1, service.lastFilters.Page)
	assert.Equal(t, maxPageSize, service.lastFilters.PageSize)
}

func TestTimelineRejectsBadInput(t *testing.T) {
	tenant := uuid.New()
	cases := []string{
		"/audit-logs?from=yesterday",
		"/audit-logs?from=2024-03-20&to=2024-03-01",
		"/audit-logs?from=2023-01-01&to=2024-03-01",
		"/audit-logs?page=0",
		"/audit-logs?page_size=abc",
	}
	for _, target := range cases {
		t.Run(target, func(t *testing.T) {
			service := &stubTimelineService{}
			handler := newAuditHandler(service)
			rr := httptest.NewRecorder()
			handler.handleTimeline(rr, withDecider(httptest.NewRequest(http.MethodGet, target, nil), &tenant))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Zero(t, service.calls)
		})
	}
}

func TestTimelineWithoutTenant(t *testing.T) {
	service := &stubTimelineService{}
	handler := newAuditHandler(service)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs", nil), nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, service.calls)
}

func TestTimelineServiceError(t *testing.T) {
	tenant := uuid.New()
	service := &stubTimelineService{err: errors.New("boom")}
	handler := newAuditHandler(service)
	rr := httptest.NewRecorder()
	handler.handleTimeline(rr, withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs", nil), &tenant))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestExportCSV(t *testing.T) {
	tenant := uuid.New()
	service := &stubTimelineService{exportRows: []audit.TimelineRow{{At: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), Actor: "owner@demo.test", Action: "user.create", Entity: "users"}}}
	handler := newAuditHandler(service)

	req := withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv?from=2024-03-01&to=2024-03-05", nil), &tenant)
	rr := httptest.NewRecorder()
	handler.handleExport(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "audit-timeline.csv")
	assert.True(t, strings.Contains(rr.Body.String(), "owner@demo.test"))
}

func TestRoutesRequirePermission(t *testing.T) {
	tenant := uuid.New()
	service := &stubTimelineService{}
	router := chi.NewRouter()
	newAuditHandler(service).MountRoutes(router)

	denied := httptest.NewRecorder()
	router.ServeHTTP(denied, withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs", nil), &tenant, shared.PermOrdersView))
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.Zero(t, service.calls)

	allowed := httptest.NewRecorder()
	router.ServeHTTP(allowed, withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs", nil), &tenant, shared.PermUsersEdit))
	assert.Equal(t, http.StatusOK, allowed.Code)
	assert.Equal(t, 1, service.calls)
}

func TestExportRateLimited(t *testing.T) {
	tenant := uuid.New()
	service := &stubTimelineService{}
	router := chi.NewRouter()
	newAuditHandler(service).MountRoutes(router)

	var last int
	for i := 0; i < rateLimit+1; i++ {
		rr := httptest.NewRecorder()
		req := withDecider(httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv", nil), &tenant, shared.PermRolesEdit)
		router.ServeHTTP(rr, req)
		last = rr.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
