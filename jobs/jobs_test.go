package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/innsuite/innsuite/internal/jobs"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeBumper struct {
	bumped []uuid.UUID
	err    error
}

func (f *fakeBumper) Bump(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.bumped = append(f.bumped, id)
	return nil
}

type fakeCleaner struct {
	olderThan time.Duration
	removed   int64
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return f.removed, nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestAccessInvalidatorEnqueuesAndDropsLocalState(t *testing.T) {
	enq := &fakeEnqueuer{}
	bumper := &fakeBumper{}
	var local []uuid.UUID
	inv := NewAccessInvalidator(&Client{client: enq}, bumper, func(id uuid.UUID) { local = append(local, id) }, nil)

	tenant := uuid.New()
	require.NoError(t, inv.InvalidateTenant(context.Background(), tenant))

	require.Equal(t, []uuid.UUID{tenant}, local)
	require.Empty(t, bumper.bumped)
	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskAccessInvalidate, enq.tasks[0].Type())

	var payload AccessInvalidatePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	require.Equal(t, tenant, payload.RestaurantID)
	require.Equal(t, ReasonMutation, payload.Reason)
}

func TestAccessInvalidatorBumpsInlineWhenQueueDown(t *testing.T) {
	bumper := &fakeBumper{}
	inv := NewAccessInvalidator(&Client{client: &fakeEnqueuer{err: errors.New("redis down")}}, bumper, nil, nil)

	tenant := uuid.New()
	require.NoError(t, inv.InvalidateTenant(context.Background(), tenant))
	require.Equal(t, []uuid.UUID{tenant}, bumper.bumped)
}

func TestAccessInvalidatorWithoutQueue(t *testing.T) {
	bumper := &fakeBumper{}
	inv := NewAccessInvalidator(nil, bumper, nil, nil)

	require.NoError(t, inv.InvalidateTenant(context.Background(), uuid.Nil))
	require.Equal(t, []uuid.UUID{uuid.Nil}, bumper.bumped)
}

func TestAccessInvalidateJobBumpsCache(t *testing.T) {
	bumper := &fakeBumper{}
	job := NewAccessInvalidateJob(bumper, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	tenant := uuid.New()
	task, err := NewAccessInvalidateTask(AccessInvalidatePayload{RestaurantID: tenant, Reason: "role.update"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []uuid.UUID{tenant}, bumper.bumped)
}

func TestAccessInvalidateJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewAccessInvalidateJob(&fakeBumper{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAccessInvalidate, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestAccessInvalidateJobReturnsBumpError(t *testing.T) {
	boom := errors.New("boom")
	job := NewAccessInvalidateJob(&fakeBumper{err: boom}, nil, nil)
	task, err := NewAccessInvalidateTask(AccessInvalidatePayload{RestaurantID: uuid.New()})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	cleaner := &fakeCleaner{removed: 4}
	job := &IdempotencyCleanupJob{Store: cleaner}

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	require.Equal(t, DefaultIdempotencyRetention, cleaner.olderThan)

	task, err := NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, time.Hour, cleaner.olderThan)
}

func TestHealthReportsQueueInfo(t *testing.T) {
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Failed: 1}}, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 3, body.Pending)
	require.Equal(t, 1, body.Failed)
}

func TestHealthUnavailable(t *testing.T) {
	h := NewHandler(fakeInspector{err: errors.New("down")}, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
