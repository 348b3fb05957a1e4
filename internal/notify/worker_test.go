package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyan-si/kyan/internal/config"
	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/logging"
	"github.com/kyan-si/kyan/internal/models"
	"github.com/kyan-si/kyan/internal/repositories/adminlog"
	"github.com/kyan-si/kyan/internal/repositories/categories"
	"github.com/kyan-si/kyan/internal/repositories/rangebans"
	"github.com/kyan-si/kyan/internal/repositories/torrents"
	"github.com/kyan-si/kyan/internal/repositories/trackers"
	"github.com/kyan-si/kyan/internal/repositories/trackertasks"
)

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type fakeTasks struct {
	pending  []*models.TrackerTask
	done     []int64
	attempts []int64
}

func (f *fakeTasks) Enqueue(context.Context, []byte, string) error { return nil }

func (f *fakeTasks) PickPending(_ context.Context, limit int) ([]*models.TrackerTask, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeTasks) MarkDone(_ context.Context, id int64) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeTasks) RecordAttempt(_ context.Context, id int64) error {
	f.attempts = append(f.attempts, id)
	return nil
}

type fakeManager struct {
	tasks *fakeTasks
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeManager) Torrents(dbx.DBTX) torrents.Repository         { return nil }
func (m *fakeManager) Trackers(dbx.DBTX) trackers.Repository         { return nil }
func (m *fakeManager) TrackerTasks(dbx.DBTX) trackertasks.Repository { return m.tasks }
func (m *fakeManager) Categories(dbx.DBTX) categories.Repository     { return nil }
func (m *fakeManager) RangeBans(dbx.DBTX) rangebans.Repository       { return nil }
func (m *fakeManager) AdminLog(dbx.DBTX) adminlog.Repository         { return nil }

func newWorker(t *testing.T, apiURL string, tasks *fakeTasks) (*Worker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.TrackerAPIURL = apiURL
	cfg.TrackerAPIAuth = "testsecret"

	w := NewWorker(cfg, nopLogger{}, db, &fakeManager{tasks: tasks})
	w.maxSendRetries = 0
	return w, mock
}

func pendingTask(id int64, action string) *models.TrackerTask {
	return &models.TrackerTask{
		ID:        id,
		InfoHash:  []byte("01234567890123456789"),
		Action:    action,
		CreatedAt: time.Now(),
	}
}

func TestProcessBatch_DeliversAndMarksDone(t *testing.T) {
	var got notification
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tasks := &fakeTasks{pending: []*models.TrackerTask{pendingTask(1, models.TrackerTaskInsert)}}
	w, mock := newWorker(t, srv.URL, tasks)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, w.ProcessBatch(context.Background()))

	assert.Equal(t, []int64{1}, tasks.done)
	assert.Empty(t, tasks.attempts)
	assert.Equal(t, "testsecret", auth)
	assert.Equal(t, "3031323334353637383930313233343536373839", got.InfoHash)
	assert.Equal(t, models.TrackerTaskInsert, got.Action)
}

func TestProcessBatch_FailureRecordsAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tasks := &fakeTasks{pending: []*models.TrackerTask{pendingTask(1, models.TrackerTaskRemove)}}
	w, mock := newWorker(t, srv.URL, tasks)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, w.ProcessBatch(context.Background()))

	assert.Empty(t, tasks.done)
	assert.Equal(t, []int64{1}, tasks.attempts)
}

func TestProcessBatch_ClientErrorNotRetriedInPass(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		rw.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	tasks := &fakeTasks{pending: []*models.TrackerTask{pendingTask(1, models.TrackerTaskInsert)}}
	w, mock := newWorker(t, srv.URL, tasks)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, w.ProcessBatch(context.Background()))

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, []int64{1}, tasks.attempts)
}

func TestProcessBatch_MixedOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var n notification
		require.NoError(t, json.NewDecoder(r.Body).Decode(&n))
		if n.Action == models.TrackerTaskRemove {
			rw.WriteHeader(http.StatusBadGateway)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tasks := &fakeTasks{pending: []*models.TrackerTask{
		pendingTask(1, models.TrackerTaskInsert),
		pendingTask(2, models.TrackerTaskRemove),
	}}
	w, mock := newWorker(t, srv.URL, tasks)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, w.ProcessBatch(context.Background()))

	assert.Equal(t, []int64{1}, tasks.done)
	assert.Equal(t, []int64{2}, tasks.attempts)
}

func TestProcessBatch_RespectsBatchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var pending []*models.TrackerTask
	for i := int64(1); i <= 100; i++ {
		pending = append(pending, pendingTask(i, models.TrackerTaskInsert))
	}
	tasks := &fakeTasks{pending: pending}
	w, mock := newWorker(t, srv.URL, tasks)
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, w.ProcessBatch(context.Background()))

	assert.Len(t, tasks.done, w.cfg.NotifyBatch)
}
