package torrents

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyan-si/kyan/internal/bencode"
	"github.com/kyan-si/kyan/internal/common"
	"github.com/kyan-si/kyan/internal/config"
	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/logging"
	"github.com/kyan-si/kyan/internal/models"
	"github.com/kyan-si/kyan/internal/repositories/adminlog"
	"github.com/kyan-si/kyan/internal/repositories/categories"
	"github.com/kyan-si/kyan/internal/repositories/rangebans"
	torrentsrepo "github.com/kyan-si/kyan/internal/repositories/torrents"
	trackersrepo "github.com/kyan-si/kyan/internal/repositories/trackers"
	"github.com/kyan-si/kyan/internal/repositories/trackertasks"
	"github.com/kyan-si/kyan/internal/storage"
	"github.com/kyan-si/kyan/internal/trackers"
)

const infoBlob = "d6:lengthi2097152e4:name8:test.bine"

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}
func (l nopLogger) With(...any) logging.Logger          { return l }

type fakeTorrents struct {
	record     *models.Torrent
	setDeleted []bool
	deleted    []int64
}

func (f *fakeTorrents) Insert(context.Context, *models.Torrent) error { return nil }

func (f *fakeTorrents) GetByID(_ context.Context, id int64) (*models.Torrent, error) {
	if f.record == nil || f.record.ID != id {
		return nil, common.ErrorNotFound
	}
	return f.record, nil
}

func (f *fakeTorrents) GetByInfoHash(context.Context, []byte) (*models.Torrent, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeTorrents) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTorrents) SetDeleted(_ context.Context, _ int64, deleted bool) error {
	f.setDeleted = append(f.setDeleted, deleted)
	return nil
}

func (f *fakeTorrents) CountRecentByUploader(context.Context, *int64, []byte, time.Time) (int, error) {
	return 0, nil
}

func (f *fakeTorrents) LastUploadTime(context.Context, *int64, []byte) (time.Time, error) {
	return time.Time{}, common.ErrorNotFound
}

type fakeTrackers struct {
	rows []*models.Tracker
}

func (f *fakeTrackers) GetByURI(context.Context, string) (*models.Tracker, error) {
	return nil, common.ErrorNotFound
}

func (f *fakeTrackers) Insert(context.Context, string, bool) (*models.Tracker, error) {
	return nil, nil
}

func (f *fakeTrackers) ClearWebseedFlag(context.Context, int64) error { return nil }

func (f *fakeTrackers) Attach(context.Context, int64, int64, int) error { return nil }

func (f *fakeTrackers) ListForTorrent(context.Context, int64) ([]*models.Tracker, error) {
	return f.rows, nil
}

type queuedTask struct {
	infoHash []byte
	action   string
}

type fakeTasks struct {
	queued []queuedTask
}

func (f *fakeTasks) Enqueue(_ context.Context, infoHash []byte, action string) error {
	f.queued = append(f.queued, queuedTask{infoHash, action})
	return nil
}

func (f *fakeTasks) PickPending(context.Context, int) ([]*models.TrackerTask, error) {
	return nil, nil
}

func (f *fakeTasks) MarkDone(context.Context, int64) error      { return nil }
func (f *fakeTasks) RecordAttempt(context.Context, int64) error { return nil }

type fakeAdminLog struct{ entries []string }

func (f *fakeAdminLog) Append(_ context.Context, _ *int64, entry string) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeManager struct {
	torrents *fakeTorrents
	trackers *fakeTrackers
	tasks    *fakeTasks
	admin    *fakeAdminLog
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeManager) Torrents(dbx.DBTX) torrentsrepo.Repository     { return m.torrents }
func (m *fakeManager) Trackers(dbx.DBTX) trackersrepo.Repository     { return m.trackers }
func (m *fakeManager) TrackerTasks(dbx.DBTX) trackertasks.Repository { return m.tasks }
func (m *fakeManager) Categories(dbx.DBTX) categories.Repository     { return nil }
func (m *fakeManager) RangeBans(dbx.DBTX) rangebans.Repository       { return nil }
func (m *fakeManager) AdminLog(dbx.DBTX) adminlog.Repository         { return m.admin }

type memStore struct {
	blobs map[string][]byte
}

func (s *memStore) Write(_ context.Context, key string, data []byte) error {
	s.blobs[key] = data
	return nil
}

func (s *memStore) Read(_ context.Context, key string) ([]byte, error) {
	data, ok := s.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	if _, ok := s.blobs[key]; !ok {
		return common.ErrorNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.blobs[key]
	return ok, nil
}

type fixture struct {
	svc   *Service
	cfg   *config.Config
	repos *fakeManager
	store *memStore
	mock  sqlmock.Sqlmock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.LoadDefaults()

	repos := &fakeManager{
		torrents: &fakeTorrents{},
		trackers: &fakeTrackers{},
		tasks:    &fakeTasks{},
		admin:    &fakeAdminLog{},
	}
	store := &memStore{blobs: map[string][]byte{}}

	svc, err := NewService(cfg, nopLogger{}, db, repos, store, trackers.NewDefaultSet())
	require.NoError(t, err)

	return &fixture{svc: svc, cfg: cfg, repos: repos, store: store, mock: mock}
}

func sampleRecord() *models.Torrent {
	hash := sha1.Sum([]byte(infoBlob))
	return &models.Torrent{
		ID:          5,
		InfoHash:    hash[:],
		DisplayName: "Test Upload",
		Encoding:    "utf-8",
		CreatedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCreateBencodedTorrent_PreservesInfoHash(t *testing.T) {
	f := newFixture(t)
	f.repos.torrents.record = sampleRecord()
	f.repos.trackers.rows = []*models.Tracker{
		{ID: 1, URI: "udp://tr.example/announce"},
		{ID: 2, URI: "https://seed.example/f.iso", IsWebseed: true},
	}
	f.store.blobs[storage.InfoDictKey(5)] = []byte(infoBlob)

	out, err := f.svc.CreateBencodedTorrent(context.Background(), 5)
	require.NoError(t, err)

	// The output is structurally valid and the preserved bytes sit inside
	// it unmodified.
	_, err = bencode.Decode(out)
	require.NoError(t, err)
	assert.Contains(t, string(out), "4:info"+infoBlob)

	raw, err := bencode.RawDictValue(out, "info")
	require.NoError(t, err)
	assert.Equal(t, sha1.Sum([]byte(infoBlob)), sha1.Sum(raw))
}

func TestCreateBencodedTorrent_Metadata(t *testing.T) {
	f := newFixture(t)
	f.repos.torrents.record = sampleRecord()
	f.repos.trackers.rows = []*models.Tracker{
		{ID: 1, URI: "udp://tr.example/announce"},
	}
	f.store.blobs[storage.InfoDictKey(5)] = []byte(infoBlob)

	out, err := f.svc.CreateBencodedTorrent(context.Background(), 5)
	require.NoError(t, err)

	top, err := bencode.Decode(out)
	require.NoError(t, err)
	dict := top.(bencode.Dict)

	// The mandatory announce URL leads the merged tracker list.
	assert.Equal(t, []byte(f.cfg.MainAnnounceURL), dict["announce"])
	assert.Equal(t, []byte(f.cfg.SiteName), dict["created by"])
	assert.Equal(t, []byte(f.cfg.SiteURL+"/view/5"), dict["comment"])
	assert.Equal(t, sampleRecord().CreatedAt.Unix(), dict["creation date"])
	assert.Equal(t, []byte("utf-8"), dict["encoding"])
}

func TestCreateBencodedTorrent_MissingBlob(t *testing.T) {
	f := newFixture(t)
	f.repos.torrents.record = sampleRecord()

	_, err := f.svc.CreateBencodedTorrent(context.Background(), 5)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMagnet(t *testing.T) {
	f := newFixture(t)
	f.repos.torrents.record = sampleRecord()
	f.repos.trackers.rows = []*models.Tracker{
		{ID: 1, URI: "udp://tr.example/announce"},
	}

	magnet, err := f.svc.Magnet(context.Background(), 5)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(magnet, "magnet:?xt=urn:btih:"))
	assert.Contains(t, magnet, "&dn=Test+Upload")
	assert.Contains(t, magnet, "&tr=")
}

func TestSoftDelete(t *testing.T) {
	f := newFixture(t)
	f.repos.torrents.record = sampleRecord()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	modID := int64(3)
	require.NoError(t, f.svc.SoftDelete(context.Background(), 5, &modID))

	assert.Equal(t, []bool{true}, f.repos.torrents.setDeleted)
	require.Len(t, f.repos.tasks.queued, 1)
	assert.Equal(t, models.TrackerTaskRemove, f.repos.tasks.queued[0].action)
	require.Len(t, f.repos.admin.entries, 1)
	assert.Contains(t, f.repos.admin.entries[0], "Deleted torrent #5")
}

func TestHardDelete_RemovesRecordAndBlob(t *testing.T) {
	f := newFixture(t)
	f.repos.torrents.record = sampleRecord()
	f.store.blobs[storage.InfoDictKey(5)] = []byte(infoBlob)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	require.NoError(t, f.svc.HardDelete(context.Background(), 5, nil))

	assert.Equal(t, []int64{5}, f.repos.torrents.deleted)
	_, ok := f.store.blobs[storage.InfoDictKey(5)]
	assert.False(t, ok)
	require.Len(t, f.repos.tasks.queued, 1)
	assert.Equal(t, models.TrackerTaskRemove, f.repos.tasks.queued[0].action)
}

func TestSoftDelete_NotFoundRollsBack(t *testing.T) {
	f := newFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	err := f.svc.SoftDelete(context.Background(), 404, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
