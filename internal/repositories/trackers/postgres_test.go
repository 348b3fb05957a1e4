package trackers

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kyan-si/kyan/internal/common"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestGetByURI_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`SELECT id, uri, is_webseed FROM trackers WHERE uri = \$1`)

	mock.ExpectQuery(q.String()).
		WithArgs("udp://tr.example/announce").
		WillReturnRows(sqlmock.NewRows([]string{"id", "uri", "is_webseed"}).
			AddRow(int64(3), "udp://tr.example/announce", false))

	got, err := repo.GetByURI(context.Background(), "udp://tr.example/announce")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 3 || got.IsWebseed {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestGetByURI_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`SELECT id, uri, is_webseed FROM trackers WHERE uri = \$1`)

	mock.ExpectQuery(q.String()).WithArgs("udp://nope/announce").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByURI(context.Background(), "udp://nope/announce")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestInsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`INSERT INTO trackers \(uri, is_webseed\) VALUES \(\$1, \$2\) RETURNING id`)

	mock.ExpectQuery(q.String()).
		WithArgs("https://seed.example/f.iso", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	got, err := repo.Insert(context.Background(), "https://seed.example/f.iso", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 11 || !got.IsWebseed {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestClearWebseedFlag(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE trackers SET is_webseed = FALSE WHERE id = \$1`).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.ClearWebseedFlag(context.Background(), 11); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClearWebseedFlag_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE trackers SET is_webseed = FALSE WHERE id = \$1`).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ClearWebseedFlag(context.Background(), 11)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestAttach(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO torrent_trackers \(torrent_id, tracker_id, ord\) VALUES \(\$1, \$2, \$3\)`).
		WithArgs(int64(5), int64(3), 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Attach(context.Background(), 5, 3, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListForTorrent_KeepsOrder(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := regexp.MustCompile(`(?s)SELECT t\.id, t\.uri, t\.is_webseed FROM trackers t.*ORDER BY tt\.ord`)

	rows := sqlmock.NewRows([]string{"id", "uri", "is_webseed"}).
		AddRow(int64(3), "udp://tr.example/announce", false).
		AddRow(int64(11), "https://seed.example/f.iso", true)

	mock.ExpectQuery(q.String()).WithArgs(int64(5)).WillReturnRows(rows)

	got, err := repo.ListForTorrent(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 rows, got %d", len(got))
	}
	if got[0].URI != "udp://tr.example/announce" || got[1].URI != "https://seed.example/f.iso" {
		t.Fatalf("order not preserved: %+v", got)
	}
}
