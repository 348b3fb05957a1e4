// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/migrations"
	"github.com/kyan-si/kyan/internal/repositories/adminlog"
	"github.com/kyan-si/kyan/internal/repositories/categories"
	"github.com/kyan-si/kyan/internal/repositories/rangebans"
	"github.com/kyan-si/kyan/internal/repositories/torrents"
	"github.com/kyan-si/kyan/internal/repositories/trackers"
	"github.com/kyan-si/kyan/internal/repositories/trackertasks"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Torrents(db dbx.DBTX) torrents.Repository {
	return torrents.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Trackers(db dbx.DBTX) trackers.Repository {
	return trackers.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) TrackerTasks(db dbx.DBTX) trackertasks.Repository {
	return trackertasks.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Categories(db dbx.DBTX) categories.Repository {
	return categories.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RangeBans(db dbx.DBTX) rangebans.Repository {
	return rangebans.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AdminLog(db dbx.DBTX) adminlog.Repository {
	return adminlog.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}
