package repomanager

import (
	"context"
	"database/sql"

	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/repositories/adminlog"
	"github.com/kyan-si/kyan/internal/repositories/categories"
	"github.com/kyan-si/kyan/internal/repositories/rangebans"
	"github.com/kyan-si/kyan/internal/repositories/torrents"
	"github.com/kyan-si/kyan/internal/repositories/trackers"
	"github.com/kyan-si/kyan/internal/repositories/trackertasks"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Torrents(db dbx.DBTX) torrents.Repository
	Trackers(db dbx.DBTX) trackers.Repository
	TrackerTasks(db dbx.DBTX) trackertasks.Repository
	Categories(db dbx.DBTX) categories.Repository
	RangeBans(db dbx.DBTX) rangebans.Repository
	AdminLog(db dbx.DBTX) adminlog.Repository
}
