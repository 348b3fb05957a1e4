// Package torrents serves stored records: regenerating the downloadable
// .torrent file and magnet URI, and running the moderation delete flows.
package torrents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kyan-si/kyan/internal/common"
	"github.com/kyan-si/kyan/internal/config"
	"github.com/kyan-si/kyan/internal/dbx"
	"github.com/kyan-si/kyan/internal/logging"
	"github.com/kyan-si/kyan/internal/metainfo"
	"github.com/kyan-si/kyan/internal/models"
	"github.com/kyan-si/kyan/internal/repositories/repomanager"
	"github.com/kyan-si/kyan/internal/storage"
	"github.com/kyan-si/kyan/internal/trackers"
)

type Service struct {
	cfg      *config.Config
	log      logging.Logger
	db       *sql.DB
	repos    repomanager.RepositoryManager
	store    storage.Storage
	defaults *trackers.DefaultSet
	magnets  *metainfo.MagnetBuilder
}

func NewService(cfg *config.Config, log logging.Logger, db *sql.DB, repos repomanager.RepositoryManager, store storage.Storage, defaults *trackers.DefaultSet) (*Service, error) {
	magnets, err := metainfo.NewMagnetBuilder(cfg.MagnetCacheSize, cfg.MagnetMaxTrackers)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		db:       db,
		repos:    repos,
		store:    store,
		defaults: defaults,
		magnets:  magnets,
	}, nil
}

// trackersAndWebseeds splits the record's associated rows and merges the
// site's mandatory and default trackers in front of the torrent's own.
func (s *Service) trackersAndWebseeds(ctx context.Context, torrentID int64) ([]string, []string, error) {
	rows, err := s.repos.Trackers(s.db).ListForTorrent(ctx, torrentID)
	if err != nil {
		return nil, nil, err
	}

	var own, webseeds []string
	for _, row := range rows {
		if row.IsWebseed {
			webseeds = append(webseeds, row.URI)
		} else {
			own = append(own, row.URI)
		}
	}

	merged := trackers.MergeDefaults(s.cfg.MainAnnounceURL, own, s.defaults)
	return merged, webseeds, nil
}

// viewURL is the public page for a record, embedded as the torrent comment.
func (s *Service) viewURL(torrentID int64) string {
	return fmt.Sprintf("%s/view/%d", s.cfg.SiteURL, torrentID)
}

// CreateBencodedTorrent regenerates the downloadable torrent file from the
// stored fields and the preserved info-dict bytes. The info hash of the
// output always equals the one computed at upload time.
func (s *Service) CreateBencodedTorrent(ctx context.Context, torrentID int64) ([]byte, error) {
	record, err := s.repos.Torrents(s.db).GetByID(ctx, torrentID)
	if err != nil {
		return nil, err
	}

	trackerURLs, webseedURLs, err := s.trackersAndWebseeds(ctx, torrentID)
	if err != nil {
		return nil, err
	}

	infoBytes, err := s.store.Read(ctx, storage.InfoDictKey(torrentID))
	if err != nil {
		return nil, err
	}

	meta := &metainfo.Metadata{
		Trackers:     trackerURLs,
		Webseeds:     webseedURLs,
		Encoding:     record.Encoding,
		Comment:      s.viewURL(torrentID),
		CreatedBy:    s.cfg.SiteName,
		CreationDate: record.CreatedAt.Unix(),
	}
	return metainfo.CreateTorrent(meta, infoBytes)
}

// Magnet renders the record's magnet URI using the merged tracker list.
func (s *Service) Magnet(ctx context.Context, torrentID int64) (string, error) {
	record, err := s.repos.Torrents(s.db).GetByID(ctx, torrentID)
	if err != nil {
		return "", err
	}

	trackerURLs, _, err := s.trackersAndWebseeds(ctx, torrentID)
	if err != nil {
		return "", err
	}

	var infoHash [20]byte
	copy(infoHash[:], record.InfoHash)
	return s.magnets.Build(record.DisplayName, infoHash, trackerURLs), nil
}

// SoftDelete flags the record deleted, queues the tracker removal, and
// writes the audit entry. The preserved info-dict bytes stay so the action
// can be reverted.
func (s *Service) SoftDelete(ctx context.Context, torrentID int64, moderatorID *int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		record, err := s.repos.Torrents(tx).GetByID(ctx, torrentID)
		if err != nil {
			return err
		}
		if err := s.repos.Torrents(tx).SetDeleted(ctx, torrentID, true); err != nil {
			return err
		}
		if err := s.repos.TrackerTasks(tx).Enqueue(ctx, record.InfoHash, models.TrackerTaskRemove); err != nil {
			return err
		}
		return s.repos.AdminLog(tx).Append(ctx, moderatorID,
			fmt.Sprintf("Deleted torrent #%d (%s)", torrentID, record.DisplayName))
	})
}

// HardDelete removes the record, its preserved info-dict bytes, queues the
// tracker removal, and writes the audit entry. The blob delete runs after
// commit; a leftover blob for a gone record is logged, never fatal.
func (s *Service) HardDelete(ctx context.Context, torrentID int64, moderatorID *int64) error {
	var record *models.Torrent
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		record, err = s.repos.Torrents(tx).GetByID(ctx, torrentID)
		if err != nil {
			return err
		}
		if err := s.repos.Torrents(tx).Delete(ctx, torrentID); err != nil {
			return err
		}
		if err := s.repos.TrackerTasks(tx).Enqueue(ctx, record.InfoHash, models.TrackerTaskRemove); err != nil {
			return err
		}
		return s.repos.AdminLog(tx).Append(ctx, moderatorID,
			fmt.Sprintf("Permanently deleted torrent #%d (%s)", torrentID, record.DisplayName))
	})
	if err != nil {
		return err
	}

	key := storage.InfoDictKey(torrentID)
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.log.Warn(ctx, "deleting info dict failed", "key", key, "error", err)
	}
	return nil
}
