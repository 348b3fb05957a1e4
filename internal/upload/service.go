package upload

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

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

// Request carries one upload: the raw file plus the form fields.
type Request struct {
	File     []byte
	Filename string

	// ReplaceID re-uploads over an existing record, keeping its id.
	ReplaceID *int64

	DisplayName string
	Information string
	Description string

	MainCategoryID int64
	SubCategoryID  int64

	Anonymous     bool
	Hidden        bool
	Remake        bool
	Complete      bool
	Trusted       bool
	CommentLocked bool

	// User is nil for anonymous uploads. IP is always set.
	User *models.Uploader
	IP   net.IP
}

// Service runs the upload pipeline. Everything from record insert to the
// tracker-task enqueue happens in one transaction; the blob writes after
// commit are best-effort side channels.
type Service struct {
	cfg   *config.Config
	log   logging.Logger
	db    *sql.DB
	repos repomanager.RepositoryManager
	store storage.Storage

	now func() time.Time
}

func NewService(cfg *config.Config, log logging.Logger, db *sql.DB, repos repomanager.RepositoryManager, store storage.Storage) *Service {
	return &Service{
		cfg:   cfg,
		log:   log,
		db:    db,
		repos: repos,
		store: store,
		now:   time.Now,
	}
}

// packedIP is the 4- or 16-byte form stored with the record.
func packedIP(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

// Handle runs the pipeline. On success the committed record is returned;
// failures surface as *ValidationError, *RateLimitError, *RangeBanError, or
// an opaque internal error carrying a correlation id.
func (s *Service) Handle(ctx context.Context, req *Request) (*models.Torrent, error) {
	ip := packedIP(req.IP)
	var userID *int64
	if req.User != nil {
		userID = &req.User.ID
	}

	if err := s.checkRateLimit(ctx, req.User, userID, ip); err != nil {
		return nil, err
	}
	if err := s.checkAnonymousGates(ctx, req); err != nil {
		return nil, err
	}

	parsed, err := metainfo.Parse(req.File, req.Filename)
	if err != nil {
		verr := NewValidationError()
		verr.Add("torrent_file", fmt.Sprintf("Malformed torrent file: %s", err))
		return nil, verr
	}

	record, verr, err := s.buildRecord(ctx, req, parsed, userID, ip)
	if err != nil {
		return nil, s.internal(ctx, err)
	}
	if !verr.Empty() {
		return nil, verr
	}

	trackerURLs, webseedURLs, err := trackers.Dedupe(
		parsed.Announces(), parsed.Webseeds(),
		s.cfg.MainAnnounceURL, s.cfg.EnforceMainAnnounce)
	if err != nil {
		if errors.Is(err, trackers.ErrMainAnnounceMissing) {
			verr := NewValidationError()
			verr.Add("torrent_file", fmt.Sprintf("Torrent does not contain the required tracker %s", s.cfg.MainAnnounceURL))
			return nil, verr
		}
		return nil, s.internal(ctx, err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if req.ReplaceID != nil {
			if err := s.repos.Torrents(tx).Delete(ctx, *req.ReplaceID); err != nil &&
				!errors.Is(err, common.ErrorNotFound) {
				return err
			}
		}

		if err := s.repos.Torrents(tx).Insert(ctx, record); err != nil {
			return err
		}
		if err := s.attachTrackers(ctx, tx, record.ID, trackerURLs, webseedURLs); err != nil {
			return err
		}
		return s.repos.TrackerTasks(tx).Enqueue(ctx, record.InfoHash, models.TrackerTaskInsert)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			verr := NewValidationError()
			verr.Add("torrent_file", "A torrent with this info hash already exists")
			return nil, verr
		}
		return nil, s.internal(ctx, err)
	}

	s.writeBlobs(ctx, req, record, parsed)

	s.log.Info(ctx, "torrent uploaded",
		"id", record.ID,
		"info_hash", fmt.Sprintf("%x", record.InfoHash),
		"filesize", record.Filesize,
		"anonymous", record.Anonymous)

	return record, nil
}

// checkRateLimit gates uploads from anonymous users and from accounts that
// are both young and untrusted. Going over the burst allowance blocks until
// one timeout past the last upload.
func (s *Service) checkRateLimit(ctx context.Context, user *models.Uploader, userID *int64, ip []byte) error {
	if !s.cfg.RatelimitUploads {
		return nil
	}
	now := s.now()
	established := user != nil && (user.Trusted || user.Age(now) >= s.cfg.RatelimitAccountAge)
	if established {
		return nil
	}

	repo := s.repos.Torrents(s.db)
	count, err := repo.CountRecentByUploader(ctx, userID, ip, now.Add(-s.cfg.UploadBurstDuration))
	if err != nil {
		return s.internal(ctx, err)
	}
	if count < s.cfg.MaxUploadBurst {
		return nil
	}

	last, err := repo.LastUploadTime(ctx, userID, ip)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return s.internal(ctx, err)
	}
	if next := last.Add(s.cfg.UploadTimeout); now.Before(next) {
		return &RateLimitError{RetryAt: next}
	}
	return nil
}

func (s *Service) checkAnonymousGates(ctx context.Context, req *Request) error {
	if req.User != nil {
		return nil
	}
	if s.cfg.RaidMode {
		return &RangeBanError{Message: s.cfg.RaidModeMessage}
	}
	banned, err := s.repos.RangeBans(s.db).IsBanned(ctx, req.IP.String())
	if err != nil {
		return s.internal(ctx, err)
	}
	if banned {
		return &RangeBanError{Message: "Your IP is banned from uploading anonymously."}
	}
	return nil
}

// buildRecord resolves the record fields and collects field-level
// validation errors. An unexpected failure comes back as the third value.
func (s *Service) buildRecord(ctx context.Context, req *Request, parsed *metainfo.TorrentData, userID *int64, ip []byte) (*models.Torrent, *ValidationError, error) {
	verr := NewValidationError()

	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		name, err := parsed.Name(parsed.Encoding())
		if err != nil {
			verr.Add("torrent_file", fmt.Sprintf("Invalid torrent name: %s", err))
			return nil, verr, nil
		}
		displayName = strings.TrimSpace(name)
	}

	filesize, err := parsed.TotalSize()
	if err != nil {
		verr.Add("torrent_file", fmt.Sprintf("Invalid file layout: %s", err))
		return nil, verr, nil
	}

	tree, err := parsed.BuildFileTree(parsed.PathEncoding())
	if err != nil {
		verr.Add("torrent_file", fmt.Sprintf("Invalid file layout: %s", err))
		return nil, verr, nil
	}
	if err := tree.Validate(); err != nil {
		verr.Add("torrent_file", "Torrent has forbidden characters in filenames")
	}

	if req.User == nil && s.cfg.MinAnonymousSize > 0 && filesize < s.cfg.MinAnonymousSize {
		verr.Add("torrent_file", "Torrent too small for an anonymous uploader")
	}

	ok, err := s.repos.Categories(s.db).Exists(ctx, req.MainCategoryID, req.SubCategoryID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		verr.Add("category", "Unknown category")
	}

	if !verr.Empty() {
		return nil, verr, nil
	}

	filelist, err := json.Marshal(tree)
	if err != nil {
		return nil, nil, err
	}

	record := &models.Torrent{
		InfoHash:       parsed.InfoHash[:],
		DisplayName:    SanitizeText(displayName),
		TorrentName:    req.Filename,
		Information:    SanitizeText(strings.TrimSpace(req.Information)),
		Description:    SanitizeText(strings.TrimSpace(req.Description)),
		Encoding:       parsed.Encoding(),
		Filesize:       filesize,
		MainCategoryID: req.MainCategoryID,
		SubCategoryID:  req.SubCategoryID,
		Anonymous:      req.User == nil || req.Anonymous,
		Hidden:         req.Hidden,
		Remake:         req.Remake,
		Complete:       req.Complete,
		Trusted:        req.Trusted && req.User != nil && req.User.Trusted,
		CommentLocked:  req.CommentLocked && req.User != nil && req.User.Moderator,
		UserID:         userID,
		UploaderIP:     ip,
		Filelist:       filelist,
	}
	if req.ReplaceID != nil {
		record.ID = *req.ReplaceID
	}
	return record, verr, nil
}

// attachTrackers persists tracker rows and the ordered associations.
// Announce URLs win over webseeds: an existing webseed row referenced as a
// tracker flips to tracker, and a webseed row that is already a tracker is
// not attached again as a webseed.
func (s *Service) attachTrackers(ctx context.Context, tx dbx.DBTX, torrentID int64, trackerURLs, webseedURLs []string) error {
	repo := s.repos.Trackers(tx)
	ord := 0

	for _, uri := range trackerURLs {
		row, err := repo.GetByURI(ctx, uri)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			if row, err = repo.Insert(ctx, uri, false); err != nil {
				return err
			}
		case err != nil:
			return err
		case row.IsWebseed:
			if err := repo.ClearWebseedFlag(ctx, row.ID); err != nil {
				return err
			}
		}
		if err := repo.Attach(ctx, torrentID, row.ID, ord); err != nil {
			return err
		}
		ord++
	}

	for _, uri := range webseedURLs {
		row, err := repo.GetByURI(ctx, uri)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			if row, err = repo.Insert(ctx, uri, true); err != nil {
				return err
			}
		case err != nil:
			return err
		case !row.IsWebseed:
			continue
		}
		if err := repo.Attach(ctx, torrentID, row.ID, ord); err != nil {
			return err
		}
		ord++
	}
	return nil
}

// writeBlobs stores the preserved info-dict bytes and, when backups are
// enabled, the original upload. Both run after commit and must not fail
// the already-visible record; failures are logged.
func (s *Service) writeBlobs(ctx context.Context, req *Request, record *models.Torrent, parsed *metainfo.TorrentData) {
	key := storage.InfoDictKey(record.ID)
	if req.ReplaceID != nil {
		if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "deleting replaced info dict failed", "key", key, "error", err)
		}
	}
	if err := s.store.Write(ctx, key, parsed.RawInfo); err != nil {
		s.log.Error(ctx, "writing info dict failed", "key", key, "error", err)
	}

	if s.cfg.BackupDir == "" {
		return
	}
	backupKey := storage.BackupKey(record.ID, req.Filename)
	if err := s.store.Write(ctx, backupKey, req.File); err != nil {
		s.log.Error(ctx, "writing backup failed", "key", backupKey, "error", err)
	}
}

// internal wraps an unexpected error with a correlation id and logs the
// cause; callers only ever see the id.
func (s *Service) internal(ctx context.Context, err error) error {
	var ierr *common.InternalError
	if errors.As(err, &ierr) {
		return err
	}
	ierr = common.NewInternalError(err)
	s.log.Error(ctx, "upload pipeline failed", "correlation_id", ierr.ID, "error", err)
	return ierr
}
