// Package models holds the row types shared by repositories and services.
package models

import "time"

// Torrent is a persisted torrent record. ID and InfoHash are immutable once
// assigned; InfoHash is the SHA-1 of the preserved info-dictionary bytes
// and is globally unique.
type Torrent struct {
	ID       int64
	InfoHash []byte // 20 raw bytes

	DisplayName string
	TorrentName string // original upload filename
	Information string
	Description string
	Encoding    string
	Filesize    int64

	MainCategoryID int64
	SubCategoryID  int64

	Anonymous     bool
	Hidden        bool
	Remake        bool
	Complete      bool
	Trusted       bool
	CommentLocked bool
	Deleted       bool

	UserID     *int64
	UploaderIP []byte // packed 4- or 16-byte form, for anonymous rate limiting
	CreatedAt  time.Time

	// Filelist is the canonical JSON file tree blob.
	Filelist []byte
}

// Uploader is the slice of account state the pipeline needs. Account
// management itself lives outside this backend.
type Uploader struct {
	ID        int64
	Trusted   bool
	Moderator bool
	CreatedAt time.Time
}

// Age returns how long ago the account was created.
func (u *Uploader) Age(now time.Time) time.Duration {
	return now.Sub(u.CreatedAt)
}
