// Package storage persists torrent blobs: the preserved info-dictionary
// bytes that re-encoding and hashing depend on, and optional backups of
// the original uploads.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// Storage is a flat keyed blob store.
type Storage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// InfoDictKey is the location of the preserved info-dictionary bytes for a
// torrent record.
func InfoDictKey(torrentID int64) string {
	return fmt.Sprintf("info_dicts/%d.bencoded", torrentID)
}

// BackupKey names an original upload. The record id prefix keeps keys
// unique; the filename is flattened so it cannot escape the prefix.
func BackupKey(torrentID int64, filename string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "\x00", "_").Replace(filename)
	return fmt.Sprintf("backups/%d.%s", torrentID, safe)
}
