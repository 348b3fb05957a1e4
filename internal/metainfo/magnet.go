package metainfo

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MagnetBuilder renders magnet URIs from stored fields. The result is a
// pure function of its inputs and is requested often, so it is memoized in
// a bounded LRU cache; eviction is always safe.
type MagnetBuilder struct {
	cache       *lru.Cache[string, string]
	maxTrackers int
}

// NewMagnetBuilder sizes the memoization cache and caps how many trackers a
// single magnet link carries.
func NewMagnetBuilder(cacheSize, maxTrackers int) (*MagnetBuilder, error) {
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &MagnetBuilder{cache: cache, maxTrackers: maxTrackers}, nil
}

// Build renders magnet:?xt=urn:btih:<hex>&dn=<name>&tr=<tracker>... with at
// most the configured number of trackers.
func (b *MagnetBuilder) Build(displayName string, infoHash [20]byte, trackers []string) string {
	if len(trackers) > b.maxTrackers {
		trackers = trackers[:b.maxTrackers]
	}

	hexHash := hex.EncodeToString(infoHash[:])
	key := cacheKey(displayName, hexHash, trackers)
	if magnet, ok := b.cache.Get(key); ok {
		return magnet
	}

	var sb strings.Builder
	sb.WriteString("magnet:?xt=urn:btih:")
	sb.WriteString(hexHash)
	sb.WriteString("&dn=")
	sb.WriteString(url.QueryEscape(displayName))
	for _, tracker := range trackers {
		sb.WriteString("&tr=")
		sb.WriteString(url.QueryEscape(tracker))
	}

	magnet := sb.String()
	b.cache.Add(key, magnet)
	return magnet
}

// cacheKey length-prefixes every field so no field content, separator bytes
// included, can make two different tuples share a key.
func cacheKey(displayName, hexHash string, trackers []string) string {
	var sb strings.Builder
	writePart := func(part string) {
		sb.WriteString(strconv.Itoa(len(part)))
		sb.WriteByte(':')
		sb.WriteString(part)
	}
	writePart(displayName)
	writePart(hexHash)
	for _, tracker := range trackers {
		writePart(tracker)
	}
	return sb.String()
}
