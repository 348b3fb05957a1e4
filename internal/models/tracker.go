package models

// Tracker is a known announce or webseed URI. A URI is one or the other at
// any time; a webseed later seen as an announce URL flips to tracker and
// never flips back implicitly.
type Tracker struct {
	ID        int64
	URI       string
	IsWebseed bool
}

// TorrentTracker associates a torrent with a tracker row at an explicit
// position, preserving first-seen order.
type TorrentTracker struct {
	TorrentID int64
	TrackerID int64
	Order     int
}
