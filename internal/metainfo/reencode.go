package metainfo

import (
	"errors"

	"github.com/kyan-si/kyan/internal/bencode"
)

// Metadata carries the stored top-level fields a regenerated torrent file
// is rebuilt from. The info dictionary itself is supplied separately as the
// preserved original bytes.
type Metadata struct {
	Trackers     []string
	Webseeds     []string
	Encoding     string
	Comment      string
	CreatedBy    string
	CreationDate int64
}

// dict assembles the top-level metadata dictionary, leaving "info" out.
func (m *Metadata) dict() bencode.Dict {
	d := bencode.Dict{
		"created by":    m.CreatedBy,
		"creation date": m.CreationDate,
		"encoding":      m.Encoding,
	}
	if m.Comment != "" {
		d["comment"] = m.Comment
	}
	if len(m.Trackers) > 0 {
		d["announce"] = m.Trackers[0]
	}
	if len(m.Trackers) > 1 {
		tiers := make(bencode.List, 0, len(m.Trackers))
		for _, tracker := range m.Trackers {
			tiers = append(tiers, bencode.List{tracker})
		}
		d["announce-list"] = tiers
	}
	if len(m.Webseeds) > 0 {
		urls := make(bencode.List, 0, len(m.Webseeds))
		for _, seed := range m.Webseeds {
			urls = append(urls, seed)
		}
		d["url-list"] = urls
	}
	return d
}

// CreateTorrent rebuilds a complete bencoded torrent file. The metadata
// keys sorting before "info" and the keys sorting after it are encoded
// separately, and the preserved info bytes are spliced between them
// unmodified, exactly where a canonical encode would place them. Decoding
// and re-encoding the info dictionary instead could drift from the original
// producer's byte layout and silently change the SHA-1 identity.
func CreateTorrent(m *Metadata, infoBytes []byte) ([]byte, error) {
	if len(infoBytes) == 0 {
		return nil, errors.New("metainfo: no preserved info dictionary bytes")
	}

	full := m.dict()
	delete(full, "info")

	prefixed := bencode.Dict{}
	suffixed := bencode.Dict{}
	for key, value := range full {
		if key < "info" {
			prefixed[key] = value
		} else {
			suffixed[key] = value
		}
	}

	prefix, err := bencode.Encode(prefixed)
	if err != nil {
		return nil, err
	}
	suffix, err := bencode.Encode(suffixed)
	if err != nil {
		return nil, err
	}

	// prefix loses its closing "e", suffix its opening "d"; the preserved
	// info value slots in between under its own key.
	out := make([]byte, 0, len(prefix)+len(infoBytes)+len(suffix)+5)
	out = append(out, prefix[:len(prefix)-1]...)
	out = append(out, "4:info"...)
	out = append(out, infoBytes...)
	out = append(out, suffix[1:]...)
	return out, nil
}
