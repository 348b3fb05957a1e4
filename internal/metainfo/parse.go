// Package metainfo parses uploaded .torrent files into their decoded
// structure while preserving the exact bytes of the info dictionary, and
// rebuilds spec-compliant torrent files and magnet URIs from stored
// metadata. The preserved bytes are the protocol identity: the SHA-1 of the
// info dictionary is computed here, once, before any normalization.
package metainfo

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kyan-si/kyan/internal/bencode"
	"github.com/kyan-si/kyan/internal/filetree"
)

var (
	ErrNotDictionary = errors.New("metainfo: top-level value is not a dictionary")
	ErrNoInfoDict    = errors.New("metainfo: missing info dictionary")
)

// TorrentData is the transient result of parsing one uploaded file.
type TorrentData struct {
	// Filename is the name the file was uploaded under.
	Filename string

	// TopLevel is the decoded top-level dictionary after UTF-8 key
	// normalization. Info aliases its "info" entry.
	TopLevel bencode.Dict
	Info     bencode.Dict

	// RawInfo holds the exact original bytes of the bencoded info
	// dictionary, untouched by normalization. InfoHash is the SHA-1 of
	// those bytes and never changes afterwards.
	RawInfo  []byte
	InfoHash [20]byte

	// ChangedToUTF8 records whether any ".utf-8" key variant was folded
	// in, in which case path components decode as UTF-8 regardless of the
	// declared encoding.
	ChangedToUTF8 bool
}

// Parse decodes an uploaded torrent. The info hash is taken over the
// original bytes before the ".utf-8" key normalization mutates the decoded
// structure.
func Parse(data []byte, filename string) (*TorrentData, error) {
	top, err := bencode.Decode(data)
	if err != nil {
		return nil, err
	}
	dict, ok := top.(bencode.Dict)
	if !ok {
		return nil, ErrNotDictionary
	}

	rawInfo, err := bencode.RawDictValue(data, "info")
	if err != nil {
		if errors.Is(err, bencode.ErrKeyNotFound) {
			return nil, ErrNoInfoDict
		}
		return nil, err
	}

	t := &TorrentData{
		Filename: filename,
		TopLevel: dict,
		RawInfo:  rawInfo,
		InfoHash: sha1.Sum(rawInfo),
	}

	t.ChangedToUTF8 = normalizeUTF8Keys(dict)

	info, ok := dict["info"].(bencode.Dict)
	if !ok {
		return nil, ErrNoInfoDict
	}
	t.Info = info

	return t, nil
}

// normalizeUTF8Keys folds ".utf-8"-suffixed key variants over their plain
// counterparts, recursively. Some producers emit both "path" and
// "path.utf-8"; the UTF-8 one wins and takes the plain name.
func normalizeUTF8Keys(v bencode.Value) bool {
	changed := false

	switch x := v.(type) {
	case bencode.Dict:
		var variants []string
		for key := range x {
			if strings.HasSuffix(key, ".utf-8") {
				variants = append(variants, key)
			}
		}
		for _, key := range variants {
			x[strings.TrimSuffix(key, ".utf-8")] = x[key]
			delete(x, key)
			changed = true
		}
		for _, value := range x {
			changed = normalizeUTF8Keys(value) || changed
		}
	case bencode.List:
		for _, item := range x {
			changed = normalizeUTF8Keys(item) || changed
		}
	}

	return changed
}

// Encoding returns the declared text encoding label, defaulting to utf-8.
func (t *TorrentData) Encoding() string {
	if raw, ok := t.TopLevel["encoding"].([]byte); ok && len(raw) > 0 {
		return string(raw)
	}
	return "utf-8"
}

// PathEncoding is the label governing path-component decoding: utf-8 when
// normalization replaced any keys, the declared encoding otherwise.
func (t *TorrentData) PathEncoding() string {
	if t.ChangedToUTF8 {
		return "utf-8"
	}
	return t.Encoding()
}

// Name returns the info dictionary's name field decoded with the given label.
func (t *TorrentData) Name(label string) (string, error) {
	raw, ok := t.Info["name"].([]byte)
	if !ok {
		return "", errors.New("metainfo: info dictionary has no name")
	}
	return DecodeText(raw, label)
}

// TotalSize computes the torrent's payload size: the single-file length, or
// the sum of all per-file lengths.
func (t *TorrentData) TotalSize() (int64, error) {
	if length, ok := t.Info["length"].(int64); ok {
		if length < 0 {
			return 0, fmt.Errorf("metainfo: negative file length %d", length)
		}
		return length, nil
	}

	files, ok := t.Info["files"].(bencode.List)
	if !ok {
		return 0, errors.New("metainfo: info dictionary has neither length nor files")
	}

	var total int64
	for _, entry := range files {
		file, ok := entry.(bencode.Dict)
		if !ok {
			return 0, errors.New("metainfo: files entry is not a dictionary")
		}
		length, ok := file["length"].(int64)
		if !ok || length < 0 {
			return 0, errors.New("metainfo: files entry has an invalid length")
		}
		if total > math.MaxInt64-length {
			return 0, errors.New("metainfo: total size overflows int64")
		}
		total += length
	}
	return total, nil
}

// Announces returns the torrent's tracker URLs in first-seen order: the
// announce field, then the head of each announce-list tier.
func (t *TorrentData) Announces() []string {
	var out []string

	if announce, ok := t.TopLevel["announce"].([]byte); ok && len(announce) > 0 {
		out = append(out, string(announce))
	}

	tiers, _ := t.TopLevel["announce-list"].(bencode.List)
	for _, tier := range tiers {
		entries, ok := tier.(bencode.List)
		if !ok || len(entries) == 0 {
			continue
		}
		if url, ok := entries[0].([]byte); ok && len(url) > 0 {
			out = append(out, string(url))
		}
	}
	return out
}

// Webseeds returns url-list entries; the field may be a single byte string
// or a list of them.
func (t *TorrentData) Webseeds() []string {
	switch x := t.TopLevel["url-list"].(type) {
	case []byte:
		if len(x) > 0 {
			return []string{string(x)}
		}
	case bencode.List:
		var out []string
		for _, entry := range x {
			if url, ok := entry.([]byte); ok && len(url) > 0 {
				out = append(out, string(url))
			}
		}
		return out
	}
	return nil
}

// BuildFileTree reconstructs the nested file tree using the given path
// encoding. A single-file torrent becomes one root-level file named after
// the info name; a multi-file torrent nests everything under it.
func (t *TorrentData) BuildFileTree(label string) (*filetree.Tree, error) {
	root := filetree.New()

	name, err := t.Name(label)
	if err != nil {
		return nil, err
	}

	files, multi := t.Info["files"].(bencode.List)
	if !multi {
		length, ok := t.Info["length"].(int64)
		if !ok {
			return nil, errors.New("metainfo: single-file torrent has no length")
		}
		if err := root.PutFile(name, length); err != nil {
			return nil, err
		}
		return root, nil
	}

	base, err := root.Subdir(name)
	if err != nil {
		return nil, err
	}

	for _, entry := range files {
		file, ok := entry.(bencode.Dict)
		if !ok {
			return nil, errors.New("metainfo: files entry is not a dictionary")
		}
		length, ok := file["length"].(int64)
		if !ok {
			return nil, errors.New("metainfo: files entry has an invalid length")
		}
		rawPath, ok := file["path"].(bencode.List)
		if !ok || len(rawPath) == 0 {
			return nil, errors.New("metainfo: files entry has an invalid path")
		}

		parts := make([]string, 0, len(rawPath))
		for _, seg := range rawPath {
			raw, ok := seg.([]byte)
			if !ok {
				return nil, errors.New("metainfo: path segment is not a byte string")
			}
			part, err := DecodeText(raw, label)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}

		dir := base
		for _, part := range parts[:len(parts)-1] {
			if dir, err = dir.Subdir(part); err != nil {
				return nil, err
			}
		}
		if filename := parts[len(parts)-1]; filename != "" {
			if err := dir.PutFile(filename, length); err != nil {
				return nil, err
			}
		}
	}

	return root, nil
}
