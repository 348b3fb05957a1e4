package metainfo

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/ianaindex"
)

// DecodeText converts raw bytes into a string using the IANA charset label
// declared by the torrent. An empty label and utf-8 aliases take the fast
// path with a validity check; anything else goes through x/text.
func DecodeText(raw []byte, label string) (string, error) {
	switch strings.ToLower(label) {
	case "", "utf-8", "utf8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("metainfo: invalid UTF-8 in %q", raw)
		}
		return string(raw), nil
	}

	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return "", fmt.Errorf("metainfo: unknown text encoding %q", label)
	}

	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("metainfo: decoding %q as %s: %w", raw, label, err)
	}
	return string(out), nil
}
