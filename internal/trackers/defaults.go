// Package trackers normalizes a torrent's announce and webseed URLs into
// ordered unique sets and owns the site's default tracker list.
package trackers

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"
)

// DefaultSet is the site-wide tracker list merged into regenerated torrent
// files. It replaces ad-hoc global state: the set is owned by whoever
// constructs it and reloading is an explicit operation, not a side effect
// of first access.
type DefaultSet struct {
	mu   sync.RWMutex
	urls []string
}

// NewDefaultSet returns an empty set.
func NewDefaultSet() *DefaultSet {
	return &DefaultSet{}
}

// LoadDefaultSet reads the tracker list file if it exists. A missing file
// yields an empty set, matching a site that runs without extra trackers.
func LoadDefaultSet(path string) (*DefaultSet, error) {
	s := NewDefaultSet()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	defer f.Close()

	if err := s.Reload(f); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the set with the URLs read from r, one per line. Blank
// lines and "#" comments are skipped; order and uniqueness are preserved.
func (s *DefaultSet) Reload(r io.Reader) error {
	var urls []string
	seen := map[string]struct{}{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.urls = urls
	s.mu.Unlock()
	return nil
}

// URLs returns a copy of the current list.
func (s *DefaultSet) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}
