// Package filetree builds the canonical file-tree representation of a
// torrent's contents: directories before files, lexicographic within each
// group, serialized as compact JSON. The serialized form is deterministic
// for a given input set, which callers rely on for diffing and caching.
package filetree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Tree is a directory node. Files map to their byte length, subdirectories
// to nested trees. A name is either a file or a directory, never both.
type Tree struct {
	dirs  map[string]*Tree
	files map[string]int64
}

// New returns an empty directory node.
func New() *Tree {
	return &Tree{
		dirs:  map[string]*Tree{},
		files: map[string]int64{},
	}
}

// Subdir returns the child directory with the given name, creating it if
// absent. It fails if the name is already taken by a file.
func (t *Tree) Subdir(name string) (*Tree, error) {
	if _, isFile := t.files[name]; isFile {
		return nil, fmt.Errorf("path %q is used as both a file and a directory", name)
	}
	sub, ok := t.dirs[name]
	if !ok {
		sub = New()
		t.dirs[name] = sub
	}
	return sub, nil
}

// PutFile records a file entry. Duplicate paths and file/directory
// collisions are conflicts, not silent overwrites.
func (t *Tree) PutFile(name string, length int64) error {
	if length < 0 {
		return fmt.Errorf("file %q has negative length %d", name, length)
	}
	if _, isDir := t.dirs[name]; isDir {
		return fmt.Errorf("path %q is used as both a file and a directory", name)
	}
	if _, dup := t.files[name]; dup {
		return fmt.Errorf("duplicate file path %q", name)
	}
	t.files[name] = length
	return nil
}

// Empty reports whether the node has no entries at all.
func (t *Tree) Empty() bool {
	return len(t.dirs) == 0 && len(t.files) == 0
}

// TotalSize sums every file length in the tree.
func (t *Tree) TotalSize() int64 {
	var total int64
	for _, sub := range t.dirs {
		total += sub.TotalSize()
	}
	for _, length := range t.files {
		total += length
	}
	return total
}

// Walk visits every path segment in the tree, directory names included.
// Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(name string) bool) bool {
	for name, sub := range t.dirs {
		if !fn(name) {
			return false
		}
		if !sub.Walk(fn) {
			return false
		}
	}
	for name := range t.files {
		if !fn(name) {
			return false
		}
	}
	return true
}

// MarshalJSON writes the canonical serialized form: an object listing
// subdirectories first, then files, each group sorted lexicographically.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tree) encode(buf *bytes.Buffer) error {
	dirNames := make([]string, 0, len(t.dirs))
	for name := range t.dirs {
		dirNames = append(dirNames, name)
	}
	sort.Strings(dirNames)

	fileNames := make([]string, 0, len(t.files))
	for name := range t.files {
		fileNames = append(fileNames, name)
	}
	sort.Strings(fileNames)

	buf.WriteByte('{')
	first := true
	writeKey := func(name string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		return nil
	}

	for _, name := range dirNames {
		if err := writeKey(name); err != nil {
			return err
		}
		if err := t.dirs[name].encode(buf); err != nil {
			return err
		}
	}
	for _, name := range fileNames {
		if err := writeKey(name); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatInt(t.files[name], 10))
	}
	buf.WriteByte('}')
	return nil
}

// UnmarshalJSON restores a tree from its serialized form. Object values are
// directories, numeric values are file lengths.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.dirs = map[string]*Tree{}
	t.files = map[string]int64{}

	for name, value := range raw {
		if len(value) > 0 && value[0] == '{' {
			sub := New()
			if err := sub.UnmarshalJSON(value); err != nil {
				return err
			}
			t.dirs[name] = sub
			continue
		}
		var length int64
		if err := json.Unmarshal(value, &length); err != nil {
			return err
		}
		t.files[name] = length
	}
	return nil
}
