package filetree

import (
	"fmt"
	"strings"
)

// reservedNames are device names some operating systems refuse to create as
// files. This is a portability guard on the data, not platform-conditional
// logic, so the set is fixed.
var reservedNames = map[string]struct{}{
	"con": {}, "nul": {}, "prn": {}, "aux": {},
	"com0": {}, "com1": {}, "com2": {}, "com3": {}, "com4": {},
	"com5": {}, "com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt0": {}, "lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {},
	"lpt5": {}, "lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// forbiddenRunes are characters that corrupt downstream display if they
// appear anywhere in a path segment.
var forbiddenRunes = []rune{
	'‮', // RIGHT-TO-LEFT OVERRIDE
}

// CheckName validates a single path segment. The reserved-name comparison
// strips the last extension and is case-insensitive: "con.txt" is rejected,
// "console.txt" passes. Validation never alters the name.
func CheckName(name string) error {
	base := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		base = name[:i]
	}
	if _, reserved := reservedNames[strings.ToLower(base)]; reserved {
		return fmt.Errorf("filename %q uses a reserved name", name)
	}
	for _, r := range forbiddenRunes {
		if strings.ContainsRune(name, r) {
			return fmt.Errorf("filename %q contains a forbidden character %U", name, r)
		}
	}
	return nil
}

// Validate runs CheckName over every path segment in the tree, directory
// names included, and returns the first failure.
func (t *Tree) Validate() error {
	var err error
	t.Walk(func(name string) bool {
		err = CheckName(name)
		return err == nil
	})
	return err
}
