// Package bencode implements the bencode serialization format used by
// .torrent files: a decoder for untrusted input with byte-offset error
// reporting, a canonical encoder (sorted dictionary keys, minimal integer
// form), and raw-span extraction so the info dictionary can be preserved
// byte-for-byte.
package bencode

import (
	"errors"
	"fmt"
	"math/big"
)

// Value is one of the four bencode types after decoding:
//
//	int64    integer (values outside the int64 range decode as *big.Int)
//	[]byte   byte string (not necessarily valid text)
//	List     list
//	Dict     dictionary
//
// Encode accepts the same set, plus int, string and *big.Int for
// convenience when building metadata dictionaries by hand.
type Value = any

// List is an ordered sequence of values.
type List []Value

// Dict maps raw-byte keys to values. The key string carries the exact key
// bytes and is not required to be valid UTF-8; Go string comparison is
// bytewise, which is exactly the ordering canonical encoding needs.
type Dict map[string]Value

// MalformedError reports a decoding failure with the byte offset at which
// it was detected. Decoding never returns a partial structure alongside it.
type MalformedError struct {
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed bencode: %s at offset %d (0x%X)", e.Reason, e.Offset, e.Offset)
}

// ErrKeyNotFound is returned by RawDictValue when the requested key is not
// present in the top-level dictionary.
var ErrKeyNotFound = errors.New("bencode: dictionary key not found")

// bigInt parses s as an arbitrary-precision integer. The caller has already
// validated the digit sequence.
func bigInt(s string) (*big.Int, bool) {
	n := new(big.Int)
	return n.SetString(s, 10)
}
