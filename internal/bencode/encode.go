package bencode

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strconv"
)

// Encode serializes v into canonical bencode: dictionary keys in ascending
// raw-byte order regardless of insertion order, integers in minimal decimal
// form. It is the exact inverse of Decode for well-formed values.
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v Value) error {
	switch x := v.(type) {
	case int:
		encodeInt64(buf, int64(x))
	case int64:
		encodeInt64(buf, x)
	case *big.Int:
		buf.WriteByte('i')
		buf.WriteString(x.Text(10))
		buf.WriteByte('e')
	case []byte:
		encodeBytes(buf, x)
	case string:
		encodeBytes(buf, []byte(x))
	case List:
		buf.WriteByte('l')
		for _, item := range x {
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	case Dict:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('d')
		for _, k := range keys {
			encodeBytes(buf, []byte(k))
			if err := encodeValue(buf, x[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	default:
		return fmt.Errorf("bencode: unsupported type %T", v)
	}
	return nil
}

func encodeInt64(buf *bytes.Buffer, n int64) {
	buf.WriteByte('i')
	buf.WriteString(strconv.FormatInt(n, 10))
	buf.WriteByte('e')
}

func encodeBytes(buf *bytes.Buffer, b []byte) {
	buf.WriteString(strconv.Itoa(len(b)))
	buf.WriteByte(':')
	buf.Write(b)
}
