package bencode

import (
	"strconv"
)

// Decode parses a complete bencoded buffer. Trailing bytes after the top
// value, duplicate dictionary keys and non-canonical integers (leading
// zeros, "-0") are all rejected. Dictionary keys may arrive unsorted; the
// encoder re-sorts them, so only byte strings that were canonically encoded
// round-trip to identical bytes.
func Decode(data []byte) (Value, error) {
	p := &parser{data: data}

	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if p.pos != len(data) {
		return nil, p.errorf("trailing data after top-level value")
	}

	return v, nil
}

type parser struct {
	data []byte
	pos  int
}

func (p *parser) errorf(reason string) *MalformedError {
	return &MalformedError{Offset: p.pos, Reason: reason}
}

func (p *parser) value() (Value, error) {
	if p.pos >= len(p.data) {
		return nil, p.errorf("unexpected EOF, expecting a value")
	}

	switch c := p.data[p.pos]; {
	case c == 'i':
		return p.integer()
	case c == 'l':
		return p.list()
	case c == 'd':
		return p.dict()
	case c >= '0' && c <= '9':
		return p.bytestring()
	default:
		return nil, p.errorf("unexpected tag byte " + strconv.QuoteRune(rune(c)))
	}
}

// integer parses i<digits>e. The digit sequence must be the minimal decimal
// form: no leading zeros, "-" only on a non-zero value.
func (p *parser) integer() (Value, error) {
	start := p.pos
	p.pos++ // 'i'

	end := p.pos
	for end < len(p.data) && p.data[end] != 'e' {
		end++
	}
	if end == len(p.data) {
		p.pos = start
		return nil, p.errorf("unterminated integer")
	}

	s := string(p.data[p.pos:end])
	if !canonicalInt(s) {
		return nil, p.errorf("invalid integer literal " + strconv.Quote(s))
	}
	p.pos = end + 1

	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}

	// Out of int64 range; the digits are already validated.
	big, ok := bigInt(s)
	if !ok {
		p.pos = start
		return nil, p.errorf("unable to parse integer " + strconv.Quote(s))
	}
	return big, nil
}

// canonicalInt reports whether s is a minimal decimal integer: optional
// leading "-", no leading zeros, "-0" forbidden.
func canonicalInt(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
		if s == "" || s[0] == '0' {
			return false
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// bytestring parses <length>:<raw bytes>. A length prefix with leading
// zeros is non-canonical and rejected.
func (p *parser) bytestring() ([]byte, error) {
	end := p.pos
	for end < len(p.data) && p.data[end] >= '0' && p.data[end] <= '9' {
		end++
	}
	if end == len(p.data) {
		return nil, p.errorf("unexpected EOF in string length")
	}
	if p.data[end] != ':' {
		at := *p
		at.pos = end
		return nil, at.errorf("unexpected byte " + strconv.QuoteRune(rune(p.data[end])) + " in string length")
	}

	lenDigits := string(p.data[p.pos:end])
	if len(lenDigits) > 1 && lenDigits[0] == '0' {
		return nil, p.errorf("string length has leading zeros")
	}

	strLen, err := strconv.Atoi(lenDigits)
	if err != nil {
		return nil, p.errorf("unable to parse string length " + strconv.Quote(lenDigits))
	}

	// Compare against the remaining length so that a huge declared
	// length cannot wrap start+strLen negative.
	start := end + 1
	if strLen > len(p.data)-start {
		return nil, p.errorf("string length " + lenDigits + " exceeds remaining buffer")
	}
	p.pos = start + strLen

	out := make([]byte, strLen)
	copy(out, p.data[start:p.pos])
	return out, nil
}

func (p *parser) list() (List, error) {
	p.pos++ // 'l'

	list := List{}
	for {
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated list")
		}
		if p.data[p.pos] == 'e' {
			p.pos++
			return list, nil
		}

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
}

func (p *parser) dict() (Dict, error) {
	p.pos++ // 'd'

	dict := Dict{}
	for {
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated dictionary")
		}
		if p.data[p.pos] == 'e' {
			p.pos++
			return dict, nil
		}

		if c := p.data[p.pos]; c < '0' || c > '9' {
			return nil, p.errorf("dictionary key must be a byte string")
		}
		key, err := p.bytestring()
		if err != nil {
			return nil, err
		}
		if _, dup := dict[string(key)]; dup {
			return nil, p.errorf("duplicate dictionary key " + strconv.Quote(string(key)))
		}

		if p.pos >= len(p.data) || p.data[p.pos] == 'e' {
			return nil, p.errorf("dictionary entry is missing its value")
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		dict[string(key)] = v
	}
}

// skip walks over one value without materializing it.
func (p *parser) skip() error {
	if p.pos >= len(p.data) {
		return p.errorf("unexpected EOF, expecting a value")
	}

	switch c := p.data[p.pos]; {
	case c == 'i':
		_, err := p.integer()
		return err
	case c >= '0' && c <= '9':
		start := p.pos
		end := start
		for end < len(p.data) && p.data[end] >= '0' && p.data[end] <= '9' {
			end++
		}
		if end == len(p.data) || p.data[end] != ':' {
			return p.errorf("unexpected EOF in string length")
		}
		strLen, err := strconv.Atoi(string(p.data[start:end]))
		if err != nil || strLen > len(p.data)-(end+1) {
			return p.errorf("string length exceeds remaining buffer")
		}
		p.pos = end + 1 + strLen
		return nil
	case c == 'l' || c == 'd':
		p.pos++
		for {
			if p.pos >= len(p.data) {
				return p.errorf("unterminated container")
			}
			if p.data[p.pos] == 'e' {
				p.pos++
				return nil
			}
			if err := p.skip(); err != nil {
				return err
			}
		}
	default:
		return p.errorf("unexpected tag byte " + strconv.QuoteRune(rune(c)))
	}
}

// RawDictValue returns the exact bytes of the value stored under key in a
// bencoded top-level dictionary, without decoding it. This is how the info
// dictionary is preserved for hashing: the returned slice aliases data.
func RawDictValue(data []byte, key string) ([]byte, error) {
	p := &parser{data: data}

	if len(data) == 0 || data[0] != 'd' {
		return nil, p.errorf("top-level value is not a dictionary")
	}
	p.pos = 1

	for {
		if p.pos >= len(p.data) {
			return nil, p.errorf("unterminated dictionary")
		}
		if p.data[p.pos] == 'e' {
			return nil, ErrKeyNotFound
		}

		k, err := p.bytestring()
		if err != nil {
			return nil, err
		}

		start := p.pos
		if err := p.skip(); err != nil {
			return nil, err
		}
		if string(k) == key {
			return data[start:p.pos], nil
		}
	}
}
