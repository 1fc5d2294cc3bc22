package payload

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Package payload implements its own schema-less tag-length-value codec
// rather than calling into Tnze/go-mc's nbt subpackage directly (the
// teacher's own protocol dependency, used elsewhere in this module for
// wire framing). That package's generic encoding path is built around
// typed Go structs carrying `nbt:"..."` tags, not a dynamic tree of
// map/list/scalar values with run-time-only shape, and we cannot verify
// its behavior on that input without running the Go toolchain. The tag
// vocabulary below mirrors real NBT tag semantics (a fixed small set of
// scalar tags, a length-prefixed list, a length-prefixed compound), so a
// library-backed encoder is a drop-in swap later -- exactly the
// swappability spec §4.3 asks for.
const (
	tagNull = iota
	tagBool
	tagInt
	tagFloat
	tagString
	tagList
	tagMap
)

// Encode serializes a normalized value tree (see Normalize) to bytes. The
// contract is Decode(Encode(v)) structurally equals v for any normalized v;
// a raw []byte is rejected, since Normalize wraps those in an envelope map.
func Encode(v Value) ([]byte, error) {
	var buf []byte
	var err error
	buf, err = appendValue(buf, v)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode parses bytes produced by Encode back into a Value tree.
func Decode(data []byte) (Value, error) {
	v, n, err := readValue(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, fmt.Errorf("payload: %d trailing bytes after decode", len(data)-n)
	}
	return v, nil
}

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch t := v.(type) {
	case nil:
		return append(buf, tagNull), nil
	case bool:
		b := byte(0)
		if t {
			b = 1
		}
		return append(buf, tagBool, b), nil
	case string:
		buf = append(buf, tagString)
		return appendLengthPrefixed(buf, []byte(t)), nil
	case []Value:
		buf = append(buf, tagList)
		buf = appendUint32(buf, uint32(len(t)))
		for _, elem := range t {
			var err error
			buf, err = appendValue(buf, elem)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case *Map:
		buf = append(buf, tagMap)
		buf = appendUint32(buf, uint32(t.Len()))
		for _, k := range t.Keys() {
			buf = appendLengthPrefixed(buf, []byte(k))
			val, _ := t.Get(k)
			var err error
			buf, err = appendValue(buf, val)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		if iv, ok := asInt64(v); ok {
			buf = append(buf, tagInt)
			return appendUint64(buf, uint64(iv)), nil
		}
		if fv, ok := asFloat64(v); ok {
			buf = append(buf, tagFloat)
			return appendUint64(buf, math.Float64bits(fv)), nil
		}
		return nil, fmt.Errorf("payload: cannot encode value of type %T", v)
	}
}

func readValue(data []byte) (Value, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("payload: unexpected end of data reading tag")
	}
	tag := data[0]
	rest := data[1:]
	switch tag {
	case tagNull:
		return nil, 1, nil
	case tagBool:
		if len(rest) < 1 {
			return nil, 0, fmt.Errorf("payload: truncated bool")
		}
		return rest[0] != 0, 2, nil
	case tagInt:
		if len(rest) < 8 {
			return nil, 0, fmt.Errorf("payload: truncated int")
		}
		return int64(binary.BigEndian.Uint64(rest[:8])), 9, nil
	case tagFloat:
		if len(rest) < 8 {
			return nil, 0, fmt.Errorf("payload: truncated float")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(rest[:8])), 9, nil
	case tagString:
		s, n, err := readLengthPrefixed(rest)
		if err != nil {
			return nil, 0, err
		}
		return string(s), n + 1, nil
	case tagList:
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("payload: truncated list length")
		}
		count := binary.BigEndian.Uint32(rest[:4])
		offset := 4
		out := make([]Value, 0, count)
		for i := uint32(0); i < count; i++ {
			v, n, err := readValue(rest[offset:])
			if err != nil {
				return nil, 0, fmt.Errorf("payload: list element %d: %w", i, err)
			}
			out = append(out, v)
			offset += n
		}
		return out, offset + 1, nil
	case tagMap:
		if len(rest) < 4 {
			return nil, 0, fmt.Errorf("payload: truncated map length")
		}
		count := binary.BigEndian.Uint32(rest[:4])
		offset := 4
		out := NewMap()
		for i := uint32(0); i < count; i++ {
			key, n, err := readLengthPrefixed(rest[offset:])
			if err != nil {
				return nil, 0, fmt.Errorf("payload: map key %d: %w", i, err)
			}
			offset += n
			val, n, err := readValue(rest[offset:])
			if err != nil {
				return nil, 0, fmt.Errorf("payload: map value for %q: %w", key, err)
			}
			offset += n
			out.Set(string(key), val)
		}
		return out, offset + 1, nil
	default:
		return nil, 0, fmt.Errorf("payload: unknown tag byte 0x%02x", tag)
	}
}

func appendLengthPrefixed(buf, data []byte) []byte {
	buf = appendUint32(buf, uint32(len(data)))
	return append(buf, data...)
}

func readLengthPrefixed(data []byte) ([]byte, int, error) {
	if len(data) < 4 {
		return nil, 0, fmt.Errorf("payload: truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data[:4])
	if uint32(len(data)-4) < n {
		return nil, 0, fmt.Errorf("payload: truncated data, want %d bytes, have %d", n, len(data)-4)
	}
	return data[4 : 4+n], int(4 + n), nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func asInt64(v Value) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v Value) (float64, bool) {
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
