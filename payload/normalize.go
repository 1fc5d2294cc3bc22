package payload

import "encoding/base64"

// Normalize walks v and returns the canonical shape described in spec
// §4.2: byte blobs become a two-field envelope map, ordered sequences
// and string-keyed maps recurse element/value-wise, other scalars pass
// through unchanged. Normalize is total over the value shapes this package
// defines -- it never errors.
func Normalize(v Value) Value {
	switch t := v.(type) {
	case []byte:
		env := NewMap()
		env.Set(bufferEnvelopeType, bufferEnvelopeTag)
		env.Set(bufferEnvelopeData, base64.StdEncoding.EncodeToString(t))
		return env
	case []Value:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case *Map:
		out := NewMap()
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out.Set(k, Normalize(val))
		}
		return out
	default:
		return v
	}
}

// Denormalize reverses Normalize: any map of exactly the Buffer-envelope
// shape is turned back into a byte blob, sequences and maps recurse, other
// scalars pass through.
func Denormalize(v Value) Value {
	switch t := v.(type) {
	case []Value:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = Denormalize(e)
		}
		return out
	case *Map:
		if data, ok := isBufferEnvelope(t); ok {
			raw, err := base64.StdEncoding.DecodeString(data)
			if err == nil {
				return raw
			}
			// Malformed base64 in a Buffer envelope: fall through and
			// denormalize as an ordinary map rather than failing --
			// Denormalize, like Normalize, never errors.
		}
		out := NewMap()
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out.Set(k, Denormalize(val))
		}
		return out
	default:
		return v
	}
}

// isBufferEnvelope reports whether m has exactly the two-field Buffer
// envelope shape and, if so, returns its base64 payload.
func isBufferEnvelope(m *Map) (string, bool) {
	if m.Len() != 2 {
		return "", false
	}
	typ, ok := m.Get(bufferEnvelopeType)
	if !ok {
		return "", false
	}
	typStr, ok := typ.(string)
	if !ok || typStr != bufferEnvelopeTag {
		return "", false
	}
	data, ok := m.Get(bufferEnvelopeData)
	if !ok {
		return "", false
	}
	dataStr, ok := data.(string)
	if !ok {
		return "", false
	}
	return dataStr, true
}
