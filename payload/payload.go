// Package payload implements the payload normalizer and schema-less codec
// described in spec §4.2 and §4.3: a canonicalization step that makes an
// arbitrary packet payload tree safe to hand to a tag-length-value binary
// encoder, plus the encoder itself.
//
// A payload tree is built from plain Go values, matching the tagged sum in
// the design notes:
//
//	nil            -> null
//	bool           -> bool
//	int64          -> int
//	float64        -> float
//	string         -> string
//	[]byte         -> byte blob
//	[]interface{}  -> ordered sequence
//	*Map           -> string-keyed map (insertion-ordered, since plain Go
//	                  maps are not; a plain map[string]any is not accepted)
package payload

// Value is a node in a payload tree. It holds one of: nil, bool, int64,
// float64, string, []byte, []Value, or *Map.
type Value = interface{}

// Map is a string-keyed map that remembers insertion order. Go's built-in
// map does not, and the normalizer must round-trip key order even though
// the spec calls it "not semantically significant" -- a decoded Map is
// still expected to re-encode to the same bytes for the round-trip
// property in spec §8, which a random Go map iteration order would break.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set inserts or overwrites key, appending it to the key order on first
// insertion.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.keys)
}

// bufferEnvelopeType and bufferEnvelopeData are the two fields of the
// blob envelope described in spec §4.2: any map of exactly this shape is
// materialized back into a byte blob on decode.
const (
	bufferEnvelopeType = "__type"
	bufferEnvelopeData = "__data"
	bufferEnvelopeTag  = "Buffer"
)
