package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a query cache entry. Segments are compared by their
// canonical JSON encoding, so map key order and struct field order do not
// matter: Key{"users-search", map[string]any{"a": 1, "b": 2}} and
// Key{"users-search", struct{B, A int}{2, 1}} with matching json tags name
// the same entry.
type Key []any

// Segments returns the canonical encoding of every segment.
func (k Key) Segments() []string {
	out := make([]string, len(k))
	for i, seg := range k {
		out[i] = canonicalSegment(seg)
	}
	return out
}

// String returns the canonical form of the whole key.
func (k Key) String() string {
	return "[" + strings.Join(k.Segments(), ",") + "]"
}

// Equal reports whether both keys name the same entry.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// HasPrefix reports whether prefix matches the leading segments of k.
// An empty prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	return hasSegmentPrefix(k.Segments(), prefix.Segments())
}

func hasSegmentPrefix(segments, prefix []string) bool {
	if len(prefix) > len(segments) {
		return false
	}
	for i := range prefix {
		if segments[i] != prefix[i] {
			return false
		}
	}
	return true
}

func canonicalSegment(seg any) string {
	switch v := seg.(type) {
	case nil:
		return "null"
	case string:
		b, _ := json.Marshal(v)
		return string(b)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}

	raw, err := json.Marshal(seg)
	if err != nil {
		return fmt.Sprintf("%q", fmt.Sprintf("%#v", seg))
	}
	// Round-trip through a generic value: encoding/json sorts map keys on
	// the way out, which gives a stable form for structs and maps alike.
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
