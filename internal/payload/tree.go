package payload

import (
	"strconv"
	"strings"
)

// Node is a decoded structured value, independent of the wire encoding it
// came from. The concrete types are Null, Bool, Number, String, Array and Map.
type Node interface {
	node()
}

// Null is an explicit null / nil value.
type Null struct{}

// Bool is a boolean leaf.
type Bool bool

// Number is a numeric leaf. It may be non-finite; extraction drops those.
type Number float64

// String is a text leaf.
type String string

// Array is an ordered list of nodes.
type Array []Node

// Map is an ordered list of members. The order is decided by the decoder and
// is stable for the same input.
type Map []Member

// Member is one key/value entry of a Map.
type Member struct {
	Key   Segment
	Value Node
}

func (Null) node()   {}
func (Bool) node()   {}
func (Number) node() {}
func (String) node() {}
func (Array) node()  {}
func (Map) node()    {}

// Segment is one step of a KeyPath: a map key or an array index.
type Segment struct {
	key     string
	index   int
	isIndex bool
}

// KeySegment returns a segment addressing a map member.
func KeySegment(key string) Segment {
	return Segment{key: key}
}

// IndexSegment returns a segment addressing an array element (or an
// integer-keyed map member).
func IndexSegment(index int) Segment {
	return Segment{index: index, isIndex: true}
}

// IsIndex reports whether the segment is an integer index.
func (s Segment) IsIndex() bool {
	return s.isIndex
}

// Key returns the map key of a string segment.
func (s Segment) Key() string {
	return s.key
}

// Index returns the integer of an index segment.
func (s Segment) Index() int {
	return s.index
}

// String renders the segment the way it appears in tags.
func (s Segment) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// KeyPath locates a leaf inside a tree. The empty path is the root.
type KeyPath []Segment

// String joins the segments with "/" for logging.
func (p KeyPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, "/")
}

// with returns a copy of p extended by s. Copying keeps sibling paths from
// sharing a backing array.
func (p KeyPath) with(s Segment) KeyPath {
	out := make(KeyPath, len(p)+1)
	copy(out, p)
	out[len(p)] = s
	return out
}
