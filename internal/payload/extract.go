package payload

import "math"

// Pair is one extracted observation and where it was found.
type Pair struct {
	Path  KeyPath
	Value float64
}

// Values is the outcome of extraction. It holds either a single value
// without a key path, many keyed values, or nothing.
type Values struct {
	pairs []Pair
}

// Single returns Values holding one root value.
func Single(v float64) Values {
	return Values{pairs: []Pair{{Value: v}}}
}

// Many returns Values holding keyed pairs. A lone pair with an empty path
// is the same as Single.
func Many(pairs []Pair) Values {
	return Values{pairs: pairs}
}

// Empty reports whether no numeric value was found.
func (v Values) Empty() bool {
	return len(v.pairs) == 0
}

// Len returns the number of values.
func (v Values) Len() int {
	return len(v.pairs)
}

// Single returns the value when v holds exactly one value at the root.
func (v Values) Single() (float64, bool) {
	if len(v.pairs) == 1 && len(v.pairs[0].Path) == 0 {
		return v.pairs[0].Value, true
	}
	return 0, false
}

// Pairs returns the keyed values in walk order.
func (v Values) Pairs() []Pair {
	return v.pairs
}

// Extract flattens a classified payload into numeric values.
func Extract(c Classified) Values {
	switch c.Kind {
	case KindText:
		if f, ok := Coerce(c.Text); ok {
			return Single(f)
		}
		return Values{}
	case KindTree:
		var pairs []Pair
		walk(c.Tree, nil, &pairs)
		return Many(pairs)
	default:
		return Values{}
	}
}

// ExtractBytes classifies and extracts in one step. Unrepresentable payloads
// give empty Values.
func ExtractBytes(b []byte) Values {
	c, ok := Classify(b)
	if !ok {
		return Values{}
	}
	return Extract(c)
}

func walk(n Node, path KeyPath, out *[]Pair) {
	switch t := n.(type) {
	case Bool:
		if t {
			*out = append(*out, Pair{Path: path, Value: 1})
		} else {
			*out = append(*out, Pair{Path: path, Value: 0})
		}
	case Number:
		f := float64(t)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			*out = append(*out, Pair{Path: path, Value: f})
		}
	case String:
		if f, ok := Coerce(string(t)); ok {
			*out = append(*out, Pair{Path: path, Value: f})
		}
	case Array:
		for i, e := range t {
			walk(e, path.with(IndexSegment(i)), out)
		}
	case Map:
		for _, m := range t {
			walk(m.Value, path.with(m.Key), out)
		}
	}
}
