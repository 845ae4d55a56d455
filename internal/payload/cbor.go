package payload

import (
	"sort"

	"github.com/fxamacker/cbor/v2"
)

// cborDecMode decodes untyped CBOR into plain Go values. Nesting is capped
// like the MessagePack reader.
var cborDecMode cbor.DecMode

func init() {
	var err error
	cborDecMode, err = cbor.DecOptions{
		MaxNestedLevels: maxDepth,
	}.DecMode()
	if err != nil {
		panic("payload: CBOR decoder initialization failed: " + err.Error())
	}
}

// decodeCBOR decodes b as exactly one CBOR data item. Map members are ordered
// by their rendered key since CBOR maps decode without order.
func decodeCBOR(b []byte) (Node, bool) {
	var v interface{}
	if err := cborDecMode.Unmarshal(b, &v); err != nil {
		return nil, false
	}
	return fromCBOR(v), true
}

func fromCBOR(v interface{}) Node {
	switch t := v.(type) {
	case []interface{}:
		arr := make(Array, len(t))
		for i, e := range t {
			arr[i] = fromCBOR(e)
		}
		return arr
	case map[interface{}]interface{}:
		m := make(Map, 0, len(t))
		for k, e := range t {
			if seg, ok := binaryKey(k); ok {
				m = append(m, Member{Key: seg, Value: fromCBOR(e)})
			}
		}
		sort.SliceStable(m, func(i, j int) bool {
			return segmentLess(m[i].Key, m[j].Key)
		})
		return m
	default:
		return binaryScalar(v)
	}
}

// segmentLess orders indexes before keys, indexes numerically and keys
// lexically.
func segmentLess(a, b Segment) bool {
	switch {
	case a.isIndex && b.isIndex:
		return a.index < b.index
	case a.isIndex != b.isIndex:
		return a.isIndex
	default:
		return a.key < b.key
	}
}
