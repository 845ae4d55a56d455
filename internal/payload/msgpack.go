package payload

import (
	"bytes"
	"errors"
	"math"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// maxDepth bounds recursion for hostile binary payloads.
const maxDepth = 64

var errTooDeep = errors.New("payload: nesting too deep")

// decodeMsgpack decodes b as exactly one MessagePack value; trailing bytes
// fail so that other binary encodings get their turn. Map members keep their
// wire order.
func decodeMsgpack(b []byte) (Node, bool) {
	r := bytes.NewReader(b)
	dec := msgpack.NewDecoder(r)
	n, err := readMsgpack(dec, 0)
	if err != nil || r.Len() > 0 {
		return nil, false
	}
	return n, true
}

func readMsgpack(dec *msgpack.Decoder, depth int) (Node, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	c, err := dec.PeekCode()
	if err != nil {
		return nil, err
	}

	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return nil, err
		}
		m := make(Map, 0, max(n, 0))
		for i := 0; i < n; i++ {
			k, err := dec.DecodeInterfaceLoose()
			if err != nil {
				return nil, err
			}
			v, err := readMsgpack(dec, depth+1)
			if err != nil {
				return nil, err
			}
			if seg, ok := binaryKey(k); ok {
				m = append(m, Member{Key: seg, Value: v})
			}
		}
		return m, nil

	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return nil, err
		}
		arr := make(Array, 0, max(n, 0))
		for i := 0; i < n; i++ {
			v, err := readMsgpack(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	}

	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	return binaryScalar(v), nil
}

// binaryScalar converts a decoded MessagePack or CBOR scalar. Binary blobs,
// extension types and timestamps carry no number and become Null.
func binaryScalar(v interface{}) Node {
	switch t := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(t)
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case string:
		return String(t)
	default:
		return Null{}
	}
}

// binaryKey maps a binary map key to a path segment. Strings are keys and
// non-negative integers are indexes; true, false and nil read as 1, 0 and 0.
// Other key types cannot be expressed and the member is skipped.
func binaryKey(k interface{}) (Segment, bool) {
	switch t := k.(type) {
	case string:
		return KeySegment(t), true
	case bool:
		if t {
			return IndexSegment(1), true
		}
		return IndexSegment(0), true
	case nil:
		return IndexSegment(0), true
	case int64:
		if t < 0 {
			return Segment{}, false
		}
		return indexFromUint(uint64(t))
	case uint64:
		return indexFromUint(t)
	default:
		return Segment{}, false
	}
}

func indexFromUint(u uint64) (Segment, bool) {
	if u > math.MaxInt32 {
		return Segment{}, false
	}
	return IndexSegment(int(u)), true
}
