package payload

import "unicode/utf8"

// Kind tells how a payload was interpreted.
type Kind int

const (
	// KindText is valid UTF-8 that is not a JSON document.
	KindText Kind = iota + 1
	// KindTree is a decoded JSON, MessagePack or CBOR value.
	KindTree
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindTree:
		return "tree"
	default:
		return "unknown"
	}
}

// Classified is a payload after sniffing. Exactly one of Text or Tree is
// meaningful, selected by Kind.
type Classified struct {
	Kind Kind
	Text string
	Tree Node
}

// Text wraps a plain text payload.
func Text(s string) Classified {
	return Classified{Kind: KindText, Text: s}
}

// Tree wraps a decoded structured payload.
func Tree(n Node) Classified {
	return Classified{Kind: KindTree, Tree: n}
}

// Classify sniffs a payload. UTF-8 text is tried as JSON first and otherwise
// kept verbatim. Non-UTF-8 bytes are tried as MessagePack and then CBOR.
// ok is false when nothing fits; that is an expected outcome, not an error.
func Classify(b []byte) (c Classified, ok bool) {
	if utf8.Valid(b) {
		s := string(b)
		if tree, ok := decodeJSON(s); ok {
			return Tree(tree), true
		}
		return Text(s), true
	}
	if tree, ok := decodeMsgpack(b); ok {
		return Tree(tree), true
	}
	if tree, ok := decodeCBOR(b); ok {
		return Tree(tree), true
	}
	return Classified{}, false
}
