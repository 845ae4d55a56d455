// Package payload turns raw bus payloads into numeric observations.
//
// Interpretation is schema-less. A payload is first classified:
//
//   - valid UTF-8 that parses as JSON becomes a [Node] tree
//   - other valid UTF-8 is kept as plain text
//   - anything else is decoded as MessagePack, then CBOR
//
// Payloads that fit none of these are unrepresentable and yield no values.
//
// Every decoder produces the same [Node] variants, so a single recursive walk
// ([Extract]) flattens any tree into (key path, value) pairs. Text and string
// leaves go through [Coerce], which understands plain numbers, numbers followed
// by a unit ("21.5 °C") and on/off style words.
package payload
