// Package encoding implements the two canonical codecs contracts and the
// kernel exchange: JSON for contract-facing messages and
// external APIs, and a structural ("borsh", package encoding/borsh) codec
// for storage values and wire-layer envelopes. Both are deterministic: map
// keys sorted, no trailing whitespace, canonical number form.
package encoding

import jsoniter "github.com/json-iterator/go"

// JSON is configured for canonical output -- sorted map keys, compact
// (no indentation) -- with json-iterator/go as a faster, drop-in
// encoding/json replacement.
var JSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// MarshalJSON canonically encodes v.
func MarshalJSON(v interface{}) ([]byte, error) {
	return JSON.Marshal(v)
}

// UnmarshalJSON decodes data into v.
func UnmarshalJSON(data []byte, v interface{}) error {
	return JSON.Unmarshal(data, v)
}
