package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NullableString tracks whether a string field was present in a PATCH body.
// Set with a nil Value means the client sent null and wants the field cleared.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	n.Set = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed string
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	parsed = strings.TrimSpace(parsed)
	if parsed == "" {
		n.Value = nil
		return nil
	}
	n.Value = &parsed
	return nil
}

// Len returns the rune length of the value, zero when cleared.
func (n NullableString) Len() int {
	if n.Value == nil {
		return 0
	}
	return len([]rune(*n.Value))
}
