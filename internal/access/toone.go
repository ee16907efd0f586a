package access

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ToOne collapses a to-one relation that may arrive as a single value, a list or
// nothing into an optional value. Only the first element of a list is kept.
func ToOne[T any](items []T) *T {
	if len(items) == 0 {
		return nil
	}
	v := items[0]
	return &v
}

// DecodeToOne decodes a JSON to-one join result. The payload may be null, an
// object or an array of objects.
func DecodeToOne[T any](raw []byte) (*T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("access: decode to-one list: %w", err)
		}
		return ToOne(items), nil
	case '{':
		var item T
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return nil, fmt.Errorf("access: decode to-one object: %w", err)
		}
		return &item, nil
	default:
		return nil, fmt.Errorf("access: unexpected to-one payload %q", trimmed[:1])
	}
}
