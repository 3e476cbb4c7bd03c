// Package sqlite contains SQLite implementations of the engine's
// secondary ports: the base relation, the three projection store modes,
// and the drift report sink.
package sqlite

import (
	"encoding/json"
	"fmt"
)

// encodeAttrs serializes derived attributes for storage in a TEXT column.
func encodeAttrs(attrs map[string]float64) (string, error) {
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("failed to encode attrs: %w", err)
	}
	return string(data), nil
}

// decodeAttrs deserializes attributes from a TEXT column.
func decodeAttrs(data string) (map[string]float64, error) {
	if data == "" {
		return map[string]float64{}, nil
	}
	var attrs map[string]float64
	if err := json.Unmarshal([]byte(data), &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode attrs: %w", err)
	}
	return attrs, nil
}
