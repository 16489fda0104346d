package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Serializer defines the interface for serialization.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONSerializer implements Serializer using JSON.
type JSONSerializer struct{}

// Marshal serializes a value to JSON.
func (js *JSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal deserializes a value from JSON.
func (js *JSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewJSONSerializer creates a new JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Save serializes v and writes it under key.
func Save(ctx context.Context, st Store, ser Serializer, key string, v any) error {
	data, err := ser.Marshal(v)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", key, err)
	}
	return st.Set(ctx, key, data)
}

// Load reads key into v. It reports false without error when nothing is stored.
func Load(ctx context.Context, st Store, ser Serializer, key string, v any) (bool, error) {
	data, err := st.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := ser.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("deserialize %s: %w", key, err)
	}
	return true, nil
}
