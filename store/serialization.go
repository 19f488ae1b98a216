package store

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// marshalGob serializes a store value with gob.
func marshalGob(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return nil, fmt.Errorf("failed to encode store value: %w", err)
	}
	return buf.Bytes(), nil
}

// unmarshalGob deserializes a store value. val is only valid inside the badger callback,
// so decoding has to happen there.
func unmarshalGob(val []byte, target any) error {
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(target); err != nil {
		return fmt.Errorf("failed to decode store value: %w", err)
	}
	return nil
}
