package main

import (
	"encoding/hex"
	"fmt"
)

// decodeKey parses a hex-encoded 32-byte public key. An empty string
// decodes to the zero key, useful for local development where no real
// authority has been provisioned yet.
func decodeKey(s string) ([32]byte, error) {
	var out [32]byte
	if s == "" {
		return out, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}
