package avro

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint returns a 64-bit xxHash of the canonical schema text.
func (s *Schema) Fingerprint() uint64 {
	return xxhash.Sum64String(s.Canonical())
}

// FingerprintHex returns Fingerprint as 16 lower-case hex digits.
func (s *Schema) FingerprintHex() string {
	return fmt.Sprintf("%016x", s.Fingerprint())
}
