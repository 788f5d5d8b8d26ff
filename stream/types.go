// Package stream implements AVS1, a self-describing container for binary
// avro units.
//
// An AVS1 file carries the writer's schema in its header, so a reader needs
// nothing but the bytes. Units are grouped into blocks, and each block has:
//   - A unit count and payload size
//   - A CRC-32 of the payload
//   - The file's sync marker, so a damaged file fails at the block boundary
//
// Layout:
//
//	"AVS1" | uvarint header length | CBOR header | sync marker
//	block: uvarint count | uvarint size | payload | CRC-32 (LE) | sync marker
//
// The payload is the units' binary encodings back to back, exactly as
// avro.AppendEncode produces them.
package stream

import (
	"errors"
	"fmt"
)

// Magic opens every AVS1 file.
const Magic = "AVS1"

// Version is the container format version.
const Version uint8 = 1

// SyncSize is the length of the sync marker in bytes.
const SyncSize = 16

// DefaultBlockSize is the payload size at which a Writer flushes a block.
const DefaultBlockSize = 64 * 1024

// MaxBlockSize is the default limit on a block payload when reading (64 MiB).
const MaxBlockSize = 64 * 1024 * 1024

// maxHeaderSize bounds the CBOR header a Reader will allocate.
const maxHeaderSize = 16 * 1024 * 1024

// header is the CBOR-encoded file header.
type header struct {
	Version     uint8             `cbor:"v"`
	Schema      string            `cbor:"schema"`
	Fingerprint uint64            `cbor:"fp"`
	Meta        map[string]string `cbor:"meta,omitempty"`
}

// ErrClosed is returned by Writer methods after Close.
var ErrClosed = errors.New("stream: writer closed")

// ParseError reports a malformed container. Offset is the byte offset
// into the input, or -1 when unknown.
type ParseError struct {
	Reason string
	Offset int64
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("stream: %s at offset %d", e.Reason, e.Offset)
	}
	return fmt.Sprintf("stream: %s", e.Reason)
}

// CRCMismatchError is returned when a block payload fails its checksum.
type CRCMismatchError struct {
	Block    int
	Expected uint32
	Got      uint32
}

func (e *CRCMismatchError) Error() string {
	return fmt.Sprintf("stream: block %d: CRC mismatch: expected %08x, got %08x", e.Block, e.Expected, e.Got)
}

// SyncMismatchError is returned when a sync marker differs from the one
// derived from the header. Block is -1 for the marker after the header.
type SyncMismatchError struct {
	Block  int
	Offset int64
}

func (e *SyncMismatchError) Error() string {
	if e.Block < 0 {
		return fmt.Sprintf("stream: header sync marker mismatch at offset %d", e.Offset)
	}
	return fmt.Sprintf("stream: block %d: sync marker mismatch at offset %d", e.Block, e.Offset)
}

// FingerprintMismatchError is returned when the header's schema text does
// not hash to the fingerprint recorded next to it.
type FingerprintMismatchError struct {
	Expected uint64
	Got      uint64
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("stream: schema fingerprint mismatch: header says %016x, schema hashes to %016x", e.Expected, e.Got)
}
