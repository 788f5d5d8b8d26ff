package stream

import (
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// syncDomainKey keys the BLAKE3 hash that derives a file's sync marker
// from its header bytes. Changing it invalidates every existing file.
var syncDomainKey = [32]byte{
	'a', 'v', 'r', 'o', '.', 's', 't', 'r', 'e', 'a', 'm', '.', 's', 'y', 'n', 'c',
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// Headers use Core Deterministic Encoding so the same schema and metadata
// always yield the same header bytes, and therefore the same sync marker.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("stream: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("stream: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeHeader(h *header) ([]byte, error) {
	data, err := encMode.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("stream: encode header: %w", err)
	}
	return data, nil
}

func decodeHeader(data []byte) (*header, error) {
	var h header
	if err := decMode.Unmarshal(data, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// deriveSync computes the sync marker for a file with the given header.
func deriveSync(headerBytes []byte) [SyncSize]byte {
	hasher, err := blake3.NewKeyed(syncDomainKey[:])
	if err != nil {
		panic("stream: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(headerBytes)
	var sync [SyncSize]byte
	copy(sync[:], hasher.Sum(nil))
	return sync
}

// FormatSync returns the lowercase hex form of a sync marker.
func FormatSync(sync [SyncSize]byte) string {
	return hex.EncodeToString(sync[:])
}
