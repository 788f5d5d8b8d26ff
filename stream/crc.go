package stream

import (
	"encoding/binary"
	"hash/crc32"
)

// crcTable is the IEEE CRC-32 table.
var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeCRC computes CRC-32 IEEE of a block payload.
func ComputeCRC(payload []byte) uint32 {
	return crc32.Checksum(payload, crcTable)
}

// appendCRC appends the little-endian checksum of payload to dst.
func appendCRC(dst, payload []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, ComputeCRC(payload))
}
