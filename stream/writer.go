package stream

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Neumenon/avro/avro"
)

// Writer writes AVS1 containers to an io.Writer. Units are buffered and
// written a block at a time. The header goes out with the first block, or
// on Close for a container with no units.
type Writer struct {
	w         io.Writer
	schema    *avro.Schema
	meta      map[string]string
	blockSize int

	headerBytes []byte
	sync        [SyncSize]byte
	wroteHeader bool

	payload []byte // Units of the pending block
	count   int    // Units in payload
	frame   []byte // Scratch for one encoded block
	total   int64
	closed  bool
	err     error // First write error; sticky
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBlockSize sets the payload size at which a block is flushed
// (default: 64 KiB). Values below 1 are ignored.
func WithBlockSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.blockSize = n
		}
	}
}

// WithMeta records a metadata entry in the header.
func WithMeta(key, value string) WriterOption {
	return func(w *Writer) {
		if w.meta == nil {
			w.meta = make(map[string]string)
		}
		w.meta[key] = value
	}
}

// NewWriter creates a container writer for units of schema s.
func NewWriter(w io.Writer, s *avro.Schema, opts ...WriterOption) *Writer {
	wr := &Writer{
		w:         w,
		schema:    s,
		blockSize: DefaultBlockSize,
	}
	for _, opt := range opts {
		opt(wr)
	}
	wr.headerBytes, wr.err = encodeHeader(&header{
		Version:     Version,
		Schema:      s.String(),
		Fingerprint: s.Fingerprint(),
		Meta:        wr.meta,
	})
	wr.sync = deriveSync(wr.headerBytes)
	return wr
}

// Sync returns the file's sync marker.
func (w *Writer) Sync() [SyncSize]byte {
	return w.sync
}

// Count returns the number of units appended so far.
func (w *Writer) Count() int64 {
	return w.total
}

// Append encodes v into the pending block, flushing it once it reaches
// the block size. A value that does not conform to the schema is rejected
// and the pending block is left as it was.
func (w *Writer) Append(v *avro.Value) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	payload, err := avro.AppendEncode(w.payload, v, w.schema)
	if err != nil {
		return fmt.Errorf("stream: append unit %d: %w", w.total, err)
	}
	w.payload = payload
	w.count++
	w.total++
	if len(w.payload) >= w.blockSize {
		return w.Flush()
	}
	return nil
}

// Flush writes the pending block, and the header if it has not been
// written yet.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if !w.wroteHeader {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	if w.count == 0 {
		return nil
	}

	// Block: count | size | payload | crc | sync
	frame := binary.AppendUvarint(w.frame[:0], uint64(w.count))
	frame = binary.AppendUvarint(frame, uint64(len(w.payload)))
	frame = append(frame, w.payload...)
	frame = appendCRC(frame, w.payload)
	frame = append(frame, w.sync[:]...)
	w.frame = frame

	if _, err := w.w.Write(frame); err != nil {
		w.err = fmt.Errorf("stream: write block: %w", err)
		return w.err
	}
	w.payload = w.payload[:0]
	w.count = 0
	return nil
}

func (w *Writer) writeHeader() error {
	frame := append(w.frame[:0], Magic...)
	frame = binary.AppendUvarint(frame, uint64(len(w.headerBytes)))
	frame = append(frame, w.headerBytes...)
	frame = append(frame, w.sync[:]...)
	w.frame = frame

	if _, err := w.w.Write(frame); err != nil {
		w.err = fmt.Errorf("stream: write header: %w", err)
		return w.err
	}
	w.wroteHeader = true
	return nil
}

// Close flushes the pending block. It does not close the underlying writer.
// Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	return err
}
