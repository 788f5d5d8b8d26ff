package stream

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Neumenon/avro/avro"
)

// Reader reads units from an AVS1 container.
type Reader struct {
	in        *countingReader
	maxBlock  int
	verifyCRC bool

	schema *avro.Schema
	meta   map[string]string
	sync   [SyncSize]byte

	blocks    int           // Blocks read so far
	dec       *avro.Decoder // Decoder over the current block
	remaining uint64        // Units left in the current block
	err       error         // Sticky
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxBlockSize sets the largest block payload the reader will accept
// (default: 64 MiB).
func WithMaxBlockSize(max int) ReaderOption {
	return func(r *Reader) {
		r.maxBlock = max
	}
}

// WithCRCVerification turns payload checksum verification on or off
// (default: on).
func WithCRCVerification(on bool) ReaderOption {
	return func(r *Reader) {
		r.verifyCRC = on
	}
}

// NewReader reads the container header from r and returns a reader
// positioned at the first block.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	reader := &Reader{
		in:        &countingReader{r: bufio.NewReader(r)},
		maxBlock:  MaxBlockSize,
		verifyCRC: true, // verify by default
	}
	for _, opt := range opts {
		opt(reader)
	}
	if err := reader.readHeader(); err != nil {
		return nil, err
	}
	return reader, nil
}

// Schema returns the writer's schema recorded in the header.
func (r *Reader) Schema() *avro.Schema {
	return r.schema
}

// Meta returns the header metadata. The map may be nil.
func (r *Reader) Meta() map[string]string {
	return r.meta
}

// Sync returns the file's sync marker.
func (r *Reader) Sync() [SyncSize]byte {
	return r.sync
}

// Blocks returns the number of blocks read so far.
func (r *Reader) Blocks() int {
	return r.blocks
}

func (r *Reader) readHeader() error {
	var magic [len(Magic)]byte
	if err := r.readFull(magic[:]); err != nil {
		return r.truncated("magic", err)
	}
	if string(magic[:]) != Magic {
		return &ParseError{Reason: fmt.Sprintf("bad magic %q", magic[:]), Offset: 0}
	}

	start := r.in.n
	n, err := binary.ReadUvarint(r.in)
	if err != nil {
		return r.truncated("header length", err)
	}
	if n > maxHeaderSize {
		return &ParseError{Reason: fmt.Sprintf("header too large: %d > %d", n, maxHeaderSize), Offset: start}
	}
	headerBytes := make([]byte, n)
	start = r.in.n
	if err := r.readFull(headerBytes); err != nil {
		return r.truncated("header", err)
	}
	h, err := decodeHeader(headerBytes)
	if err != nil {
		return &ParseError{Reason: "invalid header: " + err.Error(), Offset: start}
	}
	if h.Version != Version {
		return &ParseError{Reason: fmt.Sprintf("unsupported version %d", h.Version), Offset: start}
	}

	s, err := avro.ParseSchema(h.Schema)
	if err != nil {
		return fmt.Errorf("stream: header schema: %w", err)
	}
	if got := s.Fingerprint(); got != h.Fingerprint {
		return &FingerprintMismatchError{Expected: h.Fingerprint, Got: got}
	}

	start = r.in.n
	if err := r.readFull(r.sync[:]); err != nil {
		return r.truncated("sync marker", err)
	}
	if r.sync != deriveSync(headerBytes) {
		return &SyncMismatchError{Block: -1, Offset: start}
	}

	r.schema = s
	r.meta = h.Meta
	return nil
}

// Next returns the next unit. Returns io.EOF when no more units are
// available. After any other error the reader is unusable and every later
// call returns the same error.
func (r *Reader) Next() (*avro.Value, error) {
	if r.err != nil {
		return nil, r.err
	}
	v, err := r.next()
	if err != nil {
		r.err = err
	}
	return v, err
}

func (r *Reader) next() (*avro.Value, error) {
	for r.remaining == 0 {
		if r.dec != nil && r.dec.More() {
			return nil, &ParseError{Reason: fmt.Sprintf("block %d has trailing bytes", r.blocks-1), Offset: -1}
		}
		if err := r.readBlock(); err != nil {
			return nil, err
		}
	}
	v, err := r.dec.Next()
	if err != nil {
		return nil, fmt.Errorf("stream: block %d: %w", r.blocks-1, err)
	}
	r.remaining--
	return v, nil
}

// readBlock loads the next block. It returns io.EOF, unwrapped, when the
// input ends cleanly between blocks.
func (r *Reader) readBlock() error {
	start := r.in.n
	count, err := binary.ReadUvarint(r.in)
	if err != nil {
		if err == io.EOF {
			return io.EOF
		}
		return r.truncated("block count", err)
	}
	if count > MaxBlockSize {
		return &ParseError{Reason: fmt.Sprintf("block count too large: %d", count), Offset: start}
	}
	sizeOff := r.in.n
	size, err := binary.ReadUvarint(r.in)
	if err != nil {
		return r.truncated("block size", err)
	}
	if size > uint64(r.maxBlock) {
		return &ParseError{Reason: fmt.Sprintf("block too large: %d > %d", size, r.maxBlock), Offset: sizeOff}
	}

	payload := make([]byte, size)
	if err := r.readFull(payload); err != nil {
		return r.truncated("block payload", err)
	}
	var crc [4]byte
	if err := r.readFull(crc[:]); err != nil {
		return r.truncated("block checksum", err)
	}
	if r.verifyCRC {
		expected := binary.LittleEndian.Uint32(crc[:])
		if got := ComputeCRC(payload); got != expected {
			return &CRCMismatchError{Block: r.blocks, Expected: expected, Got: got}
		}
	}
	syncOff := r.in.n
	var sync [SyncSize]byte
	if err := r.readFull(sync[:]); err != nil {
		return r.truncated("block sync marker", err)
	}
	if !bytes.Equal(sync[:], r.sync[:]) {
		return &SyncMismatchError{Block: r.blocks, Offset: syncOff}
	}

	r.blocks++
	r.dec = avro.NewDecoder(payload, r.schema)
	r.remaining = count
	return nil
}

// ReadAll reads all units until EOF. On error it returns the units read
// before the failure along with the error.
func (r *Reader) ReadAll() ([]*avro.Value, error) {
	var values []*avro.Value
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return values, nil
		}
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
}

func (r *Reader) readFull(buf []byte) error {
	_, err := io.ReadFull(r.in, buf)
	return err
}

func (r *Reader) truncated(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ParseError{Reason: "truncated " + what, Offset: r.in.n}
	}
	return fmt.Errorf("stream: read %s at offset %d: %w", what, r.in.n, err)
}

// countingReader tracks the input offset for error reports.
type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}
