package avro

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ============================================================
// Binary Encoding
// ============================================================
//
// Wire layout (no embedded schema):
//   null          nothing
//   boolean       one byte, 0 or 1
//   int, long     zig-zag varint, low group first
//   float         4 bytes little-endian IEEE 754
//   double        8 bytes little-endian IEEE 754
//   bytes, string varint length, then the raw bytes
//   record        fields in declaration order, back to back
//   union         varint branch index, then the branch encoding

// Encode returns the binary encoding of v under s.
func Encode(v *Value, s *Schema) ([]byte, error) {
	return AppendEncode(nil, v, s)
}

// AppendEncode appends the binary encoding of v under s to dst. On error
// dst is returned unchanged.
func AppendEncode(dst []byte, v *Value, s *Schema) ([]byte, error) {
	out, err := appendDatum(dst, v, s, "$")
	if err != nil {
		return dst, err
	}
	return out, nil
}

func appendDatum(dst []byte, v *Value, s *Schema, path string) ([]byte, error) {
	if s.Kind() == KindUnion {
		i, err := unionBranch(v, s, path)
		if err != nil {
			return nil, err
		}
		dst = binary.AppendVarint(dst, int64(i))
		return appendDatum(dst, v, s.branches[i], path)
	}

	if err := checkKind(v, s, path); err != nil {
		return nil, err
	}
	switch s.kind {
	case KindNull:
	case KindBoolean:
		if v.boolVal {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case KindInt, KindLong:
		dst = binary.AppendVarint(dst, v.intVal)
	case KindFloat:
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(v.floatVal)))
	case KindDouble:
		dst = binary.LittleEndian.AppendUint64(dst, math.Float64bits(v.floatVal))
	case KindBytes:
		dst = binary.AppendVarint(dst, int64(len(v.bytesVal)))
		dst = append(dst, v.bytesVal...)
	case KindString:
		dst = binary.AppendVarint(dst, int64(len(v.strVal)))
		dst = append(dst, v.strVal...)
	case KindRecord:
		var err error
		err = eachField(v, s, path, func(f *FieldDef, fv *Value, fpath string) error {
			dst, err = appendDatum(dst, fv, f.typ, fpath)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// checkKind verifies that v may be written as the non-union schema s.
func checkKind(v *Value, s *Schema, path string) error {
	if v.Kind() != s.kind {
		return mismatch(path, s, v.Tag())
	}
	if s.kind == KindRecord && v.recordVal.Name != "" && v.recordVal.Name != s.FullName() {
		return mismatch(path, s, v.Tag())
	}
	return nil
}

// unionBranch returns the branch of union s that v selects.
func unionBranch(v *Value, s *Schema, path string) (int, error) {
	i := s.branchFor(v)
	if i < 0 {
		return 0, mismatch(path, s, v.Tag())
	}
	return i, nil
}

// eachField calls fn for every field of record schema s in declaration
// order, with the matching field of v or the field default. A value field
// the schema does not declare is a mismatch.
func eachField(v *Value, s *Schema, path string, fn func(f *FieldDef, fv *Value, fpath string) error) error {
	rec := v.recordVal
	matched := 0
	for _, f := range s.fields {
		fpath := path + "." + f.name
		fv, ok := rec.Lookup(f.name)
		switch {
		case ok:
			matched++
		case f.hasDefault:
			fv = f.defVal
		default:
			return &SchemaMismatchError{Path: fpath, Expected: f.typ.Tag(), Got: "missing field"}
		}
		if err := fn(f, fv, fpath); err != nil {
			return err
		}
	}
	if matched == len(rec.Fields) {
		return nil
	}
	seen := make(map[string]bool, len(rec.Fields))
	for _, fv := range rec.Fields {
		if s.Field(fv.Name) == nil {
			return &SchemaMismatchError{Path: path, Expected: s.Tag(), Got: "unknown field " + strconv.Quote(fv.Name)}
		}
		if seen[fv.Name] {
			return &SchemaMismatchError{Path: path, Expected: s.Tag(), Got: "duplicate field " + strconv.Quote(fv.Name)}
		}
		seen[fv.Name] = true
	}
	return nil
}

// Encoder writes binary units to an io.Writer.
type Encoder struct {
	w      io.Writer
	schema *Schema
	buf    []byte
}

// NewEncoder returns an encoder writing units of schema s to w.
func NewEncoder(w io.Writer, s *Schema) *Encoder {
	return &Encoder{w: w, schema: s}
}

// Encode writes one unit. Nothing is written if v does not match the
// schema.
func (e *Encoder) Encode(v *Value) error {
	buf, err := AppendEncode(e.buf[:0], v, e.schema)
	if err != nil {
		return err
	}
	e.buf = buf
	_, err = e.w.Write(buf)
	return err
}

// ============================================================
// Binary Decoding
// ============================================================

// Decode decodes exactly one unit. Bytes left over after the unit are
// reported as ErrTrailingData.
func Decode(data []byte, s *Schema) (*Value, error) {
	d := NewDecoder(data, s)
	v, err := d.Next()
	if err != nil {
		return nil, err
	}
	if d.More() {
		return nil, fmt.Errorf("%w at offset %d (%d bytes)", ErrTrailingData, d.Offset(), len(data)-d.Offset())
	}
	return v, nil
}

// Decoder reads consecutive units of one schema from a buffer. Decoded
// values never alias the buffer.
type Decoder struct {
	data   []byte
	off    int
	schema *Schema
}

// NewDecoder returns a decoder over data.
func NewDecoder(data []byte, s *Schema) *Decoder {
	return &Decoder{data: data, schema: s}
}

// More reports whether unread bytes remain.
func (d *Decoder) More() bool {
	return d.off < len(d.data)
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.off
}

// Next decodes one unit. After an error the decoder position is
// unspecified.
func (d *Decoder) Next() (*Value, error) {
	return d.datum(d.schema)
}

func (d *Decoder) datum(s *Schema) (*Value, error) {
	switch s.Kind() {
	case KindNull:
		return Null(), nil

	case KindBoolean:
		b, err := d.fixed(1, "boolean")
		if err != nil {
			return nil, err
		}
		return Boolean(b[0] != 0), nil

	case KindInt:
		start := d.off
		n, err := d.varint("int")
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, &CorruptVarintError{Offset: start, Reason: "int value " + strconv.FormatInt(n, 10) + " out of 32-bit range"}
		}
		return Int(int32(n)), nil

	case KindLong:
		n, err := d.varint("long")
		if err != nil {
			return nil, err
		}
		return Long(n), nil

	case KindFloat:
		b, err := d.fixed(4, "float")
		if err != nil {
			return nil, err
		}
		return Float(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil

	case KindDouble:
		b, err := d.fixed(8, "double")
		if err != nil {
			return nil, err
		}
		return Double(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil

	case KindBytes:
		b, err := d.lengthPrefixed("bytes")
		if err != nil {
			return nil, err
		}
		return Bytes(append([]byte(nil), b...)), nil

	case KindString:
		b, err := d.lengthPrefixed("string")
		if err != nil {
			return nil, err
		}
		return String(string(b)), nil

	case KindRecord:
		fields := make([]FieldValue, len(s.fields))
		for i, f := range s.fields {
			v, err := d.datum(f.typ)
			if err != nil {
				return nil, err
			}
			fields[i] = FieldVal(f.name, v)
		}
		return Record(s.FullName(), fields...), nil

	case KindUnion:
		start := d.off
		idx, err := d.varint("union index")
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= int64(len(s.branches)) {
			return nil, &CorruptUnionTagError{Offset: start, Index: idx, Branches: len(s.branches)}
		}
		return d.datum(s.branches[idx])
	}
	return nil, fmt.Errorf("avro: cannot decode %s", s.Kind())
}

func (d *Decoder) varint(what string) (int64, error) {
	v, n := binary.Varint(d.data[d.off:])
	switch {
	case n == 0:
		have := len(d.data) - d.off
		return 0, &TruncatedInputError{Offset: d.off, Need: have + 1, Have: have, What: what}
	case n < 0:
		return 0, &CorruptVarintError{Offset: d.off, Reason: what + " varint overflows 64 bits"}
	}
	d.off += n
	return v, nil
}

func (d *Decoder) fixed(n int, what string) ([]byte, error) {
	have := len(d.data) - d.off
	if have < n {
		return nil, &TruncatedInputError{Offset: d.off, Need: n, Have: have, What: what}
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) lengthPrefixed(what string) ([]byte, error) {
	start := d.off
	n, err := d.varint(what + " length")
	if err != nil {
		return nil, err
	}
	if n < 0 || n > math.MaxInt32 {
		return nil, &CorruptLengthPrefixError{Offset: start, Length: n}
	}
	return d.fixed(int(n), what)
}
