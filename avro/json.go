package avro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ============================================================
// JSON Text Bridge
// ============================================================
//
// Text form of a datum:
//   - primitives render as JSON literals; bytes as a string with one code
//     point per byte; NaN and infinities as the strings "NaN", "Infinity"
//     and "-Infinity"
//   - records render as objects with fields in schema order
//   - a union renders as null for the null branch, otherwise as
//     {"<branch tag>": <value>}

// EncodeText renders v as compact JSON text under s.
func EncodeText(v *Value, s *Schema) ([]byte, error) {
	return AppendText(nil, v, s)
}

// AppendText appends the JSON text of v under s to dst. On error dst is
// returned unchanged.
func AppendText(dst []byte, v *Value, s *Schema) ([]byte, error) {
	w := &jsonWriter{buf: dst}
	if err := w.datum(v, s, "$"); err != nil {
		return dst, err
	}
	return w.buf, nil
}

func (w *jsonWriter) datum(v *Value, s *Schema, path string) error {
	if s.Kind() == KindUnion {
		i, err := unionBranch(v, s, path)
		if err != nil {
			return err
		}
		b := s.branches[i]
		if b.kind == KindNull {
			w.raw("null")
			return nil
		}
		w.beginObject()
		w.key(b.Tag())
		if err := w.datum(v, b, path); err != nil {
			return err
		}
		w.endObject()
		return nil
	}

	if err := checkKind(v, s, path); err != nil {
		return err
	}
	switch s.kind {
	case KindNull:
		w.raw("null")
	case KindBoolean:
		w.raw(strconv.FormatBool(v.boolVal))
	case KindInt, KindLong:
		w.raw(strconv.FormatInt(v.intVal, 10))
	case KindFloat:
		w.jsonFloat(v.floatVal, 32)
	case KindDouble:
		w.jsonFloat(v.floatVal, 64)
	case KindBytes:
		w.buf = appendQuotedBytes(w.buf, v.bytesVal)
	case KindString:
		w.str(v.strVal)
	case KindRecord:
		w.beginObject()
		err := eachField(v, s, path, func(f *FieldDef, fv *Value, fpath string) error {
			w.key(f.name)
			return w.datum(fv, f.typ, fpath)
		})
		if err != nil {
			return err
		}
		w.endObject()
	}
	return nil
}

// ============================================================
// JSON to Value
// ============================================================

// TextDecoder reads consecutive JSON texts from a stream and converts each
// one to a Value under a fixed schema.
type TextDecoder struct {
	dec    *json.Decoder
	schema *Schema
}

// NewTextDecoder returns a decoder reading JSON texts from r.
func NewTextDecoder(r io.Reader, s *Schema) *TextDecoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &TextDecoder{dec: dec, schema: s}
}

// Next returns the next datum. It returns io.EOF, unwrapped, once the input
// holds nothing but whitespace.
func (d *TextDecoder) Next() (*Value, error) {
	var raw any
	if err := d.dec.Decode(&raw); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		off := d.dec.InputOffset()
		var se *json.SyntaxError
		if errors.As(err, &se) {
			off += se.Offset
		}
		return nil, &TextSyntaxError{Offset: off, Cause: err}
	}
	return fromJSON(raw, d.schema, "$", false)
}

// InputOffset returns the byte offset just past the last datum read.
func (d *TextDecoder) InputOffset() int64 {
	return d.dec.InputOffset()
}

// DecodeText converts exactly one JSON text to a Value under s. Anything
// other than whitespace after the first text is ErrTrailingData.
func DecodeText(data []byte, s *Schema) (*Value, error) {
	d := NewTextDecoder(bytes.NewReader(data), s)
	v, err := d.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &TextSyntaxError{Offset: 0, Cause: io.ErrUnexpectedEOF}
		}
		return nil, err
	}
	if _, err := d.dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w at offset %d", ErrTrailingData, d.InputOffset())
	}
	return v, nil
}

// defaultFromJSON converts a field default. Defaults for union fields are
// bare values of the first branch.
func defaultFromJSON(s *Schema, v any) (*Value, error) {
	return fromJSON(v, s, "default", true)
}

func fromJSON(raw any, s *Schema, path string, isDefault bool) (*Value, error) {
	switch s.Kind() {
	case KindUnion:
		if isDefault {
			return fromJSON(raw, s.branches[0], path, true)
		}
		if raw == nil {
			if s.NullIndex() < 0 {
				return nil, mismatch(path, s, "null")
			}
			return Null(), nil
		}
		m, ok := raw.(map[string]any)
		if !ok || len(m) != 1 {
			return nil, mismatch(path, s, "unwrapped "+jsonKind(raw))
		}
		for tag, inner := range m {
			for _, b := range s.branches {
				if b.kind != KindNull && b.Tag() == tag {
					return fromJSON(inner, b, path, false)
				}
			}
			return nil, mismatch(path, s, "branch "+strconv.Quote(tag))
		}

	case KindNull:
		if raw == nil {
			return Null(), nil
		}

	case KindBoolean:
		if b, ok := raw.(bool); ok {
			return Boolean(b), nil
		}

	case KindInt:
		if n, ok := jsonInt(raw); ok {
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, mismatch(path, s, "out of range number "+strconv.FormatInt(n, 10))
			}
			return Int(int32(n)), nil
		}

	case KindLong:
		if n, ok := jsonInt(raw); ok {
			return Long(n), nil
		}

	case KindFloat:
		if f, ok := jsonFloat(raw); ok {
			return Float(float32(f)), nil
		}

	case KindDouble:
		if f, ok := jsonFloat(raw); ok {
			return Double(f), nil
		}

	case KindBytes:
		if str, ok := raw.(string); ok {
			b := make([]byte, 0, len(str))
			for _, r := range str {
				if r > 0xFF {
					return nil, mismatch(path, s, "code point "+strconv.QuoteRune(r)+" in bytes")
				}
				b = append(b, byte(r))
			}
			return Bytes(b), nil
		}

	case KindString:
		if str, ok := raw.(string); ok {
			return String(str), nil
		}

	case KindRecord:
		m, ok := raw.(map[string]any)
		if !ok {
			break
		}
		fields := make([]FieldValue, 0, len(s.fields))
		for _, f := range s.fields {
			fpath := path + "." + f.name
			fraw, present := m[f.name]
			if !present {
				if !f.hasDefault {
					return nil, &SchemaMismatchError{Path: fpath, Expected: f.typ.Tag(), Got: "missing field"}
				}
				fields = append(fields, FieldVal(f.name, f.defVal))
				continue
			}
			fv, err := fromJSON(fraw, f.typ, fpath, isDefault)
			if err != nil {
				return nil, err
			}
			fields = append(fields, FieldVal(f.name, fv))
		}
		return Record(s.FullName(), fields...), nil
	}
	return nil, mismatch(path, s, jsonKind(raw))
}

// jsonInt accepts an integral JSON number or Go integer.
func jsonInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

// jsonFloat accepts a JSON number, a Go number, or one of the strings used
// for non-finite values.
func jsonFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		switch n {
		case "NaN":
			return math.NaN(), true
		case "Infinity":
			return math.Inf(1), true
		case "-Infinity":
			return math.Inf(-1), true
		}
		return 0, false
	}
	if i, ok := jsonInt(raw); ok {
		return float64(i), true
	}
	return 0, false
}
