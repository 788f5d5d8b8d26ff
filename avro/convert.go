package avro

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
)

// ============================================================
// Conversions
// ============================================================
//
// Buffers may hold zero or more consecutive units. The text conversions
// keep every unit; FromBinary keeps only the last one. Any error aborts
// the conversion and no partial output is returned.

// ToBinary encodes obj under s. obj may be anything ValueOf accepts.
func ToBinary(obj any, s *Schema) ([]byte, error) {
	v, err := ValueOf(obj, s)
	if err != nil {
		return nil, err
	}
	return Encode(v, s)
}

// FromBinary decodes every unit in data and stores the last one into out
// (see Assign). Earlier units are decoded and validated, then discarded.
// Empty data leaves out untouched.
func FromBinary(data []byte, s *Schema, out any) error {
	if err := checkDestination(out); err != nil {
		return err
	}
	v, err := FromBinaryValue(data, s)
	if err != nil || v == nil {
		return err
	}
	return Assign(v, out)
}

// FromBinaryValue is FromBinary returning the last unit as a Value. It
// returns nil, nil for empty data.
func FromBinaryValue(data []byte, s *Schema) (*Value, error) {
	var last *Value
	err := eachUnit(data, s, func(v *Value) error {
		last = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

// BinaryToText renders every unit in data as JSON text, concatenated with
// no separator.
func BinaryToText(data []byte, s *Schema) (string, error) {
	var buf []byte
	err := eachUnit(data, s, func(v *Value) error {
		var err error
		buf, err = AppendText(buf, v, s)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// TextToBinary encodes every JSON text in text, appending the units in
// order. Reading stops at end of input.
func TextToBinary(text string, s *Schema) ([]byte, error) {
	dec := NewTextDecoder(strings.NewReader(text), s)
	var out []byte
	for {
		v, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if out, err = AppendEncode(out, v, s); err != nil {
			return nil, err
		}
	}
}

// eachUnit decodes units until data is exhausted.
func eachUnit(data []byte, s *Schema, fn func(*Value) error) error {
	d := NewDecoder(data, s)
	for d.More() {
		start := d.Offset()
		v, err := d.Next()
		if err != nil {
			return err
		}
		if d.Offset() == start {
			// A zero-width schema can never consume what is left.
			return fmt.Errorf("%w at offset %d (%d bytes)", ErrTrailingData, start, len(data)-start)
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================
// Schemas from Go Types
// ============================================================

type schemaKey struct {
	typ       reflect.Type
	allowNull bool
}

var schemaCache sync.Map // schemaKey -> *Schema

// SchemaOf derives the schema of obj's type (a struct or pointer to one).
// With allowNull every field becomes nullable.
func SchemaOf(obj any, allowNull bool) (*Schema, error) {
	return schemaForType(reflect.TypeOf(obj), allowNull)
}

// SchemaFor derives the schema of T. Results are cached per type.
func SchemaFor[T any](allowNull bool) (*Schema, error) {
	return schemaForType(reflect.TypeOf((*T)(nil)).Elem(), allowNull)
}

func schemaForType(t reflect.Type, allowNull bool) (*Schema, error) {
	key := schemaKey{typ: t, allowNull: allowNull}
	if s, ok := schemaCache.Load(key); ok {
		return s.(*Schema), nil
	}
	desc, err := Describe(t)
	if err != nil {
		return nil, err
	}
	s, err := Derive(desc, allowNull)
	if err != nil {
		return nil, err
	}
	actual, _ := schemaCache.LoadOrStore(key, s)
	return actual.(*Schema), nil
}

// ToBinaryFor encodes obj under the schema derived from T.
func ToBinaryFor[T any](obj T, allowNull bool) ([]byte, error) {
	s, err := SchemaFor[T](allowNull)
	if err != nil {
		return nil, err
	}
	return ToBinary(obj, s)
}

// FromBinaryFor decodes data under the schema derived from T and returns
// the last unit. Empty data yields the zero T.
func FromBinaryFor[T any](data []byte, allowNull bool) (T, error) {
	var out T
	s, err := SchemaFor[T](allowNull)
	if err != nil {
		return out, err
	}
	if err := FromBinary(data, s, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// BinaryToTextFor is BinaryToText under the schema derived from T.
func BinaryToTextFor[T any](data []byte, allowNull bool) (string, error) {
	s, err := SchemaFor[T](allowNull)
	if err != nil {
		return "", err
	}
	return BinaryToText(data, s)
}

// TextToBinaryFor is TextToBinary under the schema derived from T.
func TextToBinaryFor[T any](text string, allowNull bool) ([]byte, error) {
	s, err := SchemaFor[T](allowNull)
	if err != nil {
		return nil, err
	}
	return TextToBinary(text, s)
}
