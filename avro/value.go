package avro

import (
	"bytes"
	"fmt"
	"math"
)

// Kind identifies a schema node type. Values use the same kinds except
// KindUnion: a union value is carried as its active branch.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInt    // 32-bit signed
	KindLong   // 64-bit signed
	KindFloat  // 32-bit IEEE 754
	KindDouble // 64-bit IEEE 754
	KindBytes
	KindString
	KindRecord
	KindUnion
)

// String returns the type tag used in schema text.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBytes:
		return "bytes"
	case KindString:
		return "string"
	case KindRecord:
		return "record"
	case KindUnion:
		return "union"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// IsPrimitive reports whether k is one of the eight primitive kinds.
func (k Kind) IsPrimitive() bool {
	return k <= KindString
}

// primitiveKind maps a primitive type tag to its kind.
func primitiveKind(tag string) (Kind, bool) {
	switch tag {
	case "null":
		return KindNull, true
	case "boolean":
		return KindBoolean, true
	case "int":
		return KindInt, true
	case "long":
		return KindLong, true
	case "float":
		return KindFloat, true
	case "double":
		return KindDouble, true
	case "bytes":
		return KindBytes, true
	case "string":
		return KindString, true
	default:
		return 0, false
	}
}

// Value is a decoded datum. Only the member matching kind is meaningful.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64   // int and long
	floatVal float64 // float and double
	strVal   string
	bytesVal []byte

	recordVal *RecordValue
}

// FieldValue is one named field of a record value.
type FieldValue struct {
	Name  string
	Value *Value
}

// RecordValue holds the fields of a record in schema order.
type RecordValue struct {
	Name   string // Full name of the record type, may be empty
	Fields []FieldValue
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Boolean creates a boolean value.
func Boolean(v bool) *Value {
	return &Value{kind: KindBoolean, boolVal: v}
}

// Int creates a 32-bit integer value.
func Int(v int32) *Value {
	return &Value{kind: KindInt, intVal: int64(v)}
}

// Long creates a 64-bit integer value.
func Long(v int64) *Value {
	return &Value{kind: KindLong, intVal: v}
}

// Float creates a 32-bit float value.
func Float(v float32) *Value {
	return &Value{kind: KindFloat, floatVal: float64(v)}
}

// Double creates a 64-bit float value.
func Double(v float64) *Value {
	return &Value{kind: KindDouble, floatVal: v}
}

// Bytes creates a byte sequence value.
func Bytes(v []byte) *Value {
	return &Value{kind: KindBytes, bytesVal: v}
}

// String creates a string value.
func String(v string) *Value {
	return &Value{kind: KindString, strVal: v}
}

// Record creates a record value. name is the record's full name; it may be
// left empty when the record is not a union branch.
func Record(name string, fields ...FieldValue) *Value {
	return &Value{
		kind:      KindRecord,
		recordVal: &RecordValue{Name: name, Fields: fields},
	}
}

// FieldVal creates a FieldValue for use in Record construction.
func FieldVal(name string, v *Value) FieldValue {
	return FieldValue{Name: name, Value: v}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value kind. A nil value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// Tag returns the union branch tag this value selects: the kind name for
// primitives, the full name for records.
func (v *Value) Tag() string {
	if v.Kind() == KindRecord && v.recordVal.Name != "" {
		return v.recordVal.Name
	}
	return v.Kind().String()
}

// IsNull reports whether v is null.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

func (v *Value) expect(k Kind) error {
	if v == nil {
		return fmt.Errorf("avro: nil value")
	}
	if v.kind != k {
		return fmt.Errorf("avro: expected %s, got %s", k, v.kind)
	}
	return nil
}

// AsBoolean returns the boolean value.
func (v *Value) AsBoolean() (bool, error) {
	if err := v.expect(KindBoolean); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt returns the 32-bit integer value.
func (v *Value) AsInt() (int32, error) {
	if err := v.expect(KindInt); err != nil {
		return 0, err
	}
	return int32(v.intVal), nil
}

// AsLong returns the 64-bit integer value.
func (v *Value) AsLong() (int64, error) {
	if err := v.expect(KindLong); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsFloat returns the 32-bit float value.
func (v *Value) AsFloat() (float32, error) {
	if err := v.expect(KindFloat); err != nil {
		return 0, err
	}
	return float32(v.floatVal), nil
}

// AsDouble returns the 64-bit float value.
func (v *Value) AsDouble() (float64, error) {
	if err := v.expect(KindDouble); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsBytes returns the byte sequence.
func (v *Value) AsBytes() ([]byte, error) {
	if err := v.expect(KindBytes); err != nil {
		return nil, err
	}
	return v.bytesVal, nil
}

// AsString returns the string value.
func (v *Value) AsString() (string, error) {
	if err := v.expect(KindString); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsRecord returns the record value.
func (v *Value) AsRecord() (*RecordValue, error) {
	if err := v.expect(KindRecord); err != nil {
		return nil, err
	}
	return v.recordVal, nil
}

// Get returns a record field by name, or nil.
func (v *Value) Get(name string) *Value {
	if v.Kind() != KindRecord {
		return nil
	}
	for _, f := range v.recordVal.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// Lookup is Get with a presence flag, so a missing field can be told apart
// from a nil field value.
func (r *RecordValue) Lookup(name string) (*Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Equal reports whether v and o hold the same datum. Floats compare by bit
// pattern so NaN equals itself. Record field order is significant; an
// unnamed record compares equal to a named one with the same fields.
func (v *Value) Equal(o *Value) bool {
	if v.Kind() != o.Kind() {
		return false
	}
	switch v.Kind() {
	case KindNull:
		return true
	case KindBoolean:
		return v.boolVal == o.boolVal
	case KindInt, KindLong:
		return v.intVal == o.intVal
	case KindFloat:
		return math.Float32bits(float32(v.floatVal)) == math.Float32bits(float32(o.floatVal))
	case KindDouble:
		return math.Float64bits(v.floatVal) == math.Float64bits(o.floatVal)
	case KindBytes:
		return bytes.Equal(v.bytesVal, o.bytesVal)
	case KindString:
		return v.strVal == o.strVal
	case KindRecord:
		a, b := v.recordVal, o.recordVal
		if a.Name != "" && b.Name != "" && a.Name != b.Name {
			return false
		}
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for i := range a.Fields {
			if a.Fields[i].Name != b.Fields[i].Name || !a.Fields[i].Value.Equal(b.Fields[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns a debug rendering of the value.
func (v *Value) String() string {
	switch v.Kind() {
	case KindNull:
		return "null"
	case KindBoolean:
		return fmt.Sprint(v.boolVal)
	case KindInt, KindLong:
		return fmt.Sprint(v.intVal)
	case KindFloat:
		return fmt.Sprint(float32(v.floatVal))
	case KindDouble:
		return fmt.Sprint(v.floatVal)
	case KindBytes:
		return fmt.Sprintf("%x", v.bytesVal)
	case KindString:
		return fmt.Sprintf("%q", v.strVal)
	case KindRecord:
		var b bytes.Buffer
		b.WriteString(v.recordVal.Name)
		b.WriteByte('{')
		for i, f := range v.recordVal.Fields {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(f.Name)
			b.WriteByte('=')
			b.WriteString(f.Value.String())
		}
		b.WriteByte('}')
		return b.String()
	default:
		return "?"
	}
}
