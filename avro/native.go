package avro

import (
	"fmt"
	"math"
	"reflect"
)

// ============================================================
// Native Values to Value
// ============================================================

var valuePtrType = reflect.TypeOf((*Value)(nil))

// ValueOf converts a Go value to a Value under s. Accepted inputs are
// structs (see Describe for field naming), map[string]T, Go scalars,
// pointers and interfaces holding any of these, and *Value. A nil pointer,
// interface or map selects the null branch of a union. A struct or map
// missing a field falls back to the field default.
func ValueOf(obj any, s *Schema) (*Value, error) {
	return toValue(reflect.ValueOf(obj), s, "$")
}

func toValue(rv reflect.Value, s *Schema, path string) (*Value, error) {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			rv = reflect.Value{}
			break
		}
		if rv.Type() == valuePtrType {
			return rv.Interface().(*Value), nil
		}
		rv = rv.Elem()
	}
	if rv.IsValid() && rv.Kind() == reflect.Map && rv.IsNil() {
		rv = reflect.Value{}
	}

	if !rv.IsValid() {
		if s.Kind() == KindNull || s.NullIndex() >= 0 {
			return Null(), nil
		}
		return nil, mismatch(path, s, "nil")
	}

	got := rv.Type().String()
	switch s.Kind() {
	case KindUnion:
		var lastErr error
		candidates := 0
		for _, b := range s.branches {
			if b.kind == KindNull {
				continue
			}
			candidates++
			v, err := toValue(rv, b, path)
			if err == nil {
				return v, nil
			}
			lastErr = err
		}
		if candidates == 1 {
			return nil, lastErr
		}
		return nil, mismatch(path, s, got)

	case KindBoolean:
		if rv.Kind() == reflect.Bool {
			return Boolean(rv.Bool()), nil
		}

	case KindInt:
		if n, ok := intOf(rv); ok && n >= math.MinInt32 && n <= math.MaxInt32 {
			return Int(int32(n)), nil
		}

	case KindLong:
		if n, ok := intOf(rv); ok {
			return Long(n), nil
		}

	case KindFloat:
		if f, ok := floatOf(rv); ok {
			return Float(float32(f)), nil
		}

	case KindDouble:
		if f, ok := floatOf(rv); ok {
			return Double(f), nil
		}

	case KindBytes:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(append([]byte(nil), rv.Bytes()...)), nil
		}

	case KindString:
		if rv.Kind() == reflect.String {
			return String(rv.String()), nil
		}

	case KindRecord:
		return recordOf(rv, s, path)
	}
	return nil, mismatch(path, s, got)
}

func recordOf(rv reflect.Value, s *Schema, path string) (*Value, error) {
	var lookup func(name string) (reflect.Value, bool)
	switch {
	case rv.Kind() == reflect.Struct:
		index := make(map[string]int)
		for _, sf := range structFields(rv.Type()) {
			index[sf.name] = sf.index
		}
		lookup = func(name string) (reflect.Value, bool) {
			i, ok := index[name]
			if !ok {
				return reflect.Value{}, false
			}
			return rv.Field(i), true
		}
	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		lookup = func(name string) (reflect.Value, bool) {
			v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
			return v, v.IsValid()
		}
	default:
		return nil, mismatch(path, s, rv.Type().String())
	}

	fields := make([]FieldValue, 0, len(s.fields))
	for _, f := range s.fields {
		fpath := path + "." + f.name
		fv, ok := lookup(f.name)
		if !ok {
			if !f.hasDefault {
				return nil, &SchemaMismatchError{Path: fpath, Expected: f.typ.Tag(), Got: "missing field"}
			}
			fields = append(fields, FieldVal(f.name, f.defVal))
			continue
		}
		v, err := toValue(fv, f.typ, fpath)
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldVal(f.name, v))
	}
	return Record(s.FullName(), fields...), nil
}

func intOf(rv reflect.Value) (int64, bool) {
	switch {
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func floatOf(rv reflect.Value) (float64, bool) {
	if rv.CanFloat() {
		return rv.Float(), true
	}
	if n, ok := intOf(rv); ok {
		return float64(n), true
	}
	return 0, false
}

// ============================================================
// Value to Native Values
// ============================================================

// Assign stores v into the value out points to. out may be **Value, *any
// (receiving nil, bool, int32, int64, float32, float64, []byte, string or
// map[string]any), or a pointer to any type ValueOf accepts. Null stores
// the zero value. Record fields with no matching struct field are ignored.
func Assign(v *Value, out any) error {
	if err := checkDestination(out); err != nil {
		return err
	}
	return assign(reflect.ValueOf(out).Elem(), v, "$")
}

func checkDestination(out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: %T", ErrInvalidDestination, out)
	}
	return nil
}

func assign(rv reflect.Value, v *Value, path string) error {
	if rv.Type() == valuePtrType {
		rv.Set(reflect.ValueOf(v))
		return nil
	}
	if v.IsNull() {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return assign(rv.Elem(), v, path)
	case reflect.Interface:
		if rv.NumMethod() != 0 {
			break
		}
		rv.Set(reflect.ValueOf(plain(v)))
		return nil
	}

	switch v.kind {
	case KindBoolean:
		if rv.Kind() == reflect.Bool {
			rv.SetBool(v.boolVal)
			return nil
		}

	case KindInt, KindLong:
		switch {
		case rv.CanInt():
			if !rv.OverflowInt(v.intVal) {
				rv.SetInt(v.intVal)
				return nil
			}
		case rv.CanUint():
			if v.intVal >= 0 && !rv.OverflowUint(uint64(v.intVal)) {
				rv.SetUint(uint64(v.intVal))
				return nil
			}
		case rv.CanFloat():
			rv.SetFloat(float64(v.intVal))
			return nil
		}

	case KindFloat, KindDouble:
		if rv.CanFloat() {
			rv.SetFloat(v.floatVal)
			return nil
		}

	case KindBytes:
		switch {
		case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
			rv.SetBytes(append([]byte(nil), v.bytesVal...))
			return nil
		case rv.Kind() == reflect.String:
			rv.SetString(string(v.bytesVal))
			return nil
		}

	case KindString:
		switch {
		case rv.Kind() == reflect.String:
			rv.SetString(v.strVal)
			return nil
		case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
			rv.SetBytes([]byte(v.strVal))
			return nil
		}

	case KindRecord:
		return assignRecord(rv, v.recordVal, path)
	}
	return &SchemaMismatchError{Path: path, Expected: rv.Type().String(), Got: v.Tag()}
}

func assignRecord(rv reflect.Value, rec *RecordValue, path string) error {
	switch {
	case rv.Kind() == reflect.Struct:
		index := make(map[string]int)
		for _, sf := range structFields(rv.Type()) {
			index[sf.name] = sf.index
		}
		for _, f := range rec.Fields {
			i, ok := index[f.Name]
			if !ok {
				continue
			}
			if err := assign(rv.Field(i), f.Value, path+"."+f.Name); err != nil {
				return err
			}
		}
		return nil

	case rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String:
		if rv.IsNil() {
			rv.Set(reflect.MakeMapWithSize(rv.Type(), len(rec.Fields)))
		}
		for _, f := range rec.Fields {
			elem := reflect.New(rv.Type().Elem()).Elem()
			if err := assign(elem, f.Value, path+"."+f.Name); err != nil {
				return err
			}
			rv.SetMapIndex(reflect.ValueOf(f.Name).Convert(rv.Type().Key()), elem)
		}
		return nil
	}
	return &SchemaMismatchError{Path: path, Expected: rv.Type().String(), Got: rec.Name}
}

// plain converts v to plain Go values.
func plain(v *Value) any {
	switch v.Kind() {
	case KindBoolean:
		return v.boolVal
	case KindInt:
		return int32(v.intVal)
	case KindLong:
		return v.intVal
	case KindFloat:
		return float32(v.floatVal)
	case KindDouble:
		return v.floatVal
	case KindBytes:
		return append([]byte(nil), v.bytesVal...)
	case KindString:
		return v.strVal
	case KindRecord:
		m := make(map[string]any, len(v.recordVal.Fields))
		for _, f := range v.recordVal.Fields {
			m[f.Name] = plain(f.Value)
		}
		return m
	}
	return nil
}
