package avro

import (
	"reflect"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Describe returns a descriptor for a Go struct type (or pointer to one).
//
// Field names come from the `avro:"name"` struct tag, or the Go field name
// with its first letter lower-cased; `avro:"-"` skips a field, as do
// unexported fields. Field types map as follows:
//
//	bool                               boolean
//	int8, int16, int32, uint8, uint16  int
//	int, int64, uint32                 long
//	float32                            float
//	float64                            double
//	string                             string
//	[]byte                             bytes
//	struct, *struct                    record
//	*T for a scalar T                  as T
//
// Anything else is *UnsupportedTypeError. The record name is the Go type
// name and the namespace is derived from the package path; a type can
// override both with AvroName() string and AvroNamespace() string methods.
func Describe(t reflect.Type) (*StaticDescriptor, error) {
	return describe(t, "", make(map[reflect.Type]bool))
}

type avroNamer interface{ AvroName() string }
type avroNamespacer interface{ AvroNamespace() string }

func describe(t reflect.Type, path string, active map[reflect.Type]bool) (*StaticDescriptor, error) {
	if t == nil {
		return nil, &UnsupportedTypeError{Type: "nil", Path: path, Reason: "no type"}
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, &UnsupportedTypeError{Type: t.String(), Path: path, Reason: "not a struct"}
	}
	if t.Name() == "" {
		return nil, &UnsupportedTypeError{Type: t.String(), Path: path, Reason: "anonymous struct has no name"}
	}
	if active[t] {
		return nil, &UnsupportedTypeError{Type: t.String(), Path: path, Reason: "recursive record type"}
	}
	active[t] = true
	defer delete(active, t)

	desc := &StaticDescriptor{
		Name:      t.Name(),
		Namespace: namespaceFromPkgPath(t.PkgPath()),
	}
	zero := reflect.New(t).Interface()
	if n, ok := zero.(avroNamer); ok {
		desc.Name = n.AvroName()
	}
	if n, ok := zero.(avroNamespacer); ok {
		desc.Namespace = n.AvroNamespace()
	}

	fields := structFields(t)
	if len(fields) == 0 && t.NumField() > 0 {
		return nil, &UnsupportedTypeError{Type: t.String(), Path: path, Reason: "no exported fields"}
	}
	for _, sf := range fields {
		fpath := sf.name
		if path != "" {
			fpath = path + "." + sf.name
		}
		fd := FieldDescriptor{Name: sf.name}

		ft := t.Field(sf.index).Type
		k, ok := scalarKind(ft)
		switch {
		case ok:
			fd.Kind = k
		case ft.Kind() == reflect.Struct || (ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct):
			nested, err := describe(ft, fpath, active)
			if err != nil {
				return nil, err
			}
			fd.Kind = KindRecord
			fd.Record = nested
		default:
			return nil, &UnsupportedTypeError{Type: ft.String(), Path: fpath, Reason: "no schema mapping"}
		}
		desc.FieldList = append(desc.FieldList, fd)
	}
	return desc, nil
}

// scalarKind maps a Go type, or a pointer to one, to a primitive kind.
func scalarKind(t reflect.Type) (Kind, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBoolean, true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return KindInt, true
	case reflect.Int, reflect.Int64, reflect.Uint32:
		return KindLong, true
	case reflect.Float32:
		return KindFloat, true
	case reflect.Float64:
		return KindDouble, true
	case reflect.String:
		return KindString, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes, true
		}
	}
	return 0, false
}

// namespaceFromPkgPath turns an import path into a dotted namespace:
// "github.com/acme/user-svc" becomes "github.com.acme.user_svc".
func namespaceFromPkgPath(pkg string) string {
	parts := strings.FieldsFunc(pkg, func(r rune) bool { return r == '/' || r == '.' })
	out := parts[:0]
	for _, p := range parts {
		p = strings.Map(func(r rune) rune {
			if r == '_' || r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				return r
			}
			return '_'
		}, p)
		if p[0] >= '0' && p[0] <= '9' {
			p = "_" + p
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

// ============================================================
// Struct Field Cache
// ============================================================

type structField struct {
	name  string
	index int
}

var fieldCache sync.Map // reflect.Type -> []structField

// structFields returns the exported, non-skipped fields of struct type t
// with their schema names, in declaration order.
func structFields(t reflect.Type) []structField {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]structField)
	}
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("avro")
		if name == "-" {
			continue
		}
		if name == "" {
			name = lowerFirst(sf.Name)
		}
		fields = append(fields, structField{name: name, index: i})
	}
	actual, _ := fieldCache.LoadOrStore(t, fields)
	return actual.([]structField)
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}
