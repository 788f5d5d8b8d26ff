package avro

// TypeDescriptor describes a record type: its identity and its ordered
// fields. Describe adapts Go struct types; StaticDescriptor is a literal
// implementation for types defined elsewhere.
type TypeDescriptor interface {
	TypeName() string
	TypeNamespace() string
	Fields() ([]FieldDescriptor, error)
}

// FieldDescriptor is one field of a TypeDescriptor. Kind is a primitive
// kind or KindRecord; Record describes the nested type for KindRecord.
type FieldDescriptor struct {
	Name   string
	Kind   Kind
	Record TypeDescriptor
	Doc    string
}

// StaticDescriptor is a TypeDescriptor given by value.
type StaticDescriptor struct {
	Name      string
	Namespace string
	Doc       string
	FieldList []FieldDescriptor
}

func (d *StaticDescriptor) TypeName() string      { return d.Name }
func (d *StaticDescriptor) TypeNamespace() string { return d.Namespace }

func (d *StaticDescriptor) Fields() ([]FieldDescriptor, error) {
	return d.FieldList, nil
}

// Derive builds a record schema from a descriptor. With nullable set, every
// field type, in nested records too, becomes the union [null, T] with a
// null default. Recursive types and fields with no schema mapping fail with
// *UnsupportedTypeError.
func Derive(desc TypeDescriptor, nullable bool) (*Schema, error) {
	d := &deriver{
		nullable: nullable,
		active:   make(map[string]bool),
		done:     make(map[string]*Schema),
	}
	return d.record(desc, "")
}

type deriver struct {
	nullable bool
	active   map[string]bool    // Records being derived, by full name
	done     map[string]*Schema // Records already derived, by full name
}

func (d *deriver) record(desc TypeDescriptor, path string) (*Schema, error) {
	name, ns := desc.TypeName(), desc.TypeNamespace()
	full := name
	if ns != "" {
		full = ns + "." + name
	}
	if d.active[full] {
		return nil, &UnsupportedTypeError{Type: full, Path: path, Reason: "recursive record type"}
	}
	d.active[full] = true
	defer delete(d.active, full)

	fds, err := desc.Fields()
	if err != nil {
		return nil, err
	}

	fields := make([]*FieldDef, 0, len(fds))
	for _, fd := range fds {
		fpath := fd.Name
		if path != "" {
			fpath = path + "." + fd.Name
		}

		var typ *Schema
		switch {
		case fd.Kind.IsPrimitive():
			typ = PrimitiveSchema(fd.Kind)
		case fd.Kind == KindRecord && fd.Record != nil:
			typ, err = d.record(fd.Record, fpath)
			if err != nil {
				return nil, err
			}
		default:
			return nil, &UnsupportedTypeError{Type: fd.Kind.String(), Path: fpath, Reason: "no schema mapping"}
		}

		var opts []FieldOption
		if fd.Doc != "" {
			opts = append(opts, WithFieldDoc(fd.Doc))
		}
		if d.nullable {
			typ = NullableSchema(typ)
			opts = append(opts, WithDefault(nil))
		}
		fields = append(fields, Field(fd.Name, typ, opts...))
	}

	opts := []RecordOption{WithNamespace(ns)}
	if sd, ok := desc.(*StaticDescriptor); ok && sd.Doc != "" {
		opts = append(opts, WithDoc(sd.Doc))
	}
	s, err := NewRecordSchema(name, fields, opts...)
	if err != nil {
		return nil, &UnsupportedTypeError{Type: full, Path: path, Reason: err.Error()}
	}

	if prev, ok := d.done[full]; ok {
		if !prev.Equal(s) {
			return nil, &UnsupportedTypeError{Type: full, Path: path, Reason: "conflicting definitions for the same record name"}
		}
		return prev, nil
	}
	d.done[full] = s
	return s, nil
}
