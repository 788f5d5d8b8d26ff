package avro

import (
	"regexp"
	"strconv"
	"strings"
)

// Schema is an immutable schema node. Build one with PrimitiveSchema,
// NewRecordSchema, NewUnionSchema, ParseSchema or Derive; the zero value is
// the null schema. A Schema may be shared by any number of goroutines.
type Schema struct {
	kind Kind

	// Record
	name      string // Simple name
	namespace string
	doc       string
	fields    []*FieldDef

	// Union
	branches []*Schema
}

// FieldDef is a field of a record schema.
type FieldDef struct {
	name string
	typ  *Schema
	doc  string

	hasDefault bool
	def        any    // Default as given (JSON-shaped)
	defVal     *Value // Default converted to the field type
}

var (
	nameRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	primitives = [KindString + 1]*Schema{
		{kind: KindNull},
		{kind: KindBoolean},
		{kind: KindInt},
		{kind: KindLong},
		{kind: KindFloat},
		{kind: KindDouble},
		{kind: KindBytes},
		{kind: KindString},
	}
)

// ============================================================
// Constructors
// ============================================================

// PrimitiveSchema returns the schema for a primitive kind. It panics for
// KindRecord and KindUnion.
func PrimitiveSchema(k Kind) *Schema {
	if !k.IsPrimitive() {
		panic("avro: PrimitiveSchema called with " + k.String())
	}
	return primitives[k]
}

// RecordOption configures a record schema.
type RecordOption func(*Schema)

// WithNamespace sets the record namespace. A dotted record name takes
// precedence over this option.
func WithNamespace(ns string) RecordOption {
	return func(s *Schema) {
		s.namespace = ns
	}
}

// WithDoc sets the record documentation string.
func WithDoc(doc string) RecordOption {
	return func(s *Schema) {
		s.doc = doc
	}
}

// NewRecordSchema builds a record schema. Field names must be unique and
// every default must conform to its field type.
func NewRecordSchema(name string, fields []*FieldDef, opts ...RecordOption) (*Schema, error) {
	s := &Schema{kind: KindRecord}
	for _, opt := range opts {
		opt(s)
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		s.namespace = name[:i]
		name = name[i+1:]
	}
	s.name = name

	if !nameRe.MatchString(name) {
		return nil, syntaxErrorf("name", "invalid record name %q", name)
	}
	if !validNamespace(s.namespace) {
		return nil, syntaxErrorf("namespace", "invalid namespace %q", s.namespace)
	}

	seen := make(map[string]bool, len(fields))
	s.fields = make([]*FieldDef, 0, len(fields))
	for i, f := range fields {
		path := "fields[" + strconv.Itoa(i) + "]"
		if f == nil || f.typ == nil {
			return nil, syntaxErrorf(path, "field has no type")
		}
		if !nameRe.MatchString(f.name) {
			return nil, syntaxErrorf(path, "invalid field name %q", f.name)
		}
		if seen[f.name] {
			return nil, syntaxErrorf(path, "duplicate field name %q", f.name)
		}
		seen[f.name] = true

		fd := *f
		if fd.hasDefault {
			v, err := defaultFromJSON(fd.typ, fd.def)
			if err != nil {
				return nil, &SchemaSyntaxError{Path: path + ".default", Message: "invalid default for field " + f.name, Cause: err}
			}
			fd.defVal = v
		}
		s.fields = append(s.fields, &fd)
	}
	return s, nil
}

// NewUnionSchema builds a union. Branches must be non-empty, must not be
// unions themselves, and must have distinct tags.
func NewUnionSchema(branches ...*Schema) (*Schema, error) {
	if len(branches) == 0 {
		return nil, syntaxErrorf("", "union has no branches")
	}
	seen := make(map[string]bool, len(branches))
	for i, b := range branches {
		path := "[" + strconv.Itoa(i) + "]"
		if b == nil {
			return nil, syntaxErrorf(path, "nil union branch")
		}
		if b.kind == KindUnion {
			return nil, syntaxErrorf(path, "union may not directly contain a union")
		}
		tag := b.Tag()
		if seen[tag] {
			return nil, syntaxErrorf(path, "duplicate union branch %q", tag)
		}
		seen[tag] = true
	}
	return &Schema{kind: KindUnion, branches: append([]*Schema(nil), branches...)}, nil
}

// NullableSchema wraps t in a {null, t} union. A union without a null
// branch gets one prepended; a union that already has one is returned as is.
func NullableSchema(t *Schema) *Schema {
	if t.Kind() == KindUnion {
		if t.NullIndex() >= 0 {
			return t
		}
		return &Schema{kind: KindUnion, branches: append([]*Schema{primitives[KindNull]}, t.branches...)}
	}
	if t.Kind() == KindNull {
		return t
	}
	return &Schema{kind: KindUnion, branches: []*Schema{primitives[KindNull], t}}
}

// FieldOption configures a field definition.
type FieldOption func(*FieldDef)

// WithDefault sets the field default. v is JSON-shaped: nil, bool, a Go
// number or json.Number, string, []any or map[string]any. For a union
// field the default applies to the first branch.
func WithDefault(v any) FieldOption {
	return func(f *FieldDef) {
		f.hasDefault = true
		f.def = v
	}
}

// WithFieldDoc sets the field documentation string.
func WithFieldDoc(doc string) FieldOption {
	return func(f *FieldDef) {
		f.doc = doc
	}
}

// Field creates a field definition for NewRecordSchema.
func Field(name string, typ *Schema, opts ...FieldOption) *FieldDef {
	f := &FieldDef{name: name, typ: typ}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the node kind.
func (s *Schema) Kind() Kind {
	if s == nil {
		return KindNull
	}
	return s.kind
}

// Name returns the simple name of a record, or the kind name otherwise.
func (s *Schema) Name() string {
	if s.Kind() == KindRecord {
		return s.name
	}
	return s.Kind().String()
}

// Namespace returns the record namespace.
func (s *Schema) Namespace() string {
	if s.Kind() != KindRecord {
		return ""
	}
	return s.namespace
}

// FullName returns namespace.name for records.
func (s *Schema) FullName() string {
	if s.Kind() != KindRecord {
		return s.Kind().String()
	}
	if s.namespace == "" {
		return s.name
	}
	return s.namespace + "." + s.name
}

// Doc returns the record documentation string.
func (s *Schema) Doc() string {
	if s == nil {
		return ""
	}
	return s.doc
}

// Tag returns the identifier used to select this schema as a union branch
// in JSON: the primitive type name or the record full name.
func (s *Schema) Tag() string {
	if s.Kind() == KindRecord {
		return s.FullName()
	}
	return s.Kind().String()
}

// Fields returns the record fields in declaration order.
func (s *Schema) Fields() []*FieldDef {
	if s.Kind() != KindRecord {
		return nil
	}
	return append([]*FieldDef(nil), s.fields...)
}

// Field returns a record field by name, or nil.
func (s *Schema) Field(name string) *FieldDef {
	if s.Kind() != KindRecord {
		return nil
	}
	for _, f := range s.fields {
		if f.name == name {
			return f
		}
	}
	return nil
}

// Branches returns the union branches in declaration order.
func (s *Schema) Branches() []*Schema {
	if s.Kind() != KindUnion {
		return nil
	}
	return append([]*Schema(nil), s.branches...)
}

// NullIndex returns the index of the null branch of a union, or -1.
func (s *Schema) NullIndex() int {
	if s.Kind() != KindUnion {
		return -1
	}
	for i, b := range s.branches {
		if b.kind == KindNull {
			return i
		}
	}
	return -1
}

// IsNullable reports whether s is a union with a null branch.
func (s *Schema) IsNullable() bool {
	return s.NullIndex() >= 0
}

// Name returns the field name.
func (f *FieldDef) Name() string { return f.name }

// Type returns the field schema.
func (f *FieldDef) Type() *Schema { return f.typ }

// Doc returns the field documentation string.
func (f *FieldDef) Doc() string { return f.doc }

// Default returns the JSON-shaped default and whether one is set.
func (f *FieldDef) Default() (any, bool) { return f.def, f.hasDefault }

// DefaultValue returns the default converted to the field type, or nil.
func (f *FieldDef) DefaultValue() *Value { return f.defVal }

// ============================================================
// Equality
// ============================================================

// Equal reports structural equality. Documentation strings are ignored.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s.Kind() != o.Kind() {
		return false
	}
	switch s.Kind() {
	case KindRecord:
		if s.FullName() != o.FullName() || len(s.fields) != len(o.fields) {
			return false
		}
		for i, f := range s.fields {
			g := o.fields[i]
			if f.name != g.name || !f.typ.Equal(g.typ) || f.hasDefault != g.hasDefault {
				return false
			}
			if f.hasDefault && string(appendJSONValue(nil, f.def)) != string(appendJSONValue(nil, g.def)) {
				return false
			}
		}
		return true
	case KindUnion:
		if len(s.branches) != len(o.branches) {
			return false
		}
		for i := range s.branches {
			if !s.branches[i].Equal(o.branches[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func validNamespace(ns string) bool {
	if ns == "" {
		return true
	}
	for _, part := range strings.Split(ns, ".") {
		if !nameRe.MatchString(part) {
			return false
		}
	}
	return true
}

// branchFor returns the index of the union branch selected by v, or -1.
// An unnamed record value selects the union's only record branch.
func (s *Schema) branchFor(v *Value) int {
	tag := v.Tag()
	records, lastRecord := 0, -1
	for i, b := range s.branches {
		if b.Tag() == tag {
			return i
		}
		if b.kind == KindRecord {
			records++
			lastRecord = i
		}
	}
	if v.Kind() == KindRecord && v.recordVal.Name == "" && records == 1 {
		return lastRecord
	}
	return -1
}
