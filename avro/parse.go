package avro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// ParseSchema parses a JSON schema definition. Comments and trailing commas
// are tolerated. A record may refer to a record defined earlier in the same
// document by name; names are resolved against the enclosing namespace
// first.
func ParseSchema(text string) (*Schema, error) {
	return parseSchemaBytes([]byte(text))
}

// MustParseSchema is like ParseSchema but panics on error.
func MustParseSchema(text string) *Schema {
	s, err := ParseSchema(text)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSchemaFile reads and parses a schema file (.avsc).
func ParseSchemaFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("avro: read schema file: %w", err)
	}
	return parseSchemaBytes(data)
}

func parseSchemaBytes(data []byte) (*Schema, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, syntaxErrorf("", "empty schema")
		}
		return nil, &SchemaSyntaxError{Message: "malformed JSON", Cause: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, syntaxErrorf("", "unexpected data after schema")
	}

	p := &schemaParser{names: make(map[string]*Schema), pending: make(map[string]bool)}
	return p.parse(doc, "")
}

type schemaParser struct {
	names   map[string]*Schema // Records defined so far, by full name
	pending map[string]bool    // Records whose fields are being parsed
	space   string             // Enclosing namespace
}

func (p *schemaParser) parse(node any, path string) (*Schema, error) {
	switch n := node.(type) {
	case string:
		return p.resolve(n, path)

	case []any:
		branches := make([]*Schema, 0, len(n))
		for i, b := range n {
			s, err := p.parse(b, joinPath(path, "["+strconv.Itoa(i)+"]"))
			if err != nil {
				return nil, err
			}
			branches = append(branches, s)
		}
		u, err := NewUnionSchema(branches...)
		if err != nil {
			return nil, withPathPrefix(err, path)
		}
		return u, nil

	case map[string]any:
		t, ok := n["type"]
		if !ok {
			return nil, syntaxErrorf(path, "missing \"type\"")
		}
		tag, ok := t.(string)
		if !ok {
			return nil, syntaxErrorf(joinPath(path, "type"), "type must be a string, got %s", jsonKind(t))
		}
		if tag == "record" {
			return p.record(n, path)
		}
		return p.resolve(tag, joinPath(path, "type"))

	default:
		return nil, syntaxErrorf(path, "expected a type name, array or object, got %s", jsonKind(node))
	}
}

// resolve maps a type tag to a primitive or a previously defined record.
func (p *schemaParser) resolve(tag, path string) (*Schema, error) {
	if k, ok := primitiveKind(tag); ok {
		return PrimitiveSchema(k), nil
	}
	if !strings.Contains(tag, ".") && p.space != "" {
		if s, ok := p.names[p.space+"."+tag]; ok {
			return s, nil
		}
	}
	if s, ok := p.names[tag]; ok {
		return s, nil
	}
	switch tag {
	case "record":
		return nil, syntaxErrorf(path, "record type must be an object")
	case "enum", "array", "map", "fixed", "error":
		return nil, syntaxErrorf(path, "unsupported type %q", tag)
	}
	return nil, syntaxErrorf(path, "unknown type %q", tag)
}

func (p *schemaParser) record(n map[string]any, path string) (*Schema, error) {
	name, err := requireString(n, "name", path)
	if err != nil {
		return nil, err
	}

	ns := p.space
	if raw, ok := n["namespace"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, syntaxErrorf(joinPath(path, "namespace"), "namespace must be a string")
		}
		ns = s
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ns = name[:i]
		name = name[i+1:]
	}
	full := name
	if ns != "" {
		full = ns + "." + name
	}
	if _, dup := p.names[full]; dup || p.pending[full] {
		return nil, syntaxErrorf(joinPath(path, "name"), "record %q redefined", full)
	}

	var opts []RecordOption
	opts = append(opts, WithNamespace(ns))
	if raw, ok := n["doc"]; ok {
		doc, ok := raw.(string)
		if !ok {
			return nil, syntaxErrorf(joinPath(path, "doc"), "doc must be a string")
		}
		opts = append(opts, WithDoc(doc))
	}

	rawFields, ok := n["fields"]
	if !ok {
		return nil, syntaxErrorf(path, "record %q has no \"fields\"", full)
	}
	list, ok := rawFields.([]any)
	if !ok {
		return nil, syntaxErrorf(joinPath(path, "fields"), "fields must be an array")
	}

	saved := p.space
	p.space = ns
	p.pending[full] = true
	defer func() {
		p.space = saved
		delete(p.pending, full)
	}()

	fields := make([]*FieldDef, 0, len(list))
	for i, raw := range list {
		fpath := joinPath(path, "fields["+strconv.Itoa(i)+"]")
		fm, ok := raw.(map[string]any)
		if !ok {
			return nil, syntaxErrorf(fpath, "field must be an object")
		}
		fname, err := requireString(fm, "name", fpath)
		if err != nil {
			return nil, err
		}
		rawType, ok := fm["type"]
		if !ok {
			return nil, syntaxErrorf(fpath, "field %q has no type", fname)
		}
		ftype, err := p.parse(rawType, joinPath(fpath, "type"))
		if err != nil {
			return nil, err
		}

		var fopts []FieldOption
		if raw, ok := fm["doc"]; ok {
			doc, ok := raw.(string)
			if !ok {
				return nil, syntaxErrorf(joinPath(fpath, "doc"), "doc must be a string")
			}
			fopts = append(fopts, WithFieldDoc(doc))
		}
		if def, ok := fm["default"]; ok {
			fopts = append(fopts, WithDefault(def))
		}
		fields = append(fields, Field(fname, ftype, fopts...))
	}

	s, err := NewRecordSchema(name, fields, opts...)
	if err != nil {
		return nil, withPathPrefix(err, path)
	}
	p.names[full] = s
	return s, nil
}

func requireString(m map[string]any, key, path string) (string, error) {
	raw, ok := m[key]
	if !ok {
		return "", syntaxErrorf(path, "missing %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", syntaxErrorf(joinPath(path, key), "%s must be a string", key)
	}
	return s, nil
}

func joinPath(base, elem string) string {
	switch {
	case base == "":
		return elem
	case strings.HasPrefix(elem, "["):
		return base + elem
	default:
		return base + "." + elem
	}
}

// withPathPrefix re-roots a constructor error at the given document path.
func withPathPrefix(err error, path string) error {
	var se *SchemaSyntaxError
	if path == "" || !errors.As(err, &se) {
		return err
	}
	cp := *se
	cp.Path = joinPath(path, se.Path)
	return &cp
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case json.Number, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
