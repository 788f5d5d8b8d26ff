package avro

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Canonical Scalar Encoding
// ============================================================

const hexDigits = "0123456789ABCDEF"

// appendQuoted appends s as a JSON string. Only the quote, the backslash and
// control characters are escaped; other code points are written as UTF-8.
func appendQuoted(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		dst = appendEscapedRune(dst, r)
	}
	return append(dst, '"')
}

// appendQuotedBytes appends b as a JSON string with one code point per byte
// (U+0000..U+00FF), the JSON convention for bytes values.
func appendQuotedBytes(dst []byte, b []byte) []byte {
	dst = append(dst, '"')
	for _, c := range b {
		dst = appendEscapedRune(dst, rune(c))
	}
	return append(dst, '"')
}

func appendEscapedRune(dst []byte, r rune) []byte {
	switch r {
	case '\\':
		return append(dst, '\\', '\\')
	case '"':
		return append(dst, '\\', '"')
	case '\b':
		return append(dst, '\\', 'b')
	case '\f':
		return append(dst, '\\', 'f')
	case '\n':
		return append(dst, '\\', 'n')
	case '\r':
		return append(dst, '\\', 'r')
	case '\t':
		return append(dst, '\\', 't')
	}
	if r < 0x20 {
		return append(dst, '\\', 'u', '0', '0', hexDigits[r>>4], hexDigits[r&0xF])
	}
	return utf8.AppendRune(dst, r)
}

// formatFloat renders a float the way Java's Float/Double.toString does:
// at least one fractional digit, scientific notation outside [1e-3, 1e7).
// Non-finite values are returned as NaN, Infinity or -Infinity.
func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	abs := math.Abs(f)
	if abs >= 1e-3 && abs < 1e7 {
		s := strconv.FormatFloat(f, 'f', -1, bitSize)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	}

	s := strconv.FormatFloat(f, 'E', -1, bitSize)
	mant, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mant, ".") {
		mant += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mant + "E" + strconv.Itoa(e)
}

// appendJSONValue appends a JSON-shaped Go value in compact form. Map keys
// are sorted.
func appendJSONValue(dst []byte, v any) []byte {
	w := &jsonWriter{buf: dst}
	w.value(v)
	return w.buf
}

// ============================================================
// JSON Writer
// ============================================================

// jsonWriter emits JSON either compactly or in the layout of Jackson's
// DefaultPrettyPrinter: objects break lines and indent two spaces per
// object nesting level, arrays stay on one line with inner padding.
type jsonWriter struct {
	buf     []byte
	pretty  bool
	nesting int
	counts  []int // Entries written per open container
}

func (w *jsonWriter) indent() {
	w.buf = append(w.buf, '\n')
	for i := 0; i < w.nesting; i++ {
		w.buf = append(w.buf, ' ', ' ')
	}
}

func (w *jsonWriter) beginObject() {
	w.buf = append(w.buf, '{')
	w.nesting++
	w.counts = append(w.counts, 0)
}

func (w *jsonWriter) key(k string) {
	n := len(w.counts) - 1
	if w.counts[n] > 0 {
		w.buf = append(w.buf, ',')
	}
	w.counts[n]++
	if w.pretty {
		w.indent()
	}
	w.buf = appendQuoted(w.buf, k)
	if w.pretty {
		w.buf = append(w.buf, " : "...)
	} else {
		w.buf = append(w.buf, ':')
	}
}

func (w *jsonWriter) endObject() {
	n := len(w.counts) - 1
	entries := w.counts[n]
	w.counts = w.counts[:n]
	w.nesting--
	if w.pretty {
		if entries > 0 {
			w.indent()
		} else {
			w.buf = append(w.buf, ' ')
		}
	}
	w.buf = append(w.buf, '}')
}

func (w *jsonWriter) beginArray() {
	w.buf = append(w.buf, '[')
	w.counts = append(w.counts, 0)
}

// elem must be called before each array element.
func (w *jsonWriter) elem() {
	n := len(w.counts) - 1
	if w.counts[n] > 0 {
		w.buf = append(w.buf, ',')
	}
	w.counts[n]++
	if w.pretty {
		w.buf = append(w.buf, ' ')
	}
}

func (w *jsonWriter) endArray() {
	w.counts = w.counts[:len(w.counts)-1]
	if w.pretty {
		w.buf = append(w.buf, ' ')
	}
	w.buf = append(w.buf, ']')
}

func (w *jsonWriter) str(s string) {
	w.buf = appendQuoted(w.buf, s)
}

func (w *jsonWriter) raw(s string) {
	w.buf = append(w.buf, s...)
}

// value writes a JSON-shaped Go value.
func (w *jsonWriter) value(v any) {
	switch x := v.(type) {
	case nil:
		w.raw("null")
	case bool:
		w.raw(strconv.FormatBool(x))
	case string:
		w.str(x)
	case json.Number:
		w.raw(x.String())
	case float64:
		w.jsonFloat(x, 64)
	case float32:
		w.jsonFloat(float64(x), 32)
	case []any:
		w.beginArray()
		for _, e := range x {
			w.elem()
			w.value(e)
		}
		w.endArray()
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.beginObject()
		for _, k := range keys {
			w.key(k)
			w.value(x[k])
		}
		w.endObject()
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.CanInt():
			w.raw(strconv.FormatInt(rv.Int(), 10))
		case rv.CanUint():
			w.raw(strconv.FormatUint(rv.Uint(), 10))
		case rv.CanFloat():
			w.jsonFloat(rv.Float(), rv.Type().Bits())
		default:
			w.str(rv.String())
		}
	}
}

// jsonFloat writes a float; non-finite values become quoted strings.
func (w *jsonWriter) jsonFloat(f float64, bitSize int) {
	s := formatFloat(f, bitSize)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		w.str(s)
		return
	}
	w.raw(s)
}

// ============================================================
// Schema Text
// ============================================================

// String returns the compact canonical text of the schema.
func (s *Schema) String() string {
	return s.Print(false)
}

// Pretty returns the indented canonical text of the schema.
func (s *Schema) Pretty() string {
	return s.Print(true)
}

// Print renders the schema as JSON text. Field order and union branch order
// are preserved; a record seen earlier in the same document is written as a
// name reference, and a namespace equal to the enclosing one is omitted.
func (s *Schema) Print(pretty bool) string {
	p := &schemaPrinter{
		w:     jsonWriter{pretty: pretty},
		known: make(map[string]bool),
		docs:  true,
	}
	p.schema(s)
	return string(p.w.buf)
}

// Canonical returns the compact text without documentation strings. Equal
// schemas have the same canonical text.
func (s *Schema) Canonical() string {
	p := &schemaPrinter{known: make(map[string]bool)}
	p.schema(s)
	return string(p.w.buf)
}

type schemaPrinter struct {
	w     jsonWriter
	known map[string]bool // Records already written, by full name
	space string          // Enclosing namespace
	docs  bool
}

func (p *schemaPrinter) schema(s *Schema) {
	switch s.Kind() {
	case KindRecord:
		p.record(s)
	case KindUnion:
		p.w.beginArray()
		for _, b := range s.branches {
			p.w.elem()
			p.schema(b)
		}
		p.w.endArray()
	default:
		p.w.str(s.Kind().String())
	}
}

func (p *schemaPrinter) record(s *Schema) {
	full := s.FullName()
	if p.known[full] {
		if s.namespace == p.space {
			p.w.str(s.name)
		} else {
			p.w.str(full)
		}
		return
	}
	p.known[full] = true

	w := &p.w
	w.beginObject()
	w.key("type")
	w.str("record")
	w.key("name")
	w.str(s.name)
	if s.namespace != p.space {
		w.key("namespace")
		w.str(s.namespace)
	}
	if p.docs && s.doc != "" {
		w.key("doc")
		w.str(s.doc)
	}

	saved := p.space
	p.space = s.namespace
	w.key("fields")
	w.beginArray()
	for _, f := range s.fields {
		w.elem()
		w.beginObject()
		w.key("name")
		w.str(f.name)
		w.key("type")
		p.schema(f.typ)
		if p.docs && f.doc != "" {
			w.key("doc")
			w.str(f.doc)
		}
		if f.hasDefault {
			w.key("default")
			w.value(f.def)
		}
		w.endObject()
	}
	w.endArray()
	p.space = saved

	w.endObject()
}
