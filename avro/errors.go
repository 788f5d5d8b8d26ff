package avro

import (
	"errors"
	"fmt"
)

// Sentinel errors. Every typed error in this package matches exactly one of
// these through errors.Is.
var (
	ErrUnsupportedType    = errors.New("avro: unsupported type")
	ErrSchemaSyntax       = errors.New("avro: schema syntax error")
	ErrSchemaMismatch     = errors.New("avro: value does not match schema")
	ErrTruncatedInput     = errors.New("avro: truncated input")
	ErrCorruptUnionTag    = errors.New("avro: corrupt union tag")
	ErrCorruptLength      = errors.New("avro: corrupt length prefix")
	ErrCorruptVarint      = errors.New("avro: corrupt varint")
	ErrTextSyntax         = errors.New("avro: text syntax error")
	ErrTrailingData       = errors.New("avro: trailing data after datum")
	ErrInvalidDestination = errors.New("avro: invalid destination")
)

// UnsupportedTypeError reports a native type with no schema mapping.
type UnsupportedTypeError struct {
	Type   string // Native type name
	Path   string // Field path inside the derived record, empty at the root
	Reason string
}

func (e *UnsupportedTypeError) Error() string {
	msg := "avro: unsupported type " + e.Type
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// SchemaSyntaxError reports a malformed schema definition.
type SchemaSyntaxError struct {
	Path    string // Location inside the schema document, e.g. "fields[1].type"
	Message string
	Cause   error
}

func (e *SchemaSyntaxError) Error() string {
	msg := "avro: schema: " + e.Message
	if e.Path != "" {
		msg = "avro: schema: " + e.Path + ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SchemaSyntaxError) Is(target error) bool { return target == ErrSchemaSyntax }

func (e *SchemaSyntaxError) Unwrap() error { return e.Cause }

func syntaxErrorf(path, format string, args ...any) *SchemaSyntaxError {
	return &SchemaSyntaxError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// SchemaMismatchError reports a value whose shape disagrees with the schema.
type SchemaMismatchError struct {
	Path     string // Field path, "$" for the root
	Expected string // Schema tag expected at Path
	Got      string // Description of what was found
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("avro: %s: expected %s, got %s", e.Path, e.Expected, e.Got)
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

func mismatch(path string, s *Schema, got string) *SchemaMismatchError {
	return &SchemaMismatchError{Path: path, Expected: s.Tag(), Got: got}
}

// TruncatedInputError reports input that ended before the schema was satisfied.
type TruncatedInputError struct {
	Offset int    // Offset where the read started
	Need   int    // Bytes required from Offset
	Have   int    // Bytes available from Offset
	What   string // What was being read
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("avro: truncated input reading %s at offset %d: need %d bytes, have %d",
		e.What, e.Offset, e.Need, e.Have)
}

func (e *TruncatedInputError) Is(target error) bool { return target == ErrTruncatedInput }

// CorruptUnionTagError reports a union branch index outside the branch list.
type CorruptUnionTagError struct {
	Offset   int
	Index    int64
	Branches int
}

func (e *CorruptUnionTagError) Error() string {
	return fmt.Sprintf("avro: union branch index %d out of range [0,%d) at offset %d",
		e.Index, e.Branches, e.Offset)
}

func (e *CorruptUnionTagError) Is(target error) bool { return target == ErrCorruptUnionTag }

// CorruptLengthPrefixError reports a negative or oversized length prefix.
type CorruptLengthPrefixError struct {
	Offset int
	Length int64
}

func (e *CorruptLengthPrefixError) Error() string {
	return fmt.Sprintf("avro: invalid length prefix %d at offset %d", e.Length, e.Offset)
}

func (e *CorruptLengthPrefixError) Is(target error) bool { return target == ErrCorruptLength }

// CorruptVarintError reports a variable-length integer that does not
// terminate within 10 bytes, or an int that overflows 32 bits.
type CorruptVarintError struct {
	Offset int
	Reason string
}

func (e *CorruptVarintError) Error() string {
	return fmt.Sprintf("avro: %s at offset %d", e.Reason, e.Offset)
}

func (e *CorruptVarintError) Is(target error) bool { return target == ErrCorruptVarint }

// TextSyntaxError reports malformed JSON data given to the text bridge.
type TextSyntaxError struct {
	Offset int64
	Cause  error
}

func (e *TextSyntaxError) Error() string {
	return fmt.Sprintf("avro: malformed JSON at offset %d: %v", e.Offset, e.Cause)
}

func (e *TextSyntaxError) Is(target error) bool { return target == ErrTextSyntax }

func (e *TextSyntaxError) Unwrap() error { return e.Cause }
