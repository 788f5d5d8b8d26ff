// Package avro implements a schema-driven codec for records of primitive
// and nested record fields, with nullable fields expressed as unions.
//
// A datum moves between three forms:
//   - native Go values (structs, maps, scalars) or the generic *Value
//   - a compact binary encoding that carries no schema
//   - a JSON text encoding
//
// # Schemas
//
// A *Schema is built by parsing JSON schema text (ParseSchema,
// ParseSchemaFile), by deriving it from a Go type (SchemaFor, SchemaOf,
// Derive with Describe), or by hand (NewRecordSchema, NewUnionSchema).
// Schemas are immutable and safe for concurrent use.
//
//	{
//	  "type" : "record",
//	  "name" : "User",
//	  "fields" : [ {
//	    "name" : "name",
//	    "type" : [ "null", "string" ],
//	    "default" : null
//	  } ]
//	}
//
// Pretty prints in exactly this layout, and ParseSchema(s.Pretty()) is
// Equal to s.
//
// # Binary Encoding
//
// Integers are zig-zag varints, floats are little-endian IEEE 754, strings
// and bytes are length-prefixed, record fields follow each other in
// declaration order, and a union writes its branch index before the
// branch. Null takes no space.
//
// # JSON Encoding
//
// A union renders as null for its null branch and as {"<tag>": value}
// otherwise, where the tag is the primitive name or the record full name:
//
//	{"name":{"string":"Thiago"},"favoriteNumber":null}
//
// # Multiple Units
//
// BinaryToText and TextToBinary convert every unit in their input and
// concatenate the results. FromBinary decodes every unit but keeps only
// the last one; use NewDecoder to see each unit.
package avro
