package avro

import "testing"

// User mirrors the record used throughout the golden fixtures.
type User struct {
	Name           string
	FavoriteNumber *int32
	FavoriteColor  string
}

func (User) AvroNamespace() string { return "br.com.thiaguten.avro.AvroHelperTest" }

const userSchemaText = "{\n" +
	"  \"type\" : \"record\",\n" +
	"  \"name\" : \"User\",\n" +
	"  \"namespace\" : \"br.com.thiaguten.avro.AvroHelperTest\",\n" +
	"  \"fields\" : [ {\n" +
	"    \"name\" : \"name\",\n" +
	"    \"type\" : \"string\"\n" +
	"  }, {\n" +
	"    \"name\" : \"favoriteNumber\",\n" +
	"    \"type\" : \"int\"\n" +
	"  }, {\n" +
	"    \"name\" : \"favoriteColor\",\n" +
	"    \"type\" : \"string\"\n" +
	"  } ]\n" +
	"}"

const nullableUserSchemaText = "{\n" +
	"  \"type\" : \"record\",\n" +
	"  \"name\" : \"User\",\n" +
	"  \"namespace\" : \"br.com.thiaguten.avro.AvroHelperTest\",\n" +
	"  \"fields\" : [ {\n" +
	"    \"name\" : \"name\",\n" +
	"    \"type\" : [ \"null\", \"string\" ],\n" +
	"    \"default\" : null\n" +
	"  }, {\n" +
	"    \"name\" : \"favoriteNumber\",\n" +
	"    \"type\" : [ \"null\", \"int\" ],\n" +
	"    \"default\" : null\n" +
	"  }, {\n" +
	"    \"name\" : \"favoriteColor\",\n" +
	"    \"type\" : [ \"null\", \"string\" ],\n" +
	"    \"default\" : null\n" +
	"  } ]\n" +
	"}"

var (
	userBytes         = []byte{12, 84, 104, 105, 97, 103, 111, 62, 8, 66, 108, 117, 101}
	nullableUserBytes = []byte{2, 12, 84, 104, 105, 97, 103, 111, 0, 2, 8, 66, 108, 117, 101}
)

const (
	userJSON         = `{"name":"Thiago","favoriteNumber":31,"favoriteColor":"Blue"}`
	nullableUserJSON = `{"name":{"string":"Thiago"},"favoriteNumber":null,"favoriteColor":{"string":"Blue"}}`
)

func int32Ptr(v int32) *int32 { return &v }

func userValue() *Value {
	return Record("",
		FieldVal("name", String("Thiago")),
		FieldVal("favoriteNumber", Int(31)),
		FieldVal("favoriteColor", String("Blue")),
	)
}

func mustParse(t *testing.T, text string) *Schema {
	t.Helper()
	s, err := ParseSchema(text)
	if err != nil {
		t.Fatalf("ParseSchema error: %v", err)
	}
	return s
}
