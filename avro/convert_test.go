package avro

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestToBinaryFor(t *testing.T) {
	tests := []struct {
		name      string
		user      User
		allowNull bool
		want      []byte
	}{
		{"plain", User{"Thiago", int32Ptr(31), "Blue"}, false, userBytes},
		{"allow null", User{"Thiago", nil, "Blue"}, true, nullableUserBytes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToBinaryFor(tt.user, tt.allowNull)
			if err != nil {
				t.Fatalf("ToBinaryFor error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("ToBinaryFor = %v, want %v", got, tt.want)
			}

			s, err := SchemaFor[User](tt.allowNull)
			if err != nil {
				t.Fatalf("SchemaFor error: %v", err)
			}
			got, err = ToBinary(&tt.user, s)
			if err != nil {
				t.Fatalf("ToBinary error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("ToBinary = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ToBinaryFor(User{"Thiago", nil, "Blue"}, false); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("nil number without allowNull: expected ErrSchemaMismatch, got %v", err)
	}
}

func TestFromBinaryFor(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		allowNull bool
		want      User
	}{
		{"plain", userBytes, false, User{"Thiago", int32Ptr(31), "Blue"}},
		{"allow null", nullableUserBytes, true, User{"Thiago", nil, "Blue"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromBinaryFor[User](tt.data, tt.allowNull)
			if err != nil {
				t.Fatalf("FromBinaryFor error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FromBinaryFor = %+v, want %+v", got, tt.want)
			}

			s, err := SchemaFor[User](tt.allowNull)
			if err != nil {
				t.Fatalf("SchemaFor error: %v", err)
			}
			var u User
			if err := FromBinary(tt.data, s, &u); err != nil {
				t.Fatalf("FromBinary error: %v", err)
			}
			if !reflect.DeepEqual(u, tt.want) {
				t.Fatalf("FromBinary = %+v, want %+v", u, tt.want)
			}
		})
	}
}

func TestTextConversionsFor(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		text      string
		allowNull bool
	}{
		{"plain", userBytes, userJSON, false},
		{"allow null", nullableUserBytes, nullableUserJSON, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := BinaryToTextFor[User](tt.data, tt.allowNull)
			if err != nil {
				t.Fatalf("BinaryToTextFor error: %v", err)
			}
			if text != tt.text {
				t.Fatalf("BinaryToTextFor = %s, want %s", text, tt.text)
			}

			bin, err := TextToBinaryFor[User](tt.text, tt.allowNull)
			if err != nil {
				t.Fatalf("TextToBinaryFor error: %v", err)
			}
			if !bytes.Equal(bin, tt.data) {
				t.Fatalf("TextToBinaryFor = %v, want %v", bin, tt.data)
			}
		})
	}
}

func TestFromBinaryKeepsLastUnit(t *testing.T) {
	s, err := SchemaFor[User](false)
	if err != nil {
		t.Fatalf("SchemaFor error: %v", err)
	}
	second := User{"Ana", int32Ptr(7), "Red"}
	secondBytes, err := ToBinary(second, s)
	if err != nil {
		t.Fatalf("ToBinary error: %v", err)
	}
	data := append(append([]byte(nil), userBytes...), secondBytes...)

	var u User
	if err := FromBinary(data, s, &u); err != nil {
		t.Fatalf("FromBinary error: %v", err)
	}
	if !reflect.DeepEqual(u, second) {
		t.Fatalf("FromBinary = %+v, want the last unit %+v", u, second)
	}

	text, err := BinaryToText(data, s)
	if err != nil {
		t.Fatalf("BinaryToText error: %v", err)
	}
	want := userJSON + `{"name":"Ana","favoriteNumber":7,"favoriteColor":"Red"}`
	if text != want {
		t.Fatalf("BinaryToText = %s, want %s", text, want)
	}

	back, err := TextToBinary(text, s)
	if err != nil {
		t.Fatalf("TextToBinary error: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Fatalf("TextToBinary = %v, want %v", back, data)
	}
}

func TestTextToBinaryWhitespace(t *testing.T) {
	s := mustParse(t, userSchemaText)
	got, err := TextToBinary("\n "+userJSON+"\n\n"+userJSON+"\n", s)
	if err != nil {
		t.Fatalf("TextToBinary error: %v", err)
	}
	want := append(append([]byte(nil), userBytes...), userBytes...)
	if !bytes.Equal(got, want) {
		t.Fatalf("TextToBinary = %v, want %v", got, want)
	}

	got, err = TextToBinary("  ", s)
	if err != nil || len(got) != 0 {
		t.Fatalf("TextToBinary(blank) = %v, %v", got, err)
	}
}

func TestConversionsAllOrNothing(t *testing.T) {
	s := mustParse(t, userSchemaText)
	data := append(append([]byte(nil), userBytes...), userBytes[:5]...)

	text, err := BinaryToText(data, s)
	if !errors.Is(err, ErrTruncatedInput) || text != "" {
		t.Fatalf("BinaryToText = %q, %v", text, err)
	}

	u := User{Name: "keep"}
	if err := FromBinary(data, s, &u); !errors.Is(err, ErrTruncatedInput) {
		t.Fatalf("FromBinary: expected ErrTruncatedInput, got %v", err)
	}
	if u.Name != "keep" {
		t.Fatalf("destination modified on error: %+v", u)
	}

	bin, err := TextToBinary(userJSON+`{"name":`, s)
	if !errors.Is(err, ErrTextSyntax) || bin != nil {
		t.Fatalf("TextToBinary = %v, %v", bin, err)
	}
	bin, err = TextToBinary(userJSON+`{"name":1}`, s)
	if !errors.Is(err, ErrSchemaMismatch) || bin != nil {
		t.Fatalf("TextToBinary = %v, %v", bin, err)
	}
}

func TestFromBinaryEmpty(t *testing.T) {
	s := mustParse(t, userSchemaText)
	u := User{Name: "keep"}
	if err := FromBinary(nil, s, &u); err != nil {
		t.Fatalf("FromBinary error: %v", err)
	}
	if u.Name != "keep" {
		t.Fatalf("destination modified: %+v", u)
	}

	v, err := FromBinaryValue(nil, s)
	if v != nil || err != nil {
		t.Fatalf("FromBinaryValue(nil) = %v, %v", v, err)
	}
	text, err := BinaryToText(nil, s)
	if text != "" || err != nil {
		t.Fatalf("BinaryToText(nil) = %q, %v", text, err)
	}
}

func TestFromBinaryDestinations(t *testing.T) {
	s := mustParse(t, userSchemaText)

	var u User
	if err := FromBinary(userBytes, s, u); !errors.Is(err, ErrInvalidDestination) {
		t.Fatalf("non-pointer: expected ErrInvalidDestination, got %v", err)
	}
	if err := FromBinary(userBytes, s, (*User)(nil)); !errors.Is(err, ErrInvalidDestination) {
		t.Fatalf("nil pointer: expected ErrInvalidDestination, got %v", err)
	}

	var v *Value
	if err := FromBinary(userBytes, s, &v); err != nil || !v.Equal(userValue()) {
		t.Fatalf("**Value destination = %v, %v", v, err)
	}

	var m map[string]any
	if err := FromBinary(userBytes, s, &m); err != nil {
		t.Fatalf("map destination error: %v", err)
	}
	want := map[string]any{"name": "Thiago", "favoriteNumber": int32(31), "favoriteColor": "Blue"}
	if !reflect.DeepEqual(m, want) {
		t.Fatalf("map destination = %#v", m)
	}

	var pu *User
	if err := FromBinary(userBytes, s, &pu); err != nil || pu == nil || pu.Name != "Thiago" {
		t.Fatalf("**User destination = %+v, %v", pu, err)
	}
}

func TestZeroWidthSchemaRejectsData(t *testing.T) {
	s := PrimitiveSchema(KindNull)
	if _, err := FromBinaryValue([]byte{1}, s); !errors.Is(err, ErrTrailingData) {
		t.Fatalf("expected ErrTrailingData, got %v", err)
	}
}

func TestSchemaForCached(t *testing.T) {
	a, err := SchemaFor[User](true)
	if err != nil {
		t.Fatalf("SchemaFor error: %v", err)
	}
	b, err := SchemaOf(&User{}, true)
	if err != nil {
		t.Fatalf("SchemaOf error: %v", err)
	}
	c, err := SchemaFor[User](false)
	if err != nil {
		t.Fatalf("SchemaFor error: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("SchemaOf(&User) differs from SchemaFor[User]")
	}
	d, _ := SchemaFor[User](true)
	if a != d {
		t.Fatalf("SchemaFor not cached")
	}
	if a.Equal(c) {
		t.Fatalf("allowNull variants should differ")
	}

	if _, err := SchemaOf(nil, false); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("SchemaOf(nil): expected ErrUnsupportedType, got %v", err)
	}
}

func TestTextBridgeConsistency(t *testing.T) {
	s, err := SchemaFor[User](true)
	if err != nil {
		t.Fatalf("SchemaFor error: %v", err)
	}
	users := []User{
		{"Thiago", int32Ptr(31), "Blue"},
		{"", nil, ""},
		{"Zoë \"Z\"", int32Ptr(-2147483648), "ÿ"},
	}
	for _, u := range users {
		bin, err := ToBinary(u, s)
		if err != nil {
			t.Fatalf("ToBinary(%+v) error: %v", u, err)
		}
		text, err := BinaryToText(bin, s)
		if err != nil {
			t.Fatalf("BinaryToText error: %v", err)
		}
		again, err := TextToBinary(text, s)
		if err != nil {
			t.Fatalf("TextToBinary(%s) error: %v", text, err)
		}
		var got User
		if err := FromBinary(again, s, &got); err != nil {
			t.Fatalf("FromBinary error: %v", err)
		}
		if !reflect.DeepEqual(got, u) {
			t.Fatalf("round trip via %s = %+v, want %+v", text, got, u)
		}
	}
}
