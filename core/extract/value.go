package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the variants of a parsed JSON [Value].
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is an explicit JSON value variant. Unlike map[string]any it preserves
// object member order, which the heuristic search depends on: traversal visits
// fields in the order the provider serialized them.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  float64
	Str     string
	Array   []Value
	Members []Member
}

// Member is a single key/value pair of a JSON object, in serialization order.
type Member struct {
	Key   string
	Value Value
}

// Field returns the member value for key and whether it exists.
func (v Value) Field(key string) (Value, bool) {
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// StringField returns the string member for key, or "" when the member is
// absent or not a string.
func (v Value) StringField(key string) string {
	field, ok := v.Field(key)
	if !ok || field.Kind != KindString {
		return ""
	}
	return field.Str
}

// Parse decodes data into a [Value] tree. It uses a token decoder rather than
// map unmarshaling so object member order survives.
func Parse(data []byte) (Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	value, err := parseValue(decoder)
	if err != nil {
		return Value{}, err
	}

	if decoder.More() {
		return Value{}, fmt.Errorf("trailing data after JSON value")
	}
	return value, nil
}

func parseValue(decoder *json.Decoder) (Value, error) {
	token, err := decoder.Token()
	if err != nil {
		return Value{}, fmt.Errorf("error reading JSON token: %w", err)
	}
	return valueFromToken(decoder, token)
}

func valueFromToken(decoder *json.Decoder, token json.Token) (Value, error) {
	switch t := token.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(decoder)
		case '[':
			return parseArray(decoder)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		number, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("error parsing number %q: %w", t, err)
		}
		return Value{Kind: KindNumber, Number: number}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, fmt.Errorf("unexpected JSON token %v", token)
	}
}

func parseObject(decoder *json.Decoder) (Value, error) {
	object := Value{Kind: KindObject}
	for decoder.More() {
		keyToken, err := decoder.Token()
		if err != nil {
			return Value{}, fmt.Errorf("error reading object key: %w", err)
		}
		key, ok := keyToken.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is not a string: %v", keyToken)
		}

		value, err := parseValue(decoder)
		if err != nil {
			return Value{}, err
		}
		object.Members = append(object.Members, Member{Key: key, Value: value})
	}

	// Consume the closing brace.
	if _, err := decoder.Token(); err != nil {
		return Value{}, fmt.Errorf("error reading object end: %w", err)
	}
	return object, nil
}

func parseArray(decoder *json.Decoder) (Value, error) {
	array := Value{Kind: KindArray, Array: []Value{}}
	for decoder.More() {
		element, err := parseValue(decoder)
		if err != nil {
			return Value{}, err
		}
		array.Array = append(array.Array, element)
	}

	// Consume the closing bracket.
	if _, err := decoder.Token(); err != nil {
		return Value{}, fmt.Errorf("error reading array end: %w", err)
	}
	return array, nil
}
