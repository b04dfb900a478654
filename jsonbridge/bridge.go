// Package jsonbridge is the JSON producer spec.md leaves as an
// external collaborator ("the enclosing public API that maps input
// documents to encoder calls"). It mirrors the shape of the teacher's
// FromJSONLoose/fromJSONValue recursive descent, but drives a
// fleece.Encoder directly instead of building an intermediate tree
// value.
package jsonbridge

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/couchbaselabs/fleece-go/fleece"
)

// Encode parses data as JSON and issues the matching
// write*/begin*/end* calls against enc.
func Encode(enc *fleece.Encoder, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("jsonbridge: parse: %w", err)
	}
	return encodeValue(enc, v)
}

func encodeValue(enc *fleece.Encoder, v any) error {
	switch val := v.(type) {
	case nil:
		return enc.WriteNull()
	case bool:
		return enc.WriteBool(val)
	case float64:
		return encodeNumber(enc, val)
	case string:
		return enc.WriteString([]byte(val))
	case []any:
		return encodeArray(enc, val)
	case map[string]any:
		return encodeObject(enc, val)
	default:
		return fmt.Errorf("jsonbridge: unsupported JSON type %T", v)
	}
}

// encodeNumber mirrors the teacher's integer detection in
// fromJSONValue: a JSON number that round-trips exactly through int64
// is written as an Int, everything else as a Double.
func encodeNumber(enc *fleece.Encoder, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("jsonbridge: NaN/Infinity is not representable")
	}
	if i := int64(val); float64(i) == val {
		return enc.WriteInt(i)
	}
	return enc.WriteDouble(val)
}

func encodeArray(enc *fleece.Encoder, items []any) error {
	if err := enc.BeginArray(len(items)); err != nil {
		return err
	}
	for i, elem := range items {
		if err := encodeValue(enc, elem); err != nil {
			return fmt.Errorf("jsonbridge: array[%d]: %w", i, err)
		}
	}
	return enc.EndArray()
}

func encodeObject(enc *fleece.Encoder, obj map[string]any) error {
	if err := enc.BeginDict(len(obj)); err != nil {
		return err
	}
	for k, elem := range obj {
		if err := enc.WriteKey([]byte(k)); err != nil {
			return err
		}
		if err := encodeValue(enc, elem); err != nil {
			return fmt.Errorf("jsonbridge: object[%q]: %w", k, err)
		}
	}
	return enc.EndDict()
}
