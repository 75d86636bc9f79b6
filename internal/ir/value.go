package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface for the JSON values that artifacts are built from.
// Only Str, Int, Bool, Array and Object implement it.
//
// There is no float variant: binary floats do not round-trip through every JSON
// implementation byte-exactly, so floats travel as decimal strings (see Float).
type Value interface {
	value()
}

// Str is a string value.
type Str string

func (Str) value() {}

// Int is an integer value.
type Int int64

func (Int) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Array is an ordered list of values.
type Array []Value

func (Array) value() {}

// Object maps keys to values. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// Float encodes f as its shortest round-trip decimal string.
func Float(f float64) Str {
	return Str(strconv.FormatFloat(f, 'g', -1, 64))
}

// Floats encodes a float slice as an Array of decimal strings.
func Floats(fs []float64) Array {
	arr := make(Array, len(fs))
	for i, f := range fs {
		arr[i] = Float(f)
	}
	return arr
}

// Ints encodes an int slice as an Array.
func Ints(ns []int) Array {
	arr := make(Array, len(ns))
	for i, n := range ns {
		arr[i] = Int(n)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
// Go's native string order is UTF-8 bytes, which differs above U+FFFF.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// Field accessors used when decoding artifacts. Each reports a descriptive
// error naming the key when the value is missing or has the wrong kind.

// Str returns obj[key] as a string.
func (obj Object) Str(key string) (string, error) {
	v, ok := obj[key].(Str)
	if !ok {
		return "", fieldError(obj, key, "string")
	}
	return string(v), nil
}

// Int returns obj[key] as an int.
func (obj Object) Int(key string) (int, error) {
	v, ok := obj[key].(Int)
	if !ok {
		return 0, fieldError(obj, key, "integer")
	}
	if int64(v) > math.MaxInt32 || int64(v) < math.MinInt32 {
		return 0, fmt.Errorf("field %q: %d out of range", key, v)
	}
	return int(v), nil
}

// Bool returns obj[key] as a bool.
func (obj Object) Bool(key string) (bool, error) {
	v, ok := obj[key].(Bool)
	if !ok {
		return false, fieldError(obj, key, "boolean")
	}
	return bool(v), nil
}

// Float returns obj[key] decoded from its decimal string.
func (obj Object) Float(key string) (float64, error) {
	s, err := obj.Str(key)
	if err != nil {
		return 0, err
	}
	return parseFloat(s)
}

// Object returns obj[key] as an Object.
func (obj Object) Object(key string) (Object, error) {
	v, ok := obj[key].(Object)
	if !ok {
		return nil, fieldError(obj, key, "object")
	}
	return v, nil
}

// Array returns obj[key] as an Array.
func (obj Object) Array(key string) (Array, error) {
	v, ok := obj[key].(Array)
	if !ok {
		return nil, fieldError(obj, key, "array")
	}
	return v, nil
}

// Floats returns obj[key] decoded as a list of decimal strings.
func (obj Object) Floats(key string) ([]float64, error) {
	arr, err := obj.Array(key)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(arr))
	for i, elem := range arr {
		s, ok := elem.(Str)
		if !ok {
			return nil, fmt.Errorf("field %q[%d]: expected decimal string, got %T", key, i, elem)
		}
		f, err := parseFloat(string(s))
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", key, i, err)
		}
		out[i] = f
	}
	return out, nil
}

// Ints returns obj[key] as a list of ints. An empty list decodes as nil.
func (obj Object) Ints(key string) ([]int, error) {
	arr, err := obj.Array(key)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]int, len(arr))
	for i, elem := range arr {
		n, ok := elem.(Int)
		if !ok {
			return nil, fmt.Errorf("field %q[%d]: expected integer, got %T", key, i, elem)
		}
		out[i] = int(n)
	}
	return out, nil
}

func fieldError(obj Object, key, want string) error {
	v, ok := obj[key]
	if !ok {
		return fmt.Errorf("missing field %q", key)
	}
	return fmt.Errorf("field %q: expected %s, got %T", key, want, v)
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite decimal %q", s)
	}
	return f, nil
}

// UnmarshalValue decodes JSON into a Value with strict validation.
// Rejects null, floats and trailing data.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return convertToValue(raw)
}

// UnmarshalObject decodes JSON that must be an object.
func UnmarshalObject(data []byte) (Object, error) {
	v, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T", v)
	}
	return obj, nil
}

func convertToValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden: only string, int, bool, array, object allowed")
	case bool:
		return Bool(val), nil
	case string:
		return Str(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("bare floats are forbidden, encode as decimal string: %s", val)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := convertToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := convertToValue(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
