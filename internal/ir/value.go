package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value kinds allowed in payloads,
// locals and parameters. There is deliberately no float kind.
type IRValue interface {
	irValue()
}

// IRNull is the explicit null value.
type IRNull struct{}

// IRString is a string value.
type IRString string

// IRInt is an integer value. Always int64.
type IRInt int64

// IRBool is a boolean value.
type IRBool bool

// IRArray is an ordered list of values.
type IRArray []IRValue

// IRObject maps string keys to values. Iterate with SortedKeys for
// deterministic order.
type IRObject map[string]IRValue

func (IRNull) irValue()   {}
func (IRString) irValue() {}
func (IRInt) irValue()    {}
func (IRBool) irValue()   {}
func (IRArray) irValue()  {}
func (IRObject) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// SortedKeys returns the object's keys ordered by UTF-16 code units.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by UTF-16 code units rather than UTF-8 bytes;
// the two differ for characters outside the BMP.
func compareUTF16(a, b string) int {
	return slices.Compare(utf16.Encode([]rune(a)), utf16.Encode([]rune(b)))
}

// Int returns the integer stored under key, or 0 when absent or not an int.
func (obj IRObject) Int(key string) int64 {
	if n, ok := obj[key].(IRInt); ok {
		return int64(n)
	}
	return 0
}

// With returns a shallow copy of obj with key set to v. The receiver is not
// modified.
func (obj IRObject) With(key string, v IRValue) IRObject {
	out := make(IRObject, len(obj)+1)
	for k, val := range obj {
		out[k] = val
	}
	out[key] = v
	return out
}

// MarshalJSON writes the object with sorted keys.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	return marshalCanonical(obj)
}

// UnmarshalJSON decodes an object, rejecting floats.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalIRValue(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// Clone returns a deep copy of v. Scalars are returned as is.
func Clone(v IRValue) IRValue {
	switch val := v.(type) {
	case IRArray:
		out := make(IRArray, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case IRObject:
		out := make(IRObject, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether a and b have the same canonical encoding.
// A nil value equals only another nil value.
func Equal(a, b IRValue) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ab, errA := MarshalCanonical(a)
	bb, errB := MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// FromGo converts decoded YAML/JSON/CUE data into an IRValue.
// Integral floats (as produced by some decoders) become IRInt; other floats
// are rejected.
func FromGo(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer out of int64 range: %d", val)
		}
		return IRInt(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("floats are not allowed: %v", val)
		}
		return IRInt(int64(val)), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not allowed: %s", val)
		}
		return IRInt(n), nil
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// ToGo converts an IRValue back into plain Go values (for JSON output and
// golden files).
func ToGo(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRString:
		return string(val)
	case IRInt:
		return int64(val)
	case IRBool:
		return bool(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// UnmarshalIRValue decodes JSON into an IRValue. Floats are rejected.
func UnmarshalIRValue(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromGo(raw)
}
