package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical JSON encoding of v.
// v may be an IRValue or plain Go data accepted by FromGo.
//
// Canonical means: object keys sorted by UTF-16 code units, no insignificant
// whitespace, no HTML escaping, NFC-normalized strings. Two values are
// considered structurally equal iff their canonical encodings are equal.
func MarshalCanonical(v any) ([]byte, error) {
	irv, err := FromGo(v)
	if err != nil {
		return nil, err
	}
	return marshalCanonical(irv)
}

// MustMarshalCanonical is like MarshalCanonical but panics on error.
// Use only when inputs are known to be valid IR.
func MustMarshalCanonical(v any) []byte {
	data, err := MarshalCanonical(v)
	if err != nil {
		panic(err)
	}
	return data
}

func marshalCanonical(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRString:
		return marshalCanonicalString(string(val))
	case IRInt:
		return strconv.AppendInt(nil, int64(val), 10), nil
	case IRBool:
		return strconv.AppendBool(nil, bool(val)), nil
	case IRArray:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			elemBytes, err := marshalCanonical(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			buf.Write(elemBytes)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case IRObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range val.SortedKeys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := marshalCanonicalString(k)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			valBytes, err := marshalCanonical(val[k])
			if err != nil {
				return nil, fmt.Errorf("value for key %q: %w", k, err)
			}
			buf.Write(valBytes)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported IRValue type: %T", v)
	}
}

// marshalCanonicalString encodes s as a JSON string after NFC normalization,
// without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	// Encoder appends a newline.
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
