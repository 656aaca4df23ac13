package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{"zebra": IRInt(1), "apple": IRInt(2), "mango": IRInt(3)}
	assert.Equal(t, []string{"apple", "mango", "zebra"}, obj.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sort before U+FFFD in
	// UTF-16 but after it in UTF-8.
	obj := IRObject{"\uFFFD": IRInt(1), "\U0001F600": IRInt(2)}
	assert.Equal(t, []string{"\U0001F600", "\uFFFD"}, obj.SortedKeys())
}

func TestIRObjectWithDoesNotMutate(t *testing.T) {
	orig := IRObject{"n": IRInt(1)}
	next := orig.With("n", IRInt(2))

	assert.Equal(t, int64(1), orig.Int("n"))
	assert.Equal(t, int64(2), next.Int("n"))
}

func TestIRObjectIntMissing(t *testing.T) {
	obj := IRObject{"s": IRString("x")}
	assert.Equal(t, int64(0), obj.Int("missing"))
	assert.Equal(t, int64(0), obj.Int("s"))
}

func TestCloneIsDeep(t *testing.T) {
	orig := IRObject{
		"list": IRArray{IRInt(1), IRObject{"k": IRString("v")}},
	}
	cloned := Clone(orig).(IRObject)

	cloned["list"].(IRArray)[1].(IRObject)["k"] = IRString("changed")
	cloned["extra"] = IRBool(true)

	assert.Equal(t, IRString("v"), orig["list"].(IRArray)[1].(IRObject)["k"])
	_, exists := orig["extra"]
	assert.False(t, exists)
}

func TestEqual(t *testing.T) {
	a := IRObject{"x": IRInt(1), "y": IRArray{IRString("a")}}
	b := IRObject{"y": IRArray{IRString("a")}, "x": IRInt(1)}
	c := IRObject{"x": IRInt(2), "y": IRArray{IRString("a")}}

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, IRNull{}))
	assert.False(t, Equal(IRInt(1), IRString("1")))
}

func TestFromGo(t *testing.T) {
	v, err := FromGo(map[string]any{
		"name":  "tick",
		"count": 3,
		"big":   int64(1 << 40),
		"whole": float64(7),
		"ok":    true,
		"list":  []any{"a", 1},
		"none":  nil,
	})
	require.NoError(t, err)

	obj := v.(IRObject)
	assert.Equal(t, IRString("tick"), obj["name"])
	assert.Equal(t, IRInt(3), obj["count"])
	assert.Equal(t, IRInt(1<<40), obj["big"])
	assert.Equal(t, IRInt(7), obj["whole"])
	assert.Equal(t, IRBool(true), obj["ok"])
	assert.Equal(t, IRArray{IRString("a"), IRInt(1)}, obj["list"])
	assert.Equal(t, IRNull{}, obj["none"])
}

func TestFromGoRejectsFloats(t *testing.T) {
	_, err := FromGo(1.5)
	assert.Error(t, err)

	_, err = FromGo(map[string]any{"nested": []any{0.25}})
	assert.Error(t, err)
}

func TestFromGoRejectsUnsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)
}

func TestToGoRoundTrip(t *testing.T) {
	orig := IRObject{"a": IRArray{IRInt(1), IRBool(false)}, "b": IRString("x")}
	back, err := FromGo(ToGo(orig))
	require.NoError(t, err)
	assert.True(t, Equal(orig, back))
}

func TestUnmarshalIRValueRejectsFloats(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"x": 1.5}`))
	assert.Error(t, err)

	v, err := UnmarshalIRValue([]byte(`{"x": 9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, IRInt(9007199254740993), v.(IRObject)["x"])
}

func TestIRObjectJSON(t *testing.T) {
	obj := IRObject{"b": IRInt(2), "a": IRString("<x>")}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	// encoding/json escapes HTML in Marshaler output; the canonical form does not.
	assert.Equal(t, `{"a":"\u003cx\u003e","b":2}`, string(data))
	assert.Equal(t, `{"a":"<x>","b":2}`, string(MustMarshalCanonical(obj)))

	var back IRObject
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(obj, back))
}
