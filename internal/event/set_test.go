package event

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/bpsync/internal/ir"
)

func TestAllAndNone(t *testing.T) {
	for _, e := range []Event{New("a"), WithData("b", ir.IRInt(7)), New("")} {
		assert.True(t, All.Contains(e))
		assert.False(t, None.Contains(e))
	}
	assert.Equal(t, "{AllEvents}", All.String())
	assert.Equal(t, "{none}", None.String())
}

func TestIncludesUniversalIsReflexiveOverSets(t *testing.T) {
	assert.True(t, Includes(All, New("a")))
	assert.True(t, Includes(All, ByName("a")))
	assert.True(t, Includes(All, All))
	assert.True(t, Includes(All, None))

	assert.False(t, Includes(None, None))
	assert.False(t, Includes(ByName("a"), ByName("a")))
	assert.True(t, Includes(ByName("a"), New("a")))
	assert.False(t, Includes(All, "not an event"))
}

func TestOf(t *testing.T) {
	s := Of(New("a"), New("b"), New("a"))
	assert.True(t, s.Contains(New("a")))
	assert.True(t, s.Contains(New("b")))
	assert.False(t, s.Contains(New("c")))
	assert.Equal(t, "{[a],[b]}", s.String())

	assert.Equal(t, None, Of())
	assert.Equal(t, "[a]", Of(New("a")).String())
}

func TestByNameIgnoresPayload(t *testing.T) {
	s := ByName("move")
	assert.True(t, s.Contains(WithData("move", ir.IRInt(3))))
	assert.True(t, s.Contains(New("move")))
	assert.False(t, s.Contains(New("stop")))
}

func TestNamed(t *testing.T) {
	evens := Named("evenCells", func(e Event) bool {
		obj, ok := e.Data.(ir.IRObject)
		return ok && obj.Int("cell")%2 == 0
	})
	assert.True(t, evens.Contains(WithData("x", ir.IRObject{"cell": ir.IRInt(4)})))
	assert.False(t, evens.Contains(WithData("x", ir.IRObject{"cell": ir.IRInt(3)})))
	assert.Equal(t, "evenCells", evens.String())
}

func TestComposition(t *testing.T) {
	a, b, c := New("a"), New("b"), New("c")

	union := AnyOf(a, b)
	assert.True(t, union.Contains(a))
	assert.True(t, union.Contains(b))
	assert.False(t, union.Contains(c))

	inter := AllOf(ByName("a", "b"), ByName("b", "c"))
	assert.True(t, inter.Contains(b))
	assert.False(t, inter.Contains(a))

	allButA := Not(a)
	assert.False(t, allButA.Contains(a))
	assert.True(t, allButA.Contains(WithData("anything", ir.IRBool(true))))

	diff := Minus(ByName("a", "b"), b)
	assert.True(t, diff.Contains(a))
	assert.False(t, diff.Contains(b))

	assert.Equal(t, None, AnyOf())
	assert.Equal(t, All, AllOf())
}

func TestCompositionStringsAreStable(t *testing.T) {
	s := AnyOf(New("a"), Not(ByName("b")))
	assert.Equal(t, s.String(), AnyOf(New("a"), Not(ByName("b"))).String())
	assert.True(t, strings.HasPrefix(s.String(), "anyOf("))
}

func TestOrNone(t *testing.T) {
	assert.Equal(t, None, OrNone(nil))
	assert.Equal(t, All, OrNone(All))
}

func TestSetIRKeepsMembersApart(t *testing.T) {
	enc := func(s Set) string { return string(ir.MustMarshalCanonical(SetIR(s))) }

	assert.Equal(t, "name(a,b)", ByName("a,b").String())
	assert.Equal(t, "name(a,b)", ByName("a", "b").String())
	assert.NotEqual(t, enc(ByName("a,b")), enc(ByName("a", "b")))

	assert.Equal(t, `{"name":["a,b"]}`, enc(ByName("a,b")))
	assert.Equal(t, `{"none":true}`, enc(nil))
	assert.Equal(t, `{"not":{"of":[{"name":"a"},{"name":"b"}]}}`, enc(Not(Of(New("a"), New("b")))))
	assert.Equal(t, `{"event":{"name":"a"}}`, enc(New("a")))
	assert.NotEqual(t, enc(Of(New("a],[b"), New("c"))), enc(Of(New("a"), New("b"), New("c"))))
}
