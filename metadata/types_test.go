package metadata

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueKey(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), "null"},
		{"int", Int(-4), "i:-4"},
		{"string", String("red"), "s:red"},
		{"bool", Bool(true), "b:1"},
		{"array", Array([]Value{Int(1), String("a")}), "a:i:1\x1fs:a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Key())
		})
	}

	assert.NotEqual(t, Int(3).Key(), Float(3).Key())
	assert.Equal(t, Int(3).Key(), Float(3).Normalize().Key())
	assert.Equal(t, Float(3.5), Float(3.5).Normalize())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, `"red"`, String("red").String())
	assert.Equal(t, "2.5", Float(2.5).String())
	assert.Equal(t, "[1, true]", Array([]Value{Int(1), Bool(true)}).String())
	assert.Equal(t, "Float", KindFloat.String())
}

func TestValueJSON(t *testing.T) {
	in := Document{"name": String("phone"), "price": Float(9.5)}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Document
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "phone", out["name"].StringValue())
	assert.Equal(t, in["price"], out["price"])
}

func TestDocumentClone(t *testing.T) {
	orig := Document{"tags": Array([]Value{String("a")})}
	clone := orig.Clone()
	clone["tags"].A[0] = String("b")

	assert.Equal(t, "a", orig["tags"].A[0].StringValue())
	assert.Nil(t, Document(nil).Clone())
	assert.Len(t, orig.Intern(), 1)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
		ok   bool
	}{
		{"ints", Int(1), Int(2), -1, true},
		{"int vs float", Int(2), Float(1.5), 1, true},
		{"strings", String("b"), String("a"), 1, true},
		{"bools", Bool(false), Bool(true), -1, true},
		{"equal", Float(2), Int(2), 0, true},
		{"mixed", String("1"), Int(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Compare(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Int(2), Float(2)))
	assert.True(t, Equal(Null(), Value{}))
	assert.False(t, Equal(Null(), Int(0)))
	assert.True(t, Equal(Array([]Value{Int(1)}), Array([]Value{Float(1)})))
	assert.False(t, Equal(String("a"), String("b")))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange(Int(5), Int(1), Int(5)))
	assert.False(t, InRange(Int(6), Int(1), Int(5)))
	assert.True(t, InRange(Int(6), Int(1), Null()), "open upper bound")
	assert.True(t, InRange(Float(-1), Null(), Int(0)), "open lower bound")
	assert.False(t, InRange(String("x"), Int(1), Null()), "incomparable")
}
