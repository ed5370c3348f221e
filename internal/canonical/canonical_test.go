package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int64", int64(-100), "-100"},
		{"max uint64", uint64(math.MaxUint64), "18446744073709551615"},
		{"bool", true, "true"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"array", []any{1, "a", false}, `[1,"a",false]`},
		{"simple object", map[string]any{"a": 1}, `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalFloats(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{0.1, "0.1"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{-1.5e-10, "-1.5e-10"},
		{123.456, "123.456"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalRejects(t *testing.T) {
	_, err := Marshal(nil)
	assert.Error(t, err)

	_, err = Marshal(math.NaN())
	assert.Error(t, err)

	_, err = Marshal(math.Inf(1))
	assert.Error(t, err)

	_, err = Marshal(struct{}{})
	assert.Error(t, err)

	_, err = Marshal(map[string]any{"x": []any{nil}})
	assert.ErrorContains(t, err, `value for key "x"`)
}

func TestMarshalSortedKeys(t *testing.T) {
	obj := map[string]any{
		"zebra": 1,
		"alpha": 2,
		"beta":  map[string]any{"b": 1, "a": 2},
	}

	result, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"a":2,"b":1},"zebra":1}`, string(result))
}

func TestSortedKeysUTF16(t *testing.T) {
	// U+1F600 is encoded as the surrogate pair D83D DE00, which sorts
	// before U+FFFD in UTF-16 but after it in UTF-8.
	obj := map[string]any{"\uFFFD": 1, "\U0001F600": 2}
	assert.Equal(t, []string{"\U0001F600", "\uFFFD"}, SortedKeys(obj))
}

func TestMarshalStringEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"quote and backslash", `a"b\c`, `"a\"b\\c"`},
		{"control", "a\nb\tc\x01", `"a\nb\tc\u0001"`},
		{"html not escaped", "<a&b>", `"<a&b>"`},
		{"line separator kept", "a\u2028b", "\"a\u2028b\""},
		{"nfc", "e\u0301", "\"\u00e9\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

type point struct{ x, y float64 }

func (p point) CanonicalValue() any {
	return map[string]any{"x": p.x, "y": p.y}
}

func TestMarshalValuer(t *testing.T) {
	pts := []point{{1, 2}, {0.5, -3}}

	result, err := Marshal(Values(pts))
	require.NoError(t, err)
	assert.Equal(t, `[{"x":1,"y":2},{"x":0.5,"y":-3}]`, string(result))
}

func TestHash(t *testing.T) {
	h, err := Hash(DomainEvent, []any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "d28b644c143eed8d577c02a97992d5cfdb8eb4c692eef784722de525bd9cff40", h)

	// Same content in another domain gives another digest.
	assert.NotEqual(t, h, MustHash(DomainRun, []any{1, 2}))

	// Key order in the source map does not matter.
	a := MustHash(DomainEvent, map[string]any{"a": 1, "b": 2})
	b := MustHash(DomainEvent, map[string]any{"b": 2, "a": 1})
	assert.Equal(t, a, b)

	_, err = Hash(DomainEvent, math.NaN())
	assert.Error(t, err)
}
