package barcode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldLayout(t *testing.T) {
	tests := []struct {
		field Field
		mask  uint64
		shift int
		max   uint64
	}{
		{Vertex, 0xfff0000000000000, 52, 0xfff},
		{Primary, 0x000ffff000000000, 36, 0xffff},
		{Generation, 0x0000000fff000000, 24, 0xfff},
		{Secondary, 0x0000000000fff000, 12, 0xfff},
		{Process, 0x0000000000000fff, 0, 0xfff},
	}

	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			assert.Equal(t, tt.mask, tt.field.Mask())
			assert.Equal(t, tt.shift, tt.field.Shift())
			assert.Equal(t, tt.max, tt.field.Max())
		})
	}
}

func TestMasksDoNotOverlapAndCoverAllBits(t *testing.T) {
	var union uint64
	for _, f := range Fields {
		assert.Zero(t, union&f.Mask(), "field %s overlaps another field", f)
		union |= f.Mask()
	}
	assert.Equal(t, ^uint64(0), union)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values [5]uint64
	}{
		{"zero", [5]uint64{0, 0, 0, 0, 0}},
		{"scenario", [5]uint64{5, 3, 0, 0, 0}},
		{"mixed", [5]uint64{1, 42, 2, 7, 101}},
		{"all max", [5]uint64{0xfff, 0xffff, 0xfff, 0xfff, 0xfff}},
		{"low bits", [5]uint64{1, 1, 1, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.values
			b, err := Encode(v[0], v[1], v[2], v[3], v[4])
			require.NoError(t, err)

			assert.Equal(t, v[0], Decode(b, Vertex))
			assert.Equal(t, v[1], Decode(b, Primary))
			assert.Equal(t, v[2], Decode(b, Generation))
			assert.Equal(t, v[3], Decode(b, Secondary))
			assert.Equal(t, v[4], Decode(b, Process))
			assert.Equal(t, v, b.Components())
		})
	}
}

func TestEncode_BitExactValues(t *testing.T) {
	b := MustEncode(1, 0, 0, 0, 0)
	assert.Equal(t, uint64(1)<<52, b.Value())

	b = MustEncode(0, 1, 0, 0, 0)
	assert.Equal(t, uint64(1)<<36, b.Value())

	b = MustEncode(0, 0, 0, 0, 0xfff)
	assert.Equal(t, uint64(0xfff), b.Value())

	b = MustEncode(5, 3, 0, 0, 0)
	assert.Equal(t, uint64(0x0050003000000000), b.Value())
}

func TestEncode_OverflowRejected(t *testing.T) {
	tests := []struct {
		name   string
		field  Field
		values [5]uint64
	}{
		{"vertex", Vertex, [5]uint64{0x1000, 0, 0, 0, 0}},
		{"primary", Primary, [5]uint64{0, 0x10000, 0, 0, 0}},
		{"generation", Generation, [5]uint64{0, 0, 0x1000, 0, 0}},
		{"secondary", Secondary, [5]uint64{0, 0, 0, 0x1000, 0}},
		{"process", Process, [5]uint64{0, 0, 0, 0, 0x1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.values
			_, err := Encode(v[0], v[1], v[2], v[3], v[4])
			require.Error(t, err)
			assert.True(t, IsOverflow(err))

			var oe *OverflowError
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, tt.field, oe.Field)
			assert.Equal(t, tt.field.Max(), oe.Max)
		})
	}
}

func TestEncode_TruncatePolicyMasksToWidth(t *testing.T) {
	c := NewCodec(Truncate)

	// 0x1001 does not fit 12 bits; only the low 12 bits survive and the
	// neighbouring primary field stays untouched.
	b, err := c.Encode(0, 7, 0, 0, 0x1001)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), b.Process())
	assert.Equal(t, uint64(7), b.Primary())
	assert.Equal(t, uint64(0), b.Secondary())
}

func TestWith_FieldIndependence(t *testing.T) {
	c := NewCodec(Reject)
	orig := MustEncode(9, 300, 4, 17, 55)

	for _, f := range Fields {
		t.Run(f.String(), func(t *testing.T) {
			updated, err := c.With(orig, f, 1)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), Decode(updated, f))
			for _, other := range Fields {
				if other == f {
					continue
				}
				assert.Equal(t, Decode(orig, other), Decode(updated, other), "field %s changed", other)
			}
		})
	}
}

func TestWith_Overflow(t *testing.T) {
	c := NewCodec(Reject)
	_, err := c.With(MustEncode(1, 1, 1, 1, 1), Generation, 0x1000)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDerive(t *testing.T) {
	c := NewCodec(Reject)
	parent := MustEncode(2, 11, 0, 0, 0)

	child, err := c.Derive(parent, 3, 14)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), child.Vertex())
	assert.Equal(t, uint64(11), child.Primary())
	assert.Equal(t, uint64(1), child.Generation())
	assert.Equal(t, uint64(3), child.Secondary())
	assert.Equal(t, uint64(14), child.Process())

	grandchild, err := c.Derive(child, 1, 14)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), grandchild.Generation())
}

func TestDerive_GenerationOverflow(t *testing.T) {
	c := NewCodec(Reject)
	parent := MustEncode(1, 1, 0xfff, 0, 0)
	_, err := c.Derive(parent, 1, 0)
	assert.True(t, IsOverflow(err))
}

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, err := ParseField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseField("charge")
	assert.Error(t, err)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, Reject, p)

	p, err = ParsePolicy("truncate")
	require.NoError(t, err)
	assert.Equal(t, Truncate, p)

	_, err = ParsePolicy("saturate")
	assert.Error(t, err)
}

func TestBarcode_TextMarshaling(t *testing.T) {
	b := MustEncode(5, 3, 0, 0, 0)

	data, err := json.Marshal(map[string]Barcode{"id": b})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"22518204295282688"}`, string(data))

	var parsed Barcode
	require.NoError(t, parsed.UnmarshalText([]byte("0x0050003000000000")))
	assert.Equal(t, b, parsed)

	assert.Error(t, parsed.UnmarshalText([]byte("not-a-number")))
}
