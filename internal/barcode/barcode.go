package barcode

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
)

// Barcode is a packed 64-bit particle identifier.
type Barcode uint64

// Field names one of the five barcode bit fields.
type Field int

const (
	Vertex Field = iota
	Primary
	Generation
	Secondary
	Process
)

// fieldCount is the number of fields in a barcode.
const fieldCount = 5

// Masks for each field, indexed by Field.
var masks = [fieldCount]uint64{
	Vertex:     0xfff0000000000000,
	Primary:    0x000ffff000000000,
	Generation: 0x0000000fff000000,
	Secondary:  0x0000000000fff000,
	Process:    0x0000000000000fff,
}

var fieldNames = [fieldCount]string{
	Vertex:     "vertex",
	Primary:    "primary",
	Generation: "generation",
	Secondary:  "secondary",
	Process:    "process",
}

// Fields lists all fields from the most to the least significant.
var Fields = []Field{Vertex, Primary, Generation, Secondary, Process}

// String returns the lowercase field name.
func (f Field) String() string {
	if !f.valid() {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// Mask returns the field's bit mask within a barcode.
func (f Field) Mask() uint64 {
	return masks[f]
}

// Shift returns the bit offset of the field's least significant bit.
func (f Field) Shift() int {
	return bits.TrailingZeros64(masks[f])
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint64 {
	return masks[f] >> f.Shift()
}

func (f Field) valid() bool {
	return f >= Vertex && f <= Process
}

// ParseField converts a field name back to a Field.
func ParseField(name string) (Field, error) {
	for i, n := range fieldNames {
		if n == name {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown barcode field %q", name)
}

// ErrOverflow is matched by every *OverflowError.
var ErrOverflow = errors.New("barcode field overflow")

// OverflowError reports a field value that exceeds its bit width.
type OverflowError struct {
	Field Field
	Value uint64
	Max   uint64
}

// Error implements the error interface.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("barcode field %s: value %d exceeds maximum %d", e.Field, e.Value, e.Max)
}

// Is makes errors.Is(err, ErrOverflow) succeed.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// IsOverflow reports whether err is, or wraps, an overflow error.
func IsOverflow(err error) bool {
	return errors.Is(err, ErrOverflow)
}

// Vertex returns the vertex field.
func (b Barcode) Vertex() uint64 { return Decode(b, Vertex) }

// Primary returns the primary index field.
func (b Barcode) Primary() uint64 { return Decode(b, Primary) }

// Generation returns the generation depth field.
func (b Barcode) Generation() uint64 { return Decode(b, Generation) }

// Secondary returns the secondary index field.
func (b Barcode) Secondary() uint64 { return Decode(b, Secondary) }

// Process returns the process code field.
func (b Barcode) Process() uint64 { return Decode(b, Process) }

// Value returns the raw 64-bit representation.
func (b Barcode) Value() uint64 { return uint64(b) }

// String formats the barcode as its decimal value.
func (b Barcode) String() string {
	return strconv.FormatUint(uint64(b), 10)
}

// Components returns all five decoded fields in Fields order.
func (b Barcode) Components() [fieldCount]uint64 {
	var out [fieldCount]uint64
	for _, f := range Fields {
		out[f] = Decode(b, f)
	}
	return out
}

// MarshalText renders the decimal value, so barcodes survive JSON and CSV
// without float rounding in consumers that treat numbers as doubles.
func (b Barcode) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a decimal or 0x-prefixed hexadecimal value.
func (b *Barcode) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 0, 64)
	if err != nil {
		return fmt.Errorf("parse barcode %q: %w", text, err)
	}
	*b = Barcode(v)
	return nil
}

// Decode extracts one field from a barcode.
func Decode(b Barcode, f Field) uint64 {
	return (uint64(b) & masks[f]) >> f.Shift()
}
