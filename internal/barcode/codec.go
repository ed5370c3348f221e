package barcode

import "fmt"

// Policy decides what happens to a field value wider than its field.
type Policy int

const (
	// Reject fails the encode with an *OverflowError.
	Reject Policy = iota
	// Truncate keeps only the low bits that fit the field.
	Truncate
)

// String returns the policy name used in job files.
func (p Policy) String() string {
	switch p {
	case Reject:
		return "reject"
	case Truncate:
		return "truncate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a job-file policy name to a Policy.
// The empty string selects Reject.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "reject":
		return Reject, nil
	case "truncate":
		return Truncate, nil
	default:
		return Reject, fmt.Errorf("unknown barcode overflow policy %q", s)
	}
}

// Codec encodes barcodes under an overflow policy. The zero value rejects
// overflow. A Codec is immutable and safe for concurrent use, which is what
// lets it be registered as a shared service.
type Codec struct {
	policy Policy
}

// NewCodec returns a codec using the given overflow policy.
func NewCodec(policy Policy) *Codec {
	return &Codec{policy: policy}
}

// Name implements the sequencer service naming contract.
func (c *Codec) Name() string { return "BarcodeSvc" }

// Policy returns the configured overflow policy.
func (c *Codec) Policy() Policy { return c.policy }

// Encode packs the five fields into a barcode.
func (c *Codec) Encode(vertex, primary, generation, secondary, process uint64) (Barcode, error) {
	values := [fieldCount]uint64{
		Vertex:     vertex,
		Primary:    primary,
		Generation: generation,
		Secondary:  secondary,
		Process:    process,
	}

	var out uint64
	for _, f := range Fields {
		v, err := c.fit(f, values[f])
		if err != nil {
			return 0, err
		}
		out |= (v << f.Shift()) & masks[f]
	}
	return Barcode(out), nil
}

// With returns b with one field replaced.
func (c *Codec) With(b Barcode, f Field, value uint64) (Barcode, error) {
	if !f.valid() {
		return 0, fmt.Errorf("unknown barcode field %d", int(f))
	}
	v, err := c.fit(f, value)
	if err != nil {
		return 0, err
	}
	cleared := uint64(b) &^ masks[f]
	return Barcode(cleared | (v<<f.Shift())&masks[f]), nil
}

// Derive builds the barcode of a particle spawned from parent: vertex and
// primary are inherited, generation is incremented, and the secondary index
// and process code are replaced.
func (c *Codec) Derive(parent Barcode, secondary, process uint64) (Barcode, error) {
	return c.Encode(
		parent.Vertex(),
		parent.Primary(),
		parent.Generation()+1,
		secondary,
		process,
	)
}

func (c *Codec) fit(f Field, v uint64) (uint64, error) {
	limit := f.Max()
	if v <= limit {
		return v, nil
	}
	if c.policy == Truncate {
		return v & limit, nil
	}
	return 0, &OverflowError{Field: f, Value: v, Max: limit}
}

// Encode packs the fields with the default (Reject) codec.
func Encode(vertex, primary, generation, secondary, process uint64) (Barcode, error) {
	var c Codec
	return c.Encode(vertex, primary, generation, secondary, process)
}

// MustEncode is Encode for constant inputs in tests and fixtures; it panics
// on overflow.
func MustEncode(vertex, primary, generation, secondary, process uint64) Barcode {
	b, err := Encode(vertex, primary, generation, secondary, process)
	if err != nil {
		panic(err)
	}
	return b
}
