package stages

import (
	"github.com/roach88/evseq/internal/barcode"
	"github.com/roach88/evseq/internal/canonical"
)

// Vector3 is a Cartesian three-vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scale returns v multiplied by f.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// CanonicalValue implements canonical.Valuer.
func (v Vector3) CanonicalValue() any {
	return []any{v.X, v.Y, v.Z}
}

// Particle is a generated or read particle. Positions are in mm, time in
// ns, momenta in GeV and charge in units of e.
type Particle struct {
	Barcode  barcode.Barcode `json:"barcode"`
	PDG      int32           `json:"pdg"`
	Position Vector3         `json:"position"`
	Time     float64         `json:"time"`
	Momentum Vector3         `json:"momentum"`
	Mass     float64         `json:"mass"`
	Charge   float64         `json:"charge"`
}

// CanonicalValue implements canonical.Valuer.
func (p Particle) CanonicalValue() any {
	return map[string]any{
		"barcode":  p.Barcode.Value(),
		"pdg":      p.PDG,
		"position": p.Position,
		"time":     p.Time,
		"momentum": p.Momentum,
		"mass":     p.Mass,
		"charge":   p.Charge,
	}
}

// Vertex groups the particles emerging from one point.
type Vertex struct {
	Position Vector3    `json:"position"`
	Outgoing []Particle `json:"outgoing"`
}

// CanonicalValue implements canonical.Valuer.
func (v Vertex) CanonicalValue() any {
	return map[string]any{
		"position": v.Position,
		"outgoing": canonical.Values(v.Outgoing),
	}
}

// Flatten returns the outgoing particles of all vertices in order.
func Flatten(vertices []Vertex) []Particle {
	n := 0
	for _, v := range vertices {
		n += len(v.Outgoing)
	}
	out := make([]Particle, 0, n)
	for _, v := range vertices {
		out = append(out, v.Outgoing...)
	}
	return out
}
