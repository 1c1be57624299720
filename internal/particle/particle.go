// Package particle holds the particle record, the seeding policies and the
// GPU buffer that is shared by the compute and render stages.
package particle

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/gravsim/internal/compute"
)

// Particle matches the std430 struct the kernel reads. Position.W is the
// mass; Velocity.W is padding.
type Particle struct {
	Position mgl32.Vec4
	Velocity mgl32.Vec4
}

const (
	// Floats is the number of float32 values per packed particle.
	Floats = 8
	// Stride is the byte size of one packed particle.
	Stride = Floats * 4
)

func (p Particle) Mass() float32   { return p.Position[3] }
func (p Particle) Pos() mgl32.Vec3 { return p.Position.Vec3() }
func (p Particle) Vel() mgl32.Vec3 { return p.Velocity.Vec3() }
func (p Particle) Speed() float32  { return p.Velocity.Vec3().Len() }

// Pack flattens particles into the device layout.
func Pack(ps []Particle) []float32 {
	out := make([]float32, 0, len(ps)*Floats)
	for _, p := range ps {
		out = append(out, p.Position[:]...)
		out = append(out, p.Velocity[:]...)
	}
	return out
}

// Unpack decodes whole particles from data; a trailing partial record is
// ignored.
func Unpack(data []float32) []Particle {
	ps := make([]Particle, len(data)/Floats)
	for i := range ps {
		base := i * Floats
		copy(ps[i].Position[:], data[base:base+4])
		copy(ps[i].Velocity[:], data[base+4:base+8])
	}
	return ps
}

// Layout is the vertex fetch layout of a particle buffer: position xyz on
// attribute 0, velocity xyz on attribute 1.
func Layout() compute.VertexLayout {
	return compute.VertexLayout{
		Stride: Stride,
		Attribs: []compute.VertexAttrib{
			{Index: 0, Components: 3, Offset: 0},
			{Index: 1, Components: 3, Offset: 16},
		},
	}
}
