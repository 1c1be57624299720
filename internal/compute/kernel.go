package compute

import "math"

// floatsPerParticle mirrors the std430 layout of the particle struct in the
// compute shader: vec4 position (w = mass), vec4 velocity (w = padding).
const floatsPerParticle = 8

// centralForce is the software twin of assets/shaders/nbody.comp. Particle 0
// is the field source and never moves; every other particle falls towards it
// with a softened inverse-square law and is integrated with semi-implicit
// Euler.
func centralForce(data []float32, gid uint32, params ComputeParams) {
	if gid >= params.Count || gid == 0 {
		return
	}
	cx, cy, cz, cm := data[0], data[1], data[2], data[3]

	p := data[int(gid)*floatsPerParticle:]
	dx, dy, dz := cx-p[0], cy-p[1], cz-p[2]
	r2 := dx*dx + dy*dy + dz*dz + params.Softening*params.Softening
	if r2 == 0 {
		return
	}
	inv := 1 / float32(math.Sqrt(float64(r2)))
	s := params.G * cm * inv * inv * inv

	p[4] += dx * s * params.TimeStep
	p[5] += dy * s * params.TimeStep
	p[6] += dz * s * params.TimeStep

	p[0] += p[4] * params.TimeStep
	p[1] += p[5] * params.TimeStep
	p[2] += p[6] * params.TimeStep
}
