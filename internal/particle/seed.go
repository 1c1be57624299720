package particle

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Policy selects how a buffer is seeded.
type Policy int

const (
	// PolicyCentral places a heavy body at the origin and puts every other
	// particle on a circular orbit around it.
	PolicyCentral Policy = iota
	// PolicyCloud samples every particle in the unit ball with a random mass
	// and no velocity.
	PolicyCloud
)

var policyNames = map[Policy]string{
	PolicyCentral: "central",
	PolicyCloud:   "cloud",
}

func (p Policy) String() string {
	if s, ok := policyNames[p]; ok {
		return s
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	for p, name := range policyNames {
		if strings.EqualFold(s, name) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown seeding policy %q (want central or cloud)", s)
}

func (p Policy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SeedConfig parameterizes Seed.
type SeedConfig struct {
	Count  int    `yaml:"count"`
	Policy Policy `yaml:"policy"`

	G             float64 `yaml:"g"`
	CentralMass   float64 `yaml:"central_mass"`
	SatelliteMass float64 `yaml:"satellite_mass"`

	// Flatten scales the Y coordinate of orbiting particles; 1 is a sphere,
	// small values give a disc.
	Flatten float64 `yaml:"flatten"`

	// Radius, when positive, puts every satellite on a shell of this radius
	// instead of filling the unit ball.
	Radius float64 `yaml:"radius,omitempty"`

	MinMass float64 `yaml:"min_mass"`
	MaxMass float64 `yaml:"max_mass"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Count:         256 * 20,
		Policy:        PolicyCentral,
		G:             6.6743e-11,
		CentralMass:   1e9,
		SatelliteMass: 2e3,
		Flatten:       0.05,
		MinMass:       1e3,
		MaxMass:       1e4,
	}
}

// minRadius keeps satellites off the central body.
const minRadius = 1e-3

var (
	ErrInvalidCount   = errors.New("particle: count must be positive")
	ErrInvalidFlatten = errors.New("particle: flatten must be in (0, 1]")
	ErrInvalidMass    = errors.New("particle: invalid mass range")
)

func (c SeedConfig) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, c.Count)
	}
	switch c.Policy {
	case PolicyCentral:
		if c.Flatten <= 0 || c.Flatten > 1 {
			return fmt.Errorf("%w: %g", ErrInvalidFlatten, c.Flatten)
		}
		if c.CentralMass <= 0 || c.SatelliteMass < 0 {
			return fmt.Errorf("%w: central %g satellite %g", ErrInvalidMass, c.CentralMass, c.SatelliteMass)
		}
	case PolicyCloud:
		if c.MinMass < 0 || c.MaxMass < c.MinMass {
			return fmt.Errorf("%w: [%g, %g]", ErrInvalidMass, c.MinMass, c.MaxMass)
		}
	default:
		return fmt.Errorf("unknown seeding policy %v", c.Policy)
	}
	return nil
}

// Seed builds cfg.Count particles. rng may be nil, in which case a
// randomly seeded source is used.
func Seed(cfg SeedConfig, rng *rand.Rand) ([]Particle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	ps := make([]Particle, cfg.Count)
	switch cfg.Policy {
	case PolicyCentral:
		ps[0].Position = mgl32.Vec4{0, 0, 0, float32(cfg.CentralMass)}
		for i := 1; i < len(ps); i++ {
			pos := samplePosition(rng, cfg.Radius)
			pos[1] *= float32(cfg.Flatten)
			vel := OrbitalVelocity(pos, cfg.G, cfg.CentralMass)
			ps[i] = Particle{
				Position: pos.Vec4(float32(cfg.SatelliteMass)),
				Velocity: vel.Vec4(0),
			}
		}
	case PolicyCloud:
		for i := range ps {
			mass := cfg.MinMass + rng.Float64()*(cfg.MaxMass-cfg.MinMass)
			ps[i].Position = samplePosition(rng, cfg.Radius).Vec4(float32(mass))
		}
	}
	return ps, nil
}

// samplePosition draws a point uniformly from the unit ball, or uniformly on
// the sphere of the given radius when radius > 0.
func samplePosition(rng *rand.Rand, radius float64) mgl32.Vec3 {
	theta := rng.Float64() * 2 * math.Pi
	phi := math.Acos(2*rng.Float64() - 1)
	r := radius
	if r <= 0 {
		r = math.Max(math.Cbrt(rng.Float64()), minRadius)
	}
	return mgl32.Vec3{
		float32(r * math.Sin(phi) * math.Cos(theta)),
		float32(r * math.Sin(phi) * math.Sin(theta)),
		float32(r * math.Cos(phi)),
	}
}

var (
	up       = mgl32.Vec3{0, 1, 0}
	fallback = mgl32.Vec3{1, 0, 0}
)

// TangentDirection returns normalize(radial x up). When radial lies on the
// up axis the cross product vanishes and +X is used as the reference.
func TangentDirection(radial mgl32.Vec3) mgl32.Vec3 {
	t := radial.Cross(up)
	if t.Len() < 1e-6 {
		t = radial.Cross(fallback)
	}
	if t.Len() < 1e-6 {
		return fallback
	}
	return t.Normalize()
}

// OrbitalVelocity is the circular-orbit velocity around a mass m at the
// origin: speed sqrt(g*m/r) along TangentDirection.
func OrbitalVelocity(pos mgl32.Vec3, g, m float64) mgl32.Vec3 {
	r := float64(pos.Len())
	if r == 0 {
		return mgl32.Vec3{}
	}
	speed := float32(math.Sqrt(g * m / r))
	return TangentDirection(pos.Mul(float32(1 / r))).Mul(speed)
}
