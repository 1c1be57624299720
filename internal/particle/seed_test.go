package particle_test

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/particle"
)

func finite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return false
		}
	}
	return true
}

var _ = Describe("Seed", func() {
	var rng *rand.Rand

	BeforeEach(func() {
		rng = rand.New(rand.NewPCG(1, 2))
	})

	Context("central policy", func() {
		It("puts a fixed heavy body at index 0", func() {
			cfg := particle.DefaultSeedConfig()
			cfg.Count = 64
			ps, err := particle.Seed(cfg, rng)
			Expect(err).NotTo(HaveOccurred())
			Expect(ps).To(HaveLen(64))
			Expect(ps[0].Pos()).To(Equal(mgl32.Vec3{}))
			Expect(ps[0].Mass()).To(BeNumerically("==", 1e9))
			Expect(ps[0].Velocity).To(Equal(mgl32.Vec4{}))
		})

		It("gives every satellite circular-orbit speed", func() {
			cfg := particle.DefaultSeedConfig()
			cfg.Count = 500
			ps, err := particle.Seed(cfg, rng)
			Expect(err).NotTo(HaveOccurred())

			for _, p := range ps[1:] {
				r := float64(p.Pos().Len())
				want := math.Sqrt(cfg.G * cfg.CentralMass / r)
				Expect(float64(p.Speed())).To(BeNumerically("~", want, want*1e-4))
				Expect(p.Mass()).To(BeNumerically("==", 2e3))
				// tangential: no radial component
				Expect(float64(p.Vel().Dot(p.Pos()))).To(BeNumerically("~", 0, 1e-4))
				Expect(p.Velocity[3]).To(BeZero())
			}
		})

		It("flattens the distribution along Y", func() {
			cfg := particle.DefaultSeedConfig()
			cfg.Count = 300
			ps, err := particle.Seed(cfg, rng)
			Expect(err).NotTo(HaveOccurred())
			for _, p := range ps[1:] {
				Expect(math.Abs(float64(p.Position[1]))).To(BeNumerically("<=", cfg.Flatten+1e-6))
				Expect(float64(p.Pos().Len())).To(BeNumerically("<=", 1+1e-5))
			}
		})

		It("places satellites on a shell when a radius is set", func() {
			cfg := particle.DefaultSeedConfig()
			cfg.Count = 100
			cfg.Flatten = 1
			cfg.Radius = 1
			ps, err := particle.Seed(cfg, rng)
			Expect(err).NotTo(HaveOccurred())
			for _, p := range ps[1:] {
				Expect(float64(p.Pos().Len())).To(BeNumerically("~", 1, 1e-5))
			}
		})

		It("is reproducible for a given source", func() {
			cfg := particle.DefaultSeedConfig()
			cfg.Count = 32
			a, _ := particle.Seed(cfg, rand.New(rand.NewPCG(7, 7)))
			b, _ := particle.Seed(cfg, rand.New(rand.NewPCG(7, 7)))
			Expect(a).To(Equal(b))
		})
	})

	Context("cloud policy", func() {
		It("samples masses in range with zero velocity", func() {
			cfg := particle.DefaultSeedConfig()
			cfg.Policy = particle.PolicyCloud
			cfg.Count = 200
			ps, err := particle.Seed(cfg, rng)
			Expect(err).NotTo(HaveOccurred())
			for _, p := range ps {
				Expect(float64(p.Mass())).To(And(
					BeNumerically(">=", cfg.MinMass*(1-1e-6)),
					BeNumerically("<=", cfg.MaxMass*(1+1e-6)),
				))
				Expect(p.Velocity).To(Equal(mgl32.Vec4{}))
				Expect(float64(p.Pos().Len())).To(BeNumerically("<=", 1+1e-5))
			}
		})
	})

	DescribeTable("rejects invalid configs",
		func(mutate func(*particle.SeedConfig), target error) {
			cfg := particle.DefaultSeedConfig()
			mutate(&cfg)
			_, err := particle.Seed(cfg, rng)
			Expect(err).To(MatchError(target))
		},
		Entry("zero count", func(c *particle.SeedConfig) { c.Count = 0 }, particle.ErrInvalidCount),
		Entry("zero flatten", func(c *particle.SeedConfig) { c.Flatten = 0 }, particle.ErrInvalidFlatten),
		Entry("flatten above one", func(c *particle.SeedConfig) { c.Flatten = 1.5 }, particle.ErrInvalidFlatten),
		Entry("no central mass", func(c *particle.SeedConfig) { c.CentralMass = 0 }, particle.ErrInvalidMass),
		Entry("inverted cloud masses", func(c *particle.SeedConfig) {
			c.Policy = particle.PolicyCloud
			c.MinMass, c.MaxMass = 10, 1
		}, particle.ErrInvalidMass),
	)

	Describe("policy names", func() {
		It("round-trips through text", func() {
			for _, p := range []particle.Policy{particle.PolicyCentral, particle.PolicyCloud} {
				b, err := p.MarshalText()
				Expect(err).NotTo(HaveOccurred())
				var got particle.Policy
				Expect(got.UnmarshalText(b)).To(Succeed())
				Expect(got).To(Equal(p))
			}
			_, err := particle.ParsePolicy("spiral")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("OrbitalVelocity", func() {
	It("substitutes the fallback axis when the radial direction is the up axis", func() {
		for _, pos := range []mgl32.Vec3{{0, 1, 0}, {0, -1, 0}, {0, 0.25, 0}} {
			v := particle.OrbitalVelocity(pos, 6.6743e-11, 1e9)
			Expect(finite(v)).To(BeTrue())
			Expect(v.Len()).To(BeNumerically(">", 0))
			r := float64(pos.Len())
			Expect(float64(v.Len())).To(BeNumerically("~", math.Sqrt(6.6743e-11*1e9/r), 1e-5))
			Expect(float64(v.Dot(pos))).To(BeNumerically("~", 0, 1e-6))
		}
	})

	It("uses cross(radial, up) otherwise", func() {
		d := particle.TangentDirection(mgl32.Vec3{1, 0, 0})
		Expect(d.ApproxEqual(mgl32.Vec3{0, 0, 1})).To(BeTrue())
	})

	It("returns zero at the origin", func() {
		Expect(particle.OrbitalVelocity(mgl32.Vec3{}, 1, 1)).To(Equal(mgl32.Vec3{}))
	})
})
