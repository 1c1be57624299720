package particle_test

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/particle"
)

var _ = Describe("Buffer", func() {
	var (
		dev *recorder
		buf *particle.Buffer
	)

	BeforeEach(func() {
		dev = newRecorder()
		cfg := particle.DefaultSeedConfig()
		cfg.Count = 16
		var err error
		buf, err = particle.Initialize(dev, cfg, rand.New(rand.NewPCG(3, 4)))
		Expect(err).NotTo(HaveOccurred())
		dev.reset()
	})

	It("starts idle with the seeded count", func() {
		Expect(buf.Count()).To(Equal(16))
		Expect(buf.Stage()).To(Equal(particle.StageIdle))
		Expect(buf.Pending()).To(Equal(compute.Barrier(0)))
	})

	It("issues a storage barrier after every compute write", func() {
		buf.BindAsStorage(0)
		buf.MarkComputeWritten()
		buf.MarkComputeWritten()
		Expect(dev.calls).To(Equal([]string{
			"storage 1@0",
			"barrier storage",
			"barrier storage",
		}))
		Expect(buf.Pending()).To(Equal(compute.BarrierVertexAttrib | compute.BarrierHostRead))
	})

	It("makes compute writes visible to vertex fetch before binding for render", func() {
		buf.MarkComputeWritten()
		dev.reset()

		buf.BindAsVertexSource(particle.Layout())
		Expect(dev.calls).To(Equal([]string{"barrier vertex_attrib", "vertex 1"}))
		Expect(buf.Stage()).To(Equal(particle.StageRender))
		Expect(buf.Pending()).To(Equal(compute.BarrierHostRead))
	})

	It("uses a distinct barrier class for host readback", func() {
		buf.MarkComputeWritten()
		buf.BindAsVertexSource(particle.Layout())
		dev.reset()

		_, err := buf.ReadParticle(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev.calls).To(Equal([]string{"barrier host_read", "map 24+8", "unmap"}))
		Expect(buf.Stage()).To(Equal(particle.StageHost))
		Expect(buf.Pending()).To(Equal(compute.Barrier(0)))
	})

	Describe("rebinding", func() {
		It("is idempotent for storage", func() {
			buf.BindAsStorage(0)
			once := dev.Stats()
			buf.BindAsStorage(0)
			Expect(dev.Stats().Barriers).To(Equal(once.Barriers))
			Expect(buf.Stage()).To(Equal(particle.StageCompute))
			Expect(dev.calls).To(Equal([]string{"storage 1@0", "storage 1@0"}))
		})

		It("is idempotent for the vertex source", func() {
			buf.MarkComputeWritten()
			dev.reset()
			buf.BindAsVertexSource(particle.Layout())
			buf.BindAsVertexSource(particle.Layout())
			Expect(dev.calls).To(Equal([]string{"barrier vertex_attrib", "vertex 1", "vertex 1"}))
		})

		It("produces the same dispatch results bound once or twice", func() {
			src := "#version 430\nvoid main() {}\n"
			run := func(binds int) []particle.Particle {
				d := compute.NewCPUDevice(compute.WithWorkers(1))
				cfg := particle.DefaultSeedConfig()
				cfg.Count = 32
				b, err := particle.Initialize(d, cfg, rand.New(rand.NewPCG(9, 9)))
				Expect(err).NotTo(HaveOccurred())
				prog, err := d.CompileCompute(src)
				Expect(err).NotTo(HaveOccurred())
				for i := 0; i < binds; i++ {
					b.BindAsStorage(0)
				}
				d.Dispatch(prog, compute.ComputeParams{TimeStep: 0.01, G: float32(cfg.G), Count: 32}, compute.Groups(32))
				b.MarkComputeWritten()
				ps, err := b.Snapshot()
				Expect(err).NotTo(HaveOccurred())
				return ps
			}
			Expect(run(2)).To(Equal(run(1)))
		})
	})

	Describe("ReadParticle", func() {
		It("returns the uploaded record", func() {
			ps := []particle.Particle{
				{Position: mgl32.Vec4{0, 0, 0, 1e9}},
				{Position: mgl32.Vec4{1, 2, 3, 5}, Velocity: mgl32.Vec4{4, 5, 6, 0}},
			}
			b, err := particle.NewBuffer(dev, ps)
			Expect(err).NotTo(HaveOccurred())
			got, err := b.ReadParticle(1)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(ps[1]))
		})

		It("rejects indices outside the buffer", func() {
			_, err := buf.ReadParticle(16)
			Expect(err).To(MatchError(particle.ErrOutOfRange))
			_, err = buf.ReadParticle(-1)
			Expect(err).To(MatchError(particle.ErrOutOfRange))
		})

		It("surfaces map failures without changing state", func() {
			buf.MarkComputeWritten()
			dev.failMap = true
			_, err := buf.ReadParticle(0)
			Expect(err).To(MatchError(compute.ErrBufferMap))
			Expect(buf.Stage()).To(Equal(particle.StageCompute))

			dev.failMap = false
			_, err = buf.ReadParticle(0)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Release", func() {
		It("frees the allocation and disables the buffer", func() {
			buf.Release()
			Expect(buf.Released()).To(BeTrue())
			Expect(buf.Count()).To(Equal(16))

			dev.reset()
			buf.BindAsStorage(0)
			buf.BindAsVertexSource(particle.Layout())
			buf.MarkComputeWritten()
			Expect(dev.calls).To(BeEmpty())

			_, err := buf.ReadParticle(0)
			Expect(err).To(MatchError(particle.ErrReleased))
			buf.Release()
		})
	})

	It("rejects an empty particle set", func() {
		_, err := particle.NewBuffer(dev, nil)
		Expect(err).To(MatchError(particle.ErrInvalidCount))
	})
})

var _ = Describe("Pack", func() {
	It("lays particles out as position then velocity", func() {
		ps := []particle.Particle{{Position: mgl32.Vec4{1, 2, 3, 4}, Velocity: mgl32.Vec4{5, 6, 7, 0}}}
		data := particle.Pack(ps)
		Expect(data).To(Equal([]float32{1, 2, 3, 4, 5, 6, 7, 0}))
		Expect(particle.Unpack(append(data, 9))).To(Equal(ps))
		Expect(particle.Layout().Stride).To(BeEquivalentTo(particle.Stride))
	})
})
