package particle

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/san-kum/gravsim/internal/compute"
)

// Stage is the pipeline stage that last used the buffer.
type Stage int

const (
	StageIdle Stage = iota
	StageCompute
	StageRender
	StageHost
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageCompute:
		return "compute"
	case StageRender:
		return "render"
	case StageHost:
		return "host"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

var (
	ErrReleased   = errors.New("particle: buffer released")
	ErrOutOfRange = errors.New("particle: index out of range")
)

// Buffer owns the device storage for a fixed set of particles. The same
// allocation is the compute stage's storage block and the render stage's
// vertex source; Buffer tracks which consumers still need a barrier after a
// compute write and issues it when that consumer next touches the data.
type Buffer struct {
	dev   compute.Device
	id    compute.BufferID
	count int

	stage   Stage
	pending compute.Barrier
}

// Initialize seeds cfg.Count particles and uploads them.
func Initialize(dev compute.Device, cfg SeedConfig, rng *rand.Rand) (*Buffer, error) {
	ps, err := Seed(cfg, rng)
	if err != nil {
		return nil, err
	}
	return NewBuffer(dev, ps)
}

// NewBuffer uploads ps. The particle count is fixed for the lifetime of the
// buffer.
func NewBuffer(dev compute.Device, ps []Particle) (*Buffer, error) {
	if len(ps) == 0 {
		return nil, ErrInvalidCount
	}
	id, err := dev.CreateBuffer(Pack(ps))
	if err != nil {
		return nil, err
	}
	return &Buffer{dev: dev, id: id, count: len(ps)}, nil
}

func (b *Buffer) Count() int           { return b.count }
func (b *Buffer) ID() compute.BufferID { return b.id }
func (b *Buffer) Stage() Stage         { return b.stage }
func (b *Buffer) Released() bool       { return b.id == 0 }

// Pending reports the barrier classes still owed to consumers.
func (b *Buffer) Pending() compute.Barrier { return b.pending }

// BindAsStorage binds the buffer to a storage slot for the next dispatch.
func (b *Buffer) BindAsStorage(slot uint32) {
	if b.Released() {
		return
	}
	b.dev.BindStorage(b.id, slot)
	b.stage = StageCompute
}

// MarkComputeWritten records that a dispatch wrote the buffer. It issues the
// storage barrier and marks the vertex and host consumers stale.
func (b *Buffer) MarkComputeWritten() {
	if b.Released() {
		return
	}
	b.dev.Barrier(compute.BarrierStorage)
	b.pending |= compute.BarrierVertexAttrib | compute.BarrierHostRead
	b.stage = StageCompute
}

// BindAsVertexSource binds the buffer as the vertex source for the next
// draw, first making outstanding compute writes visible to vertex fetch.
func (b *Buffer) BindAsVertexSource(layout compute.VertexLayout) {
	if b.Released() {
		return
	}
	b.flush(compute.BarrierVertexAttrib)
	b.dev.BindVertexSource(b.id, layout)
	b.stage = StageRender
}

// ReadParticle maps particle i for reading, copies it and unmaps. Compute
// writes are made visible to the host first.
func (b *Buffer) ReadParticle(i int) (Particle, error) {
	if b.Released() {
		return Particle{}, ErrReleased
	}
	if i < 0 || i >= b.count {
		return Particle{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, b.count)
	}
	b.flush(compute.BarrierHostRead)

	data, err := b.dev.MapRead(b.id, i*Floats, Floats)
	if err != nil {
		return Particle{}, err
	}
	p := Unpack(data)[0]
	if err := b.dev.Unmap(b.id); err != nil {
		return Particle{}, err
	}
	b.stage = StageHost
	return p, nil
}

// Snapshot reads every particle back. It is meant for tests and tooling, not
// the frame loop.
func (b *Buffer) Snapshot() ([]Particle, error) {
	if b.Released() {
		return nil, ErrReleased
	}
	b.flush(compute.BarrierHostRead)
	data, err := b.dev.MapRead(b.id, 0, b.count*Floats)
	if err != nil {
		return nil, err
	}
	ps := Unpack(data)
	if err := b.dev.Unmap(b.id); err != nil {
		return nil, err
	}
	b.stage = StageHost
	return ps, nil
}

func (b *Buffer) flush(c compute.Barrier) {
	if b.pending&c == 0 {
		return
	}
	b.dev.Barrier(c)
	b.pending &^= c
}

// Release frees the device allocation. A released buffer ignores binds and
// fails reads.
func (b *Buffer) Release() {
	if b.Released() {
		return
	}
	b.dev.DeleteBuffer(b.id)
	b.id = 0
	b.pending = 0
	b.stage = StageIdle
}
