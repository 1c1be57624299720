package compute

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// WorkGroupSize is the local_size_x every compute kernel is compiled with.
const WorkGroupSize = 256

// Program is an opaque handle to a linked GPU program. Zero is never valid.
type Program uint32

func (p Program) Valid() bool { return p != 0 }

// BufferID is an opaque handle to a device buffer. Zero is never valid.
type BufferID uint32

// Barrier is a set of memory barrier classes.
type Barrier uint32

const (
	// BarrierStorage makes compute writes visible to later storage reads.
	BarrierStorage Barrier = 1 << iota
	// BarrierVertexAttrib makes compute writes visible to vertex attribute fetch.
	BarrierVertexAttrib
	// BarrierHostRead makes compute writes visible to a host mapping.
	BarrierHostRead
)

func (b Barrier) String() string {
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if b&BarrierStorage != 0 {
		add("storage")
	}
	if b&BarrierVertexAttrib != 0 {
		add("vertex_attrib")
	}
	if b&BarrierHostRead != 0 {
		add("host_read")
	}
	if s == "" {
		return "none"
	}
	return s
}

// VertexAttrib describes one float attribute inside an interleaved buffer.
type VertexAttrib struct {
	Index      uint32
	Components int32
	Offset     int
}

// VertexLayout describes how a storage buffer is fetched as vertices.
type VertexLayout struct {
	Stride  int32
	Attribs []VertexAttrib
}

func (l VertexLayout) Equal(o VertexLayout) bool {
	if l.Stride != o.Stride || len(l.Attribs) != len(o.Attribs) {
		return false
	}
	for i := range l.Attribs {
		if l.Attribs[i] != o.Attribs[i] {
			return false
		}
	}
	return true
}

// ComputeParams are the uniforms of one physics dispatch.
//
// The dispatch covers ceil(Count/WorkGroupSize)*WorkGroupSize invocations.
// Kernels must return without touching memory for invocations whose global
// index is >= Count; the last group is padded.
type ComputeParams struct {
	TimeStep  float32
	G         float32
	Softening float32
	Count     uint32
}

// RenderParams are the uniforms of one point draw.
type RenderParams struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Count      int
}

// Device is the GPU surface the simulation loop drives. Implementations are
// not safe for concurrent use; every call must come from the render thread.
type Device interface {
	Name() string

	CompileCompute(src string) (Program, error)
	CompileRender(vertSrc, fragSrc string) (Program, error)
	DeleteProgram(p Program)

	CreateBuffer(data []float32) (BufferID, error)
	DeleteBuffer(b BufferID)
	BindStorage(b BufferID, slot uint32)
	BindVertexSource(b BufferID, layout VertexLayout)

	Dispatch(p Program, params ComputeParams, groups uint32)
	Barrier(b Barrier)

	Viewport(width, height int)
	Clear(r, g, b, a float32)
	DrawPoints(p Program, params RenderParams)

	// MapRead maps n floats starting at float offset off for reading. The
	// returned slice aliases device memory and is only valid until Unmap.
	MapRead(b BufferID, off, n int) ([]float32, error)
	Unmap(b BufferID) error

	// Finish blocks until all submitted work has completed.
	Finish()
	Close()
}

// Groups returns the number of work groups needed to cover count items.
func Groups(count int) uint32 {
	if count <= 0 {
		return 0
	}
	return uint32((count + WorkGroupSize - 1) / WorkGroupSize)
}

// Backends lists the device names accepted by NewDevice.
var Backends = []string{"opengl", "cpu"}

// NewDevice returns the named device. The opengl device requires a current
// OpenGL 4.3 context on the calling thread.
func NewDevice(name string, opts ...CPUOption) (Device, error) {
	switch name {
	case "opengl", "gl":
		d, err := NewGLDevice()
		if err != nil {
			return nil, err
		}
		return d, nil
	case "cpu", "software":
		return NewCPUDevice(opts...), nil
	default:
		return nil, fmt.Errorf("unknown compute backend %q (available: %v)", name, Backends)
	}
}
