package compute

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/gravsim/internal/viz"
)

type programKind int

const (
	kindCompute programKind = iota + 1
	kindRender
)

// CPUStats counts the work a CPUDevice has executed.
type CPUStats struct {
	Dispatches  uint64
	Invocations uint64
	Draws       uint64
	PointsDrawn uint64
	Maps        uint64
	Barriers    map[Barrier]uint64
}

// CPUDevice is a software Device. Compute dispatches run the Go twin of the
// central-force kernel across worker goroutines and join before returning;
// draws rasterize points onto an optional braille canvas.
type CPUDevice struct {
	workers int
	canvas  *viz.Canvas

	nextProgram Program
	nextBuffer  BufferID
	programs    map[Program]programKind
	buffers     map[BufferID][]float32
	mapped      map[BufferID]bool

	storage   map[uint32]BufferID
	vertexBuf BufferID
	layout    VertexLayout

	width, height int
	stats         CPUStats
}

type CPUOption func(*CPUDevice)

func WithWorkers(n int) CPUOption {
	return func(d *CPUDevice) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithCanvas makes DrawPoints rasterize into c.
func WithCanvas(c *viz.Canvas) CPUOption {
	return func(d *CPUDevice) { d.canvas = c }
}

func NewCPUDevice(opts ...CPUOption) *CPUDevice {
	d := &CPUDevice{
		workers:  runtime.NumCPU(),
		programs: make(map[Program]programKind),
		buffers:  make(map[BufferID][]float32),
		mapped:   make(map[BufferID]bool),
		storage:  make(map[uint32]BufferID),
		stats:    CPUStats{Barriers: make(map[Barrier]uint64)},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *CPUDevice) Name() string { return fmt.Sprintf("cpu (%d workers)", d.workers) }

func (d *CPUDevice) Canvas() *viz.Canvas { return d.canvas }

// Stats returns a snapshot of the execution counters.
func (d *CPUDevice) Stats() CPUStats {
	s := d.stats
	s.Barriers = make(map[Barrier]uint64, len(d.stats.Barriers))
	for k, v := range d.stats.Barriers {
		s.Barriers[k] = v
	}
	return s
}

// The software device has no shader compiler; it accepts any source that
// looks like a GLSL translation unit and runs the built-in kernel.
func checkSource(stage, src string) error {
	if !strings.Contains(src, "#version") {
		return &CompileError{Stage: stage, Log: "missing #version directive"}
	}
	if !strings.Contains(src, "void main") {
		return &CompileError{Stage: stage, Log: "missing entry point main"}
	}
	return nil
}

func (d *CPUDevice) newProgram(kind programKind) Program {
	d.nextProgram++
	d.programs[d.nextProgram] = kind
	return d.nextProgram
}

func (d *CPUDevice) CompileCompute(src string) (Program, error) {
	if err := checkSource("compute", src); err != nil {
		return 0, err
	}
	return d.newProgram(kindCompute), nil
}

func (d *CPUDevice) CompileRender(vertSrc, fragSrc string) (Program, error) {
	if err := checkSource("vertex", vertSrc); err != nil {
		return 0, err
	}
	if err := checkSource("fragment", fragSrc); err != nil {
		return 0, err
	}
	return d.newProgram(kindRender), nil
}

func (d *CPUDevice) DeleteProgram(p Program) { delete(d.programs, p) }

func (d *CPUDevice) CreateBuffer(data []float32) (BufferID, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty buffer", ErrInitialization)
	}
	d.nextBuffer++
	buf := make([]float32, len(data))
	copy(buf, data)
	d.buffers[d.nextBuffer] = buf
	return d.nextBuffer, nil
}

func (d *CPUDevice) DeleteBuffer(b BufferID) {
	delete(d.buffers, b)
	delete(d.mapped, b)
	for slot, id := range d.storage {
		if id == b {
			delete(d.storage, slot)
		}
	}
	if d.vertexBuf == b {
		d.vertexBuf = 0
	}
}

func (d *CPUDevice) BindStorage(b BufferID, slot uint32) { d.storage[slot] = b }

func (d *CPUDevice) BindVertexSource(b BufferID, layout VertexLayout) {
	d.vertexBuf = b
	d.layout = layout
}

func (d *CPUDevice) Dispatch(p Program, params ComputeParams, groups uint32) {
	if d.programs[p] != kindCompute {
		return
	}
	data, ok := d.buffers[d.storage[0]]
	if !ok {
		return
	}
	if limit := uint32(len(data) / floatsPerParticle); params.Count > limit {
		params.Count = limit
	}
	total := groups * WorkGroupSize
	d.stats.Dispatches++
	d.stats.Invocations += uint64(total)

	if total < 1024 || d.workers <= 1 {
		for gid := uint32(0); gid < total; gid++ {
			centralForce(data, gid, params)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (total + uint32(d.workers) - 1) / uint32(d.workers)
	for w := 0; w < d.workers; w++ {
		start := uint32(w) * chunk
		end := start + chunk
		if end > total {
			end = total
		}
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end uint32) {
			defer wg.Done()
			for gid := start; gid < end; gid++ {
				centralForce(data, gid, params)
			}
		}(start, end)
	}
	wg.Wait()
}

func (d *CPUDevice) Barrier(b Barrier) {
	for _, c := range []Barrier{BarrierStorage, BarrierVertexAttrib, BarrierHostRead} {
		if b&c != 0 {
			d.stats.Barriers[c]++
		}
	}
}

func (d *CPUDevice) Viewport(width, height int) { d.width, d.height = width, height }

func (d *CPUDevice) Clear(r, g, b, a float32) {
	if d.canvas != nil {
		d.canvas.Clear()
	}
}

func (d *CPUDevice) DrawPoints(p Program, params RenderParams) {
	if d.programs[p] != kindRender {
		return
	}
	d.stats.Draws++
	data, ok := d.buffers[d.vertexBuf]
	if !ok || d.canvas == nil {
		return
	}

	posOffset := -1
	for _, a := range d.layout.Attribs {
		if a.Index == 0 {
			posOffset = a.Offset / 4
		}
	}
	stride := int(d.layout.Stride) / 4
	if posOffset < 0 || stride <= 0 {
		return
	}

	vp := params.Projection.Mul4(params.View)
	pw, ph := float32(d.canvas.Width*2), float32(d.canvas.Height*4)
	for i := 0; i < params.Count; i++ {
		base := i*stride + posOffset
		if base+2 >= len(data) {
			break
		}
		clip := vp.Mul4x1(mgl32.Vec4{data[base], data[base+1], data[base+2], 1})
		if clip.W() <= 0 {
			continue
		}
		nx, ny := clip.X()/clip.W(), clip.Y()/clip.W()
		if nx < -1 || nx > 1 || ny < -1 || ny > 1 {
			continue
		}
		d.canvas.Set(int((nx+1)*0.5*pw), int((1-ny)*0.5*ph))
		d.stats.PointsDrawn++
	}
}

func (d *CPUDevice) MapRead(b BufferID, off, n int) ([]float32, error) {
	data, ok := d.buffers[b]
	if !ok {
		return nil, fmt.Errorf("%w: unknown buffer %d", ErrBufferMap, b)
	}
	if d.mapped[b] {
		return nil, fmt.Errorf("%w: buffer %d already mapped", ErrBufferMap, b)
	}
	if off < 0 || n <= 0 || off+n > len(data) {
		return nil, fmt.Errorf("%w: range [%d,%d) outside buffer of %d floats", ErrBufferMap, off, off+n, len(data))
	}
	d.mapped[b] = true
	d.stats.Maps++
	return data[off : off+n : off+n], nil
}

func (d *CPUDevice) Unmap(b BufferID) error {
	if !d.mapped[b] {
		return fmt.Errorf("%w: buffer %d is not mapped", ErrBufferMap, b)
	}
	delete(d.mapped, b)
	return nil
}

func (d *CPUDevice) Finish() {}

func (d *CPUDevice) Close() {
	d.programs = make(map[Program]programKind)
	d.buffers = make(map[BufferID][]float32)
	d.mapped = make(map[BufferID]bool)
	d.storage = make(map[uint32]BufferID)
	d.vertexBuf = 0
}
