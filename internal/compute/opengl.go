package compute

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// GLDevice drives an OpenGL 4.3 core context. The particle storage buffer is
// bound as an SSBO for compute and as the ARRAY_BUFFER of a single VAO for
// point rendering.
type GLDevice struct {
	vao      uint32
	renderer string
	version  string
	maxGroup int32
}

// NewGLDevice loads the GL function pointers for the current context.
func NewGLDevice() (*GLDevice, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: opengl: %v", ErrInitialization, err)
	}

	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || (major == 4 && minor < 3) {
		return nil, fmt.Errorf("%w: compute shaders need OpenGL 4.3, context is %d.%d", ErrInitialization, major, minor)
	}

	d := &GLDevice{
		renderer: gl.GoStr(gl.GetString(gl.RENDERER)),
		version:  fmt.Sprintf("%d.%d", major, minor),
	}
	gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, 0, &d.maxGroup)
	gl.GenVertexArrays(1, &d.vao)

	gl.Enable(gl.PROGRAM_POINT_SIZE)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.SCISSOR_TEST)
	return d, nil
}

func (d *GLDevice) Name() string {
	return fmt.Sprintf("opengl %s (%s)", d.version, d.renderer)
}

// MaxGroups is GL_MAX_COMPUTE_WORK_GROUP_COUNT along x.
func (d *GLDevice) MaxGroups() int32 { return d.maxGroup }

func compileShader(source string, kind uint32, stage string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &CompileError{Stage: stage, Log: strings.TrimRight(log, "\x00\n")}
	}
	return shader, nil
}

func linkProgram(stage string, shaders ...uint32) (Program, error) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DeleteShader(s)
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, &CompileError{Stage: stage + " link", Log: strings.TrimRight(log, "\x00\n")}
	}
	return Program(program), nil
}

func (d *GLDevice) CompileCompute(src string) (Program, error) {
	shader, err := compileShader(src, gl.COMPUTE_SHADER, "compute")
	if err != nil {
		return 0, err
	}
	return linkProgram("compute", shader)
}

func (d *GLDevice) CompileRender(vertSrc, fragSrc string) (Program, error) {
	vs, err := compileShader(vertSrc, gl.VERTEX_SHADER, "vertex")
	if err != nil {
		return 0, err
	}
	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER, "fragment")
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}
	return linkProgram("render", vs, fs)
}

func (d *GLDevice) DeleteProgram(p Program) {
	if p.Valid() {
		gl.DeleteProgram(uint32(p))
	}
}

func (d *GLDevice) CreateBuffer(data []float32) (BufferID, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty buffer", ErrInitialization)
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, len(data)*4, gl.Ptr(data), gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteBuffers(1, &id)
		return 0, fmt.Errorf("%w: glBufferData error 0x%x", ErrInitialization, code)
	}
	return BufferID(id), nil
}

func (d *GLDevice) DeleteBuffer(b BufferID) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (d *GLDevice) BindStorage(b BufferID, slot uint32) {
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, slot, uint32(b))
}

func (d *GLDevice) BindVertexSource(b BufferID, layout VertexLayout) {
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(b))
	for _, a := range layout.Attribs {
		gl.EnableVertexAttribArray(a.Index)
		gl.VertexAttribPointerWithOffset(a.Index, a.Components, gl.FLOAT, false, layout.Stride, uintptr(a.Offset))
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func uniform(p Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

func (d *GLDevice) Dispatch(p Program, params ComputeParams, groups uint32) {
	if !p.Valid() || groups == 0 {
		return
	}
	gl.UseProgram(uint32(p))
	gl.Uniform1f(uniform(p, "deltaTime"), params.TimeStep)
	gl.Uniform1f(uniform(p, "G"), params.G)
	gl.Uniform1f(uniform(p, "softening"), params.Softening)
	gl.Uniform1ui(uniform(p, "numParticles"), params.Count)
	gl.DispatchCompute(groups, 1, 1)
}

func (d *GLDevice) Barrier(b Barrier) {
	var bits uint32
	if b&BarrierStorage != 0 {
		bits |= gl.SHADER_STORAGE_BARRIER_BIT
	}
	if b&BarrierVertexAttrib != 0 {
		bits |= gl.VERTEX_ATTRIB_ARRAY_BARRIER_BIT
	}
	if b&BarrierHostRead != 0 {
		bits |= gl.BUFFER_UPDATE_BARRIER_BIT | gl.CLIENT_MAPPED_BUFFER_BARRIER_BIT
	}
	if bits != 0 {
		gl.MemoryBarrier(bits)
	}
}

func (d *GLDevice) Viewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

func (d *GLDevice) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (d *GLDevice) DrawPoints(p Program, params RenderParams) {
	if !p.Valid() || params.Count <= 0 {
		return
	}
	gl.UseProgram(uint32(p))
	gl.UniformMatrix4fv(uniform(p, "view"), 1, false, &params.View[0])
	gl.UniformMatrix4fv(uniform(p, "projection"), 1, false, &params.Projection[0])
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(gl.POINTS, 0, int32(params.Count))
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

func (d *GLDevice) MapRead(b BufferID, off, n int) ([]float32, error) {
	if n <= 0 || off < 0 {
		return nil, fmt.Errorf("%w: invalid range off=%d n=%d", ErrBufferMap, off, n)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, uint32(b))
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, off*4, n*4, gl.MAP_READ_BIT)
	if ptr == nil {
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
		return nil, fmt.Errorf("%w: glMapBufferRange error 0x%x", ErrBufferMap, gl.GetError())
	}
	return unsafe.Slice((*float32)(ptr), n), nil
}

func (d *GLDevice) Unmap(b BufferID) error {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, uint32(b))
	ok := gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if !ok {
		return fmt.Errorf("%w: buffer %d contents lost while mapped", ErrBufferMap, b)
	}
	return nil
}

func (d *GLDevice) Finish() { gl.Finish() }

func (d *GLDevice) Close() {
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
}
