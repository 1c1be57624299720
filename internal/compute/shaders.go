package compute

import (
	"errors"
	"fmt"
	"io/fs"

	"go.uber.org/zap"
)

// ShaderPaths locates the GLSL sources inside a shader file system.
type ShaderPaths struct {
	Compute  string `yaml:"compute"`
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

func DefaultShaderPaths() ShaderPaths {
	return ShaderPaths{
		Compute:  "shaders/nbody.comp",
		Vertex:   "shaders/particle.vert",
		Fragment: "shaders/particle.frag",
	}
}

// Stage is a set of program kinds.
type Stage uint8

const (
	StageCompute Stage = 1 << iota
	StageRender
)

func (s Stage) String() string {
	switch s {
	case 0:
		return "none"
	case StageCompute:
		return "compute"
	case StageRender:
		return "render"
	case StageCompute | StageRender:
		return "compute|render"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Programs owns the compute and render programs and recompiles them from
// source on demand. A failed compile never replaces a working program.
type Programs struct {
	dev   Device
	src   fs.FS
	paths ShaderPaths
	log   *zap.Logger

	compute Program
	render  Program
}

// LoadPrograms compiles both programs. Any failure here is an
// initialization failure.
func LoadPrograms(dev Device, src fs.FS, paths ShaderPaths, log *zap.Logger) (*Programs, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Programs{dev: dev, src: src, paths: paths, log: log}
	if _, err := p.Reload(); err != nil {
		p.Release()
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}
	return p, nil
}

func (p *Programs) Compute() Program { return p.compute }
func (p *Programs) Render() Program  { return p.render }

func (p *Programs) read(path string) (string, error) {
	data, err := fs.ReadFile(p.src, path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", ErrProgramCompile, path, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrProgramCompile, path)
	}
	return string(data), nil
}

func (p *Programs) buildCompute() (Program, error) {
	src, err := p.read(p.paths.Compute)
	if err != nil {
		return 0, err
	}
	return p.dev.CompileCompute(src)
}

func (p *Programs) buildRender() (Program, error) {
	vs, err := p.read(p.paths.Vertex)
	if err != nil {
		return 0, err
	}
	fs, err := p.read(p.paths.Fragment)
	if err != nil {
		return 0, err
	}
	return p.dev.CompileRender(vs, fs)
}

func (p *Programs) swap(slot *Program, next Program) {
	if old := *slot; old.Valid() {
		p.dev.DeleteProgram(old)
	}
	*slot = next
}

// Reload recompiles the compute and render programs independently. Each one
// that builds replaces its predecessor and is reported in swapped; each
// failure is returned joined and leaves the previous handle in place.
func (p *Programs) Reload() (Stage, error) {
	var (
		swapped Stage
		errs    []error
	)

	if prog, err := p.buildCompute(); err != nil {
		errs = append(errs, err)
	} else {
		p.swap(&p.compute, prog)
		swapped |= StageCompute
		p.log.Debug("compute program linked", zap.Uint32("handle", uint32(prog)))
	}

	if prog, err := p.buildRender(); err != nil {
		errs = append(errs, err)
	} else {
		p.swap(&p.render, prog)
		swapped |= StageRender
		p.log.Debug("render program linked", zap.Uint32("handle", uint32(prog)))
	}

	return swapped, errors.Join(errs...)
}

func (p *Programs) Release() {
	p.swap(&p.compute, 0)
	p.swap(&p.render, 0)
}
