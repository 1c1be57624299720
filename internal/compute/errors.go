package compute

import "errors"

var (
	// ErrProgramCompile indicates a shader failed to compile or link. The
	// previously linked program stays in use.
	ErrProgramCompile = errors.New("compute: program compile failed")

	// ErrBufferMap indicates a host mapping of a device buffer failed.
	ErrBufferMap = errors.New("compute: buffer map failed")

	// ErrInitialization indicates the window, context or initial programs
	// could not be created. It is fatal.
	ErrInitialization = errors.New("compute: initialization failed")
)

// CompileError carries the stage and driver log of a failed compile.
type CompileError struct {
	Stage string
	Log   string
}

func (e *CompileError) Error() string {
	if e.Log == "" {
		return "compute: " + e.Stage + " program compile failed"
	}
	return "compute: " + e.Stage + " program compile failed: " + e.Log
}

func (e *CompileError) Unwrap() error { return ErrProgramCompile }
