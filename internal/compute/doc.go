// Package compute is the GPU boundary of the simulation.
//
// A [Device] exposes exactly what the frame loop needs: program compilation,
// one storage buffer bound both as an SSBO and as a vertex source, compute
// dispatch, memory barriers, point draws and host readback. Two devices are
// provided:
//
//   - [GLDevice]: OpenGL 4.3 core through go-gl, used by the window
//   - [CPUDevice]: a software device running the same central-force kernel
//     on goroutines and rasterizing points onto a braille canvas
//
// [Programs] is the shader service: it compiles the GLSL sources and keeps the
// last working program when a reload fails.
//
//	dev, err := compute.NewDevice("opengl")
//	progs, err := compute.LoadPrograms(dev, assets.Shaders, compute.DefaultShaderPaths(), log)
//	dev.Dispatch(progs.Compute(), params, compute.Groups(n))
//	dev.Barrier(compute.BarrierStorage)
package compute
