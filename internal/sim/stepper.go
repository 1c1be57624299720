// Package sim advances the particle buffer at a fixed timestep, independent
// of the display rate.
package sim

import (
	"time"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/particle"
)

// StorageSlot is the SSBO binding the kernel declares for the particles.
const StorageSlot = 0

// TimeStepNotch is the change in simulated time step per scroll notch.
const TimeStepNotch = 0.0016

// ProgramSource yields the current compute program. Its handle may change
// between calls after a reload.
type ProgramSource interface {
	Compute() compute.Program
}

// Params are the physical constants passed to every dispatch.
type Params struct {
	// TimeStep is the simulated time advanced per dispatch. It is separate
	// from the wall-clock cadence so it can be tuned live, including to 0.
	TimeStep  float32
	G         float32
	Softening float32
}

// Stepper dispatches one compute pass per fixed step drained from its clock.
//
// The kernel receives Groups(count) work groups of compute.WorkGroupSize
// invocations, so the last group is padded. The kernel must ignore
// invocations whose index is >= Count, and must not write particle 0, which
// it reads as the field source.
type Stepper struct {
	dev    compute.Device
	buf    *particle.Buffer
	progs  ProgramSource
	clock  *Clock
	params Params

	steps      uint64
	dispatches uint64
}

func NewStepper(dev compute.Device, buf *particle.Buffer, progs ProgramSource, clock *Clock, params Params) *Stepper {
	if params.TimeStep < 0 {
		params.TimeStep = 0
	}
	return &Stepper{dev: dev, buf: buf, progs: progs, clock: clock, params: params}
}

// Advance adds elapsed to the clock and dispatches one compute pass per
// whole fixed step. Each dispatch is followed by the buffer's storage
// barrier. It returns the number of steps taken.
//
// With no valid compute program Advance does nothing and returns
// ErrDegraded.
func (s *Stepper) Advance(elapsed time.Duration) (int, error) {
	prog := s.progs.Compute()
	if !prog.Valid() {
		return 0, ErrDegraded
	}
	s.clock.Add(elapsed)

	count := s.buf.Count()
	cp := compute.ComputeParams{
		TimeStep:  s.params.TimeStep,
		G:         s.params.G,
		Softening: s.params.Softening,
		Count:     uint32(count),
	}
	groups := compute.Groups(count)

	n := 0
	for s.clock.Consume() {
		s.buf.BindAsStorage(StorageSlot)
		s.dev.Dispatch(prog, cp, groups)
		s.buf.MarkComputeWritten()
		s.dispatches++
		n++
	}
	s.steps += uint64(n)
	return n, nil
}

// AdjustTimeStep changes the simulated time step by delta, clamped at zero,
// and returns the new value.
func (s *Stepper) AdjustTimeStep(delta float32) float32 {
	s.params.TimeStep += delta
	if s.params.TimeStep < 0 {
		s.params.TimeStep = 0
	}
	return s.params.TimeStep
}

func (s *Stepper) TimeStep() float32  { return s.params.TimeStep }
func (s *Stepper) Params() Params     { return s.params }
func (s *Stepper) Clock() *Clock      { return s.clock }
func (s *Stepper) Steps() uint64      { return s.steps }
func (s *Stepper) Dispatches() uint64 { return s.dispatches }
