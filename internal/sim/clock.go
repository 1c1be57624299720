package sim

import (
	"fmt"
	"time"
)

// Clock is a fixed-timestep accumulator. Elapsed wall time is added with
// Add and drained one FixedStep at a time with Consume; after draining,
// 0 <= Accumulator() < FixedStep().
type Clock struct {
	acc  time.Duration
	step time.Duration
}

func NewClock(step time.Duration) (*Clock, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: fixed step %v", ErrInvalidStep, step)
	}
	return &Clock{step: step}, nil
}

// Add accumulates elapsed wall time. Non-positive samples are ignored so a
// clock that goes backwards never drains time that was not spent.
func (c *Clock) Add(elapsed time.Duration) {
	if elapsed > 0 {
		c.acc += elapsed
	}
}

// Consume removes one fixed step if enough time has accumulated.
func (c *Clock) Consume() bool {
	if c.acc < c.step {
		return false
	}
	c.acc -= c.step
	return true
}

func (c *Clock) Accumulator() time.Duration { return c.acc }
func (c *Clock) FixedStep() time.Duration   { return c.step }

// Alpha is the fraction of a step left in the accumulator.
func (c *Clock) Alpha() float64 { return float64(c.acc) / float64(c.step) }

func (c *Clock) Reset() { c.acc = 0 }
