/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package gait

import "github.com/facebookincubator/spotmicro/body"

// PhaseClock tracks where in the gait cycle the current tick falls. The
// cycle is PhaseLength ticks long and divided into NumPhases phases of
// PhaseTicks[i] ticks each; the clock resolves a tick into a phase index
// plus the tick count inside that phase.
type PhaseClock struct {
	cfg           *Config
	tick          int
	phaseIndex    int
	subphaseTicks int
}

// NewPhaseClock returns a clock positioned at tick zero. The config must
// have passed EvalAndValidate.
func NewPhaseClock(cfg *Config) *PhaseClock {
	c := &PhaseClock{cfg: cfg}
	c.locate()
	return c
}

// Advance moves the clock one tick forward, wrapping at the cycle length.
func (c *PhaseClock) Advance() {
	c.tick = (c.tick + 1) % c.cfg.PhaseLength
	c.locate()
}

// Reset rewinds the clock to tick zero.
func (c *PhaseClock) Reset() {
	c.tick = 0
	c.locate()
}

func (c *PhaseClock) locate() {
	acc := 0
	for i, ticks := range c.cfg.PhaseTicks {
		acc += ticks
		if c.tick < acc {
			c.phaseIndex = i
			c.subphaseTicks = c.tick - acc + ticks
			return
		}
	}
	// unreachable for a validated config; tick is kept below PhaseLength
	c.phaseIndex = len(c.cfg.PhaseTicks) - 1
	c.subphaseTicks = 0
}

// Tick returns the position within the cycle, in [0, PhaseLength).
func (c *PhaseClock) Tick() int {
	return c.tick
}

// PhaseIndex returns the current phase, in [0, NumPhases).
func (c *PhaseClock) PhaseIndex() int {
	return c.phaseIndex
}

// SubphaseTicks returns how many ticks of the current phase have elapsed.
func (c *PhaseClock) SubphaseTicks() int {
	return c.subphaseTicks
}

// InSwing reports whether the leg is airborne during the current phase.
func (c *PhaseClock) InSwing(l body.Leg) bool {
	return c.cfg.ContactTable(l)[c.phaseIndex] == 0
}

// SwingProgress returns how far through its swing the leg is, in [0, 1),
// or zero when the leg is on the ground.
func (c *PhaseClock) SwingProgress(l body.Leg) float64 {
	if !c.InSwing(l) {
		return 0
	}
	return float64(c.subphaseTicks) / float64(c.cfg.SwingTicks)
}
