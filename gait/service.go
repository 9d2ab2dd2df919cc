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

// Service generates the walking motion. Each Step advances the phase clock
// one control tick and returns the new body posture: foot positions from
// the per-leg trajectory controllers plus the balance-shifted body position.
// Body angles stay zero while walking; attitude control belongs to the
// standing states.
type Service struct {
	cfg     *Config
	clock   *PhaseClock
	neutral [body.NumLegs]body.Point
	state   body.State
}

// NewService returns a Service positioned at the neutral stance with the
// phase clock at tick zero. The config must have passed EvalAndValidate.
func NewService(cfg *Config) *Service {
	s := &Service{
		cfg:     cfg,
		clock:   NewPhaseClock(cfg),
		neutral: NeutralStance(cfg),
	}
	s.state = s.initialState()
	return s
}

// NeutralStance returns the default foothold for each leg: feet on the
// ground directly under the hip anchors, widened by the hip link and pushed
// forward by the per-end stand offsets.
func NeutralStance(cfg *Config) [body.NumLegs]body.Point {
	halfLength := cfg.BodyLength / 2
	halfWidth := cfg.BodyWidth / 2
	var feet [body.NumLegs]body.Point
	for _, l := range body.Legs {
		x := halfLength + cfg.StandFrontXOffset
		if !l.Front() {
			x = -halfLength + cfg.StandBackXOffset
		}
		z := halfWidth + cfg.HipLength
		if l.Left() {
			z = -z
		}
		feet[l] = body.Point{X: x, Y: 0, Z: z}
	}
	return feet
}

// LieStance returns the crouched foothold for each leg: all feet shifted
// the same distance forward of the hip anchors so the folded legs stay
// clear of each other.
func LieStance(cfg *Config) [body.NumLegs]body.Point {
	halfLength := cfg.BodyLength / 2
	halfWidth := cfg.BodyWidth / 2
	var feet [body.NumLegs]body.Point
	for _, l := range body.Legs {
		x := halfLength + cfg.LieFeetXOffset
		if !l.Front() {
			x = -halfLength + cfg.LieFeetXOffset
		}
		z := halfWidth + cfg.HipLength
		if l.Left() {
			z = -z
		}
		feet[l] = body.Point{X: x, Y: 0, Z: z}
	}
	return feet
}

func (s *Service) initialState() body.State {
	return body.State{
		Position: body.Point{X: 0, Y: s.cfg.StandHeight, Z: 0},
		Feet:     s.neutral,
	}
}

// Step advances the gait one tick under the given command and returns the
// resulting posture. The command is clamped to the configured limits first.
func (s *Service) Step(cmd Command) body.State {
	cmd = cmd.Clamped(s.cfg)

	var feet [body.NumLegs]body.Point
	for _, l := range body.Legs {
		if s.clock.InSwing(l) {
			feet[l] = swingStep(s.state.Feet[l], cmd, s.cfg, s.clock.SwingProgress(l), s.neutral[l])
		} else {
			feet[l] = stanceStep(s.state.Feet[l], cmd, s.cfg)
		}
	}

	pos := body.Point{X: 0, Y: s.cfg.StandHeight, Z: 0}
	if s.cfg.NumPhases == 8 {
		pos = bodyShiftStep(s.state.Position, s.cfg, s.clock.PhaseIndex(), s.clock.SubphaseTicks())
	}

	s.state = body.State{Position: pos, Feet: feet}
	s.clock.Advance()
	return s.state
}

// Reset rewinds the clock to tick zero and puts the feet back at the
// neutral stance.
func (s *Service) Reset() {
	s.clock.Reset()
	s.state = s.initialState()
}

// State returns the posture produced by the last Step, or the initial
// stance before the first one.
func (s *Service) State() body.State {
	return s.state
}

// PhaseIndex returns the phase the next Step will execute in.
func (s *Service) PhaseIndex() int {
	return s.clock.PhaseIndex()
}

// Tick returns the cycle position the next Step will execute at.
func (s *Service) Tick() int {
	return s.clock.Tick()
}
