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

import (
	"testing"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/stretchr/testify/require"
)

func TestNeutralStance(t *testing.T) {
	cfg := eightPhaseConfig(t)
	feet := NeutralStance(cfg)

	require.Equal(t, body.Point{X: 108, Y: 0, Z: -94}, feet[body.FrontLeft])
	require.Equal(t, body.Point{X: 108, Y: 0, Z: 94}, feet[body.FrontRight])
	require.Equal(t, body.Point{X: -93, Y: 0, Z: -94}, feet[body.RearLeft])
	require.Equal(t, body.Point{X: -93, Y: 0, Z: 94}, feet[body.RearRight])
}

func TestServiceInitialState(t *testing.T) {
	cfg := eightPhaseConfig(t)
	s := NewService(cfg)

	state := s.State()
	require.Equal(t, body.Point{X: 0, Y: 155, Z: 0}, state.Position)
	require.Equal(t, body.Euler{}, state.Angles)
	require.Equal(t, NeutralStance(cfg), state.Feet)
	require.Equal(t, 0, s.Tick())
}

func TestServiceZeroCommandKeepsFootholds(t *testing.T) {
	cfg := eightPhaseConfig(t)
	s := NewService(cfg)
	neutral := NeutralStance(cfg)

	var state body.State
	for i := 0; i < cfg.PhaseLength+1; i++ {
		state = s.Step(Command{})
		for _, l := range body.Legs {
			require.InDelta(t, neutral[l].X, state.Feet[l].X, 1e-9, "tick %d leg %s", i, l)
			require.InDelta(t, neutral[l].Z, state.Feet[l].Z, 1e-9, "tick %d leg %s", i, l)
			require.GreaterOrEqual(t, state.Feet[l].Y, -1e-9, "tick %d leg %s", i, l)
			require.LessOrEqual(t, state.Feet[l].Y, cfg.ZClearance+1e-9, "tick %d leg %s", i, l)
		}
		require.InDelta(t, cfg.StandHeight, state.Position.Y, 1e-12)
		require.Equal(t, body.Euler{}, state.Angles)
	}

	// one full cycle plus one settling tick puts every foot back down
	for _, l := range body.Legs {
		require.InDelta(t, 0.0, state.Feet[l].Y, 1e-9, "leg %s", l)
	}
}

func TestServiceForwardWalk(t *testing.T) {
	cfg := eightPhaseConfig(t)
	s := NewService(cfg)
	neutral := NeutralStance(cfg)
	cmd := Command{XVelocity: 100}

	var state body.State
	for i := 0; i < 3*cfg.PhaseLength; i++ {
		state = s.Step(cmd)
		for _, l := range body.Legs {
			require.InDelta(t, neutral[l].Z, state.Feet[l].Z, 1e-9, "tick %d leg %s", i, l)
			require.GreaterOrEqual(t, state.Feet[l].Y, -1e-9, "tick %d leg %s", i, l)
			if i < cfg.PhaseLength {
				// legs start the first cycle without their usual lead
				continue
			}
			// in steady state feet sweep half a stance ahead to half behind
			require.LessOrEqual(t, state.Feet[l].X-neutral[l].X, 130.0, "tick %d leg %s", i, l)
			require.GreaterOrEqual(t, state.Feet[l].X-neutral[l].X, -130.0, "tick %d leg %s", i, l)
		}

		// rear right swings through phase 1 and lands leading the body
		if i == 2*cfg.SwingTicks-1 {
			lead := cfg.Alpha * float64(cfg.StanceTicks) * cfg.DT * cmd.XVelocity
			require.InDelta(t, neutral[body.RearRight].X+lead, state.Feet[body.RearRight].X, 1e-6)
		}
	}
}

func TestServiceFourPhaseKeepsBodyCentered(t *testing.T) {
	cfg := fourPhaseConfig(t)
	s := NewService(cfg)

	for i := 0; i < 2*cfg.PhaseLength; i++ {
		state := s.Step(Command{XVelocity: 150})
		require.Equal(t, body.Point{X: 0, Y: cfg.StandHeight, Z: 0}, state.Position, "tick %d", i)
	}
}

func TestServiceBodyShiftVisitsCorners(t *testing.T) {
	cfg := eightPhaseConfig(t)
	s := NewService(cfg)

	want := map[int]body.Point{
		1: {X: 35, Y: 155, Z: -15},
		3: {X: -5, Y: 155, Z: -15},
		5: {X: 35, Y: 155, Z: 15},
		7: {X: -5, Y: 155, Z: 15},
	}
	for i := 0; i < cfg.PhaseLength; i++ {
		phase := s.PhaseIndex()
		state := s.Step(Command{})
		if corner, ok := want[phase]; ok {
			require.Equal(t, corner, state.Position, "tick %d", i)
		}
	}
}

func TestServiceClampsCommand(t *testing.T) {
	cfg := eightPhaseConfig(t)
	s := NewService(cfg)

	// tick zero has all feet on the ground; an absurd velocity command
	// moves them by at most the configured maximum
	state := s.Step(Command{XVelocity: 1e9})
	step := cfg.MaxForwardVelocity * cfg.DT
	require.InDelta(t, 108-step, state.Feet[body.FrontLeft].X, 1e-9)
	require.InDelta(t, -93-step, state.Feet[body.RearRight].X, 1e-9)
}

func TestServiceDeterministic(t *testing.T) {
	cfg := eightPhaseConfig(t)
	a := NewService(cfg)
	b := NewService(cfg)

	cmds := []Command{
		{XVelocity: 100},
		{XVelocity: 100, YawRate: 0.1},
		{YVelocity: -80},
		{},
	}
	for i := 0; i < 4*cfg.PhaseLength; i++ {
		cmd := cmds[i%len(cmds)]
		require.Equal(t, a.Step(cmd), b.Step(cmd), "tick %d", i)
	}
}

func TestServiceReset(t *testing.T) {
	cfg := eightPhaseConfig(t)
	s := NewService(cfg)

	var first []body.State
	for i := 0; i < 50; i++ {
		first = append(first, s.Step(Command{XVelocity: 100, YawRate: 0.2}))
	}

	s.Reset()
	require.Equal(t, 0, s.Tick())
	require.Equal(t, NeutralStance(cfg), s.State().Feet)
	require.Equal(t, body.Point{X: 0, Y: 155, Z: 0}, s.State().Position)

	for i := 0; i < 50; i++ {
		require.Equal(t, first[i], s.Step(Command{XVelocity: 100, YawRate: 0.2}), "tick %d", i)
	}
}
