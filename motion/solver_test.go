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

package motion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/gait"
	"github.com/facebookincubator/spotmicro/kinematics"
)

func standingPose(cfg *gait.Config) body.State {
	return body.State{
		Position: body.Point{Y: cfg.StandHeight},
		Feet:     gait.NeutralStance(cfg),
	}
}

func TestAngleSolverTracksPose(t *testing.T) {
	cfg := gait.DefaultConfig()
	require.NoError(t, cfg.EvalAndValidate())
	s := NewAngleSolver(kinematics.DefaultGeometry(), cfg.Dimensions())

	angles := s.Solve(standingPose(cfg))
	require.Equal(t, uint64(0), s.Unreachable())

	for _, l := range body.Legs {
		// standing legs are bent, not at the zero pose
		require.NotZero(t, angles[l].Phi, "leg %s", l)
		require.Less(t, angles[l].Phi, 3.14, "leg %s", l)
	}
	// same-side legs share hip roll at neutral stance: their targets differ
	// only along X, which the roll axis cannot see
	require.Equal(t, angles[body.FrontLeft].Omega, angles[body.RearLeft].Omega)
	require.Equal(t, angles[body.FrontRight].Omega, angles[body.RearRight].Omega)
	require.Equal(t, angles, s.Angles())
}

func TestAngleSolverHoldsLastValid(t *testing.T) {
	cfg := gait.DefaultConfig()
	require.NoError(t, cfg.EvalAndValidate())
	s := NewAngleSolver(kinematics.DefaultGeometry(), cfg.Dimensions())

	good := s.Solve(standingPose(cfg))
	require.Equal(t, uint64(0), s.Unreachable())

	// drop one foot far below the ground plane; that leg target is beyond
	// full extension while the others stay solvable
	bad := standingPose(cfg)
	bad.Feet[body.FrontLeft].Y = -200

	angles := s.Solve(bad)
	require.Equal(t, uint64(1), s.Unreachable())
	require.Equal(t, good[body.FrontLeft], angles[body.FrontLeft])
	require.Equal(t, good[body.FrontRight], angles[body.FrontRight])

	// same bad pose again keeps counting without corrupting state
	angles = s.Solve(bad)
	require.Equal(t, uint64(2), s.Unreachable())
	require.Equal(t, good[body.FrontLeft], angles[body.FrontLeft])
}

func TestAngleSolverRecovers(t *testing.T) {
	cfg := gait.DefaultConfig()
	require.NoError(t, cfg.EvalAndValidate())
	s := NewAngleSolver(kinematics.DefaultGeometry(), cfg.Dimensions())

	held := s.Solve(standingPose(cfg))

	bad := standingPose(cfg)
	bad.Feet[body.RearRight].Y = -200
	s.Solve(bad)
	require.Equal(t, uint64(1), s.Unreachable())

	// a lower, reachable crouch updates every leg again
	crouch := standingPose(cfg)
	crouch.Position.Y = 120
	angles := s.Solve(crouch)
	require.Equal(t, uint64(1), s.Unreachable())
	for _, l := range body.Legs {
		require.NotEqual(t, held[l], angles[l], "leg %s", l)
	}
}
