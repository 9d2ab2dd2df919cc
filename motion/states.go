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
	log "github.com/sirupsen/logrus"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/gait"
)

// idleState keeps the robot lying down with the servos released. The pose
// does not move; the daemon reads IsIdle and stops driving the servos.
type idleState struct{}

func (s *idleState) Name() StateName { return Idle }

func (s *idleState) Enter(m *Machine) {
	log.Debug("idle: releasing servos")
}

func (s *idleState) HandleEvent(m *Machine, cmd gait.Command) StateName {
	if cmd.Stand {
		return TransitStand
	}
	return ""
}

func (s *idleState) Update(m *Machine, cmd gait.Command) body.State {
	return m.pose
}

func (s *idleState) Exit(m *Machine) {
	log.Debug("idle: engaging servos")
}

func standPose(m *Machine) body.State {
	return body.State{
		Position: body.Point{Y: m.cfg.StandHeight},
		Feet:     gait.NeutralStance(m.cfg),
	}
}

func liePose(m *Machine) body.State {
	return body.State{
		Position: body.Point{Y: m.cfg.LieHeight},
		Feet:     gait.LieStance(m.cfg),
	}
}

// transitState glides the body between two rest poses through the shared
// pose filters and hands over to the next state once every filtered scalar
// is within tolerance of the target. Mode requests are ignored until the
// transition completes.
type transitState struct {
	name   StateName
	next   StateName
	target func(m *Machine) body.State
}

func newTransitStand() *transitState {
	return &transitState{name: TransitStand, next: Stand, target: standPose}
}

func newTransitIdle() *transitState {
	return &transitState{name: TransitIdle, next: Idle, target: liePose}
}

func (s *transitState) Name() StateName { return s.name }

func (s *transitState) Enter(m *Machine) {
	// start the glide from wherever the body is right now
	m.filters.Reset(m.pose)
}

func (s *transitState) HandleEvent(m *Machine, cmd gait.Command) StateName {
	if m.filters.Converged(s.target(m), m.fc.Tolerance) {
		return s.next
	}
	return ""
}

func (s *transitState) Update(m *Machine, cmd gait.Command) body.State {
	return m.filters.Step(s.target(m))
}

func (s *transitState) Exit(m *Machine) {}

// standState holds the neutral stance and steers the body attitude after
// the operator's roll, pitch and yaw targets, smoothed by the angle
// filters. Feet and body position stay pinned to the standing pose.
type standState struct{}

func (s *standState) Name() StateName { return Stand }

func (s *standState) Enter(m *Machine) {
	// pin position and feet exactly on the standing pose; the residual
	// transition error is below tolerance
	m.filters.Reset(standPose(m))
}

func (s *standState) HandleEvent(m *Machine, cmd gait.Command) StateName {
	if cmd.Idle {
		return TransitIdle
	}
	if cmd.Walk {
		return Walk
	}
	return ""
}

func (s *standState) Update(m *Machine, cmd gait.Command) body.State {
	target := standPose(m)
	target.Angles = body.Euler{Phi: cmd.Roll, Theta: cmd.Pitch, Psi: cmd.Yaw}
	return m.filters.Step(target)
}

func (s *standState) Exit(m *Machine) {}

// walkState runs the gait service. The gait trajectories are already
// continuous so its output bypasses the pose filters; they are re-seeded
// on exit by the next transition's Enter.
type walkState struct{}

func (s *walkState) Name() StateName { return Walk }

func (s *walkState) Enter(m *Machine) {
	// restart the cycle so the first swing begins from a known phase
	m.svc.Reset()
}

func (s *walkState) HandleEvent(m *Machine, cmd gait.Command) StateName {
	if cmd.Stand {
		return TransitStand
	}
	if cmd.Idle {
		return TransitIdle
	}
	return ""
}

func (s *walkState) Update(m *Machine, cmd gait.Command) body.State {
	return m.svc.Step(cmd)
}

func (s *walkState) Exit(m *Machine) {}
