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

// Package motion runs the robot's mode state machine. Each control tick the
// machine feeds the latest operator command to the active state, which
// produces the commanded body pose: released on the ground in idle, filtered
// interpolation during transitions, attitude hold while standing, and the
// gait service while walking. The per-leg angle solver turns those poses
// into joint angles for the actuation layer.
package motion

import (
	log "github.com/sirupsen/logrus"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/filter"
	"github.com/facebookincubator/spotmicro/gait"
)

// StateName identifies a state of the motion machine.
type StateName string

// the five modes of the robot
const (
	Idle         StateName = "idle"
	TransitStand StateName = "transit_stand"
	Stand        StateName = "stand"
	Walk         StateName = "walk"
	TransitIdle  StateName = "transit_idle"
)

// StateNames lists every state for iteration.
var StateNames = []StateName{Idle, TransitStand, Stand, Walk, TransitIdle}

// State is one mode of the motion machine. HandleEvent inspects the command
// and names the state to switch to, or returns the empty string to stay.
// Update produces the commanded pose for the current tick.
type State interface {
	Name() StateName
	Enter(m *Machine)
	HandleEvent(m *Machine, cmd gait.Command) StateName
	Update(m *Machine, cmd gait.Command) body.State
	Exit(m *Machine)
}

// FilterConfig tunes the pose filters used by the standing and transition
// states, and the convergence tolerance that ends a transition.
type FilterConfig struct {
	// Tau is the filter time constant, seconds
	Tau float64 `yaml:"tau"`
	// RateLimit caps position slew, mm/s
	RateLimit float64 `yaml:"ratelimit"`
	// AngleRateLimit caps attitude slew, rad/s
	AngleRateLimit float64 `yaml:"angleratelimit"`
	// Tolerance is the per-scalar convergence threshold
	Tolerance float64 `yaml:"tolerance"`
}

// DefaultFilterConfig returns the stock transition filter tuning.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Tau:            0.3,
		RateLimit:      60,
		AngleRateLimit: 0.35,
		Tolerance:      0.001,
	}
}

// Machine dispatches control ticks to the active state and tracks the
// commanded pose. It starts in idle with the body lying down. Not safe for
// concurrent use; the control loop owns it.
type Machine struct {
	cfg     *gait.Config
	fc      FilterConfig
	svc     *gait.Service
	filters *filter.BodyFilter
	states  map[StateName]State
	current State
	pose    body.State
	ticks   uint64
}

// NewMachine returns a machine in the idle state at the lie-down pose.
// The gait config must have passed EvalAndValidate.
func NewMachine(cfg *gait.Config, fc FilterConfig) *Machine {
	m := &Machine{
		cfg: cfg,
		fc:  fc,
		svc: gait.NewService(cfg),
		pose: body.State{
			Position: body.Point{Y: cfg.LieHeight},
			Feet:     gait.LieStance(cfg),
		},
	}
	m.filters = filter.NewBodyFilter(cfg.DT, fc.Tau, fc.RateLimit, fc.AngleRateLimit, m.pose)
	m.states = map[StateName]State{
		Idle:         &idleState{},
		TransitStand: newTransitStand(),
		Stand:        &standState{},
		Walk:         &walkState{},
		TransitIdle:  newTransitIdle(),
	}
	m.current = m.states[Idle]
	m.current.Enter(m)
	return m
}

// Tick advances the machine one control period: the command may switch
// states, then the active state produces the pose. The returned pose is
// what the angle solver should track this tick.
func (m *Machine) Tick(cmd gait.Command) body.State {
	cmd = cmd.Clamped(m.cfg)
	if next := m.current.HandleEvent(m, cmd); next != "" && next != m.current.Name() {
		m.transition(next)
	}
	m.pose = m.current.Update(m, cmd)
	m.ticks++
	return m.pose
}

func (m *Machine) transition(next StateName) {
	to, ok := m.states[next]
	if !ok {
		log.Errorf("ignoring transition from %s to unknown state %s", m.current.Name(), next)
		return
	}
	log.Infof("state transition %s -> %s", m.current.Name(), next)
	m.current.Exit(m)
	m.current = to
	m.current.Enter(m)
}

// CurrentState returns the name of the active state.
func (m *Machine) CurrentState() StateName {
	return m.current.Name()
}

// IsIdle reports whether the servos should be released.
func (m *Machine) IsIdle() bool {
	return m.current.Name() == Idle
}

// Pose returns the pose commanded by the last Tick.
func (m *Machine) Pose() body.State {
	return m.pose
}

// Ticks returns how many control ticks the machine has run.
func (m *Machine) Ticks() uint64 {
	return m.ticks
}

// PhaseIndex returns the gait phase the walk state is in. Outside of walk
// it reports the phase walking would resume at.
func (m *Machine) PhaseIndex() int {
	return m.svc.PhaseIndex()
}
