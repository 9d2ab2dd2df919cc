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
	"github.com/facebookincubator/spotmicro/kinematics"
)

// AngleSolver tracks commanded poses with per-leg joint angles. A leg whose
// target falls outside the reachable workspace keeps its last valid angles,
// so one bad target never turns into a garbage servo command while the
// other legs keep tracking.
type AngleSolver struct {
	geo         kinematics.Geometry
	dims        body.Dimensions
	angles      [body.NumLegs]kinematics.Angles
	unreachable uint64
}

// NewAngleSolver returns a solver for the given leg geometry and hip
// layout. Until the first successful solve a leg holds zero angles.
func NewAngleSolver(geo kinematics.Geometry, dims body.Dimensions) *AngleSolver {
	return &AngleSolver{geo: geo, dims: dims}
}

// Solve computes joint angles for every leg of the pose. Unreachable legs
// keep their previous angles and bump the unreachable counter.
func (s *AngleSolver) Solve(pose body.State) [body.NumLegs]kinematics.Angles {
	targets := kinematics.LegTargets(pose, s.dims)
	for _, l := range body.Legs {
		a, err := kinematics.Solve(targets[l], s.geo)
		if err != nil {
			s.unreachable++
			log.Warningf("%s target (%.1f, %.1f, %.1f) unreachable, holding last angles: %v",
				l, targets[l].X, targets[l].Y, targets[l].Z, err)
			continue
		}
		s.angles[l] = a
	}
	return s.angles
}

// Angles returns the angles from the last Solve.
func (s *AngleSolver) Angles() [body.NumLegs]kinematics.Angles {
	return s.angles
}

// Unreachable returns how many leg solves have failed since start.
func (s *AngleSolver) Unreachable() uint64 {
	return s.unreachable
}
