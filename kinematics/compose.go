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

package kinematics

import (
	"github.com/facebookincubator/spotmicro/body"
)

// LegTarget converts one foot of a body posture into that leg's solver
// target. The foot and body position live in the ground-anchored gait frame
// (+Y up); the result is relative to the leg's hip pivot in the solver
// frame (+Y down). Body attitude is removed with the inverse rotation so a
// tilted body presses the correct legs down. Left-leg targets are mirrored
// across the leg's sagittal plane, so the solver always works on the same
// right-handed linkage; the servo map flips the mirrored joints back.
func LegTarget(s body.State, l body.Leg, d body.Dimensions) body.Point {
	rel := s.Feet[l].Sub(s.Position).RotateInverse(s.Angles).Sub(d.HipAnchor(l))
	if l.Left() {
		rel.Z = -rel.Z
	}
	return body.Point{X: rel.X, Y: -rel.Y, Z: rel.Z}
}

// LegTargets converts all four feet at once.
func LegTargets(s body.State, d body.Dimensions) [body.NumLegs]body.Point {
	var targets [body.NumLegs]body.Point
	for _, l := range body.Legs {
		targets[l] = LegTarget(s, l, d)
	}
	return targets
}
