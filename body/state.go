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

package body

import "fmt"

// Leg identifies one of the four legs.
type Leg int

// Legs in stance order
const (
	FrontLeft Leg = iota
	FrontRight
	RearLeft
	RearRight
)

// NumLegs is the number of legs on the robot
const NumLegs = 4

// Legs lists all legs for iteration.
var Legs = [NumLegs]Leg{FrontLeft, FrontRight, RearLeft, RearRight}

func (l Leg) String() string {
	switch l {
	case FrontLeft:
		return "front_left"
	case FrontRight:
		return "front_right"
	case RearLeft:
		return "rear_left"
	case RearRight:
		return "rear_right"
	}
	return "unknown"
}

// Front reports whether the leg is one of the front pair.
func (l Leg) Front() bool {
	return l == FrontLeft || l == FrontRight
}

// Left reports whether the leg is on the robot's left side.
func (l Leg) Left() bool {
	return l == FrontLeft || l == RearLeft
}

// Joint identifies one of the three joints of a leg, from the body outward.
type Joint int

// Joints of a leg: Shoulder rolls the leg plane, Hip pitches the upper leg,
// Knee folds the lower leg.
const (
	Shoulder Joint = iota
	Hip
	Knee
)

// NumJoints is the number of joints per leg
const NumJoints = 3

// NumServos is the total servo channel count
const NumServos = NumLegs * NumJoints

// Joints lists all joints for iteration.
var Joints = [NumJoints]Joint{Shoulder, Hip, Knee}

func (j Joint) String() string {
	switch j {
	case Shoulder:
		return "shoulder"
	case Hip:
		return "hip"
	case Knee:
		return "knee"
	}
	return "unknown"
}

// ServoName returns the configuration key for one servo, such as
// "front_left_knee".
func ServoName(l Leg, j Joint) string {
	return fmt.Sprintf("%s_%s", l, j)
}

// ServoNames returns all twelve servo names in leg-major order.
func ServoNames() []string {
	names := make([]string, 0, NumServos)
	for _, l := range Legs {
		for _, j := range Joints {
			names = append(names, ServoName(l, j))
		}
	}
	return names
}

// State is the robot's full instantaneous posture: body position and
// attitude plus the four foot positions. Feet are kept in the ground-anchored
// gait frame where a foot flat on the ground has Y=0 and Position.Y is the
// body height above the ground.
type State struct {
	Position Point
	Angles   Euler
	Feet     [NumLegs]Point
}

// Dimensions describes the rectangle of hip anchor points.
type Dimensions struct {
	Length float64
	Width  float64
}

// HipAnchor returns the position of a leg's hip pivot in the body frame.
func (d Dimensions) HipAnchor(l Leg) Point {
	x := d.Length / 2
	if !l.Front() {
		x = -x
	}
	z := d.Width / 2
	if l.Left() {
		z = -z
	}
	return Point{X: x, Z: z}
}
