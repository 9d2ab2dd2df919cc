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

// Package kinematics solves the closed-form inverse kinematics of a
// two-link leg with a hip-roll (coxa) offset, and composes body posture
// into per-leg solver targets. The solver frame has +X forward, +Y down
// toward the ground and +Z to the robot's right; inputs are millimeters,
// outputs radians.
package kinematics

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"

	"github.com/facebookincubator/spotmicro/body"
)

// Geometry describes one leg's linkage. All legs share the same geometry;
// left/right mounting differences are part of the servo mapping, not the
// solver.
type Geometry struct {
	// UpperLeg is the femur link length
	UpperLeg float64 `yaml:"upperleg"`
	// LowerLeg is the tibia link length
	LowerLeg float64 `yaml:"lowerleg"`
	// CoxaOffset is the displacement between the hip-roll axis and the leg
	// plane
	CoxaOffset float64 `yaml:"coxaoffset"`
	// ShoulderOffset is the fixed displacement between the hip pivot and the
	// shoulder servo axis, subtracted from every target before solving
	ShoulderOffset body.Point `yaml:"shoulderoffset"`
}

// DefaultGeometry returns the stock SpotMicro leg linkage.
func DefaultGeometry() Geometry {
	return Geometry{
		UpperLeg:       110.0,
		LowerLeg:       130.0,
		CoxaOffset:     57.7,
		ShoulderOffset: body.Point{X: 24.55, Y: 10.0, Z: 57.7},
	}
}

// MinReach returns the inner radius of the reachable annulus.
func (g Geometry) MinReach() float64 {
	return math.Abs(g.UpperLeg - g.LowerLeg)
}

// MaxReach returns the outer radius of the reachable annulus.
func (g Geometry) MaxReach() float64 {
	return g.UpperLeg + g.LowerLeg
}

// Angles are the three joint angles of one leg in radians. Omega rolls the
// leg plane about X, Theta pitches the upper leg, Phi is the interior knee
// angle between the two links (pi when the leg is fully extended).
type Angles struct {
	Omega float64
	Theta float64
	Phi   float64
}

// Joint returns the angle driving the given joint.
func (a Angles) Joint(j body.Joint) float64 {
	switch j {
	case body.Shoulder:
		return a.Omega
	case body.Hip:
		return a.Theta
	}
	return a.Phi
}

// UnreachableTargetError reports a foot target outside the leg's reachable
// volume, carrying the offending metric and its bounds.
type UnreachableTargetError struct {
	Metric string
	Value  float64
	Min    float64
	Max    float64
}

func (e *UnreachableTargetError) Error() string {
	if math.IsInf(e.Max, 1) {
		return fmt.Sprintf("unreachable target: %s %.2f below minimum %.2f", e.Metric, e.Value, e.Min)
	}
	return fmt.Sprintf("unreachable target: %s %.2f outside [%.2f, %.2f]", e.Metric, e.Value, e.Min, e.Max)
}

// Solve computes the joint angles that place the foot at target, given in
// the solver frame relative to the hip pivot. It is pure and carries no
// state. Targets outside the reachable volume return
// *UnreachableTargetError; the caller decides whether that is recoverable.
func Solve(target body.Point, g Geometry) (Angles, error) {
	xp := target.X - g.ShoulderOffset.X
	yp := target.Y - g.ShoulderOffset.Y
	zp := target.Z - g.ShoulderOffset.Z

	yzSq := zp*zp + yp*yp
	if yzSq < g.CoxaOffset*g.CoxaOffset {
		return Angles{}, &UnreachableTargetError{
			Metric: "yz distance",
			Value:  math.Sqrt(yzSq),
			Min:    g.CoxaOffset,
			Max:    math.Inf(1),
		}
	}

	// projection of the foot into the leg plane, past the coxa offset
	d := math.Sqrt(yzSq - g.CoxaOffset*g.CoxaOffset)
	reach := math.Sqrt(d*d + xp*xp)
	if reach < g.MinReach() || reach > g.MaxReach() {
		return Angles{}, &UnreachableTargetError{
			Metric: "reach",
			Value:  reach,
			Min:    g.MinReach(),
			Max:    g.MaxReach(),
		}
	}

	omega := math.Atan2(zp, yp)

	// law of cosines for the knee; clamping absorbs float overshoot at the
	// boundary of reach and is never an error
	cosPhi := clamp((g.UpperLeg*g.UpperLeg+g.LowerLeg*g.LowerLeg-reach*reach)/(2*g.UpperLeg*g.LowerLeg), -1, 1)
	phi := math.Acos(cosPhi)

	theta := math.Atan2(xp, d) + math.Asin(clamp(g.LowerLeg*math.Sin(phi)/reach, -1, 1))

	return Angles{Omega: omega, Theta: theta, Phi: phi}, nil
}

// Forward is the exact inverse of Solve: it returns the foot position, in
// the solver frame relative to the hip pivot, produced by the given joint
// angles.
func Forward(a Angles, g Geometry) body.Point {
	reach := math.Sqrt(g.UpperLeg*g.UpperLeg + g.LowerLeg*g.LowerLeg - 2*g.UpperLeg*g.LowerLeg*math.Cos(a.Phi))

	alpha := a.Theta
	if reach > 0 {
		alpha -= math.Asin(clamp(g.LowerLeg*math.Sin(a.Phi)/reach, -1, 1))
	}
	xp := reach * math.Sin(alpha)
	d := reach * math.Cos(alpha)

	r := math.Sqrt(d*d + g.CoxaOffset*g.CoxaOffset)
	yp := r * math.Cos(a.Omega)
	zp := r * math.Sin(a.Omega)

	return body.Point{X: xp, Y: yp, Z: zp}.Add(g.ShoulderOffset)
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
