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

// Package body holds the geometric vocabulary shared by the gait, kinematics
// and motion packages: points, body attitude, leg and joint identifiers and
// the full body posture. The body frame has +X pointing forward, +Y up and
// +Z to the robot's right. All lengths are millimeters, all angles radians.
package body

import (
	"math"
)

// Point is a position or displacement in the body frame, in millimeters.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f, Z: p.Z * f}
}

// RotateY rotates p about the vertical axis by angle radians.
func (p Point) RotateY(angle float64) Point {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Point{
		X: cos*p.X + sin*p.Z,
		Y: p.Y,
		Z: -sin*p.X + cos*p.Z,
	}
}

func (p Point) rotateX(angle float64) Point {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Point{
		X: p.X,
		Y: cos*p.Y - sin*p.Z,
		Z: sin*p.Y + cos*p.Z,
	}
}

func (p Point) rotateZ(angle float64) Point {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Point{
		X: cos*p.X - sin*p.Y,
		Y: sin*p.X + cos*p.Y,
		Z: p.Z,
	}
}

// Euler is the body attitude: Phi is roll about X, Psi is yaw about Y and
// Theta is pitch about Z.
type Euler struct {
	Phi   float64
	Theta float64
	Psi   float64
}

// Rotate applies the body rotation Rx(Phi)*Ry(Psi)*Rz(Theta) to p.
func (p Point) Rotate(e Euler) Point {
	return p.rotateZ(e.Theta).RotateY(e.Psi).rotateX(e.Phi)
}

// RotateInverse applies the inverse of Rotate, mapping a body-frame point
// into the rotated frame.
func (p Point) RotateInverse(e Euler) Point {
	return p.rotateX(-e.Phi).RotateY(-e.Psi).rotateZ(-e.Theta)
}
