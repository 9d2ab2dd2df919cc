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

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPointArithmetic(t *testing.T) {
	p := Point{X: 1, Y: 2, Z: 3}
	q := Point{X: -1, Y: 0.5, Z: 2}
	require.Equal(t, Point{X: 0, Y: 2.5, Z: 5}, p.Add(q))
	require.Equal(t, Point{X: 2, Y: 1.5, Z: 1}, p.Sub(q))
	require.Equal(t, Point{X: 2, Y: 4, Z: 6}, p.Scale(2))
}

func TestRotateY(t *testing.T) {
	p := Point{X: 100, Y: 5, Z: 0}

	r := p.RotateY(math.Pi / 2)
	require.InDelta(t, 0, r.X, 1e-9)
	require.InDelta(t, 5, r.Y, 1e-9)
	require.InDelta(t, -100, r.Z, 1e-9)

	// quarter turn the other way
	r = p.RotateY(-math.Pi / 2)
	require.InDelta(t, 0, r.X, 1e-9)
	require.InDelta(t, 100, r.Z, 1e-9)

	// full turn is identity
	r = p.RotateY(2 * math.Pi)
	require.InDelta(t, p.X, r.X, 1e-9)
	require.InDelta(t, p.Z, r.Z, 1e-9)
}

func TestRotateInverse(t *testing.T) {
	e := Euler{Phi: 0.12, Theta: -0.2, Psi: 0.31}
	p := Point{X: 93, Y: -155, Z: 39}
	r := p.Rotate(e).RotateInverse(e)
	require.InDelta(t, p.X, r.X, 1e-9)
	require.InDelta(t, p.Y, r.Y, 1e-9)
	require.InDelta(t, p.Z, r.Z, 1e-9)
}

func TestRotatePreservesLength(t *testing.T) {
	e := Euler{Phi: 0.4, Theta: 0.7, Psi: -1.1}
	p := Point{X: 3, Y: 4, Z: 12}
	r := p.Rotate(e)
	require.InDelta(t, 13, math.Sqrt(r.X*r.X+r.Y*r.Y+r.Z*r.Z), 1e-9)
}

func TestHipAnchor(t *testing.T) {
	d := Dimensions{Length: 186, Width: 78}
	require.Equal(t, Point{X: 93, Z: -39}, d.HipAnchor(FrontLeft))
	require.Equal(t, Point{X: 93, Z: 39}, d.HipAnchor(FrontRight))
	require.Equal(t, Point{X: -93, Z: -39}, d.HipAnchor(RearLeft))
	require.Equal(t, Point{X: -93, Z: 39}, d.HipAnchor(RearRight))
}

func TestServoNames(t *testing.T) {
	names := ServoNames()
	require.Len(t, names, NumServos)
	require.Equal(t, "front_left_shoulder", names[0])
	require.Equal(t, "rear_right_knee", names[len(names)-1])

	seen := map[string]bool{}
	for _, n := range names {
		require.False(t, seen[n], "duplicate servo name %q", n)
		seen[n] = true
	}
	require.Equal(t, "rear_left_hip", ServoName(RearLeft, Hip))
}

func TestLegSides(t *testing.T) {
	require.True(t, FrontLeft.Left())
	require.True(t, FrontLeft.Front())
	require.False(t, RearRight.Left())
	require.False(t, RearRight.Front())
	require.Equal(t, "front_right", FrontRight.String())
}
