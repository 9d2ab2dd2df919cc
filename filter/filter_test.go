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

package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/spotmicro/body"
)

func TestRateLimitedStepResponse(t *testing.T) {
	// tau == dt gives alpha = 0.5, halving the distance every step
	f := NewRateLimited(0.02, 0.02, 0, 0)
	f.SetTarget(1)

	require.InDelta(t, 0.5, f.Step(), 1e-9)
	require.InDelta(t, 0.75, f.Step(), 1e-9)
	require.InDelta(t, 0.875, f.Step(), 1e-9)
	require.InDelta(t, 0.875, f.Output(), 1e-9)
}

func TestRateLimitedSlewCap(t *testing.T) {
	// tau zero passes the target straight through, leaving only the cap
	f := NewRateLimited(0.02, 0, 0, 1.0)
	f.SetTarget(1)

	require.InDelta(t, 0.02, f.Step(), 1e-9)
	require.InDelta(t, 0.04, f.Step(), 1e-9)

	f.SetTarget(-1)
	require.InDelta(t, 0.02, f.Step(), 1e-9)
	require.InDelta(t, 0.0, f.Step(), 1e-9)
}

func TestRateLimitedReset(t *testing.T) {
	f := NewRateLimited(0.02, 0.1, 5, 0)
	f.SetTarget(10)
	f.Step()
	f.Reset(2)
	require.InDelta(t, 2, f.Output(), 1e-9)
	// after reset the target is the reset value too
	require.InDelta(t, 2, f.Step(), 1e-9)
}

func TestPointFilterAxesIndependent(t *testing.T) {
	p := NewPointFilter(0.02, 0.02, body.Point{}, 0)
	out := p.Step(body.Point{X: 2, Y: -4, Z: 8})
	require.InDelta(t, 1, out.X, 1e-9)
	require.InDelta(t, -2, out.Y, 1e-9)
	require.InDelta(t, 4, out.Z, 1e-9)
}

func TestBodyFilterConverges(t *testing.T) {
	initial := body.State{Position: body.Point{Y: 83}}
	target := body.State{
		Position: body.Point{Y: 155},
		Angles:   body.Euler{Phi: 0.1},
	}
	for _, l := range body.Legs {
		target.Feet[l] = body.Point{X: 10, Z: 20}
	}

	b := NewBodyFilter(0.02, 0.02, 0, 0, initial)
	require.False(t, b.Converged(target, 0.001))

	var converged bool
	for i := 0; i < 2000; i++ {
		b.Step(target)
		if b.Converged(target, 0.001) {
			converged = true
			break
		}
	}
	require.True(t, converged, "filter did not settle in 2000 ticks")

	out := b.Output()
	require.InDelta(t, 155, out.Position.Y, 0.001)
	require.InDelta(t, 0.1, out.Angles.Phi, 0.001)
	require.InDelta(t, 20, out.Feet[body.RearRight].Z, 0.001)
}

func TestBodyFilterStartsFromInitial(t *testing.T) {
	initial := body.State{Position: body.Point{X: 3, Y: 100, Z: -2}}
	b := NewBodyFilter(0.02, 0.5, 0, 0, initial)
	require.Equal(t, initial, b.Output())

	// one step toward a distant target barely moves
	out := b.Step(body.State{Position: body.Point{Y: 155}})
	require.Greater(t, out.Position.Y, 100.0)
	require.Less(t, out.Position.Y, 105.0)
}
