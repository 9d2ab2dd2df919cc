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

// Package filter implements the rate-limited first-order low-pass filters
// that smooth body pose changes. The low pass bounds velocity toward the
// target, the rate limit caps the per-step output change, together keeping
// transitions mechanically safe.
package filter

import (
	"github.com/facebookincubator/spotmicro/body"
)

// RateLimited is a discrete first-order low-pass filter with an additional
// cap on how far the output may move per step.
type RateLimited struct {
	dt        float64
	alpha     float64
	rateLimit float64
	target    float64
	output    float64
}

// NewRateLimited returns a filter stepping at dt seconds with time constant
// tau, starting at x0. rateLimit is the maximum output slew in units per
// second; zero or negative disables the cap.
func NewRateLimited(dt, tau, x0, rateLimit float64) *RateLimited {
	return &RateLimited{
		dt:        dt,
		alpha:     dt / (tau + dt),
		rateLimit: rateLimit,
		target:    x0,
		output:    x0,
	}
}

// SetTarget sets the value the output converges toward.
func (f *RateLimited) SetTarget(v float64) {
	f.target = v
}

// Step advances the filter one period and returns the new output.
func (f *RateLimited) Step() float64 {
	prev := f.output
	next := (1-f.alpha)*prev + f.alpha*f.target

	if f.rateLimit > 0 {
		maxStep := f.rateLimit * f.dt
		if next > prev+maxStep {
			next = prev + maxStep
		} else if next < prev-maxStep {
			next = prev - maxStep
		}
	}

	f.output = next
	return next
}

// Output returns the current output without stepping.
func (f *RateLimited) Output() float64 {
	return f.output
}

// Reset forces both output and target to x0.
func (f *RateLimited) Reset(x0 float64) {
	f.target = x0
	f.output = x0
}

// PointFilter filters the three axes of a point independently.
type PointFilter struct {
	x *RateLimited
	y *RateLimited
	z *RateLimited
}

// NewPointFilter returns a PointFilter starting at x0.
func NewPointFilter(dt, tau float64, x0 body.Point, rateLimit float64) *PointFilter {
	return &PointFilter{
		x: NewRateLimited(dt, tau, x0.X, rateLimit),
		y: NewRateLimited(dt, tau, x0.Y, rateLimit),
		z: NewRateLimited(dt, tau, x0.Z, rateLimit),
	}
}

// Step moves the output one period toward target and returns it.
func (p *PointFilter) Step(target body.Point) body.Point {
	p.x.SetTarget(target.X)
	p.y.SetTarget(target.Y)
	p.z.SetTarget(target.Z)
	return body.Point{X: p.x.Step(), Y: p.y.Step(), Z: p.z.Step()}
}

// Output returns the current output point.
func (p *PointFilter) Output() body.Point {
	return body.Point{X: p.x.Output(), Y: p.y.Output(), Z: p.z.Output()}
}

// Reset forces the filter to x0.
func (p *PointFilter) Reset(x0 body.Point) {
	p.x.Reset(x0.X)
	p.y.Reset(x0.Y)
	p.z.Reset(x0.Z)
}

// BodyFilter filters a full body posture: four feet, body position and body
// attitude. Angles carry their own rate limit since radians and millimeters
// slew at very different scales.
type BodyFilter struct {
	feet     [body.NumLegs]*PointFilter
	position *PointFilter
	phi      *RateLimited
	theta    *RateLimited
	psi      *RateLimited
}

// NewBodyFilter returns a BodyFilter whose outputs start at the given
// state, so a transition begins from wherever the body actually is.
func NewBodyFilter(dt, tau, rateLimit, angleRateLimit float64, initial body.State) *BodyFilter {
	b := &BodyFilter{
		position: NewPointFilter(dt, tau, initial.Position, rateLimit),
		phi:      NewRateLimited(dt, tau, initial.Angles.Phi, angleRateLimit),
		theta:    NewRateLimited(dt, tau, initial.Angles.Theta, angleRateLimit),
		psi:      NewRateLimited(dt, tau, initial.Angles.Psi, angleRateLimit),
	}
	for _, l := range body.Legs {
		b.feet[l] = NewPointFilter(dt, tau, initial.Feet[l], rateLimit)
	}
	return b
}

// Step moves the whole posture one period toward target.
func (b *BodyFilter) Step(target body.State) body.State {
	var out body.State
	for _, l := range body.Legs {
		out.Feet[l] = b.feet[l].Step(target.Feet[l])
	}
	out.Position = b.position.Step(target.Position)
	b.phi.SetTarget(target.Angles.Phi)
	b.theta.SetTarget(target.Angles.Theta)
	b.psi.SetTarget(target.Angles.Psi)
	out.Angles = body.Euler{Phi: b.phi.Step(), Theta: b.theta.Step(), Psi: b.psi.Step()}
	return out
}

// Output returns the current posture without stepping.
func (b *BodyFilter) Output() body.State {
	var out body.State
	for _, l := range body.Legs {
		out.Feet[l] = b.feet[l].Output()
	}
	out.Position = b.position.Output()
	out.Angles = body.Euler{Phi: b.phi.Output(), Theta: b.theta.Output(), Psi: b.psi.Output()}
	return out
}

// Reset forces the whole posture to the given state.
func (b *BodyFilter) Reset(s body.State) {
	for _, l := range body.Legs {
		b.feet[l].Reset(s.Feet[l])
	}
	b.position.Reset(s.Position)
	b.phi.Reset(s.Angles.Phi)
	b.theta.Reset(s.Angles.Theta)
	b.psi.Reset(s.Angles.Psi)
}

// Converged reports whether every scalar of the current output is within
// tol of the corresponding scalar of target.
func (b *BodyFilter) Converged(target body.State, tol float64) bool {
	out := b.Output()
	pairs := [][2]float64{
		{out.Position.X, target.Position.X},
		{out.Position.Y, target.Position.Y},
		{out.Position.Z, target.Position.Z},
		{out.Angles.Phi, target.Angles.Phi},
		{out.Angles.Theta, target.Angles.Theta},
		{out.Angles.Psi, target.Angles.Psi},
	}
	for _, l := range body.Legs {
		pairs = append(pairs,
			[2]float64{out.Feet[l].X, target.Feet[l].X},
			[2]float64{out.Feet[l].Y, target.Feet[l].Y},
			[2]float64{out.Feet[l].Z, target.Feet[l].Z},
		)
	}
	for _, pair := range pairs {
		diff := pair[0] - pair[1]
		if diff < -tol || diff > tol {
			return false
		}
	}
	return true
}
