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

package actuation

import (
	"sync"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/kinematics"
)

// Fake is an Actuator that records what it would have sent to hardware.
// The daemon uses it to run without a servo controller attached and tests
// use it to observe committed poses and to inject transmission failures.
type Fake struct {
	mu        sync.Mutex
	servos    ServoMap
	staged    []uint16
	frames    [][]uint16
	rests     int
	stops     int
	closed    bool
	commitErr error
	restErr   error
}

// NewFake validates the servo map and returns a recording actuator.
func NewFake(servos ServoMap) (*Fake, error) {
	if err := servos.Validate(); err != nil {
		return nil, err
	}
	return &Fake{
		servos: servos,
		staged: servos.RestTargets(),
	}, nil
}

// Stage records the servo targets for the next Commit.
func (f *Fake) Stage(angles [body.NumLegs]kinematics.Angles) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged = f.servos.Targets(angles)
}

// Commit records the staged frame, or fails if a commit error is armed.
func (f *Fake) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return f.commitErr
	}
	f.record(f.staged)
	return nil
}

// Rest stages and records the rest frame, or fails if a rest error is
// armed.
func (f *Fake) Rest() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restErr != nil {
		return f.restErr
	}
	f.staged = f.servos.RestTargets()
	f.record(f.staged)
	f.rests++
	return nil
}

// Deactivate counts the request without recording a frame.
func (f *Fake) Deactivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

// Close marks the actuator closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// SetCommitError arms or clears a failure returned by subsequent Commits.
func (f *Fake) SetCommitError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commitErr = err
}

// SetRestError arms or clears a failure returned by subsequent Rests.
func (f *Fake) SetRestError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restErr = err
}

// Frames returns a copy of every committed target frame, oldest first.
func (f *Fake) Frames() [][]uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([][]uint16, len(f.frames))
	copy(frames, f.frames)
	return frames
}

// LastFrame returns the most recently committed frame, or nil.
func (f *Fake) LastFrame() []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// Rests returns how many times Rest was called.
func (f *Fake) Rests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rests
}

// Deactivations returns how many times Deactivate was called.
func (f *Fake) Deactivations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *Fake) record(targets []uint16) {
	frame := make([]uint16, len(targets))
	copy(frame, targets)
	f.frames = append(f.frames, frame)
}
