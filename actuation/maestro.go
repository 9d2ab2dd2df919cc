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
	"fmt"
	"io"
	"strings"

	"go.bug.st/serial"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/kinematics"
)

// Pololu Maestro compact protocol command bytes
const (
	cmdSetMultipleTargets byte = 0x9F
	cmdGetErrors          byte = 0xA1
)

// controller error register bits, low byte first
var controllerErrors = []struct {
	mask uint16
	name string
}{
	{1 << 0, "serial signal error"},
	{1 << 1, "serial overrun"},
	{1 << 2, "serial buffer full"},
	{1 << 3, "serial crc error"},
	{1 << 4, "serial protocol error"},
	{1 << 5, "serial timeout"},
	{1 << 6, "script stack error"},
	{1 << 7, "script call stack error"},
	{1 << 8, "script program counter error"},
}

// Maestro drives a Pololu Maestro servo controller over its serial compact
// protocol. Every pose goes out as a single SetMultipleTargets frame covering
// all twelve channels, so the controller never applies a partial pose, and
// each commit is followed by an error register read to catch line problems.
type Maestro struct {
	device string
	port   io.ReadWriteCloser
	servos ServoMap
	staged []uint16
}

// NewMaestro validates the servo map and opens the serial device.
func NewMaestro(device string, baudRate int, servos ServoMap) (*Maestro, error) {
	if err := servos.Validate(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: baudRate,
	}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, err
	}
	return newMaestro(device, port, servos), nil
}

func newMaestro(device string, port io.ReadWriteCloser, servos ServoMap) *Maestro {
	return &Maestro{
		device: device,
		port:   port,
		servos: servos,
		staged: servos.RestTargets(),
	}
}

// Stage records the servo targets for the next Commit.
func (m *Maestro) Stage(angles [body.NumLegs]kinematics.Angles) {
	m.staged = m.servos.Targets(angles)
}

// Commit writes the staged targets to the controller.
func (m *Maestro) Commit() error {
	return m.send(m.staged)
}

// Rest drives every servo to its calibrated rest angle.
func (m *Maestro) Rest() error {
	m.staged = m.servos.RestTargets()
	return m.send(m.staged)
}

// Deactivate stops the pulse train on all channels. A target of zero tells
// the controller to hold no position, so the servos go limp.
func (m *Maestro) Deactivate() error {
	return m.send(make([]uint16, body.NumServos))
}

// Close closes the serial port.
func (m *Maestro) Close() error {
	return m.port.Close()
}

func (m *Maestro) send(targets []uint16) error {
	frame := make([]byte, 0, 3+2*len(targets))
	frame = append(frame, cmdSetMultipleTargets, byte(len(targets)), byte(m.servos.BaseChannel()))
	for _, t := range targets {
		frame = append(frame, byte(t&0x7f), byte(t>>7&0x7f))
	}
	if _, err := m.port.Write(frame); err != nil {
		return fmt.Errorf("%w: writing to %s: %v", ErrCommitFailed, m.device, err)
	}
	return m.checkErrors()
}

// checkErrors reads and clears the controller's error register.
func (m *Maestro) checkErrors() error {
	if _, err := m.port.Write([]byte{cmdGetErrors}); err != nil {
		return fmt.Errorf("%w: writing to %s: %v", ErrCommitFailed, m.device, err)
	}
	reply := make([]byte, 2)
	for r := 0; r < len(reply); {
		n, err := m.port.Read(reply[r:])
		if err != nil {
			return fmt.Errorf("%w: reading from %s: %v", ErrCommitFailed, m.device, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: no error register reply from %s", ErrCommitFailed, m.device)
		}
		r += n
	}
	bits := uint16(reply[0]&0x7f) | uint16(reply[1]&0x7f)<<8
	if bits == 0 {
		return nil
	}
	var names []string
	for _, e := range controllerErrors {
		if bits&e.mask != 0 {
			names = append(names, e.name)
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("%w: controller error bits %#04x", ErrCommitFailed, bits)
	}
	return fmt.Errorf("%w: %s", ErrCommitFailed, strings.Join(names, ", "))
}
