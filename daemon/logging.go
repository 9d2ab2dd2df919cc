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

package daemon

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/gait"
	"github.com/facebookincubator/spotmicro/kinematics"
)

// Sample is one control tick's telemetry: the command in effect, the
// commanded pose and the servo angles that went out.
type Sample struct {
	Tick           uint64
	State          string
	PhaseIndex     int
	TickDurationUS float64
	Command        gait.Command
	Pose           body.State
	Angles         [body.NumLegs]kinematics.Angles
}

var header = buildHeader()

func buildHeader() []string {
	h := []string{
		"tick",
		"state",
		"phase_index",
		"tick_duration_us",
		"cmd_xvelocity",
		"cmd_yvelocity",
		"cmd_yawrate",
		"cmd_roll",
		"cmd_pitch",
		"cmd_yaw",
		"body_x",
		"body_y",
		"body_z",
		"roll",
		"pitch",
		"yaw",
	}
	for _, l := range body.Legs {
		h = append(h, fmt.Sprintf("%s_foot_x", l), fmt.Sprintf("%s_foot_y", l), fmt.Sprintf("%s_foot_z", l))
	}
	h = append(h, body.ServoNames()...)
	return h
}

// CSVRecords returns all data from this sample as CSV. Must be synced with `header` variable.
func (s *Sample) CSVRecords() []string {
	records := []string{
		strconv.FormatUint(s.Tick, 10),
		s.State,
		strconv.Itoa(s.PhaseIndex),
		strconv.FormatFloat(s.TickDurationUS, 'f', -1, 64),
		strconv.FormatFloat(s.Command.XVelocity, 'f', -1, 64),
		strconv.FormatFloat(s.Command.YVelocity, 'f', -1, 64),
		strconv.FormatFloat(s.Command.YawRate, 'f', -1, 64),
		strconv.FormatFloat(s.Command.Roll, 'f', -1, 64),
		strconv.FormatFloat(s.Command.Pitch, 'f', -1, 64),
		strconv.FormatFloat(s.Command.Yaw, 'f', -1, 64),
		strconv.FormatFloat(s.Pose.Position.X, 'f', -1, 64),
		strconv.FormatFloat(s.Pose.Position.Y, 'f', -1, 64),
		strconv.FormatFloat(s.Pose.Position.Z, 'f', -1, 64),
		strconv.FormatFloat(s.Pose.Angles.Phi, 'f', -1, 64),
		strconv.FormatFloat(s.Pose.Angles.Theta, 'f', -1, 64),
		strconv.FormatFloat(s.Pose.Angles.Psi, 'f', -1, 64),
	}
	for _, l := range body.Legs {
		f := s.Pose.Feet[l]
		records = append(records,
			strconv.FormatFloat(f.X, 'f', -1, 64),
			strconv.FormatFloat(f.Y, 'f', -1, 64),
			strconv.FormatFloat(f.Z, 'f', -1, 64))
	}
	for _, l := range body.Legs {
		for _, j := range body.Joints {
			records = append(records, strconv.FormatFloat(s.Angles[l].Joint(j), 'f', -1, 64))
		}
	}
	return records
}

// Logger is something that can store Samples somewhere
type Logger interface {
	Log(*Sample) error
}

// CSVLogger logs Samples as CSV into given writer
type CSVLogger struct {
	csvwriter     *csv.Writer
	printedHeader bool
}

// NewCSVLogger returns new CSVLogger
func NewCSVLogger(w io.Writer) *CSVLogger {
	return &CSVLogger{
		csvwriter: csv.NewWriter(w),
	}
}

// Log implements Logger interface
func (l *CSVLogger) Log(s *Sample) error {
	if !l.printedHeader {
		if err := l.csvwriter.Write(header); err != nil {
			return err
		}
		l.printedHeader = true
	}
	if err := l.csvwriter.Write(s.CSVRecords()); err != nil {
		return err
	}
	l.csvwriter.Flush()
	return l.csvwriter.Error()
}

// DummyLogger writes a one-line summary per sample to given writer
type DummyLogger struct {
	w io.Writer
}

// NewDummyLogger returns new DummyLogger
func NewDummyLogger(w io.Writer) *DummyLogger {
	return &DummyLogger{w: w}
}

// Log implements Logger interface
func (l *DummyLogger) Log(s *Sample) error {
	_, err := fmt.Fprintf(l.w, "tick=%d state=%s phase=%d pos=(%.1f, %.1f, %.1f)\n",
		s.Tick, s.State, s.PhaseIndex, s.Pose.Position.X, s.Pose.Position.Y, s.Pose.Position.Z)
	return err
}
