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

// Package actuation maps joint angles to servo pulse widths and drives the
// servo controller. Angles are staged per tick and pushed to the hardware
// in one commit so the controller never applies half a pose.
package actuation

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/kinematics"
)

// ErrCommitFailed wraps transport errors so callers can tell a failed pose
// write from staging problems.
var ErrCommitFailed = errors.New("commit failed")

// Actuator is the hardware interface the control loop drives. Stage records
// the angles for the next pose; Commit pushes all staged servo targets to
// the controller in one transaction. Rest moves every servo to its
// calibrated rest angle and Deactivate cuts the pulse train so the servos
// go limp.
type Actuator interface {
	Stage(angles [body.NumLegs]kinematics.Angles)
	Commit() error
	Rest() error
	Deactivate() error
	Close() error
}

// ServoConfig is the calibration for one servo: its controller channel, the
// pulse widths that correspond to -90 and +90 degrees, the mechanical zero
// offset, the angle it parks at when the robot rests, and the rotation
// direction relative to the solver's angle convention.
type ServoConfig struct {
	Channel int `yaml:"channel"`
	// MinPulse and MaxPulse are microseconds at -90 and +90 degrees
	MinPulse float64 `yaml:"minpulse"`
	MaxPulse float64 `yaml:"maxpulse"`
	// OffsetDegrees shifts the solver's joint zero onto the servo's
	// mechanical zero, applied before the direction flip. Knees use -90 so
	// the interior knee angle of [0, pi] spans the servo range.
	OffsetDegrees float64 `yaml:"offsetdegrees"`
	// RestAngle is degrees in servo space
	RestAngle float64 `yaml:"restangle"`
	// Direction is +1 or -1
	Direction int `yaml:"direction"`
}

// pulse widths are quarter-microsecond Maestro targets
func (c ServoConfig) pulseFromDegrees(deg float64) uint16 {
	if deg < -90 {
		deg = -90
	} else if deg > 90 {
		deg = 90
	}
	us := c.MinPulse + (deg+90)/180*(c.MaxPulse-c.MinPulse)
	return uint16(math.Round(us * 4))
}

// Pulse converts a joint angle in radians to the servo target, applying the
// zero offset and the servo direction and clamping to the calibrated range.
func (c ServoConfig) Pulse(angle float64) uint16 {
	return c.pulseFromDegrees((angle*180/math.Pi + c.OffsetDegrees) * float64(c.Direction))
}

// RestPulse returns the target for the calibrated rest angle.
func (c ServoConfig) RestPulse() uint16 {
	return c.pulseFromDegrees(c.RestAngle)
}

// ServoMap is the full calibration table, keyed by servo name
// (see body.ServoName).
type ServoMap map[string]ServoConfig

// DefaultServoMap returns a map with one servo per joint on channels 0-11,
// symmetric 500-2500 us calibration and mirrored left side. Real robots
// override per-servo values in the config file.
func DefaultServoMap() ServoMap {
	m := make(ServoMap, body.NumServos)
	ch := 0
	for _, l := range body.Legs {
		direction := 1
		if l.Left() {
			direction = -1
		}
		for _, j := range body.Joints {
			offset := 0.0
			if j == body.Knee {
				offset = -90
			}
			m[body.ServoName(l, j)] = ServoConfig{
				Channel:       ch,
				MinPulse:      500,
				MaxPulse:      2500,
				OffsetDegrees: offset,
				RestAngle:     0,
				Direction:     direction,
			}
			ch++
		}
	}
	return m
}

// Validate checks that the map covers exactly the twelve leg servos and
// that the channel assignment supports single-frame commits: channels must
// be unique and form one contiguous ascending block.
func (m ServoMap) Validate() error {
	if len(m) != body.NumServos {
		return fmt.Errorf("bad config: need %d servos, got %d", body.NumServos, len(m))
	}
	channels := make(map[int]string, body.NumServos)
	for _, name := range body.ServoNames() {
		cfg, ok := m[name]
		if !ok {
			return fmt.Errorf("bad config: missing servo %q", name)
		}
		if other, taken := channels[cfg.Channel]; taken {
			return fmt.Errorf("bad config: servo %q and %q share channel %d", name, other, cfg.Channel)
		}
		channels[cfg.Channel] = name
		if cfg.Channel < 0 {
			return fmt.Errorf("bad config: servo %q channel %d is negative", name, cfg.Channel)
		}
		if cfg.MinPulse <= 0 || cfg.MaxPulse <= cfg.MinPulse {
			return fmt.Errorf("bad config: servo %q pulse range [%v, %v] is invalid", name, cfg.MinPulse, cfg.MaxPulse)
		}
		if cfg.MaxPulse > 4000 {
			return fmt.Errorf("bad config: servo %q max pulse %v exceeds 4000us", name, cfg.MaxPulse)
		}
		if cfg.OffsetDegrees < -180 || cfg.OffsetDegrees > 180 {
			return fmt.Errorf("bad config: servo %q offset %v outside [-180, 180]", name, cfg.OffsetDegrees)
		}
		if cfg.RestAngle < -90 || cfg.RestAngle > 90 {
			return fmt.Errorf("bad config: servo %q rest angle %v outside [-90, 90]", name, cfg.RestAngle)
		}
		if cfg.Direction != 1 && cfg.Direction != -1 {
			return fmt.Errorf("bad config: servo %q direction must be 1 or -1, got %d", name, cfg.Direction)
		}
	}
	sorted := make([]int, 0, body.NumServos)
	for ch := range channels {
		sorted = append(sorted, ch)
	}
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return fmt.Errorf("bad config: channels are not contiguous, gap between %d and %d", sorted[i-1], sorted[i])
		}
	}
	return nil
}

// BaseChannel returns the lowest assigned channel. The map must be valid.
func (m ServoMap) BaseChannel() int {
	base := -1
	for _, cfg := range m {
		if base < 0 || cfg.Channel < base {
			base = cfg.Channel
		}
	}
	return base
}

// Targets converts a set of leg angles into the channel-ordered target
// frame starting at BaseChannel. The map must be valid.
func (m ServoMap) Targets(angles [body.NumLegs]kinematics.Angles) []uint16 {
	base := m.BaseChannel()
	targets := make([]uint16, body.NumServos)
	for _, l := range body.Legs {
		for _, j := range body.Joints {
			cfg := m[body.ServoName(l, j)]
			targets[cfg.Channel-base] = cfg.Pulse(angles[l].Joint(j))
		}
	}
	return targets
}

// RestTargets returns the channel-ordered frame of rest angles.
func (m ServoMap) RestTargets() []uint16 {
	base := m.BaseChannel()
	targets := make([]uint16, body.NumServos)
	for _, cfg := range m {
		targets[cfg.Channel-base] = cfg.RestPulse()
	}
	return targets
}
