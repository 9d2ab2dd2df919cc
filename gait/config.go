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

// Package gait turns body velocity commands into per-tick foot positions:
// a phase clock schedules which legs bear weight and which swing, trajectory
// controllers move each foot, and the Service ties them together into one
// body posture per control tick. Lengths are millimeters, velocities mm/s,
// angular rates rad/s.
package gait

import (
	"fmt"
	"math"

	"github.com/facebookincubator/spotmicro/body"
)

// Config carries the gait geometry, velocity limits and cycle timing. It is
// built once at startup; EvalAndValidate fills the derived tick counts and
// the struct is never mutated afterwards.
type Config struct {
	// HipLength extends the stance width beyond the hip anchors
	HipLength float64 `yaml:"hiplength"`
	// BodyWidth is the lateral distance between hip pivots
	BodyWidth float64 `yaml:"bodywidth"`
	// BodyLength is the longitudinal distance between hip pivots
	BodyLength float64 `yaml:"bodylength"`
	// StandHeight is the body height above ground when standing
	StandHeight float64 `yaml:"standheight"`
	// StandFrontXOffset moves the front feet forward in neutral stance
	StandFrontXOffset float64 `yaml:"standfrontxoffset"`
	// StandBackXOffset moves the rear feet forward in neutral stance
	StandBackXOffset float64 `yaml:"standbackxoffset"`
	// LieHeight is the body height above ground when lying down
	LieHeight float64 `yaml:"lieheight"`
	// LieFeetXOffset moves all feet forward in the lie-down pose
	LieFeetXOffset float64 `yaml:"liefeetxoffset"`

	// MaxForwardVelocity caps commanded forward speed, mm/s
	MaxForwardVelocity float64 `yaml:"maxforwardvelocity"`
	// MaxSideVelocity caps commanded lateral speed, mm/s
	MaxSideVelocity float64 `yaml:"maxsidevelocity"`
	// MaxYawRate caps commanded turn rate, rad/s
	MaxYawRate float64 `yaml:"maxyawrate"`
	// MaxBodyRoll/Pitch/Yaw cap the attitude targets applied while standing
	MaxBodyRoll  float64 `yaml:"maxbodyroll"`
	MaxBodyPitch float64 `yaml:"maxbodypitch"`
	MaxBodyYaw   float64 `yaml:"maxbodyyaw"`

	// ZClearance is the swing apex height above ground
	ZClearance float64 `yaml:"zclearance"`
	// Alpha scales the touch-down look-ahead along the commanded velocity
	Alpha float64 `yaml:"alpha"`
	// Beta scales the touch-down look-ahead against the commanded yaw
	Beta float64 `yaml:"beta"`
	// NumPhases is the cycle length in phases, 4 or 8
	NumPhases int `yaml:"numphases"`
	// Per-leg contact tables, one 0/1 entry per phase; 0 means the leg
	// swings during that phase
	FrontLeftContact  []int `yaml:"frontleftcontact"`
	FrontRightContact []int `yaml:"frontrightcontact"`
	RearLeftContact   []int `yaml:"rearleftcontact"`
	RearRightContact  []int `yaml:"rearrightcontact"`
	// OverlapTime is the all-feet-down phase duration of the 4-phase cycle,
	// seconds
	OverlapTime float64 `yaml:"overlaptime"`
	// SwingTime is one leg's swing duration, seconds
	SwingTime float64 `yaml:"swingtime"`
	// BodyShiftPhases maps each phase index to a balance-shift slot, 8-phase
	// only
	BodyShiftPhases []int `yaml:"bodyshiftphases"`
	// Balance shift amplitudes for the 8-phase cycle
	FwdBalanceShift  float64 `yaml:"fwdbalanceshift"`
	BackBalanceShift float64 `yaml:"backbalanceshift"`
	SideBalanceShift float64 `yaml:"sidebalanceshift"`
	// FootHeightTau pulls stance feet back to the ground, seconds
	FootHeightTau float64 `yaml:"footheighttau"`
	// DT is the control period, seconds
	DT float64 `yaml:"dt"`

	// derived by EvalAndValidate
	SwingTicks   int   `yaml:"-"`
	OverlapTicks int   `yaml:"-"`
	StanceTicks  int   `yaml:"-"`
	PhaseTicks   []int `yaml:"-"`
	PhaseLength  int   `yaml:"-"`
}

// DefaultConfig returns the stock SpotMicro eight-phase crawl.
func DefaultConfig() *Config {
	return &Config{
		HipLength:          55,
		BodyWidth:          78,
		BodyLength:         186,
		StandHeight:        155,
		StandFrontXOffset:  15,
		StandBackXOffset:   0,
		LieHeight:          83,
		LieFeetXOffset:     65,
		MaxForwardVelocity: 400,
		MaxSideVelocity:    400,
		MaxYawRate:         0.35,
		MaxBodyRoll:        0.35,
		MaxBodyPitch:       0.25,
		MaxBodyYaw:         0.35,
		ZClearance:         50,
		Alpha:              0.5,
		Beta:               0.5,
		NumPhases:          8,
		FrontLeftContact:   []int{1, 1, 1, 1, 1, 1, 1, 0},
		FrontRightContact:  []int{1, 1, 1, 0, 1, 1, 1, 1},
		RearLeftContact:    []int{1, 1, 1, 1, 1, 0, 1, 1},
		RearRightContact:   []int{1, 0, 1, 1, 1, 1, 1, 1},
		OverlapTime:        0.0,
		SwingTime:          0.36,
		BodyShiftPhases:    []int{1, 2, 3, 4, 5, 6, 7, 8},
		FwdBalanceShift:    35,
		BackBalanceShift:   5,
		SideBalanceShift:   15,
		FootHeightTau:      0.02,
		DT:                 0.02,
	}
}

// ContactTable returns the contact-phase table for one leg.
func (c *Config) ContactTable(l body.Leg) []int {
	switch l {
	case body.FrontLeft:
		return c.FrontLeftContact
	case body.FrontRight:
		return c.FrontRightContact
	case body.RearLeft:
		return c.RearLeftContact
	}
	return c.RearRightContact
}

// Dimensions returns the hip anchor rectangle.
func (c *Config) Dimensions() body.Dimensions {
	return body.Dimensions{Length: c.BodyLength, Width: c.BodyWidth}
}

// EvalAndValidate computes the derived tick counts and checks the config
// for consistency. It must succeed before the control loop starts; the
// Config must not change afterwards.
func (c *Config) EvalAndValidate() error {
	if c.DT <= 0 {
		return fmt.Errorf("bad config: 'dt' must be positive, got %v", c.DT)
	}
	if c.SwingTime <= 0 {
		return fmt.Errorf("bad config: 'swingtime' must be positive, got %v", c.SwingTime)
	}
	if c.OverlapTime < 0 {
		return fmt.Errorf("bad config: 'overlaptime' must not be negative, got %v", c.OverlapTime)
	}
	for _, check := range []struct {
		name  string
		value float64
	}{
		{"bodywidth", c.BodyWidth},
		{"bodylength", c.BodyLength},
		{"standheight", c.StandHeight},
		{"lieheight", c.LieHeight},
		{"maxforwardvelocity", c.MaxForwardVelocity},
		{"maxsidevelocity", c.MaxSideVelocity},
		{"maxyawrate", c.MaxYawRate},
		{"zclearance", c.ZClearance},
		{"footheighttau", c.FootHeightTau},
	} {
		if check.value <= 0 {
			return fmt.Errorf("bad config: '%s' must be positive, got %v", check.name, check.value)
		}
	}
	if c.HipLength < 0 {
		return fmt.Errorf("bad config: 'hiplength' must not be negative, got %v", c.HipLength)
	}
	if c.LieHeight >= c.StandHeight {
		return fmt.Errorf("bad config: 'lieheight' %v must be below 'standheight' %v", c.LieHeight, c.StandHeight)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("bad config: 'alpha' must be in (0, 1], got %v", c.Alpha)
	}
	if c.Beta <= 0 || c.Beta > 1 {
		return fmt.Errorf("bad config: 'beta' must be in (0, 1], got %v", c.Beta)
	}
	if c.MaxBodyRoll < 0 || c.MaxBodyPitch < 0 || c.MaxBodyYaw < 0 {
		return fmt.Errorf("bad config: body attitude limits must not be negative")
	}

	c.SwingTicks = int(math.Round(c.SwingTime / c.DT))
	if c.SwingTicks < 1 {
		c.SwingTicks = 1
	}
	c.OverlapTicks = int(math.Round(c.OverlapTime / c.DT))
	if c.OverlapTicks < 0 {
		c.OverlapTicks = 0
	}

	switch c.NumPhases {
	case 8:
		c.StanceTicks = 7 * c.SwingTicks
		c.PhaseTicks = make([]int, c.NumPhases)
		for i := range c.PhaseTicks {
			c.PhaseTicks[i] = c.SwingTicks
		}
		if len(c.BodyShiftPhases) != c.NumPhases {
			return fmt.Errorf("bad config: 'bodyshiftphases' needs %d entries, got %d", c.NumPhases, len(c.BodyShiftPhases))
		}
		for i, p := range c.BodyShiftPhases {
			if p < 1 || p > 8 {
				return fmt.Errorf("bad config: 'bodyshiftphases[%d]' must be in [1, 8], got %d", i, p)
			}
		}
	case 4:
		c.StanceTicks = 2*c.OverlapTicks + c.SwingTicks
		c.PhaseTicks = []int{c.OverlapTicks, c.SwingTicks, c.OverlapTicks, c.SwingTicks}
	default:
		return fmt.Errorf("bad config: 'numphases' must be 4 or 8, got %d", c.NumPhases)
	}

	c.PhaseLength = 0
	for _, ticks := range c.PhaseTicks {
		c.PhaseLength += ticks
	}

	for _, l := range body.Legs {
		table := c.ContactTable(l)
		if len(table) != c.NumPhases {
			return fmt.Errorf("bad config: contact table for %s needs %d entries, got %d", l, c.NumPhases, len(table))
		}
		for i, v := range table {
			if v != 0 && v != 1 {
				return fmt.Errorf("bad config: contact table for %s entry %d must be 0 or 1, got %d", l, i, v)
			}
		}
	}
	return nil
}
