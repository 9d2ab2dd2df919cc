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

package gait

// Command is one operator input sample: translational and yaw velocity,
// a body attitude target, and the requested mode. Modes are edge-triggered
// requests, not states; the motion machine decides whether a transition is
// legal.
type Command struct {
	// XVelocity is the forward velocity, mm/s
	XVelocity float64 `json:"xvelocity"`
	// YVelocity is the lateral velocity, positive right, mm/s
	YVelocity float64 `json:"yvelocity"`
	// YawRate is the turn rate, rad/s
	YawRate float64 `json:"yawrate"`
	// Roll, Pitch, Yaw set the standing body attitude, radians
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	// Idle, Stand, Walk request a mode change
	Idle  bool `json:"idle"`
	Stand bool `json:"stand"`
	Walk  bool `json:"walk"`
}

// Clamped returns a copy with every continuous field limited to the
// configured range. Clamping an already clamped command changes nothing.
func (c Command) Clamped(cfg *Config) Command {
	c.XVelocity = clampAbs(c.XVelocity, cfg.MaxForwardVelocity)
	c.YVelocity = clampAbs(c.YVelocity, cfg.MaxSideVelocity)
	c.YawRate = clampAbs(c.YawRate, cfg.MaxYawRate)
	c.Roll = clampAbs(c.Roll, cfg.MaxBodyRoll)
	c.Pitch = clampAbs(c.Pitch, cfg.MaxBodyPitch)
	c.Yaw = clampAbs(c.Yaw, cfg.MaxBodyYaw)
	return c
}

func clampAbs(v, limit float64) float64 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}
