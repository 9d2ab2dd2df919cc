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

import (
	"math"

	"github.com/facebookincubator/spotmicro/body"
)

// stanceStep moves a grounded foot one tick. The foot slides against the
// commanded velocity so the body advances over it, counter-rotates against
// the commanded yaw, and decays back to ground height with time constant
// FootHeightTau.
func stanceStep(foot body.Point, cmd Command, cfg *Config) body.Point {
	deltaX := -cmd.XVelocity * cfg.DT
	deltaY := (0.0 - foot.Y) / cfg.FootHeightTau * cfg.DT
	deltaZ := -cmd.YVelocity * cfg.DT

	rotated := foot.RotateY(cmd.YawRate * cfg.DT)
	return body.Point{
		X: rotated.X + deltaX,
		Y: rotated.Y + deltaY,
		Z: rotated.Z + deltaZ,
	}
}

// swingStep moves an airborne foot one tick toward its touch-down point.
// Height follows a triangular profile peaking at ZClearance mid-swing; the
// horizontal step is the remaining distance to touch-down spread over the
// remaining swing time. The touch-down point leads the neutral foothold by
// half a stance of travel so the foot lands where the body will need it.
func swingStep(foot body.Point, cmd Command, cfg *Config, progress float64, defaultFoot body.Point) body.Point {
	progress = math.Max(0.0, math.Min(0.999, progress))

	var height float64
	if progress < 0.5 {
		height = (progress / 0.5) * cfg.ZClearance
	} else {
		height = cfg.ZClearance * (1.0 - (progress-0.5)/0.5)
	}

	stanceTime := float64(cfg.StanceTicks) * cfg.DT
	touchdown := defaultFoot.RotateY(cfg.Beta * stanceTime * -cmd.YawRate)
	touchdown.X += cfg.Alpha * stanceTime * cmd.XVelocity
	touchdown.Z += cfg.Alpha * stanceTime * cmd.YVelocity

	remaining := cfg.DT * float64(cfg.SwingTicks) * (1.0 - progress)
	remaining = math.Max(1e-5, remaining)

	return body.Point{
		X: foot.X + (touchdown.X-foot.X)/remaining*cfg.DT,
		Y: height,
		Z: foot.Z + (touchdown.Z-foot.Z)/remaining*cfg.DT,
	}
}

// bodyShiftStep leans the body toward the support polygon for the current
// phase of the eight-phase cycle. Even shift slots hold a corner; odd slots
// glide toward the next corner at the same pace a swing leg moves. Height
// stays pinned to StandHeight.
func bodyShiftStep(pos body.Point, cfg *Config, phaseIndex, subphaseTicks int) body.Point {
	shiftPhase := cfg.BodyShiftPhases[phaseIndex]
	progress := float64(subphaseTicks) / float64(cfg.SwingTicks)
	remaining := cfg.DT * float64(cfg.SwingTicks) * (1.0 - progress)
	remaining = math.Max(1e-5, remaining)

	var endX, endZ float64
	switch shiftPhase {
	case 2:
		return body.Point{X: cfg.FwdBalanceShift, Y: cfg.StandHeight, Z: -cfg.SideBalanceShift}
	case 4:
		return body.Point{X: -cfg.BackBalanceShift, Y: cfg.StandHeight, Z: -cfg.SideBalanceShift}
	case 6:
		return body.Point{X: cfg.FwdBalanceShift, Y: cfg.StandHeight, Z: cfg.SideBalanceShift}
	case 8:
		return body.Point{X: -cfg.BackBalanceShift, Y: cfg.StandHeight, Z: cfg.SideBalanceShift}
	case 1:
		endX, endZ = cfg.FwdBalanceShift, -cfg.SideBalanceShift
	case 3:
		endX, endZ = -cfg.BackBalanceShift, -cfg.SideBalanceShift
	case 5:
		endX, endZ = cfg.FwdBalanceShift, cfg.SideBalanceShift
	case 7:
		endX, endZ = -cfg.BackBalanceShift, cfg.SideBalanceShift
	}

	return body.Point{
		X: pos.X + (endX-pos.X)/remaining*cfg.DT,
		Y: cfg.StandHeight,
		Z: pos.Z + (endZ-pos.Z)/remaining*cfg.DT,
	}
}
