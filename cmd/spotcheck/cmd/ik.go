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

package cmd

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/daemon"
	"github.com/facebookincubator/spotmicro/kinematics"
)

// flags
var (
	ikConfigFlag string
	ikXFlag      float64
	ikYFlag      float64
	ikZFlag      float64
)

func init() {
	RootCmd.AddCommand(ikCmd)
	ikCmd.Flags().StringVarP(&ikConfigFlag, "config", "c", "", "config file with the robot's leg geometry, empty uses the stock linkage")
	ikCmd.Flags().Float64Var(&ikXFlag, "x", 0, "foot target forward of the hip pivot, mm")
	ikCmd.Flags().Float64Var(&ikYFlag, "y", 155, "foot target below the hip pivot, mm")
	ikCmd.Flags().Float64Var(&ikZFlag, "z", 57.7, "foot target outward of the hip pivot, mm")
}

func ikRun(geo kinematics.Geometry, target body.Point) error {
	angles, err := kinematics.Solve(target, geo)
	if err != nil {
		return err
	}
	for _, j := range body.Joints {
		rad := angles.Joint(j)
		fmt.Printf("%-8s %8.4f rad %8.2f deg\n", j, rad, rad*180/math.Pi)
	}
	back := kinematics.Forward(angles, geo)
	diff := back.Sub(target)
	fmt.Printf("forward kinematics puts the foot at (%.2f, %.2f, %.2f), %.2g mm off\n",
		back.X, back.Y, back.Z,
		math.Sqrt(diff.X*diff.X+diff.Y*diff.Y+diff.Z*diff.Z))
	return nil
}

var ikCmd = &cobra.Command{
	Use:   "ik",
	Short: "Solve one leg's joint angles for a foot target",
	Long: `Solve one leg's joint angles for a foot target.
The target is relative to the hip pivot in the solver frame: +X forward,
+Y down, +Z outward. Exit code is non-zero for an unreachable target.
`,
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		geo := kinematics.DefaultGeometry()
		if ikConfigFlag != "" {
			cfg, err := daemon.ReadConfig(ikConfigFlag)
			if err != nil {
				log.Fatal(err)
			}
			geo = cfg.Geometry
		}
		if err := ikRun(geo, body.Point{X: ikXFlag, Y: ikYFlag, Z: ikZFlag}); err != nil {
			log.Fatal(err)
		}
	},
}
