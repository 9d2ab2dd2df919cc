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
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebookincubator/spotmicro/actuation"
	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/daemon"
	"github.com/facebookincubator/spotmicro/gait"
)

// flags
var configPathFlag string
var configDumpFlag bool

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.Flags().StringVarP(&configPathFlag, "config", "c", "", "config file to validate, empty shows the stock robot")
	configCmd.Flags().BoolVarP(&configDumpFlag, "dump", "d", false, "dump the whole evaluated config struct")
}

func printGaitTiming(g *gait.Config) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(20)
	table.SetHeader([]string{
		"phase", "ticks", "front left", "front right", "rear left", "rear right",
	})
	for i := 0; i < g.NumPhases; i++ {
		row := []string{strconv.Itoa(i), strconv.Itoa(g.PhaseTicks[i])}
		for _, l := range body.Legs {
			if g.ContactTable(l)[i] == 1 {
				row = append(row, "stance")
			} else {
				row = append(row, "swing")
			}
		}
		table.Append(row)
	}
	table.Render()
	fmt.Printf("full cycle is %d ticks, %.2fs at dt %vs\n", g.PhaseLength, float64(g.PhaseLength)*g.DT, g.DT)
}

func printServos(servos actuation.ServoMap) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(25)
	table.SetHeader([]string{
		"servo", "channel", "min pulse", "max pulse", "offset", "rest angle", "direction",
	})
	for _, name := range body.ServoNames() {
		s := servos[name]
		table.Append([]string{
			name,
			strconv.Itoa(s.Channel),
			strconv.FormatFloat(s.MinPulse, 'f', -1, 64),
			strconv.FormatFloat(s.MaxPulse, 'f', -1, 64),
			strconv.FormatFloat(s.OffsetDegrees, 'f', -1, 64),
			strconv.FormatFloat(s.RestAngle, 'f', -1, 64),
			strconv.Itoa(s.Direction),
		})
	}
	table.Render()
}

func configRun(path string, dump bool) error {
	cfg := daemon.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = daemon.ReadConfig(path)
		if err != nil {
			return err
		}
	}
	if err := cfg.EvalAndValidate(); err != nil {
		return err
	}
	if dump {
		spew.Dump(cfg)
		return nil
	}
	printGaitTiming(&cfg.Gait)
	printServos(cfg.Servos)
	return nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate a spotd config and show the derived gait timing",
	Long: `Validate a spotd config and show the derived gait timing.
Prints the per-phase tick counts with each leg's stance/swing assignment,
and the servo calibration table. With no -config flag it shows the stock
robot. Exit code is non-zero when the config does not validate.
`,
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		if err := configRun(configPathFlag, configDumpFlag); err != nil {
			log.Fatal(err)
		}
	},
}
