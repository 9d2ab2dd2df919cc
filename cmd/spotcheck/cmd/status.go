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
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/constraints"

	"github.com/facebookincubator/spotmicro/stats"
)

// flag
var statusJSONFlag bool

type status int

// possible check results
const (
	OK status = iota
	WARN
	FAIL
	CRITICAL
)

// diagnoser is function that does checks on the fetched counters
type diagnoser func(c stats.Counters) (status, string)

var okString = color.GreenString("[ OK ]")
var warnString = color.YellowString("[WARN]")
var failString = color.RedString("[FAIL]")

var statusToColor = []string{okString, warnString, failString}

func fmtThreshold(warnThreshold any) string {
	return color.BlueString("%v", warnThreshold)
}

// generic function to check value against some thresholds
func checkAgainstThreshold[T constraints.Ordered](name string, value, warnThreshold, failThreshold T, explanation string) (status, string) {
	msgTemplate := "%s is %s, we expect it to be within %s%s"
	thresholdStr := fmtThreshold(warnThreshold)

	if value > failThreshold {
		return FAIL, fmt.Sprintf(
			msgTemplate,
			name,
			color.RedString("%v", value),
			thresholdStr,
			". "+explanation,
		)
	}
	if value > warnThreshold {
		return WARN, fmt.Sprintf(
			msgTemplate,
			name,
			color.YellowString("%v", value),
			thresholdStr,
			". "+explanation,
		)
	}
	return OK, fmt.Sprintf(
		msgTemplate,
		name,
		color.GreenString("%v", value),
		thresholdStr,
		"",
	)
}

func checkTicking(c stats.Counters) (status, string) {
	if c["loop.ticks"] == 0 {
		return CRITICAL, "Control loop has not ticked, nothing is driving the robot"
	}
	return OK, fmt.Sprintf("Control loop is on tick %s", color.GreenString("%d", c["loop.ticks"]))
}

func checkHealthy(c stats.Counters) (status, string) {
	if c["health.good"] != 1 {
		return FAIL, "Daemon health check fails, spotd logs name the failing expression"
	}
	return OK, "Daemon health check passes"
}

func checkState(c stats.Counters) (status, string) {
	state := c.CurrentState()
	if state == "unknown" {
		return FAIL, "State occupancy counters are inconsistent"
	}
	return OK, fmt.Sprintf("Robot is in state %q", state)
}

func checkTickDuration(c stats.Counters) (status, string) {
	mean := c["loop.tick_duration_us.mean"]
	if mean == 0 {
		return WARN, "No tick duration data yet, aggregates refresh every statsinterval"
	}
	return checkAgainstThreshold(
		"Mean tick duration (us)",
		mean,
		15000,
		20000,
		"Ticks close to the control period leave no headroom and will overrun",
	)
}

func checkOverruns(c stats.Counters) (status, string) {
	return checkAgainstThreshold(
		"Control loop overruns",
		c["loop.overruns"],
		0,
		100,
		"Every overrun delays servo updates past the control period",
	)
}

func checkCommitErrors(c stats.Counters) (status, string) {
	return checkAgainstThreshold(
		"Servo commit errors",
		c["loop.commit_errors"],
		0,
		10,
		"Each failed commit parks the robot, a dead servo link stops the daemon",
	)
}

func checkUnreachable(c stats.Counters) (status, string) {
	return checkAgainstThreshold(
		"Unreachable foot targets",
		c["solver.unreachable"],
		0,
		100,
		"Legs hold their last angles when a target is outside their reach",
	)
}

func checkDroppedCommands(c stats.Counters) (status, string) {
	return checkAgainstThreshold(
		"Dropped operator commands",
		c["commands.dropped"],
		0,
		100,
		"The daemon sheds commands when they arrive faster than the loop drains them",
	)
}

var diagnosers = []diagnoser{
	checkTicking,
	checkHealthy,
	checkState,
	checkTickDuration,
	checkOverruns,
	checkCommitErrors,
	checkUnreachable,
	checkDroppedCommands,
}

func runDiagnosers(c stats.Counters, toRun []diagnoser) int {
	failed := 0
	for _, check := range toRun {
		status, msg := check(c)
		if status != OK {
			failed++
		}
		switch status {
		case CRITICAL:
			fmt.Printf("%s %s\n", failString, msg)
			return 127
		default:
			fmt.Printf("%s %s\n", statusToColor[status], msg)
		}
	}
	return failed
}

func printCounters(c stats.Counters) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetColWidth(40)
	table.SetHeader([]string{"counter", "value"})
	for _, k := range keys {
		table.Append([]string{k, strconv.FormatInt(c[k], 10)})
	}
	table.Render()
}

func init() {
	RootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVarP(&rootServerFlag, "server", "S", "http://localhost:8889", rootServerFlagDesc)
	statusCmd.Flags().BoolVarP(&statusJSONFlag, "json", "j", false, "print the raw counters as JSON and skip the checks")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check a running spotd, report in human-readable form.",
	Long: `Check a running spotd, report in human-readable form.
Runs a set of checks over the monitoring counters, prints the results and
the counters themselves.
Exit code will be equal to the number of failed checks, or 127 in case of critical problem.
`,
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		counters, err := stats.FetchCounters(rootServerFlag)
		if err != nil {
			log.Fatal(err)
		}
		if statusJSONFlag {
			toPrint, err := json.Marshal(counters)
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(toPrint))
			return
		}
		exitCode := runDiagnosers(counters, diagnosers)
		fmt.Println()
		printCounters(counters)
		os.Exit(exitCode)
	},
}
