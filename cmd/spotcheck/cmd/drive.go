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
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/facebookincubator/spotmicro/daemon"
	"github.com/facebookincubator/spotmicro/gait"
)

const (
	// teleop publishes the command state at a steady rate whether or not a
	// key was pressed, so the daemon's latest-wins queue stays fresh and
	// held velocities persist
	teleopPublishHz = 20
	// velocity and turn rate change per keypress
	teleopVelocityStep = 20.0
	teleopYawRateStep  = 0.05
)

// flags
var (
	driveAddrFlag    string
	driveTeleopFlag  bool
	driveIdleFlag    bool
	driveStandFlag   bool
	driveWalkFlag    bool
	driveVXFlag      float64
	driveVYFlag      float64
	driveYawRateFlag float64
	driveRollFlag    float64
	drivePitchFlag   float64
	driveYawFlag     float64
)

func init() {
	RootCmd.AddCommand(driveCmd)
	driveCmd.Flags().StringVarP(&driveAddrFlag, "addr", "a", "127.0.0.1:5005", "UDP address spotd listens for commands on")
	driveCmd.Flags().BoolVarP(&driveTeleopFlag, "teleop", "t", false, "drive interactively from the keyboard")
	driveCmd.Flags().BoolVar(&driveIdleFlag, "idle", false, "lie down and stop the servos")
	driveCmd.Flags().BoolVar(&driveStandFlag, "stand", false, "stand up")
	driveCmd.Flags().BoolVar(&driveWalkFlag, "walk", false, "start walking")
	driveCmd.Flags().Float64Var(&driveVXFlag, "vx", 0, "forward velocity, mm/s")
	driveCmd.Flags().Float64Var(&driveVYFlag, "vy", 0, "lateral velocity, positive right, mm/s")
	driveCmd.Flags().Float64Var(&driveYawRateFlag, "yaw-rate", 0, "turn rate, positive left, rad/s")
	driveCmd.Flags().Float64Var(&driveRollFlag, "roll", 0, "standing body roll, rad")
	driveCmd.Flags().Float64Var(&drivePitchFlag, "pitch", 0, "standing body pitch, rad")
	driveCmd.Flags().Float64Var(&driveYawFlag, "yaw", 0, "standing body yaw, rad")
}

func driveRun(addr string) error {
	modes := 0
	for _, m := range []bool{driveIdleFlag, driveStandFlag, driveWalkFlag} {
		if m {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("pick at most one of --idle, --stand and --walk")
	}
	cmd := gait.Command{
		XVelocity: driveVXFlag,
		YVelocity: driveVYFlag,
		YawRate:   driveYawRateFlag,
		Roll:      driveRollFlag,
		Pitch:     drivePitchFlag,
		Yaw:       driveYawFlag,
		Idle:      driveIdleFlag,
		Stand:     driveStandFlag,
		Walk:      driveWalkFlag,
	}
	return daemon.Send(addr, &cmd)
}

func teleopMode(cmd gait.Command) string {
	switch {
	case cmd.Idle:
		return "idle "
	case cmd.Walk:
		return "walk "
	default:
		return "stand"
	}
}

func teleop(addr string) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("teleop needs a terminal on stdin")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, old)

	keys := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				close(keys)
				return
			}
			keys <- buf[0]
		}
	}()

	fmt.Print("w/s forward, q/e sideways, a/d turn, 1 idle, 2 stand, 3 walk, space stops, x quits\r\n")

	limits := gait.DefaultConfig()
	cmd := gait.Command{Stand: true}
	ticker := time.NewTicker(time.Second / teleopPublishHz)
	defer ticker.Stop()
	for {
		select {
		case k, ok := <-keys:
			if !ok {
				return daemon.Send(addr, &gait.Command{Idle: true})
			}
			switch k {
			case 'w':
				cmd.XVelocity += teleopVelocityStep
			case 's':
				cmd.XVelocity -= teleopVelocityStep
			case 'q':
				cmd.YVelocity -= teleopVelocityStep
			case 'e':
				cmd.YVelocity += teleopVelocityStep
			case 'a':
				cmd.YawRate += teleopYawRateStep
			case 'd':
				cmd.YawRate -= teleopYawRateStep
			case ' ':
				cmd.XVelocity, cmd.YVelocity, cmd.YawRate = 0, 0, 0
			case '1':
				cmd = gait.Command{Idle: true}
			case '2':
				cmd = gait.Command{Stand: true}
			case '3':
				cmd.Idle, cmd.Stand, cmd.Walk = false, false, true
			case 'x', 3:
				// lie the robot down before giving the terminal back
				fmt.Print("\r\n")
				return daemon.Send(addr, &gait.Command{Idle: true})
			}
			cmd = cmd.Clamped(limits)
		case <-ticker.C:
			if err := daemon.Send(addr, &cmd); err != nil {
				return err
			}
			fmt.Printf("\u001b[1000D%s vx %+4.0f vy %+4.0f yaw %+5.2f",
				teleopMode(cmd), cmd.XVelocity, cmd.YVelocity, cmd.YawRate)
		}
	}
}

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Send driving commands to a running spotd",
	Long: `Send driving commands to a running spotd.
One shot: spotcheck drive --stand, then spotcheck drive --walk --vx 120.
With --teleop the keyboard drives the robot: launching it stands the robot
up, w/s and q/e set velocity, a/d turn, 1/2/3 switch idle/stand/walk,
space zeroes the velocities, x lies the robot down and quits. Body
attitude is one-shot only, via --roll/--pitch/--yaw while standing.
`,
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()

		if driveTeleopFlag {
			if err := teleop(driveAddrFlag); err != nil {
				log.Fatal(err)
			}
			return
		}
		if err := driveRun(driveAddrFlag); err != nil {
			log.Fatal(err)
		}
	},
}
