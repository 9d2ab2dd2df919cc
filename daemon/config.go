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
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/facebookincubator/spotmicro/actuation"
	"github.com/facebookincubator/spotmicro/gait"
	"github.com/facebookincubator/spotmicro/kinematics"
	"github.com/facebookincubator/spotmicro/motion"
)

// actuator backends
const (
	ActuatorMaestro = "maestro"
	ActuatorFake    = "fake"
)

// Config represents configuration we expect to read from file
type Config struct {
	Gait           gait.Config         // gait geometry, limits and cycle timing
	Geometry       kinematics.Geometry // leg linkage for the angle solver
	Filters        motion.FilterConfig // pose filter tuning for stand and transitions
	Servos         actuation.ServoMap  // per-servo calibration keyed by servo name
	Actuator       string              // "maestro" drives hardware, "fake" only records
	SerialPort     string              // servo controller device
	BaudRate       int                 // servo controller baud rate
	ListenAddr     string              // UDP address commands arrive on
	MonitoringPort int                 // http port serving the JSON counters
	StatsInterval  time.Duration       // how often to refresh process and health counters
	HistorySize    int                 // how many tick durations the health check sees
	Health         Health              // health expression over control loop counters
	CSVLog         string              // per-tick samples as CSV, empty disables
}

// DefaultConfig returns the configuration of a stock robot. A config file
// only needs the fields it overrides.
func DefaultConfig() *Config {
	return &Config{
		Gait:           *gait.DefaultConfig(),
		Geometry:       kinematics.DefaultGeometry(),
		Filters:        motion.DefaultFilterConfig(),
		Servos:         actuation.DefaultServoMap(),
		Actuator:       ActuatorMaestro,
		SerialPort:     "/dev/ttyACM0",
		BaudRate:       115200,
		ListenAddr:     ":5005",
		MonitoringPort: 8889,
		StatsInterval:  10 * time.Second,
		HistorySize:    250,
		Health:         Health{Check: DefaultHealthCheck},
	}
}

// EvalAndValidate makes sure config is valid and evaluates expressions for further use.
func (c *Config) EvalAndValidate() error {
	if err := c.Gait.EvalAndValidate(); err != nil {
		return err
	}
	if c.Geometry.UpperLeg <= 0 || c.Geometry.LowerLeg <= 0 || c.Geometry.CoxaOffset <= 0 {
		return fmt.Errorf("bad config: 'geometry' link lengths must be positive")
	}
	if c.Filters.Tau <= 0 {
		return fmt.Errorf("bad config: 'filters.tau' must be positive")
	}
	if c.Filters.Tolerance <= 0 {
		return fmt.Errorf("bad config: 'filters.tolerance' must be positive")
	}
	if c.Filters.RateLimit < 0 || c.Filters.AngleRateLimit < 0 {
		return fmt.Errorf("bad config: 'filters' rate limits must not be negative")
	}
	if err := c.Servos.Validate(); err != nil {
		return err
	}
	switch c.Actuator {
	case ActuatorMaestro:
		if c.SerialPort == "" {
			return fmt.Errorf("bad config: 'serialport' must be specified")
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("bad config: 'baudrate' must be positive")
		}
	case ActuatorFake:
	default:
		return fmt.Errorf("bad config: 'actuator' must be %q or %q, got %q", ActuatorMaestro, ActuatorFake, c.Actuator)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("bad config: 'listenaddr' must be specified")
	}
	if c.MonitoringPort <= 0 {
		return fmt.Errorf("bad config: 'monitoringport' must be positive")
	}
	if c.StatsInterval <= 0 {
		return fmt.Errorf("bad config: 'statsinterval' must be positive")
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("bad config: 'historysize' must be positive")
	}
	if err := c.Health.Prepare(); err != nil {
		return err
	}
	return nil
}

// ReadConfig reads the yaml file over the defaults and unmarshals it into Config
func ReadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	err = yaml.UnmarshalStrict(data, c)
	return c, err
}
