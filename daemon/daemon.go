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

// Package daemon runs the robot: a fixed-rate control loop advances the
// gait state machine, solves leg kinematics and commits servo targets,
// while background goroutines accept operator commands over UDP, refresh
// monitoring counters and write telemetry.
package daemon

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/facebookincubator/spotmicro/actuation"
	"github.com/facebookincubator/spotmicro/gait"
	"github.com/facebookincubator/spotmicro/motion"
	"github.com/facebookincubator/spotmicro/stats"
)

const (
	// commandQueueSize bounds commands buffered between the listener and
	// the control loop. The loop drains the queue every tick and keeps
	// only the newest command, the buffer just absorbs bursts.
	commandQueueSize = 16
	// sampleQueueSize bounds samples buffered between the control loop
	// and the telemetry logger. A slow disk drops samples instead of
	// stalling the loop.
	sampleQueueSize = 64
	// restSettleTime is how long the servos get to reach the rest pose
	// before shutdown stops their pulses.
	restSettleTime = 500 * time.Millisecond
)

// Daemon is the component that runs continuously, ticks the motion
// machine, does the math and drives the servo controller.
type Daemon struct {
	cfg   *Config
	stats stats.StatsServer
	l     Logger

	machine *motion.Machine
	solver  *motion.AngleSolver
	act     actuation.Actuator

	cmds     chan gait.Command
	samples  chan *Sample
	monitor  *loopMonitor
	sysstats stats.SysStats

	// servos are limp while idle; remembers the previous tick's mode so
	// pulses stop once per transition into idle
	wasIdle   bool
	lastState motion.StateName
	// counter values at the previous health evaluation
	lastHealth map[string]int64
}

// New creates a new robot daemon. A nil Logger disables telemetry.
func New(cfg *Config, stats stats.StatsServer, act actuation.Actuator, l Logger) (*Daemon, error) {
	if err := cfg.Health.Prepare(); err != nil {
		return nil, err
	}
	s := &Daemon{
		cfg:     cfg,
		stats:   stats,
		l:       l,
		machine: motion.NewMachine(&cfg.Gait, cfg.Filters),
		solver:  motion.NewAngleSolver(cfg.Geometry, cfg.Gait.Dimensions()),
		act:     act,
		cmds:    make(chan gait.Command, commandQueueSize),
		samples: make(chan *Sample, sampleQueueSize),
		monitor: newLoopMonitor(cfg.HistorySize),
		wasIdle: true,
	}
	s.lastState = s.machine.CurrentState()
	// control loop counters
	s.stats.SetCounter("loop.ticks", 0)
	s.stats.SetCounter("loop.overruns", 0)
	s.stats.SetCounter("loop.commit_errors", 0)
	s.stats.SetCounter("loop.tick_duration_us.mean", 0)
	s.stats.SetCounter("loop.tick_duration_us.max", 0)
	s.stats.SetCounter("loop.tick_duration_us.stddev", 0)
	// kinematics counters
	s.stats.SetCounter("solver.unreachable", 0)
	// operator command counters
	s.stats.SetCounter("commands.received", 0)
	s.stats.SetCounter("commands.dropped", 0)
	s.stats.SetCounter("commands.invalid", 0)
	// telemetry counters
	s.stats.SetCounter("samples.dropped", 0)
	// state occupancy, 1 marks the active state
	for _, name := range motion.StateNames {
		s.stats.SetCounter("state."+string(name), 0)
	}
	s.stats.SetCounter("state."+string(s.lastState), 1)
	s.stats.SetCounter("gait.phase_index", 0)
	s.stats.SetCounter("health.good", 0)
	return s, nil
}

// tick advances the robot by one control period and returns the telemetry
// sample for it, nil when telemetry is disabled.
func (s *Daemon) tick(cmd gait.Command) (*Sample, error) {
	pose := s.machine.Tick(cmd)
	angles := s.solver.Solve(pose)

	state := s.machine.CurrentState()
	if state != s.lastState {
		s.stats.SetCounter("state."+string(s.lastState), 0)
		s.stats.SetCounter("state."+string(state), 1)
		s.lastState = state
	}
	s.stats.SetCounter("gait.phase_index", int64(s.machine.PhaseIndex()))
	s.stats.SetCounter("solver.unreachable", int64(s.solver.Unreachable()))

	idle := s.machine.IsIdle()
	switch {
	case idle && !s.wasIdle:
		// entering idle stops the pulses so the servos go limp
		if err := s.act.Deactivate(); err != nil {
			log.Errorf("Failed to stop servo pulses: %v", err)
		}
	case !idle:
		s.act.Stage(angles)
		if err := s.act.Commit(); err != nil {
			if err := s.recoverCommit(err); err != nil {
				return nil, err
			}
		}
	}
	s.wasIdle = idle

	if s.l == nil {
		return nil, nil
	}
	return &Sample{
		Tick:       s.machine.Ticks(),
		State:      string(state),
		PhaseIndex: s.machine.PhaseIndex(),
		Command:    cmd,
		Pose:       pose,
		Angles:     angles,
	}, nil
}

// recoverCommit handles a failed servo commit. A transient failure leaves
// the robot parked in the rest pose until the next tick commits again;
// when the rest frame fails too the link is gone and the daemon stops.
func (s *Daemon) recoverCommit(commitErr error) error {
	s.stats.UpdateCounterBy("loop.commit_errors", 1)
	log.Warningf("Failed to commit servo targets: %v", commitErr)
	if err := s.act.Rest(); err != nil {
		// a half-alive link may still take this and leave the servos limp
		if err := s.act.Deactivate(); err != nil {
			log.Errorf("Failed to stop servo pulses: %v", err)
		}
		return fmt.Errorf("servo link down, commit and rest both failed: %w", err)
	}
	return nil
}

// runControlLoop ticks the robot at the gait period until ctx is
// cancelled, then parks it.
func (s *Daemon) runControlLoop(ctx context.Context) error {
	interval := time.Duration(s.cfg.Gait.DT * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	cmd := gait.Command{}
	for {
		select {
		case <-ctx.Done():
			return s.shutdown()
		case <-ticker.C:
		}
		// only the newest queued command matters, older ones are stale
	drain:
		for {
			select {
			case cmd = <-s.cmds:
			default:
				break drain
			}
		}
		start := time.Now()
		smp, err := s.tick(cmd)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		elapsedUS := float64(elapsed) / float64(time.Microsecond)
		s.monitor.push(elapsedUS)
		s.stats.UpdateCounterBy("loop.ticks", 1)
		if elapsed > interval {
			s.stats.UpdateCounterBy("loop.overruns", 1)
			log.Debugf("Control tick overran its %v period: %v", interval, elapsed)
		}
		if smp != nil {
			smp.TickDurationUS = elapsedUS
			select {
			case s.samples <- smp:
			default:
				log.Debugf("Dropping telemetry sample, logger is behind")
				s.stats.UpdateCounterBy("samples.dropped", 1)
			}
		}
	}
}

// shutdown parks the robot: command the rest pose, give the servos a
// moment to reach it, then stop the pulses.
func (s *Daemon) shutdown() error {
	log.Info("Parking the robot")
	if s.machine.IsIdle() {
		return nil
	}
	if err := s.act.Rest(); err != nil {
		log.Errorf("Failed to command rest pose: %v", err)
	} else {
		time.Sleep(restSettleTime)
	}
	if err := s.act.Deactivate(); err != nil {
		log.Errorf("Failed to stop servo pulses: %v", err)
	}
	return nil
}

func (s *Daemon) runSampleLogger(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case smp := <-s.samples:
			if err := s.l.Log(smp); err != nil {
				log.Errorf("failed to log sample: %v", err)
			}
		}
	}
}

// refreshStats publishes process gauges, loop latency aggregates and the
// health verdict.
func (s *Daemon) refreshStats() {
	counts, err := s.sysstats.CollectRuntimeStats(s.cfg.StatsInterval)
	if err != nil {
		log.Errorf("collecting runtime stats: %v", err)
	} else {
		for k, v := range counts {
			s.stats.SetCounter(k, v)
		}
	}
	durations := s.monitor.snapshot()
	if len(durations) > 0 {
		s.stats.SetCounter("loop.tick_duration_us.mean", int64(mean(durations)))
		s.stats.SetCounter("loop.tick_duration_us.max", int64(maxOf(durations)))
		s.stats.SetCounter("loop.tick_duration_us.stddev", int64(stddev(durations)))
	}
	s.evalHealth(durations)
}

// evalHealth runs the health expression over the counter deltas since the
// previous evaluation.
func (s *Daemon) evalHealth(durations []float64) {
	cur := s.stats.Get()
	deltas := map[string]int64{
		"ticks":            cur["loop.ticks"] - s.lastHealth["loop.ticks"],
		"overruns":         cur["loop.overruns"] - s.lastHealth["loop.overruns"],
		"commit_errors":    cur["loop.commit_errors"] - s.lastHealth["loop.commit_errors"],
		"unreachable":      cur["solver.unreachable"] - s.lastHealth["solver.unreachable"],
		"commands_dropped": cur["commands.dropped"] - s.lastHealth["commands.dropped"],
	}
	s.lastHealth = cur
	good, err := s.cfg.Health.Eval(healthParameters(durations, deltas))
	if err != nil {
		log.Errorf("evaluating health check: %v", err)
		s.stats.SetCounter("health.good", 0)
		return
	}
	if !good {
		log.Warningf("Health check failed: %v", deltas)
		s.stats.SetCounter("health.good", 0)
		return
	}
	s.stats.SetCounter("health.good", 1)
}

func (s *Daemon) runMonitor(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.StatsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.refreshStats()
	}
}

// Run drives the robot until ctx is cancelled or the servo link fails.
func (s *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	listener := NewCommandListener(s.cfg.ListenAddr, s.cmds, s.stats)
	g.Go(func() error {
		return listener.Run(ctx)
	})
	g.Go(func() error {
		s.runMonitor(ctx)
		return nil
	})
	if s.l != nil {
		g.Go(func() error {
			s.runSampleLogger(ctx)
			return nil
		})
	}
	g.Go(func() error {
		return s.runControlLoop(ctx)
	})
	return g.Wait()
}
