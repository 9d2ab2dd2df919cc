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
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facebookincubator/spotmicro/actuation"
	"github.com/facebookincubator/spotmicro/body"
	"github.com/facebookincubator/spotmicro/gait"
	"github.com/facebookincubator/spotmicro/stats"
)

// testDaemonConfig ticks at 1ms with filters loose enough that stand and
// lie transitions converge within a few ticks.
func testDaemonConfig(t *testing.T) *Config {
	cfg := DefaultConfig()
	cfg.Actuator = ActuatorFake
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Gait.DT = 0.001
	cfg.Filters.Tau = 0.002
	cfg.Filters.RateLimit = 1e6
	cfg.Filters.AngleRateLimit = 1e6
	cfg.Filters.Tolerance = 2.0
	cfg.StatsInterval = 10 * time.Millisecond
	cfg.HistorySize = 64
	require.NoError(t, cfg.EvalAndValidate())
	return cfg
}

func startDaemon(t *testing.T, d *Daemon) (cancel func(), errCh chan error) {
	ctx, stop := context.WithCancel(context.Background())
	errCh = make(chan error, 1)
	go func() {
		errCh <- d.Run(ctx)
	}()
	t.Cleanup(stop)
	return stop, errCh
}

func waitDaemon(t *testing.T, errCh chan error) error {
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	return nil
}

func TestNewSeedsCounters(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	_, err = New(cfg, st, fake, nil)
	require.NoError(t, err)

	counters := st.Get()
	for _, key := range []string{
		"loop.ticks",
		"loop.overruns",
		"loop.commit_errors",
		"solver.unreachable",
		"commands.received",
		"commands.dropped",
		"commands.invalid",
		"samples.dropped",
		"gait.phase_index",
		"health.good",
		"state.stand",
		"state.walk",
	} {
		require.Contains(t, counters, key)
		require.Equal(t, int64(0), counters[key], key)
	}
	// the robot starts idle and limp
	require.Equal(t, int64(1), counters["state.idle"])
	require.Equal(t, "idle", stats.Counters(counters).CurrentState())
}

func TestDaemonIdleKeepsServosLimp(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	d, err := New(cfg, st, fake, nil)
	require.NoError(t, err)

	cancel, errCh := startDaemon(t, d)
	require.Eventually(t, func() bool {
		return st.Get()["loop.ticks"] >= 20
	}, 5*time.Second, 5*time.Millisecond)

	// no pulses while idle
	require.Empty(t, fake.Frames())
	require.Zero(t, fake.Rests())

	cancel()
	require.NoError(t, waitDaemon(t, errCh))
	// parking an already limp robot touches nothing
	require.Zero(t, fake.Rests())
	require.Zero(t, fake.Deactivations())
}

func TestDaemonStandWalkIdle(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	d, err := New(cfg, st, fake, nil)
	require.NoError(t, err)

	cancel, errCh := startDaemon(t, d)

	d.cmds <- gait.Command{Stand: true}
	require.Eventually(t, func() bool {
		return st.Get()["state.stand"] == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.NotEmpty(t, fake.Frames())
	require.Len(t, fake.LastFrame(), body.NumServos)

	d.cmds <- gait.Command{Walk: true, XVelocity: 100}
	require.Eventually(t, func() bool {
		return st.Get()["state.walk"] == 1
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return st.Get()["health.good"] == 1
	}, 5*time.Second, 5*time.Millisecond)

	d.cmds <- gait.Command{Idle: true}
	require.Eventually(t, func() bool {
		return st.Get()["state.idle"] == 1 && fake.Deactivations() == 1
	}, 5*time.Second, 5*time.Millisecond)

	// once idle the frames stop
	n := len(fake.Frames())
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, n, len(fake.Frames()))

	d.cmds <- gait.Command{Stand: true}
	require.Eventually(t, func() bool {
		return len(fake.Frames()) > n
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, waitDaemon(t, errCh))
}

func TestDaemonShutdownParks(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	d, err := New(cfg, st, fake, nil)
	require.NoError(t, err)

	cancel, errCh := startDaemon(t, d)

	d.cmds <- gait.Command{Stand: true}
	require.Eventually(t, func() bool {
		return st.Get()["state.stand"] == 1
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, waitDaemon(t, errCh))
	require.Equal(t, 1, fake.Rests())
	require.Equal(t, 1, fake.Deactivations())
}

func TestDaemonCommitFailureParks(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	d, err := New(cfg, st, fake, nil)
	require.NoError(t, err)

	cancel, errCh := startDaemon(t, d)
	d.cmds <- gait.Command{Stand: true}
	require.Eventually(t, func() bool {
		return st.Get()["state.stand"] == 1
	}, 5*time.Second, 5*time.Millisecond)

	// a glitching link fails commits, every failed commit rests the robot
	fake.SetCommitError(errors.New("serial write timeout"))
	require.Eventually(t, func() bool {
		return st.Get()["loop.commit_errors"] >= 5 && fake.Rests() >= 5
	}, 5*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return st.Get()["health.good"] == 0
	}, 5*time.Second, 5*time.Millisecond)

	// once the glitch clears the commits resume and the resting stops
	fake.SetCommitError(nil)
	n := len(fake.Frames())
	rests := fake.Rests()
	require.Eventually(t, func() bool {
		return len(fake.Frames())-n > fake.Rests()-rests+10
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, waitDaemon(t, errCh))
}

func TestDaemonCommitFailureFatal(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	fake.SetCommitError(errors.New("controller unplugged"))
	fake.SetRestError(errors.New("controller unplugged"))
	d, err := New(cfg, st, fake, nil)
	require.NoError(t, err)

	_, errCh := startDaemon(t, d)
	d.cmds <- gait.Command{Stand: true}

	err = waitDaemon(t, errCh)
	require.Error(t, err)
	require.Contains(t, err.Error(), "servo link down")
	require.Equal(t, int64(1), st.Get()["loop.commit_errors"])
	// nothing reached the servos but the loop still tried to leave them limp
	require.Zero(t, fake.Rests())
	require.Equal(t, 1, fake.Deactivations())
}

func TestDaemonWritesTelemetry(t *testing.T) {
	cfg := testDaemonConfig(t)
	st := stats.NewStats()
	fake, err := actuation.NewFake(cfg.Servos)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	d, err := New(cfg, st, fake, NewCSVLogger(buf))
	require.NoError(t, err)

	cancel, errCh := startDaemon(t, d)
	d.cmds <- gait.Command{Stand: true}
	require.Eventually(t, func() bool {
		return st.Get()["loop.ticks"] >= 50
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, waitDaemon(t, errCh))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Greater(t, len(lines), 10)
	require.Equal(t, strings.Join(header, ","), lines[0])
	for _, line := range lines[1:] {
		require.Len(t, strings.Split(line, ","), len(header))
	}
}
