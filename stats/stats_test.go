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

package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/maps"
)

func TestStats(t *testing.T) {
	s := NewStats()
	s.SetCounter("loop.ticks", 100)
	s.UpdateCounterBy("loop.ticks", 5)
	s.UpdateCounterBy("loop.overruns", 1)

	require.Equal(t, map[string]int64{"loop.ticks": 105, "loop.overruns": 1}, s.Get())

	dst := NewStats()
	s.Copy(dst)
	require.Equal(t, s.Get(), dst.Get())

	s.Reset()
	require.Equal(t, map[string]int64{"loop.ticks": 0, "loop.overruns": 0}, s.Get())
}

func TestJSONStats(t *testing.T) {
	s := NewJSONStats()
	s.SetCounter("loop.ticks", 42)
	s.SetCounter("state.walk", 1)

	ts := httptest.NewServer(http.HandlerFunc(s.handleRequest))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var counters map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&counters))
	require.Equal(t, map[string]int64{"loop.ticks": 42, "state.walk": 1}, counters)
}

func TestFetchCounters(t *testing.T) {
	sampleResp := `{"loop.ticks":4656,"loop.overruns":3,"state.walk":1,"state.idle":0,"gait.phase_index":5,"process.uptime":1140}`
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, sampleResp)
	}))
	defer ts.Close()

	expected := Counters{
		"loop.ticks":       4656,
		"loop.overruns":    3,
		"state.walk":       1,
		"state.idle":       0,
		"gait.phase_index": 5,
		"process.uptime":   1140,
	}

	actual, err := FetchCounters(ts.URL)
	require.NoError(t, err)
	require.Equal(t, expected, actual)
}

func TestCountersPrefixed(t *testing.T) {
	c := Counters{
		"loop.ticks":    100,
		"loop.overruns": 2,
		"state.stand":   1,
		"state.idle":    0,
	}

	require.Equal(t, map[string]int64{"ticks": 100, "overruns": 2}, c.LoopStats())
	require.Equal(t, map[string]int64{"stand": 1, "idle": 0}, c.States())
}

func TestCountersCurrentState(t *testing.T) {
	c := Counters{
		"state.idle":  0,
		"state.stand": 1,
		"state.walk":  0,
	}
	require.Equal(t, "stand", c.CurrentState())

	// two states claiming active means the snapshot is inconsistent
	c["state.walk"] = 1
	require.Equal(t, "unknown", c.CurrentState())

	require.Equal(t, "unknown", Counters{}.CurrentState())
}

var expectedNonAggregateKeys = []string{"process.alive_since", "process.uptime", "process.cpu_permil.avg.1", "process.rss", "process.vms", "process.swap", "process.num_fds", "process.num_threads", "runtime.cpu.goroutines", "runtime.mem.alloc", "runtime.mem.sys", "runtime.mem.heap.alloc", "runtime.mem.heap.inuse", "runtime.mem.heap.objects", "runtime.mem.gc.count", "runtime.mem.gc.pause_total"}
var expectedAggKeys = []string{"runtime.mem.mallocs.rate.1", "runtime.mem.mallocs.sum.1", "runtime.mem.frees.rate.1", "runtime.mem.frees.sum.1", "runtime.gc.count.rate.1", "runtime.gc.count.sum.1", "runtime.gc.pause_ns.rate.1", "runtime.gc.pause_ns.sum.1"}

func TestSysStatsCollect(t *testing.T) {
	s := &SysStats{}
	interval := time.Second

	collected, err := s.CollectRuntimeStats(interval)
	require.NoError(t, err)
	keys := maps.Keys(collected)
	require.ElementsMatch(t, keys, expectedNonAggregateKeys)
	require.Greater(t, collected["runtime.cpu.goroutines"], int64(0))

	// Run collection again to get aggregated metrics too
	collected, err = s.CollectRuntimeStats(interval)
	require.NoError(t, err)
	keys = maps.Keys(collected)
	require.ElementsMatch(t, keys, append(expectedNonAggregateKeys, expectedAggKeys...))
}

func TestSetRate(t *testing.T) {
	counts := make(map[string]int64)
	intervaltime := time.Second * time.Duration(5)
	setRate("test", counts, 20, 1, intervaltime)

	expected := map[string]int64{
		"test.sum.5":  19,
		"test.rate.5": 3,
	}
	require.Equal(t, expected, counts)
}

func TestPrometheusExporterScrape(t *testing.T) {
	counters := map[string]int64{"loop.overruns": 3}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(counters))
	}))
	defer ts.Close()

	e := NewPrometheusExporter(0, 0, time.Second)
	e.monitoringURL = ts.URL
	e.scrapeMetrics()

	expected := `
# HELP loop_overruns loop.overruns
# TYPE loop_overruns gauge
loop_overruns 3
`
	require.NoError(t, testutil.GatherAndCompare(e.registry, strings.NewReader(expected), "loop_overruns"))

	// rescrape updates the existing gauge instead of failing to register
	counters["loop.overruns"] = 5
	e.scrapeMetrics()
	expected = `
# HELP loop_overruns loop.overruns
# TYPE loop_overruns gauge
loop_overruns 5
`
	require.NoError(t, testutil.GatherAndCompare(e.registry, strings.NewReader(expected), "loop_overruns"))
}

func TestFlattenKey(t *testing.T) {
	require.Equal(t, "loop_tick_duration_us_p50", flattenKey("loop.tick_duration_us.p50"))
	require.Equal(t, "state_transit_stand", flattenKey("state.transit-stand"))
	require.Equal(t, "a_b_c_d", flattenKey("a.b c/d"))
}
