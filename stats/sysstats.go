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
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"
)

var procStartTime = time.Now()

// SysStats gathers cpu, memory and gc counters for the daemon process.
// It keeps the previous memstats snapshot so it can report rates.
type SysStats struct {
	memstats *runtime.MemStats
}

// setRate is a helper function to make a crude rate/diff
func setRate(name string, counts map[string]int64, cur, prev uint64, interval time.Duration) {
	if prev > cur {
		return
	}
	secs := uint64(interval.Seconds())
	if secs == 0 {
		return
	}
	counts[fmt.Sprintf("%s.sum.%d", name, secs)] = int64(cur - prev)
	counts[fmt.Sprintf("%s.rate.%d", name, secs)] = int64((cur - prev) / secs)
}

// CollectRuntimeStats gathers process and Go runtime counters.
func (s *SysStats) CollectRuntimeStats(interval time.Duration) (map[string]int64, error) {
	counts := make(map[string]int64)
	m := &runtime.MemStats{}
	runtime.ReadMemStats(m)
	lastStats := s.memstats

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	counts[ProcessPrefix+"alive_since"] = procStartTime.Unix()
	counts[ProcessPrefix+"uptime"] = time.Now().Unix() - procStartTime.Unix()

	if val, err := proc.Percent(0); err == nil {
		counts[fmt.Sprintf("%scpu_permil.avg.%d", ProcessPrefix, int(interval.Seconds()))] = int64(val * 1000)
	}

	if val, err := proc.MemoryInfo(); err == nil {
		counts[ProcessPrefix+"rss"] = int64(val.RSS)
		counts[ProcessPrefix+"vms"] = int64(val.VMS)
		counts[ProcessPrefix+"swap"] = int64(val.Swap)
	}

	if val, err := proc.NumFDs(); err == nil {
		counts[ProcessPrefix+"num_fds"] = int64(val)
	}

	if val, err := proc.NumThreads(); err == nil {
		counts[ProcessPrefix+"num_threads"] = int64(val)
	}

	counts[RuntimePrefix+"cpu.goroutines"] = int64(runtime.NumGoroutine())
	counts[RuntimePrefix+"mem.alloc"] = int64(m.Alloc)
	counts[RuntimePrefix+"mem.sys"] = int64(m.Sys)
	counts[RuntimePrefix+"mem.heap.alloc"] = int64(m.HeapAlloc)
	counts[RuntimePrefix+"mem.heap.inuse"] = int64(m.HeapInuse)
	counts[RuntimePrefix+"mem.heap.objects"] = int64(m.HeapObjects)
	counts[RuntimePrefix+"mem.gc.count"] = int64(m.NumGC)
	counts[RuntimePrefix+"mem.gc.pause_total"] = int64(m.PauseTotalNs)

	if lastStats != nil {
		setRate(RuntimePrefix+"mem.mallocs", counts, m.Mallocs, lastStats.Mallocs, interval)
		setRate(RuntimePrefix+"mem.frees", counts, m.Frees, lastStats.Frees, interval)
		setRate(RuntimePrefix+"gc.pause_ns", counts, m.PauseTotalNs, lastStats.PauseTotalNs, interval)
		setRate(RuntimePrefix+"gc.count", counts, uint64(m.NumGC), uint64(lastStats.NumGC), interval)
	}
	s.memstats = m
	return counts, nil
}
