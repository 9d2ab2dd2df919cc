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

// Package stats collects and serves the daemon's monitoring counters.
// Counters are a flat string-to-int64 map served as JSON on the monitoring
// port; everything else (CLI status, Prometheus export) consumes that map.
package stats

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// counter namespaces served by the monitoring endpoint
const (
	LoopPrefix    = "loop."
	StatePrefix   = "state."
	GaitPrefix    = "gait."
	ProcessPrefix = "process."
	RuntimePrefix = "runtime."
)

// StatsServer is a stats server interface
type StatsServer interface {
	// Reset atomically sets all the counters to 0
	Reset()
	SetCounter(key string, val int64)
	UpdateCounterBy(key string, count int64)
	// Get returns a copy of the counters
	Get() map[string]int64
}

// Stats is a thread-safe counter map
type Stats struct {
	mux      sync.Mutex
	counters map[string]int64
}

// NewStats creates a new instance of Stats
func NewStats() *Stats {
	return &Stats{
		counters: map[string]int64{},
	}
}

// UpdateCounterBy will increment a counter
func (s *Stats) UpdateCounterBy(key string, count int64) {
	s.mux.Lock()
	s.counters[key] += count
	s.mux.Unlock()
}

// SetCounter will set a counter to the provided value.
func (s *Stats) SetCounter(key string, val int64) {
	s.mux.Lock()
	s.counters[key] = val
	s.mux.Unlock()
}

// Get returns a copy of the counters
func (s *Stats) Get() map[string]int64 {
	ret := make(map[string]int64)
	s.mux.Lock()
	for key, val := range s.counters {
		ret[key] = val
	}
	s.mux.Unlock()
	return ret
}

// Copy all key-values between maps
func (s *Stats) Copy(dst *Stats) {
	s.mux.Lock()
	for k, v := range s.counters {
		dst.SetCounter(k, v)
	}
	s.mux.Unlock()
}

// Reset all the values of counters
func (s *Stats) Reset() {
	s.mux.Lock()
	for k := range s.counters {
		s.counters[k] = 0
	}
	s.mux.Unlock()
}

// Counters is the flat counter map fetched from the monitoring endpoint.
type Counters map[string]int64

// Prefixed returns the counters under prefix, with the prefix trimmed.
func (c Counters) Prefixed(prefix string) map[string]int64 {
	res := map[string]int64{}
	for k, v := range c {
		if strings.HasPrefix(k, prefix) {
			res[strings.TrimPrefix(k, prefix)] = v
		}
	}
	return res
}

// LoopStats returns the control loop counters.
func (c Counters) LoopStats() map[string]int64 {
	return c.Prefixed(LoopPrefix)
}

// States returns the state occupancy counters, 1 for the active state.
func (c Counters) States() map[string]int64 {
	return c.Prefixed(StatePrefix)
}

// CurrentState returns the name of the active motion state, or "unknown"
// when the occupancy counters are missing or ambiguous.
func (c Counters) CurrentState() string {
	current := "unknown"
	for name, v := range c.States() {
		if v != 1 {
			continue
		}
		if current != "unknown" {
			return "unknown"
		}
		current = name
	}
	return current
}

// FetchCounters returns the counter map fetched from the url
func FetchCounters(url string) (Counters, error) {
	counters := make(Counters)
	c := http.Client{
		Timeout: time.Second * 2,
	}

	resp, err := c.Get(url)
	if err != nil {
		return counters, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return counters, err
	}
	err = json.Unmarshal(b, &counters)
	return counters, err
}
