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
	"math"
	"sync"

	"github.com/Knetic/govaluate"
	"github.com/eclesh/welford"
)

// HealthHelp is a help message used by flags in main
const HealthHelp = `When composing the health check formula, here is what you can do:
supported operations:
  evaluation is done with govaluate, please check https://github.com/Knetic/govaluate/blob/master/MANUAL.md
supported variables:
  tick_us (list of recent control tick durations, microseconds, newest first)
  ticks (control ticks run since the last evaluation)
  overruns (ticks that blew the control period since the last evaluation)
  commit_errors (failed servo commits since the last evaluation)
  unreachable (unreachable foot targets since the last evaluation)
  commands_dropped (commands dropped since the last evaluation)
supported functions:
  abs(value) - absolute value of single float64, for example abs(-1) = 1
  mean(values, number) - mean of list of 'number' values
  variance(values, number) - variance of list of 'number' values
  stddev(values, number) - standard deviation of list of 'number' values`

// DefaultHealthCheck passes while the loop runs, keeps up with its period
// and the servo link stays clean.
const DefaultHealthCheck = "ticks > 0.0 && mean(tick_us, 50) < 15000.0 && commit_errors == 0.0"

// Health decides whether the control loop is fit, from an expression over
// the recent loop counters.
type Health struct {
	Check string // govaluate expression, true means healthy
	expr  *govaluate.EvaluableExpression
}

// Prepare parses the health expression
func (h *Health) Prepare() error {
	var err error
	h.expr, err = prepareExpression(h.Check)
	if err != nil {
		return fmt.Errorf("evaluating health check: %w", err)
	}
	return nil
}

// Eval runs the health check over the given parameters
func (h *Health) Eval(params map[string]interface{}) (bool, error) {
	res, err := h.expr.Evaluate(params)
	if err != nil {
		return false, err
	}
	good, ok := res.(bool)
	if !ok {
		return false, fmt.Errorf("health check returned %T, want bool", res)
	}
	return good, nil
}

func mean(input []float64) float64 {
	s := welford.New()
	for _, v := range input {
		s.Add(v)
	}
	return s.Mean()
}

func variance(input []float64) float64 {
	s := welford.New()
	for _, v := range input {
		s.Add(v)
	}
	return s.Variance()
}

func stddev(input []float64) float64 {
	s := welford.New()
	for _, v := range input {
		s.Add(v)
	}
	return s.Stddev()
}

func maxOf(input []float64) float64 {
	m := 0.0
	for _, v := range input {
		if v > m {
			m = v
		}
	}
	return m
}

var supportedVariables = []string{
	"tick_us",
	"ticks",
	"overruns",
	"commit_errors",
	"unreachable",
	"commands_dropped",
}

func isSupportedVar(varName string) bool {
	for _, v := range supportedVariables {
		if v == varName {
			return true
		}
	}
	return false
}

// all the functions we support in expressions
var functions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs: wrong number of arguments: want 1, got %d", len(args))
		}
		val := args[0].(float64)
		return math.Abs(val), nil
	},
	"mean": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("mean: wrong number of arguments: want 2, got %d", len(args))
		}
		vals := args[0].([]float64)
		nSamples := int(args[1].(float64))
		if len(vals) < nSamples {
			return mean(vals), nil
		}
		return mean(vals[:nSamples]), nil
	},
	"variance": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("variance: wrong number of arguments: want 2, got %d", len(args))
		}
		vals := args[0].([]float64)
		nSamples := int(args[1].(float64))
		if len(vals) < nSamples {
			return variance(vals), nil
		}
		return variance(vals[:nSamples]), nil
	},
	"stddev": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("stddev: wrong number of arguments: want 2, got %d", len(args))
		}
		vals := args[0].([]float64)
		nSamples := int(args[1].(float64))
		if len(vals) < nSamples {
			return stddev(vals), nil
		}
		return stddev(vals[:nSamples]), nil
	},
}

func prepareExpression(exprStr string) (*govaluate.EvaluableExpression, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(exprStr, functions)
	if err != nil {
		return nil, err
	}
	for _, v := range expr.Vars() {
		if !isSupportedVar(v) {
			return nil, fmt.Errorf("unsupported variable %q", v)
		}
	}
	return expr, nil
}

// healthParameters packs the duration ring and the per-interval counter
// deltas into evaluation parameters.
func healthParameters(tickUS []float64, deltas map[string]int64) map[string]interface{} {
	params := map[string]interface{}{
		"tick_us": tickUS,
	}
	for k, v := range deltas {
		params[k] = float64(v)
	}
	return params
}

// loopMonitor keeps the recent control tick durations. The control loop
// pushes, the stats goroutine snapshots.
type loopMonitor struct {
	mu        sync.Mutex
	durations []float64
	next      int
	filled    bool
}

func newLoopMonitor(size int) *loopMonitor {
	return &loopMonitor{durations: make([]float64, size)}
}

// push records one tick duration in microseconds
func (m *loopMonitor) push(d float64) {
	m.mu.Lock()
	m.durations[m.next] = d
	m.next++
	if m.next >= len(m.durations) {
		m.next = 0
		m.filled = true
	}
	m.mu.Unlock()
}

// snapshot returns the recorded durations, newest first
func (m *loopMonitor) snapshot() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	size := m.next
	if m.filled {
		size = len(m.durations)
	}
	out := make([]float64, size)
	pos := m.next
	for i := 0; i < size; i++ {
		pos--
		if pos < 0 {
			pos = len(m.durations) - 1
		}
		out[i] = m.durations[pos]
	}
	return out
}
