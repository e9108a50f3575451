// Copyright 2026 The Sumtree Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitoring

import (
	"strings"
	"sync"

	"k8s.io/klog/v2"
)

// InertMetricFactory creates metrics that are kept in memory and exported
// nowhere. It is the default when no other factory is configured.
type InertMetricFactory struct{}

// NewCounter creates a new inert Counter.
func (InertMetricFactory) NewCounter(name, help string, labelNames ...string) Counter {
	return newInertFloat(name, labelNames)
}

// NewGauge creates a new inert Gauge.
func (InertMetricFactory) NewGauge(name, help string, labelNames ...string) Gauge {
	return newInertFloat(name, labelNames)
}

// NewHistogram creates a new inert Histogram.
func (InertMetricFactory) NewHistogram(name, help string, labelNames ...string) Histogram {
	return &InertDistribution{
		inertLabels: inertLabels{name: name, count: len(labelNames)},
		counts:      make(map[string]uint64),
		sums:        make(map[string]float64),
	}
}

// NewHistogramWithBuckets creates a new inert Histogram. The buckets are
// ignored.
func (imf InertMetricFactory) NewHistogramWithBuckets(name, help string, _ []float64, labelNames ...string) Histogram {
	return imf.NewHistogram(name, help, labelNames...)
}

// inertLabels maps label values to the key of the series they select.
type inertLabels struct {
	name  string
	count int
}

func (l inertLabels) key(vals []string) (string, bool) {
	if len(vals) != l.count {
		klog.Errorf("metric %s: got %d label values, want %d", l.name, len(vals), l.count)
		return "", false
	}
	return strings.Join(vals, "|"), true
}

// InertFloat implements both Counter and Gauge.
type InertFloat struct {
	inertLabels
	mu   sync.Mutex
	vals map[string]float64
}

func newInertFloat(name string, labelNames []string) *InertFloat {
	return &InertFloat{
		inertLabels: inertLabels{name: name, count: len(labelNames)},
		vals:        make(map[string]float64),
	}
}

// Inc adds 1 to the value.
func (m *InertFloat) Inc(labelVals ...string) {
	m.Add(1, labelVals...)
}

// Dec subtracts 1 from the value.
func (m *InertFloat) Dec(labelVals ...string) {
	m.Add(-1, labelVals...)
}

// Add adds the given amount to the value.
func (m *InertFloat) Add(val float64, labelVals ...string) {
	m.update(labelVals, func(v float64) float64 { return v + val })
}

// Set sets the value.
func (m *InertFloat) Set(val float64, labelVals ...string) {
	m.update(labelVals, func(float64) float64 { return val })
}

func (m *InertFloat) update(labelVals []string, f func(float64) float64) {
	key, ok := m.key(labelVals)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[key] = f(m.vals[key])
}

// Value returns the current value.
func (m *InertFloat) Value(labelVals ...string) float64 {
	key, ok := m.key(labelVals)
	if !ok {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.vals[key]
}

// InertDistribution implements Histogram.
type InertDistribution struct {
	inertLabels
	mu     sync.Mutex
	counts map[string]uint64
	sums   map[string]float64
}

// Observe adds a single observation to the distribution.
func (m *InertDistribution) Observe(val float64, labelVals ...string) {
	key, ok := m.key(labelVals)
	if !ok {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	m.sums[key] += val
}

// Info returns the count and sum of the observations.
func (m *InertDistribution) Info(labelVals ...string) (uint64, float64) {
	key, ok := m.key(labelVals)
	if !ok {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key], m.sums[key]
}

