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

// Package prometheus provides a Prometheus-based implementation of the
// MetricFactory abstraction.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/sumtree/sumtree/monitoring"
	"k8s.io/klog/v2"
)

// MetricFactory creates Prometheus metrics. Names are prefixed with Prefix,
// and metrics are registered with Registerer, or with the default Prometheus
// registry if it is nil.
type MetricFactory struct {
	Prefix     string
	Registerer prometheus.Registerer
}

func (pmf MetricFactory) register(c prometheus.Collector) {
	r := pmf.Registerer
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	r.MustRegister(c)
}

// NewCounter creates a new Counter object backed by Prometheus.
func (pmf MetricFactory) NewCounter(name, help string, labelNames ...string) monitoring.Counter {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: pmf.Prefix + name, Help: help}, labelNames)
	pmf.register(vec)
	return &Counter{labelNames: labelNames, vec: vec}
}

// NewGauge creates a new Gauge object backed by Prometheus.
func (pmf MetricFactory) NewGauge(name, help string, labelNames ...string) monitoring.Gauge {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: pmf.Prefix + name, Help: help}, labelNames)
	pmf.register(vec)
	return &Gauge{labelNames: labelNames, vec: vec}
}

// NewHistogram creates a new Histogram object backed by Prometheus, with the
// default Prometheus buckets.
func (pmf MetricFactory) NewHistogram(name, help string, labelNames ...string) monitoring.Histogram {
	return pmf.NewHistogramWithBuckets(name, help, prometheus.DefBuckets, labelNames...)
}

// NewHistogramWithBuckets creates a new Histogram object backed by Prometheus,
// with the given bucket upper limits.
func (pmf MetricFactory) NewHistogramWithBuckets(name, help string, buckets []float64, labelNames ...string) monitoring.Histogram {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: pmf.Prefix + name, Help: help, Buckets: buckets}, labelNames)
	pmf.register(vec)
	return &Histogram{labelNames: labelNames, vec: vec}
}

// Counter is a wrapper around a Prometheus CounterVec object.
type Counter struct {
	labelNames []string
	vec        *prometheus.CounterVec
}

func (m *Counter) with(labelVals []string) prometheus.Counter {
	labels, err := labelsFor(m.labelNames, labelVals)
	if err != nil {
		klog.Error(err)
		return nil
	}
	return m.vec.With(labels)
}

// Inc adds 1 to a counter.
func (m *Counter) Inc(labelVals ...string) {
	if c := m.with(labelVals); c != nil {
		c.Inc()
	}
}

// Add adds the given amount to a counter.
func (m *Counter) Add(val float64, labelVals ...string) {
	if c := m.with(labelVals); c != nil {
		c.Add(val)
	}
}

// Value returns the current amount of a counter.
func (m *Counter) Value(labelVals ...string) float64 {
	c := m.with(labelVals)
	if c == nil {
		return 0
	}
	metricpb, ok := read(c)
	if !ok || metricpb.Counter == nil {
		return 0
	}
	return metricpb.Counter.GetValue()
}

// Gauge is a wrapper around a Prometheus GaugeVec object.
type Gauge struct {
	labelNames []string
	vec        *prometheus.GaugeVec
}

func (m *Gauge) with(labelVals []string) prometheus.Gauge {
	labels, err := labelsFor(m.labelNames, labelVals)
	if err != nil {
		klog.Error(err)
		return nil
	}
	return m.vec.With(labels)
}

// Inc adds 1 to a gauge.
func (m *Gauge) Inc(labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Inc()
	}
}

// Dec subtracts 1 from a gauge.
func (m *Gauge) Dec(labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Dec()
	}
}

// Add adds given value to a gauge.
func (m *Gauge) Add(val float64, labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Add(val)
	}
}

// Set sets the value of a gauge.
func (m *Gauge) Set(val float64, labelVals ...string) {
	if g := m.with(labelVals); g != nil {
		g.Set(val)
	}
}

// Value returns the current amount of a gauge.
func (m *Gauge) Value(labelVals ...string) float64 {
	g := m.with(labelVals)
	if g == nil {
		return 0
	}
	metricpb, ok := read(g)
	if !ok || metricpb.Gauge == nil {
		return 0
	}
	return metricpb.Gauge.GetValue()
}

// Histogram is a wrapper around a Prometheus HistogramVec object.
type Histogram struct {
	labelNames []string
	vec        *prometheus.HistogramVec
}

func (m *Histogram) with(labelVals []string) prometheus.Observer {
	labels, err := labelsFor(m.labelNames, labelVals)
	if err != nil {
		klog.Error(err)
		return nil
	}
	return m.vec.With(labels)
}

// Observe adds a single observation to the histogram.
func (m *Histogram) Observe(val float64, labelVals ...string) {
	if o := m.with(labelVals); o != nil {
		o.Observe(val)
	}
}

// Info returns the count and sum of observations for the histogram.
func (m *Histogram) Info(labelVals ...string) (uint64, float64) {
	o := m.with(labelVals)
	if o == nil {
		return 0, 0
	}
	metricpb, ok := read(o.(prometheus.Metric))
	if !ok || metricpb.Histogram == nil {
		return 0, 0
	}
	return metricpb.Histogram.GetSampleCount(), metricpb.Histogram.GetSampleSum()
}

func read(m prometheus.Metric) (*dto.Metric, bool) {
	var metricpb dto.Metric
	if err := m.Write(&metricpb); err != nil {
		klog.Errorf("failed to Write metric: %v", err)
		return nil, false
	}
	return &metricpb, true
}

func labelsFor(names, values []string) (prometheus.Labels, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("got %d (%v) values for %d labels (%v)", len(values), values, len(names), names)
	}
	labels := make(prometheus.Labels, len(names))
	for i, name := range names {
		labels[name] = values[i]
	}
	return labels, nil
}
