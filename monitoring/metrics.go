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

// Package monitoring provides the metric abstractions used by the tree and
// its storage backends. Implementations plug in through MetricFactory.
package monitoring

// MetricFactory creates metrics. Each metric has a fixed set of label names,
// and is updated with one value per label.
type MetricFactory interface {
	NewCounter(name, help string, labelNames ...string) Counter
	NewGauge(name, help string, labelNames ...string) Gauge
	NewHistogram(name, help string, labelNames ...string) Histogram
	NewHistogramWithBuckets(name, help string, buckets []float64, labelNames ...string) Histogram
}

// Counter is a metric for values that only increase.
type Counter interface {
	Inc(labelVals ...string)
	Add(val float64, labelVals ...string)
	Value(labelVals ...string) float64
}

// Gauge is a metric for values that go up and down.
type Gauge interface {
	Inc(labelVals ...string)
	Dec(labelVals ...string)
	Add(val float64, labelVals ...string)
	Set(val float64, labelVals ...string)
	// Value returns the value for a set of labels. Mostly useful in tests.
	Value(labelVals ...string) float64
}

// Histogram is a metric tracking the distribution of observations.
type Histogram interface {
	Observe(val float64, labelVals ...string)
	// Info returns the count and sum of the observations for a set of labels.
	// Mostly useful in tests.
	Info(labelVals ...string) (uint64, float64)
}
