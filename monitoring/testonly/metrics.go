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

// Package testonly holds checks that every MetricFactory implementation is
// expected to pass.
package testonly

import (
	"testing"

	"github.com/sumtree/sumtree/monitoring"
)

// labelCases are the label sets each metric kind is checked with.
var labelCases = []struct {
	suffix     string
	labelNames []string
	labelVals  []string
}{
	{suffix: "0"},
	{suffix: "1", labelNames: []string{"key1"}, labelVals: []string{"val1"}},
	{suffix: "2", labelNames: []string{"key1", "key2"}, labelVals: []string{"val1", "val2"}},
}

// bogus returns label values of the wrong length.
func bogus(vals []string) []string {
	return append(append([]string{}, vals...), "bogus")
}

// TestCounter runs a test on a Counter produced from the provided MetricFactory.
func TestCounter(t *testing.T, factory monitoring.MetricFactory) {
	t.Helper()
	for _, lc := range labelCases {
		name := "test_counter" + lc.suffix
		counter := factory.NewCounter(name, "Test only", lc.labelNames...)
		check := func(want float64) {
			t.Helper()
			if got := counter.Value(lc.labelVals...); got != want {
				t.Errorf("Counter(%s)[%v].Value()=%v; want %v", name, lc.labelVals, got, want)
			}
		}
		check(0)
		counter.Inc(lc.labelVals...)
		check(1)
		counter.Add(2.5, lc.labelVals...)
		check(3.5)

		wrong := bogus(lc.labelVals)
		counter.Add(10, wrong...)
		counter.Inc(wrong...)
		if got := counter.Value(wrong...); got != 0 {
			t.Errorf("Counter(%s)[%v].Value()=%v; want 0", name, wrong, got)
		}
		check(3.5)
	}
}

// TestGauge runs a test on a Gauge produced from the provided MetricFactory.
func TestGauge(t *testing.T, factory monitoring.MetricFactory) {
	t.Helper()
	for _, lc := range labelCases {
		name := "test_gauge" + lc.suffix
		gauge := factory.NewGauge(name, "Test only", lc.labelNames...)
		check := func(want float64) {
			t.Helper()
			if got := gauge.Value(lc.labelVals...); got != want {
				t.Errorf("Gauge(%s)[%v].Value()=%v; want %v", name, lc.labelVals, got, want)
			}
		}
		check(0)
		gauge.Inc(lc.labelVals...)
		check(1)
		gauge.Dec(lc.labelVals...)
		check(0)
		gauge.Add(2.5, lc.labelVals...)
		check(2.5)
		gauge.Set(42, lc.labelVals...)
		check(42)

		wrong := bogus(lc.labelVals)
		gauge.Add(10, wrong...)
		gauge.Inc(wrong...)
		gauge.Dec(wrong...)
		gauge.Set(120, wrong...)
		if got := gauge.Value(wrong...); got != 0 {
			t.Errorf("Gauge(%s)[%v].Value()=%v; want 0", name, wrong, got)
		}
		check(42)
	}
}

// TestHistogram runs a test on a Histogram produced from the provided MetricFactory.
func TestHistogram(t *testing.T, factory monitoring.MetricFactory) {
	t.Helper()
	for _, lc := range labelCases {
		name := "test_histogram" + lc.suffix
		histogram := factory.NewHistogramWithBuckets(name, "Test only", monitoring.ExpBuckets(1, 2, 4), lc.labelNames...)
		check := func(wantCount uint64, wantSum float64) {
			t.Helper()
			if gotCount, gotSum := histogram.Info(lc.labelVals...); gotCount != wantCount || gotSum != wantSum {
				t.Errorf("Histogram(%s)[%v].Info()=%v,%v; want %v,%v", name, lc.labelVals, gotCount, gotSum, wantCount, wantSum)
			}
		}
		check(0, 0)
		histogram.Observe(1, lc.labelVals...)
		histogram.Observe(2, lc.labelVals...)
		histogram.Observe(3, lc.labelVals...)
		check(3, 6)

		wrong := bogus(lc.labelVals)
		histogram.Observe(100, wrong...)
		if gotCount, gotSum := histogram.Info(wrong...); gotCount != 0 || gotSum != 0 {
			t.Errorf("Histogram(%s)[%v].Info()=%v,%v; want 0,0", name, wrong, gotCount, gotSum)
		}
		check(3, 6)
	}
}
