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

// Package clock abstracts the system clock, so that tests can control the
// time seen by the tree when it measures operation latencies.
package clock

import (
	"sync"
	"time"
)

// System is the TimeSource backed by the system clock.
var System TimeSource = systemTimeSource{}

// TimeSource provides the current time.
type TimeSource interface {
	Now() time.Time
}

// SecondsSince returns the seconds elapsed since t, as measured by ts.
func SecondsSince(ts TimeSource, t time.Time) float64 {
	return ts.Now().Sub(t).Seconds()
}

type systemTimeSource struct{}

func (systemTimeSource) Now() time.Time {
	return time.Now()
}

// FakeTimeSource is a TimeSource whose time is set explicitly. For tests only.
type FakeTimeSource struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFake returns a FakeTimeSource set to t.
func NewFake(t time.Time) *FakeTimeSource {
	return &FakeTimeSource{now: t}
}

// Now returns the time the source is set to.
func (f *FakeTimeSource) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set changes the time the source reports.
func (f *FakeTimeSource) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the time the source reports forward by d.
func (f *FakeTimeSource) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// PredefinedFake is a TimeSource returning Base+Delays[i] on its i-th call.
// It must not be called more than len(Delays) times.
type PredefinedFake struct {
	Base   time.Time
	Delays []time.Duration
	Next   int
}

// Now returns the next predefined time.
func (p *PredefinedFake) Now() time.Time {
	t := p.Base.Add(p.Delays[p.Next])
	p.Next++
	return t
}
