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

package dcpstats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
)

// JSONStats is the named counter/gauge set dcpd daemons report over http,
// grounded on ptp/ptp4u/stats.JSONStats's handler-plus-atomic-counters
// shape but keyed by name rather than a fixed struct field list, since
// BP, Vardis and SRP each report a different counter set.
type JSONStats struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewJSONStats returns an empty JSONStats.
func NewJSONStats() *JSONStats {
	return &JSONStats{values: make(map[string]int64)}
}

// Inc adds delta to the named counter, creating it at delta if absent.
func (s *JSONStats) Inc(name string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] += delta
}

// Set overwrites the named gauge.
func (s *JSONStats) Set(name string, value int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[name] = value
}

// Snapshot returns a copy of all current name/value pairs.
func (s *JSONStats) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Reset clears every counter, the way JSONStats.Reset zeroes ptp4u's
// atomic counters.
func (s *JSONStats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]int64)
}

func (s *JSONStats) handleRequest(w http.ResponseWriter, _ *http.Request) {
	js, err := json.Marshal(s.Snapshot())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		log.Errorf("dcpstats: failed to reply: %v", err)
	}
}

// Handler returns an http.Handler serving the current snapshot as JSON,
// for callers that want to mount it under their own mux rather than have
// Start own the listener (e.g. a daemon sharing one monitoring port
// across multiple subsystems).
func (s *JSONStats) Handler() http.Handler {
	return http.HandlerFunc(s.handleRequest)
}

// Start runs a dedicated http server exposing the stats at "/", the way
// ptp4u/stats.JSONStats.Start does.
func (s *JSONStats) Start(monitoringPort int) {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())
	addr := fmt.Sprintf(":%d", monitoringPort)
	log.Infof("dcpstats: starting JSON stats server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("dcpstats: failed to start listener: %v", err)
	}
}
