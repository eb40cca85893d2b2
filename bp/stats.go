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

package bp

import (
	"time"

	"github.com/dcp-vardis/dcpd/dcpstats"
)

// Stats wires BP's running counters (spec.md §6's avg_beacon_size and
// avg_inter_beacon_reception_time among them) into a shared dcpstats.JSONStats
// sink and a pair of EWMAs for the two averaged quantities.
type Stats struct {
	sink *dcpstats.JSONStats

	beaconSize  *dcpstats.EWMA
	interRecv   *dcpstats.EWMA
	lastReceive time.Time
}

// NewStats creates BP statistics reporting into sink, with EWMA smoothing
// factors taken from config (dcpconfig.BPConfig's BeaconSizeEWMAAlpha /
// InterBeaconTimeEWMAAlpha).
func NewStats(sink *dcpstats.JSONStats, beaconSizeAlpha, interBeaconAlpha float64) *Stats {
	return &Stats{
		sink:       sink,
		beaconSize: dcpstats.NewEWMA(beaconSizeAlpha),
		interRecv:  dcpstats.NewEWMA(interBeaconAlpha),
	}
}

// RecordBeaconSent updates the sent-beacon counters and size average.
func (s *Stats) RecordBeaconSent(size int) {
	s.sink.Inc("bp.beacons_sent", 1)
	s.sink.Set("bp.avg_beacon_size", int64(s.beaconSize.Update(float64(size))))
}

// RecordBeaconReceived updates the received-beacon counters and the
// inter-beacon-reception-time average.
func (s *Stats) RecordBeaconReceived(size int) {
	now := time.Now()
	s.sink.Inc("bp.beacons_received", 1)
	s.sink.Inc("bp.bytes_received", int64(size))
	if !s.lastReceive.IsZero() {
		gap := now.Sub(s.lastReceive)
		s.sink.Set("bp.avg_inter_beacon_reception_time_ms", int64(s.interRecv.Update(float64(gap.Milliseconds()))))
	}
	s.lastReceive = now
}

// IncMalformedBeacons counts a beacon that failed header validation.
func (s *Stats) IncMalformedBeacons() { s.sink.Inc("bp.malformed_beacons", 1) }

// IncPayloadsDropped counts a payload discarded for not fitting a beacon,
// or a client queue rejecting a received indication.
func (s *Stats) IncPayloadsDropped() { s.sink.Inc("bp.payloads_dropped", 1) }

// IncTransmitErrors counts a failed transport write.
func (s *Stats) IncTransmitErrors() { s.sink.Inc("bp.transmit_errors", 1) }

// IncReceiveErrors counts a failed transport read.
func (s *Stats) IncReceiveErrors() { s.sink.Inc("bp.receive_errors", 1) }
