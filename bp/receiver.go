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
	"context"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Receiver reads beacons off a Transport, validates the header, and demuxes
// each carried payload to the registered client it names, per spec.md
// §4.7's reception logic.
type Receiver struct {
	ownNodeId wiretypes.NodeId
	reg       *Registry
	transport interface {
		ReadFrame(ctx context.Context) ([]byte, error)
	}
	stats *Stats
}

// NewReceiver binds a Receiver to reg and transport for a daemon identified
// by ownNodeId (used to discard self-originated beacons looped back by the
// broadcast medium).
func NewReceiver(ownNodeId wiretypes.NodeId, reg *Registry, transport interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}, stats *Stats) *Receiver {
	return &Receiver{ownNodeId: ownNodeId, reg: reg, transport: transport, stats: stats}
}

// Run reads and demuxes beacons until ctx is done or the transport reports a
// non-cancellation error.
func (r *Receiver) Run(ctx context.Context) error {
	for {
		raw, err := r.transport.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if r.stats != nil {
				r.stats.IncReceiveErrors()
			}
			continue
		}
		if len(raw) == 0 {
			continue
		}
		r.handleFrame(ctx, raw)
	}
}

// handleFrame validates the header and demuxes every carried payload.
func (r *Receiver) handleFrame(ctx context.Context, raw []byte) {
	a := asm.NewAreaForReading(raw, len(raw))
	var hdr Header
	if err := hdr.Deserialize(a); err != nil {
		if r.stats != nil {
			r.stats.IncMalformedBeacons()
		}
		return
	}
	if !hdr.IsWellFormed(r.ownNodeId) {
		if r.stats != nil {
			r.stats.IncMalformedBeacons()
		}
		return
	}
	if r.stats != nil {
		r.stats.RecordBeaconReceived(len(raw))
	}

	for i := uint8(0); i < hdr.NumPayloads; i++ {
		var ph PayloadHeader
		if err := ph.Deserialize(a); err != nil {
			if r.stats != nil {
				r.stats.IncMalformedBeacons()
			}
			return
		}
		payload, err := a.DeserializeByteBlock(int(ph.Length))
		if err != nil {
			if r.stats != nil {
				r.stats.IncMalformedBeacons()
			}
			return
		}
		h, exists := r.reg.Get(ph.ProtocolId)
		if !exists || !h.Active() {
			continue
		}
		if err := h.PushRxIndication(ctx, payload); err != nil && r.stats != nil {
			r.stats.IncPayloadsDropped()
		}
	}
}
