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
	"math/rand"
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// TransmitterConfig parametrizes the beacon-assembly loop of spec.md §4.6.
type TransmitterConfig struct {
	OwnNodeId     wiretypes.NodeId
	AvgPeriod     time.Duration
	JitterFactor  float64 // in [0,1); actual period is uniform in AvgPeriod*(1±JitterFactor)
	MaxBeaconSize int     // total frame payload capacity, header included
}

// nextInterval returns a jittered sleep duration the way ptp4u/server picks
// a randomized per-worker delay: uniform within AvgPeriod*(1±JitterFactor).
func nextInterval(r *rand.Rand, cfg TransmitterConfig) time.Duration {
	if cfg.JitterFactor <= 0 {
		return cfg.AvgPeriod
	}
	spread := float64(cfg.AvgPeriod) * cfg.JitterFactor
	delta := (r.Float64()*2 - 1) * spread
	d := time.Duration(float64(cfg.AvgPeriod) + delta)
	if d < 0 {
		d = 0
	}
	return d
}

// Transmitter periodically assembles one beacon from the registry's active
// clients' queued payloads and hands it to a Transport, per spec.md §4.6's
// transmission scheduling.
type Transmitter struct {
	cfg       TransmitterConfig
	reg       *Registry
	transport interface {
		WriteFrame(ctx context.Context, payload []byte) error
	}
	stats *Stats
	seqno uint32
	rnd   *rand.Rand
}

// NewTransmitter binds a Transmitter to reg and transport.
func NewTransmitter(cfg TransmitterConfig, reg *Registry, transport interface {
	WriteFrame(ctx context.Context, payload []byte) error
}, stats *Stats) *Transmitter {
	return &Transmitter{
		cfg:       cfg,
		reg:       reg,
		transport: transport,
		stats:     stats,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run loops assembling and sending beacons until ctx is done.
func (t *Transmitter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(nextInterval(t.rnd, t.cfg)):
		}
		if err := t.tick(ctx); err != nil && ctx.Err() == nil {
			if t.stats != nil {
				t.stats.IncTransmitErrors()
			}
		}
	}
}

// tick assembles and sends at most one beacon.
func (t *Transmitter) tick(ctx context.Context) error {
	buf := make([]byte, t.cfg.MaxBeaconSize)
	bodyBuf := make([]byte, t.cfg.MaxBeaconSize-HeaderSize)
	body := asm.NewArea(bodyBuf)

	numPayloads := 0
	for _, h := range t.reg.activeHandles() {
		for {
			payload, ok, err := h.PopTxRequest(ctx)
			if err != nil || !ok {
				break
			}
			if !t.appendPayload(body, h.ProtocolId(), payload) {
				// Doesn't fit; nothing we can do but drop it, matching
				// spec.md §4.6's "a too-large payload is discarded rather
				// than blocking the beacon indefinitely".
				if t.stats != nil {
					t.stats.IncPayloadsDropped()
				}
				break
			}
			numPayloads++
			if h.GenerateTxConfirms() {
				_ = h.PushTxConfirm(ctx)
			}
		}
	}
	if numPayloads == 0 {
		return nil
	}

	t.seqno++
	hdr := Header{
		Version:     Version,
		MagicValue:  Magic,
		SenderId:    t.cfg.OwnNodeId,
		Length:      wiretypes.BPLength(body.Used()),
		NumPayloads: uint8(numPayloads),
		Seqno:       t.seqno,
	}
	frame := asm.NewArea(buf)
	if err := hdr.Serialize(frame); err != nil {
		return err
	}
	if err := frame.SerializeByteBlock(body.Used(), body.Bytes()); err != nil {
		return err
	}

	if t.stats != nil {
		t.stats.RecordBeaconSent(frame.Used())
	}
	return t.transport.WriteFrame(ctx, frame.Bytes())
}

// appendPayload serializes one client payload's PayloadHeader+body into
// body, reporting whether it fit.
func (t *Transmitter) appendPayload(body *asm.Area, protocolId wiretypes.BPProtocolId, payload []byte) bool {
	need := PayloadHeaderSize + len(payload)
	if body.Available() < need {
		return false
	}
	ph := PayloadHeader{ProtocolId: protocolId, Length: wiretypes.BPLength(len(payload))}
	if err := ph.Serialize(body); err != nil {
		return false
	}
	if err := body.SerializeByteBlock(len(payload), payload); err != nil {
		return false
	}
	return true
}
