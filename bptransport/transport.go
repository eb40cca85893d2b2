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

// Package bptransport abstracts the raw-L2 broadcast medium BP frames
// ride on, the way ziffy/node sends and receives PTP packets over pcap
// handles. The production Transport is a gopacket/pcap live handle
// filtered to one EtherType; tests and local experimentation use
// MockTransport.
package bptransport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// Transport is the minimal contract BP's receiver and transmitter threads
// need from the link layer: blocking reads with a bounded poll (so the
// exitFlag is observed within spec.md §5's ≤10ms cancellation window) and
// best-effort broadcast writes.
type Transport interface {
	// ReadFrame blocks until a frame arrives or ctx is done and returns
	// one frame's payload (Ethernet payload, header already stripped), or
	// an error if ctx is done or the read failed.
	ReadFrame(ctx context.Context) ([]byte, error)
	// WriteFrame broadcasts payload as a single L2 frame.
	WriteFrame(ctx context.Context, payload []byte) error
	Close() error
}

// ReadPollTimeout bounds each underlying pcap read so ReadFrame can
// re-check ctx.Done() promptly, per spec.md §5's suspension-point design.
const ReadPollTimeout = 10 * time.Millisecond

// PcapTransport broadcasts and receives BP frames as raw Ethernet-II
// frames on one interface, filtered to a single EtherType, grounded on
// cmd/ziffy/node.Receiver's pcap.OpenLive / gopacket.NewPacketSource use.
type PcapTransport struct {
	handle       *pcap.Handle
	src          *gopacket.PacketSource
	etherType    layers.EthernetType
	broadcastDst [6]byte
	srcMAC       [6]byte
}

// OpenPcapTransport opens iface in promiscuous mode, applies a BPF filter
// restricted to etherType, and readies it for broadcast send/receive.
func OpenPcapTransport(iface string, snapLen int32, etherType uint16, srcMAC [6]byte) (*PcapTransport, error) {
	handle, err := pcap.OpenLive(iface, snapLen, true, ReadPollTimeout)
	if err != nil {
		return nil, fmt.Errorf("bptransport: open %s: %w", iface, err)
	}
	filter := fmt.Sprintf("ether proto 0x%04x", etherType)
	if err := handle.SetBPFFilter(filter); err != nil {
		handle.Close()
		return nil, fmt.Errorf("bptransport: set BPF filter: %w", err)
	}
	return &PcapTransport{
		handle:       handle,
		src:          gopacket.NewPacketSource(handle, handle.LinkType()),
		etherType:    layers.EthernetType(etherType),
		broadcastDst: [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		srcMAC:       srcMAC,
	}, nil
}

// ReadFrame reads one Ethernet payload, polling the pcap handle's packet
// channel until ctx is done.
func (t *PcapTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case pkt, ok := <-t.src.Packets():
			if !ok {
				return nil, fmt.Errorf("bptransport: packet source closed")
			}
			eth := pkt.Layer(layers.LayerTypeEthernet)
			if eth == nil {
				continue
			}
			return eth.LayerPayload(), nil
		}
	}
}

// WriteFrame broadcasts payload as a single Ethernet-II frame.
func (t *PcapTransport) WriteFrame(ctx context.Context, payload []byte) error {
	eth := layers.Ethernet{
		SrcMAC:       t.srcMAC[:],
		DstMAC:       t.broadcastDst[:],
		EthernetType: t.etherType,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("bptransport: serialize frame: %w", err)
	}
	return t.handle.WritePacketData(buf.Bytes())
}

// Close releases the underlying pcap handle.
func (t *PcapTransport) Close() error {
	t.handle.Close()
	return nil
}
