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

package bptransport

import (
	"context"
)

// ChannelTransport is a loopback Transport for integration tests that want
// two or more in-process BP daemons to exchange frames without touching a
// real NIC: WriteFrame fans out to every peer's inbound channel, ReadFrame
// drains its own.
type ChannelTransport struct {
	inbound chan []byte
	peers   []*ChannelTransport
}

// NewChannelNetwork builds n mutually connected ChannelTransports, as if n
// nodes shared one broadcast domain.
func NewChannelNetwork(n int, bufSize int) []*ChannelTransport {
	nodes := make([]*ChannelTransport, n)
	for i := range nodes {
		nodes[i] = &ChannelTransport{inbound: make(chan []byte, bufSize)}
	}
	for i := range nodes {
		for j := range nodes {
			if i != j {
				nodes[i].peers = append(nodes[i].peers, nodes[j])
			}
		}
	}
	return nodes
}

// ReadFrame blocks until a frame arrives or ctx is done.
func (c *ChannelTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case frame := <-c.inbound:
		return frame, nil
	}
}

// WriteFrame delivers payload to every peer's inbound queue, dropping it
// for any peer whose queue is currently full (mirroring broadcast medium
// loss, not a BP-level queueing-mode decision).
func (c *ChannelTransport) WriteFrame(ctx context.Context, payload []byte) error {
	frame := append([]byte(nil), payload...)
	for _, p := range c.peers {
		select {
		case p.inbound <- frame:
		default:
		}
	}
	return nil
}

// Close is a no-op; ChannelTransport owns no OS resources.
func (c *ChannelTransport) Close() error {
	return nil
}
