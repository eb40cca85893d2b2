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

// Package bpclient is the library a protocol (SRP, Vardis) links against to
// talk to a running BP daemon: register over the command socket, attach the
// resulting shared-memory control segment, then submit and poll payloads
// directly against that segment without any further socket round trips, per
// spec.md §4.3's split between the (rare) control path and the (frequent)
// data path.
package bpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/bp"
	"github.com/dcp-vardis/dcpd/bpshm"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/shmqueue"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Config describes how to reach the daemon and how this client wants to be
// registered.
type Config struct {
	CommandSocketPath string
	RequestTimeout    time.Duration
	ShmDir            string

	ProtocolId         wiretypes.BPProtocolId
	ProtocolName       string
	MaxPayloadSize     uint16
	QueueingMode       bp.QueueingMode
	MaxEntries         uint16
	GenerateTxConfirms bool
}

// Client is a registered protocol's attached view of its BP control segment.
type Client struct {
	cfg     Config
	segment *bpshm.Segment
}

// Register asks the daemon at cfg.CommandSocketPath to admit this client
// and attaches the resulting control segment.
func Register(cfg Config) (*Client, error) {
	req := bp.RegisterRequest{
		ProtocolId:         cfg.ProtocolId,
		ProtocolName:       cfg.ProtocolName,
		MaxPayloadSize:      cfg.MaxPayloadSize,
		QueueingMode:       cfg.QueueingMode,
		MaxEntries:         cfg.MaxEntries,
		GenerateTxConfirms: cfg.GenerateTxConfirms,
	}
	body := asm.NewArea(make([]byte, 2+len(req.ProtocolName)+16))
	if err := req.Serialize(body); err != nil {
		return nil, fmt.Errorf("bpclient: encode register request: %w", err)
	}
	wire := asm.NewArea(make([]byte, 1+body.Used()))
	if err := wire.SerializeByte(byte(bp.CmdRegisterProtocol)); err != nil {
		return nil, err
	}
	if err := wire.SerializeByteBlock(body.Used(), body.Bytes()); err != nil {
		return nil, err
	}

	resp, err := cmdsock.Request(cfg.CommandSocketPath, cfg.RequestTimeout, wire.Bytes())
	if err != nil {
		return nil, fmt.Errorf("bpclient: register: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("bpclient: empty register response")
	}
	status := bp.Status(resp[0])
	if status != bp.StatusOK {
		return nil, fmt.Errorf("bpclient: register rejected: %s", status)
	}

	respArea := asm.NewAreaForReading(resp[1:], len(resp)-1)
	var result bp.RegisterResult
	if err := result.Deserialize(respArea); err != nil {
		return nil, fmt.Errorf("bpclient: decode register response: %w", err)
	}

	info := bpshm.StaticClientInfo{
		ProtocolId:         cfg.ProtocolId,
		ProtocolName:       cfg.ProtocolName,
		MaxPayloadSize:     cfg.MaxPayloadSize,
		QueueingMode:       cfg.QueueingMode,
		MaxEntries:         cfg.MaxEntries,
		GenerateTxConfirms: cfg.GenerateTxConfirms,
	}
	segment, err := bpshm.Attach(cfg.ShmDir, result.ShmName, info, int(result.ChunkSize))
	if err != nil {
		return nil, fmt.Errorf("bpclient: attach control segment: %w", err)
	}
	if err := segment.CheckIntegrity(); err != nil {
		segment.Close()
		return nil, err
	}

	return &Client{cfg: cfg, segment: segment}, nil
}

// Submit enqueues payload for transmission, blocking until the daemon's
// free list yields a chunk or ctx is done.
func (c *Client) Submit(ctx context.Context, payload []byte) error {
	if len(payload) > int(c.cfg.MaxPayloadSize) {
		return fmt.Errorf("bpclient: payload of %d bytes exceeds max %d", len(payload), c.cfg.MaxPayloadSize)
	}
	buf, _, err := c.segment.FreeList.PopWait(ctx)
	if err != nil {
		return fmt.Errorf("bpclient: acquire free chunk: %w", err)
	}
	buf.UsedLen = uint32(len(payload))
	buf.DataOffset = 0
	copy(c.segment.ChunkBytes(buf), payload)
	return c.segment.TxRequestQueue.PushWait(ctx, buf)
}

// Poll returns the next received payload for this protocol, blocking until
// one is available or ctx is done.
func (c *Client) Poll(ctx context.Context) ([]byte, error) {
	buf, _, err := c.segment.RxIndicationQueue.PopWait(ctx)
	if err != nil {
		return nil, fmt.Errorf("bpclient: poll: %w", err)
	}
	data := append([]byte(nil), c.segment.ChunkBytes(buf)[buf.DataOffset:buf.DataOffset+buf.UsedLen]...)
	return data, c.segment.FreeList.PushWait(ctx, shmqueue.SharedMemBuffer{
		MaxLen:   buf.MaxLen,
		BufIndex: buf.BufIndex,
	})
}

// WaitConfirm blocks until the daemon confirms a previously submitted
// transmission, for clients registered with GenerateTxConfirms.
func (c *Client) WaitConfirm(ctx context.Context) error {
	_, _, err := c.segment.TxConfirmQueue.PopWait(ctx)
	return err
}

// Close detaches the control segment.
func (c *Client) Close() error {
	return c.segment.Close()
}
