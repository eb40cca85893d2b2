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

// Package vardisclient is the library an application links against to
// read and write RTDB variables, the Vardis sibling of package bpclient:
// a one-time cmdsock.Request registers the client and attaches its
// control segment, after which Create/Delete/Update/Read talk directly
// to shared memory.
package vardisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/shmqueue"
	"github.com/dcp-vardis/dcpd/vardis"
	"github.com/dcp-vardis/dcpd/vardisshm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Config describes how to reach the daemon and how this client wants to
// be registered.
type Config struct {
	ManagementSocket string
	RequestTimeout   time.Duration
	ShmDir           string

	ClientName  string
	BufCapacity uint16
}

// Client is a registered application's attached view of its Vardis
// control segment.
type Client struct {
	cfg     Config
	segment *vardisshm.Segment
}

// Register attaches to a running Vardis daemon.
func Register(cfg Config) (*Client, error) {
	req := vardis.RegisterClientRequest{ClientName: cfg.ClientName, BufCapacity: cfg.BufCapacity}
	body := asm.NewArea(make([]byte, 4+len(cfg.ClientName)))
	if err := req.Serialize(body); err != nil {
		return nil, fmt.Errorf("vardisclient: encode register request: %w", err)
	}
	wire := asm.NewArea(make([]byte, 1+body.Used()))
	if err := wire.SerializeByte(byte(vardis.CmdRegisterClient)); err != nil {
		return nil, err
	}
	if err := wire.SerializeByteBlock(body.Used(), body.Bytes()); err != nil {
		return nil, err
	}

	resp, err := cmdsock.Request(cfg.ManagementSocket, cfg.RequestTimeout, wire.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vardisclient: register: %w", err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("vardisclient: empty register response")
	}
	status := vardis.Status(resp[0])
	if status != vardis.StatusOK {
		return nil, fmt.Errorf("vardisclient: register rejected: %s", status)
	}

	respArea := asm.NewAreaForReading(resp[1:], len(resp)-1)
	var result vardis.RegisterClientResult
	if err := result.Deserialize(respArea); err != nil {
		return nil, fmt.Errorf("vardisclient: decode register response: %w", err)
	}

	info := vardisshm.StaticClientInfo{ClientName: cfg.ClientName, BufCapacity: uint32(cfg.BufCapacity)}
	segment, err := vardisshm.Attach(cfg.ShmDir, result.ShmName, info, int(result.ChunkSize))
	if err != nil {
		return nil, fmt.Errorf("vardisclient: attach control segment: %w", err)
	}
	if err := segment.CheckIntegrity(); err != nil {
		segment.Close()
		return nil, err
	}

	return &Client{cfg: cfg, segment: segment}, nil
}

func (c *Client) roundTrip(ctx context.Context, reqQ, confirmQ *shmqueue.Queue, encode func(*asm.Area) error, decode func(*asm.Area) error) error {
	buf, _, err := c.segment.FreeList.PopWait(ctx)
	if err != nil {
		return fmt.Errorf("vardisclient: acquire free chunk: %w", err)
	}
	a := asm.NewArea(c.segment.ChunkBytes(buf))
	if err := encode(a); err != nil {
		return err
	}
	buf.UsedLen = uint32(a.Used())
	buf.DataOffset = 0
	if err := reqQ.PushWait(ctx, buf); err != nil {
		return fmt.Errorf("vardisclient: submit request: %w", err)
	}

	confirmBuf, _, err := confirmQ.PopWait(ctx)
	if err != nil {
		return fmt.Errorf("vardisclient: await confirm: %w", err)
	}
	chunk := c.segment.ChunkBytes(confirmBuf)
	reply := asm.NewAreaForReading(chunk, int(confirmBuf.UsedLen))
	err = decode(reply)
	_ = c.segment.FreeList.PushWait(ctx, confirmBuf)
	return err
}

// Create implements RTDB_Create.
func (c *Client) Create(ctx context.Context, spec wiretypes.VarSpec, value wiretypes.VarValue) (vardis.Status, error) {
	req := vardis.CreateRequest{Spec: spec, Value: value}
	var confirm vardis.StatusConfirm
	err := c.roundTrip(ctx, c.segment.CreateRequest, c.segment.CreateConfirm, req.Serialize, confirm.Deserialize)
	return confirm.Status, err
}

// Delete implements RTDB_Delete.
func (c *Client) Delete(ctx context.Context, varId wiretypes.VarId) (vardis.Status, error) {
	var confirm vardis.StatusConfirm
	err := c.roundTrip(ctx, c.segment.DeleteRequest, c.segment.DeleteConfirm, varId.Serialize, confirm.Deserialize)
	return confirm.Status, err
}

// Update implements RTDB_Update.
func (c *Client) Update(ctx context.Context, varId wiretypes.VarId, value wiretypes.VarValue) (vardis.Status, error) {
	req := vardis.UpdateRequest{VarId: varId, Value: value}
	var confirm vardis.StatusConfirm
	err := c.roundTrip(ctx, c.segment.UpdateRequest, c.segment.UpdateConfirm, req.Serialize, confirm.Deserialize)
	return confirm.Status, err
}

// Read implements RTDB_Read.
func (c *Client) Read(ctx context.Context, varId wiretypes.VarId, bufCapacity int) (vardis.ReadConfirm, error) {
	req := vardis.ReadRequest{VarId: varId, BufCapacity: uint16(bufCapacity)}
	var confirm vardis.ReadConfirm
	err := c.roundTrip(ctx, c.segment.ReadRequest, c.segment.ReadConfirm, req.Serialize, confirm.Deserialize)
	return confirm, err
}

// Close detaches the control segment.
func (c *Client) Close() error {
	return c.segment.Close()
}
