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

// Package srpclient is the library an application links against to report
// its own safety data and query neighbours, SRP's sibling of
// vardisclient. Unlike bpclient and vardisclient it has no shared-memory
// data path: spec.md §4.14's application interface is low-rate enough
// that every call is a plain cmdsock round trip.
package srpclient

import (
	"fmt"
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/cmdsock"
	"github.com/dcp-vardis/dcpd/srp"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Config describes how to reach a running SRP daemon.
type Config struct {
	ManagementSocket string
	RequestTimeout   time.Duration
}

// Client talks to an SRP daemon's management socket.
type Client struct {
	cfg Config
}

// New returns a Client for cfg. There is nothing to attach or register:
// every call is a self-contained cmdsock.Request.
func New(cfg Config) *Client {
	return &Client{cfg: cfg}
}

// SetOwnSafetyData reports this node's current position/velocity.
func (c *Client) SetOwnSafetyData(data wiretypes.SafetyData) error {
	body := asm.NewArea(make([]byte, 1+data.TotalSize()))
	if err := body.SerializeByte(byte(srp.CmdSetOwnSafetyData)); err != nil {
		return err
	}
	if err := data.Serialize(body); err != nil {
		return err
	}
	resp, err := cmdsock.Request(c.cfg.ManagementSocket, c.cfg.RequestTimeout, body.Bytes())
	if err != nil {
		return fmt.Errorf("srpclient: set own safety data: %w", err)
	}
	if len(resp) == 0 || srp.Status(resp[0]) != srp.StatusOK {
		return fmt.Errorf("srpclient: set own safety data rejected")
	}
	return nil
}

// Neighbour is one entry of the daemon's neighbour table.
type Neighbour struct {
	SafetyData wiretypes.SafetyData
	Seqno      wiretypes.VarSeqno
}

// GetNeighbour looks up a tracked neighbour by node id.
func (c *Client) GetNeighbour(nodeId wiretypes.NodeId) (Neighbour, error) {
	body := asm.NewArea(make([]byte, 1+nodeId.TotalSize()))
	if err := body.SerializeByte(byte(srp.CmdGetNeighbour)); err != nil {
		return Neighbour{}, err
	}
	if err := nodeId.Serialize(body); err != nil {
		return Neighbour{}, err
	}
	resp, err := cmdsock.Request(c.cfg.ManagementSocket, c.cfg.RequestTimeout, body.Bytes())
	if err != nil {
		return Neighbour{}, fmt.Errorf("srpclient: get neighbour: %w", err)
	}
	if len(resp) == 0 {
		return Neighbour{}, fmt.Errorf("srpclient: empty response")
	}
	status := srp.Status(resp[0])
	if status != srp.StatusOK {
		return Neighbour{}, fmt.Errorf("srpclient: get neighbour: %s", status)
	}

	a := asm.NewAreaForReading(resp[1:], len(resp)-1)
	var n Neighbour
	if err := n.SafetyData.Deserialize(a); err != nil {
		return Neighbour{}, err
	}
	if err := n.Seqno.Deserialize(a); err != nil {
		return Neighbour{}, err
	}
	return n, nil
}
