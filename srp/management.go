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

package srp

import (
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/srpstore"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Command identifies the operation encoded in a management request. SRP's
// application interface is low-rate (set-my-position, look-up-a-neighbour)
// so, unlike BP and Vardis, it rides cmdsock's request/response round trip
// directly instead of a shared-memory data path — there is no high-frequency
// traffic here to justify the extra plumbing.
type Command uint8

const (
	CmdSetOwnSafetyData Command = iota
	CmdGetNeighbour
	// CmdListNeighbours is a read-only operator query (dcpctl's "srp
	// neighbours") returning every currently tracked neighbour.
	CmdListNeighbours
)

// Manager is the cmdsock.Handler-compatible dispatcher for SRP's
// application-facing requests.
type Manager struct {
	store     *srpstore.Store
	ownNodeId wiretypes.NodeId
}

// NewManager binds a Manager to store for a daemon identified by ownNodeId.
func NewManager(store *srpstore.Store, ownNodeId wiretypes.NodeId) *Manager {
	return &Manager{store: store, ownNodeId: ownNodeId}
}

// Handle decodes and dispatches one request.
func (m *Manager) Handle(request []byte) ([]byte, error) {
	if len(request) == 0 {
		return []byte{byte(StatusInternalError)}, nil
	}
	cmd := Command(request[0])
	body := asm.NewAreaForReading(request[1:], len(request)-1)

	switch cmd {
	case CmdSetOwnSafetyData:
		return m.handleSetOwnSafetyData(body), nil
	case CmdGetNeighbour:
		return m.handleGetNeighbour(body), nil
	case CmdListNeighbours:
		return m.handleListNeighbours(), nil
	default:
		return []byte{byte(StatusInternalError)}, nil
	}
}

func (m *Manager) handleSetOwnSafetyData(body *asm.Area) []byte {
	var data wiretypes.SafetyData
	if err := data.Deserialize(body); err != nil {
		return []byte{byte(StatusInternalError)}
	}
	m.store.SetOwnSafetyData(data, time.Now())
	return []byte{byte(StatusOK)}
}

func (m *Manager) handleGetNeighbour(body *asm.Area) []byte {
	var nodeId wiretypes.NodeId
	if err := nodeId.Deserialize(body); err != nil {
		return []byte{byte(StatusInternalError)}
	}
	entry, ok := m.store.Lookup(nodeId)
	if !ok {
		return []byte{byte(StatusNeighbourUnknown)}
	}
	resp := asm.NewArea(make([]byte, 1+entry.SafetyData.TotalSize()+entry.Seqno.TotalSize()))
	_ = resp.SerializeByte(byte(StatusOK))
	_ = entry.SafetyData.Serialize(resp)
	_ = entry.Seqno.Serialize(resp)
	return resp.Bytes()
}

func (m *Manager) handleListNeighbours() []byte {
	neighbours := m.store.Neighbours()

	resp := asm.NewArea(make([]byte, 3+len(neighbours)*(6+wiretypes.SafetyData{}.TotalSize()+1)))
	_ = resp.SerializeByte(byte(StatusOK))
	_ = resp.SerializeUint16N(uint16(len(neighbours)))
	for id, e := range neighbours {
		_ = id.Serialize(resp)
		_ = e.SafetyData.Serialize(resp)
		_ = e.Seqno.Serialize(resp)
	}
	return resp.Bytes()
}
