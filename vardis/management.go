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

package vardis

import (
	"fmt"
	"sync"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/rtdb"
	"github.com/dcp-vardis/dcpd/vardisshm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// ClientRegistry tracks attached application control segments so the
// Dispatcher can poll their request queues, the way bp.Registry tracks
// ClientHandles for the transmitter/receiver to iterate.
type ClientRegistry struct {
	mu       sync.RWMutex
	segments map[string]*vardisshm.Segment
}

// NewClientRegistry returns an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{segments: make(map[string]*vardisshm.Segment)}
}

func (r *ClientRegistry) add(name string, seg *vardisshm.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.segments[name] = seg
}

func (r *ClientRegistry) remove(name string) (*vardisshm.Segment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seg, ok := r.segments[name]
	delete(r.segments, name)
	return seg, ok
}

// Segments returns a snapshot of the currently attached segments.
func (r *ClientRegistry) Segments() []*vardisshm.Segment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*vardisshm.Segment, 0, len(r.segments))
	for _, seg := range r.segments {
		out = append(out, seg)
	}
	return out
}

// ShutDown closes every attached segment.
func (r *ClientRegistry) ShutDown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, seg := range r.segments {
		seg.Close()
		delete(r.segments, name)
	}
}

// Command identifies the operation encoded in a management request, the
// way bp.Command does for BP's command socket.
type Command uint8

const (
	CmdRegisterClient Command = iota
	CmdDeregisterClient
	CmdShutDownDaemon
	// CmdListVariables and CmdDescribeVariable are read-only operator
	// queries against the store, for dcpctl's "vardis list"/"vardis
	// describe" — they do not require an attached application segment.
	CmdListVariables
	CmdDescribeVariable
)

// RegisterClientRequest is an application's request to attach to this
// Vardis daemon.
type RegisterClientRequest struct {
	ClientName  string
	BufCapacity uint16
}

func (r RegisterClientRequest) Serialize(a *asm.Area) error {
	if err := a.SerializeByte(byte(len(r.ClientName))); err != nil {
		return err
	}
	if err := a.SerializeByteBlock(len(r.ClientName), []byte(r.ClientName)); err != nil {
		return err
	}
	return a.SerializeUint16N(r.BufCapacity)
}

func (r *RegisterClientRequest) Deserialize(a *asm.Area) error {
	l, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	name, err := a.DeserializeByteBlock(int(l))
	if err != nil {
		return err
	}
	r.ClientName = string(name)
	v, err := a.DeserializeUint16N()
	if err != nil {
		return err
	}
	r.BufCapacity = v
	return nil
}

// RegisterClientResult tells the application where its attached segment
// lives, mirroring bp.RegisterResult.
type RegisterClientResult struct {
	ShmName   string
	ChunkSize uint16
}

func (r RegisterClientResult) Serialize(a *asm.Area) error {
	if err := a.SerializeByte(byte(len(r.ShmName))); err != nil {
		return err
	}
	if err := a.SerializeByteBlock(len(r.ShmName), []byte(r.ShmName)); err != nil {
		return err
	}
	return a.SerializeUint16N(r.ChunkSize)
}

func (r *RegisterClientResult) Deserialize(a *asm.Area) error {
	l, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	name, err := a.DeserializeByteBlock(int(l))
	if err != nil {
		return err
	}
	r.ShmName = string(name)
	v, err := a.DeserializeUint16N()
	if err != nil {
		return err
	}
	r.ChunkSize = v
	return nil
}

// Manager is the cmdsock.Handler-compatible dispatcher for Vardis's
// control-plane requests, the sibling of bp.Manager.
type Manager struct {
	registry *ClientRegistry
	factory  vardisshm.Factory
	store    *rtdb.Store
}

// NewManager binds a Manager to registry, factory and store — store backs
// the read-only operator queries (CmdListVariables/CmdDescribeVariable)
// dcpctl issues alongside the application registration traffic.
func NewManager(registry *ClientRegistry, factory vardisshm.Factory, store *rtdb.Store) *Manager {
	return &Manager{registry: registry, factory: factory, store: store}
}

// Handle decodes and dispatches one request, returning the encoded response.
func (m *Manager) Handle(request []byte) ([]byte, error) {
	if len(request) == 0 {
		return []byte{byte(StatusInternalError)}, nil
	}
	cmd := Command(request[0])
	body := asm.NewAreaForReading(request[1:], len(request)-1)

	switch cmd {
	case CmdRegisterClient:
		return m.handleRegister(body), nil
	case CmdDeregisterClient:
		return m.handleDeregister(body), nil
	case CmdShutDownDaemon:
		m.registry.ShutDown()
		return []byte{byte(StatusOK)}, nil
	case CmdListVariables:
		return m.handleListVariables(), nil
	case CmdDescribeVariable:
		return m.handleDescribeVariable(body), nil
	default:
		return []byte{byte(StatusInternalError)}, nil
	}
}

// VariableSummary is one row of a CmdListVariables response.
type VariableSummary struct {
	VarId    wiretypes.VarId
	Producer wiretypes.NodeId
	RepCnt   wiretypes.VarRepCnt
	Seqno    wiretypes.VarSeqno
}

func (m *Manager) handleListVariables() []byte {
	m.store.Lock()
	ids := m.store.ListMatching(func(e rtdb.DBEntry) bool { return e.Exists })
	rows := make([]VariableSummary, 0, len(ids))
	for _, id := range ids {
		e, _ := m.store.Lookup(id)
		rows = append(rows, VariableSummary{VarId: id, Producer: e.Spec.Producer, RepCnt: e.Spec.RepCnt, Seqno: e.Seqno})
	}
	m.store.Unlock()

	resp := asm.NewArea(make([]byte, 3+9*len(rows)))
	_ = resp.SerializeByte(byte(StatusOK))
	_ = resp.SerializeUint16N(uint16(len(rows)))
	for _, r := range rows {
		_ = r.VarId.Serialize(resp)
		_ = r.Producer.Serialize(resp)
		_ = r.RepCnt.Serialize(resp)
		_ = r.Seqno.Serialize(resp)
	}
	return resp.Bytes()
}

func (m *Manager) handleDescribeVariable(body *asm.Area) []byte {
	var id wiretypes.VarId
	if err := id.Deserialize(body); err != nil {
		return []byte{byte(StatusInternalError)}
	}

	m.store.Lock()
	e, exists := m.store.Lookup(id)
	m.store.Unlock()
	if !exists {
		return []byte{byte(StatusVariableDoesNotExist)}
	}

	resp := asm.NewArea(make([]byte, 1+e.Spec.TotalSize()+e.Seqno.TotalSize()+e.Value.TotalSize()))
	_ = resp.SerializeByte(byte(StatusOK))
	_ = e.Spec.Serialize(resp)
	_ = e.Seqno.Serialize(resp)
	_ = e.Value.Serialize(resp)
	return resp.Bytes()
}

func (m *Manager) handleRegister(body *asm.Area) []byte {
	var req RegisterClientRequest
	if err := req.Deserialize(body); err != nil {
		return []byte{byte(StatusInternalError)}
	}
	seg, err := m.factory.CreateClient(req.ClientName, uint32(req.BufCapacity))
	if err != nil {
		return []byte{byte(StatusInternalError)}
	}
	m.registry.add(req.ClientName, seg)

	result := RegisterClientResult{ShmName: fmt.Sprintf("vardis-client-%s", req.ClientName), ChunkSize: uint16(seg.ChunkSize())}
	resp := asm.NewArea(make([]byte, 4+len(result.ShmName)))
	_ = resp.SerializeByte(byte(StatusOK))
	_ = result.Serialize(resp)
	return resp.Bytes()
}

func (m *Manager) handleDeregister(body *asm.Area) []byte {
	l, err := body.DeserializeByte()
	if err != nil {
		return []byte{byte(StatusInternalError)}
	}
	name, err := body.DeserializeByteBlock(int(l))
	if err != nil {
		return []byte{byte(StatusInternalError)}
	}
	seg, ok := m.registry.remove(string(name))
	if !ok {
		return []byte{byte(StatusVariableDoesNotExist)}
	}
	seg.Close()
	return []byte{byte(StatusOK)}
}
