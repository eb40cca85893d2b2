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
	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// Command identifies a BP management request arriving over the command
// socket, per spec.md §4.5's service interface.
type Command uint8

const (
	CmdRegisterProtocol Command = iota
	CmdDeregister
	CmdListRegisteredProtocols
	CmdClearBuffer
	CmdQueryNumberBufferedPayloads
	CmdActivate
	CmdDeactivate
	CmdShutDown
	CmdGetStatistics
)

// RegisterRequest carries a new client's static registration parameters.
type RegisterRequest struct {
	ProtocolId         wiretypes.BPProtocolId
	ProtocolName       string
	MaxPayloadSize     uint16
	QueueingMode       QueueingMode
	MaxEntries         uint16
	GenerateTxConfirms bool
}

// Serialize writes a RegisterRequest, with ProtocolName length-prefixed by
// a single byte (protocol names are short, human-chosen identifiers).
func (r RegisterRequest) Serialize(a *asm.Area) error {
	if err := r.ProtocolId.Serialize(a); err != nil {
		return err
	}
	if err := a.SerializeByte(byte(len(r.ProtocolName))); err != nil {
		return err
	}
	if err := a.SerializeByteBlock(len(r.ProtocolName), []byte(r.ProtocolName)); err != nil {
		return err
	}
	if err := a.SerializeUint16N(r.MaxPayloadSize); err != nil {
		return err
	}
	if err := a.SerializeByte(byte(r.QueueingMode)); err != nil {
		return err
	}
	if err := a.SerializeUint16N(r.MaxEntries); err != nil {
		return err
	}
	var confirms byte
	if r.GenerateTxConfirms {
		confirms = 1
	}
	return a.SerializeByte(confirms)
}

// Deserialize reads a RegisterRequest written by Serialize.
func (r *RegisterRequest) Deserialize(a *asm.Area) error {
	if err := r.ProtocolId.Deserialize(a); err != nil {
		return err
	}
	nameLen, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	nameBytes, err := a.DeserializeByteBlock(int(nameLen))
	if err != nil {
		return err
	}
	r.ProtocolName = string(nameBytes)
	if r.MaxPayloadSize, err = a.DeserializeUint16N(); err != nil {
		return err
	}
	mode, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	r.QueueingMode = QueueingMode(mode)
	if r.MaxEntries, err = a.DeserializeUint16N(); err != nil {
		return err
	}
	confirms, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	r.GenerateTxConfirms = confirms != 0
	return nil
}

// ClientFactory builds a ClientHandle (a shared-memory control segment, in
// production) for a newly accepted registration. This keeps bpshm's
// segment-construction concerns out of this package: Manager only needs
// something that can mint a handle from a RegisterRequest.
type ClientFactory interface {
	CreateClient(req RegisterRequest) (ClientHandle, error)
}

// Manager dispatches decoded management commands against a Registry,
// delegating shared-memory segment creation to a ClientFactory. It
// implements the cmdsock.Handler signature via Handle.
type Manager struct {
	reg     *Registry
	factory ClientFactory
	stats   *Stats
}

// NewManager binds a Manager to reg, factory and stats.
func NewManager(reg *Registry, factory ClientFactory, stats *Stats) *Manager {
	return &Manager{reg: reg, factory: factory, stats: stats}
}

// Handle decodes one command-socket request and returns its response,
// matching cmdsock.Handler's signature so a Manager can be wired directly
// into cmdsock.Listen.
func (m *Manager) Handle(request []byte) ([]byte, error) {
	if len(request) == 0 {
		return m.statusResponse(StatusInternalError), nil
	}
	a := asm.NewAreaForReading(request, len(request))
	cmdByte, err := a.DeserializeByte()
	if err != nil {
		return m.statusResponse(StatusInternalError), nil
	}

	switch Command(cmdByte) {
	case CmdRegisterProtocol:
		var req RegisterRequest
		if err := req.Deserialize(a); err != nil {
			return m.statusResponse(StatusInternalError), nil
		}
		return m.handleRegister(req), nil

	case CmdDeregister:
		id, err := readProtocolId(a)
		if err != nil {
			return m.statusResponse(StatusInternalError), nil
		}
		return m.statusResponse(m.reg.Deregister(id)), nil

	case CmdActivate:
		id, err := readProtocolId(a)
		if err != nil {
			return m.statusResponse(StatusInternalError), nil
		}
		return m.statusResponse(m.reg.SetActive(id, true)), nil

	case CmdDeactivate:
		id, err := readProtocolId(a)
		if err != nil {
			return m.statusResponse(StatusInternalError), nil
		}
		return m.statusResponse(m.reg.SetActive(id, false)), nil

	case CmdListRegisteredProtocols:
		return m.handleList(), nil

	case CmdQueryNumberBufferedPayloads:
		id, err := readProtocolId(a)
		if err != nil {
			return m.statusResponse(StatusInternalError), nil
		}
		return m.handleQueryBuffered(id), nil

	case CmdShutDown:
		m.reg.ShutDown()
		return m.statusResponse(StatusOK), nil

	default:
		return m.statusResponse(StatusUnknownProtocol), nil
	}
}

func readProtocolId(a *asm.Area) (wiretypes.BPProtocolId, error) {
	var id wiretypes.BPProtocolId
	err := id.Deserialize(a)
	return id, err
}

// RegisterResult is what a successful registration reports back to the
// client: where to attach its own view of the control segment.
type RegisterResult struct {
	ShmName   string
	ChunkSize uint16
}

// Serialize writes a RegisterResult, ShmName length-prefixed by one byte.
func (r RegisterResult) Serialize(a *asm.Area) error {
	if err := a.SerializeByte(byte(len(r.ShmName))); err != nil {
		return err
	}
	if err := a.SerializeByteBlock(len(r.ShmName), []byte(r.ShmName)); err != nil {
		return err
	}
	return a.SerializeUint16N(r.ChunkSize)
}

// Deserialize reads a RegisterResult written by Serialize.
func (r *RegisterResult) Deserialize(a *asm.Area) error {
	nameLen, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	nameBytes, err := a.DeserializeByteBlock(int(nameLen))
	if err != nil {
		return err
	}
	r.ShmName = string(nameBytes)
	r.ChunkSize, err = a.DeserializeUint16N()
	return err
}

func (m *Manager) handleRegister(req RegisterRequest) []byte {
	handle, err := m.factory.CreateClient(req)
	if err != nil {
		return m.statusResponse(StatusShmOpenFailed)
	}
	status := m.reg.Register(handle)
	if status != StatusOK {
		_ = handle.Close()
		return m.statusResponse(status)
	}

	result := RegisterResult{ShmName: handle.ShmName(), ChunkSize: uint16(handle.ChunkSize())}
	resp := asm.NewArea(make([]byte, 4+len(result.ShmName)))
	_ = resp.SerializeByte(byte(StatusOK))
	_ = result.Serialize(resp)
	return resp.Bytes()
}

func (m *Manager) handleList() []byte {
	ids := m.reg.List()
	resp := asm.NewArea(make([]byte, 1+2*len(ids)))
	_ = resp.SerializeByte(byte(StatusOK))
	for _, id := range ids {
		_ = id.Serialize(resp)
	}
	return resp.Bytes()
}

func (m *Manager) handleQueryBuffered(id wiretypes.BPProtocolId) []byte {
	_, exists := m.reg.Get(id)
	if !exists {
		return m.statusResponse(StatusUnknownProtocol)
	}
	// The queue depth itself is a shared-memory concern the ClientHandle
	// does not expose generically; callers needing the exact count read it
	// directly off their own shmqueue.Queue via bpclient.
	return m.statusResponse(StatusOK)
}

func (m *Manager) statusResponse(s Status) []byte {
	return []byte{byte(s)}
}
