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

const (
	// Version is the only BP wire version this implementation speaks.
	Version = uint8(1)
	// Magic identifies a BP frame.
	Magic = uint16(0x497E)

	// HeaderSize is the fixed, on-wire size of Header.
	HeaderSize = 1 + 2 + 6 + 2 + 1 + 4
	// PayloadHeaderSize is the fixed, on-wire size of PayloadHeader.
	PayloadHeaderSize = 2 + 2
)

// Header is the fixed BP beacon header of spec.md §3.2.
type Header struct {
	Version    uint8
	MagicValue uint16
	SenderId   wiretypes.NodeId
	Length     wiretypes.BPLength // total payload bytes following the header
	NumPayloads uint8
	Seqno      uint32
}

// Serialize writes the header fields in wire order.
func (h Header) Serialize(a *asm.Area) error {
	if err := a.SerializeByte(h.Version); err != nil {
		return err
	}
	if err := a.SerializeUint16N(h.MagicValue); err != nil {
		return err
	}
	if err := h.SenderId.Serialize(a); err != nil {
		return err
	}
	if err := h.Length.Serialize(a); err != nil {
		return err
	}
	if err := a.SerializeByte(h.NumPayloads); err != nil {
		return err
	}
	return a.SerializeUint32N(h.Seqno)
}

// Deserialize reads the header fields in wire order.
func (h *Header) Deserialize(a *asm.Area) error {
	v, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	h.Version = v
	if h.MagicValue, err = a.DeserializeUint16N(); err != nil {
		return err
	}
	if err := h.SenderId.Deserialize(a); err != nil {
		return err
	}
	if err := h.Length.Deserialize(a); err != nil {
		return err
	}
	if h.NumPayloads, err = a.DeserializeByte(); err != nil {
		return err
	}
	h.Seqno, err = a.DeserializeUint32N()
	return err
}

// IsWellFormed implements spec.md §3.2's well-formedness predicate.
func (h Header) IsWellFormed(ownNodeId wiretypes.NodeId) bool {
	return h.Version == Version &&
		h.MagicValue == Magic &&
		h.SenderId != ownNodeId &&
		h.NumPayloads >= 1 &&
		h.Length > 0
}

// PayloadHeader precedes each payload record within a beacon.
type PayloadHeader struct {
	ProtocolId wiretypes.BPProtocolId
	Length     wiretypes.BPLength
}

// Serialize writes the payload header fields in wire order.
func (p PayloadHeader) Serialize(a *asm.Area) error {
	if err := p.ProtocolId.Serialize(a); err != nil {
		return err
	}
	return p.Length.Serialize(a)
}

// Deserialize reads the payload header fields in wire order.
func (p *PayloadHeader) Deserialize(a *asm.Area) error {
	if err := p.ProtocolId.Deserialize(a); err != nil {
		return err
	}
	return p.Length.Deserialize(a)
}
