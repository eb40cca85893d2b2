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

// Package wiretypes holds the fixed wire-level atoms shared by BP, Vardis
// and SRP frames: NodeId, TimeStamp, VarId and friends. Each implements a
// small Transmissible contract (FixedSize/TotalSize/Serialize/Deserialize)
// the way facebook/time's ptp/protocol types hand-roll MarshalBinaryTo /
// UnmarshalBinary pairs instead of using reflection-based encoding.
package wiretypes

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/dcp-vardis/dcpd/asm"
)

// Transmissible is implemented by every fixed- or variable-length wire type.
type Transmissible interface {
	// FixedSize returns the compile-time constant size in bytes, or -1 if
	// the type's size is only known at runtime (e.g. VarValue, String).
	FixedSize() int
	// TotalSize returns this particular instance's serialized size.
	TotalSize() int
	Serialize(a *asm.Area) error
	Deserialize(a *asm.Area) error
}

// NodeId is the 6-byte MAC address of the originating interface.
type NodeId [6]byte

// FixedSize implements Transmissible.
func (NodeId) FixedSize() int { return 6 }

// TotalSize implements Transmissible.
func (n NodeId) TotalSize() int { return 6 }

// Serialize implements Transmissible.
func (n NodeId) Serialize(a *asm.Area) error {
	return a.SerializeByteBlock(6, n[:])
}

// Deserialize implements Transmissible.
func (n *NodeId) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByteBlock(6)
	if err != nil {
		return err
	}
	copy(n[:], b)
	return nil
}

// String renders the node id the way a MAC address is usually printed.
func (n NodeId) String() string {
	return net.HardwareAddr(n[:]).String()
}

// IsZero reports whether this is the all-zeroes node id (used as "unset").
func (n NodeId) IsZero() bool {
	return n == NodeId{}
}

// NodeIdFromMAC builds a NodeId from a net.HardwareAddr, padding/truncating
// to 6 bytes (EUI-48).
func NodeIdFromMAC(mac net.HardwareAddr) NodeId {
	var n NodeId
	copy(n[:], mac)
	return n
}

// TimeStamp is wall-clock microseconds since the Unix epoch.
type TimeStamp uint64

// FixedSize implements Transmissible.
func (TimeStamp) FixedSize() int { return 8 }

// TotalSize implements Transmissible.
func (t TimeStamp) TotalSize() int { return 8 }

// Serialize implements Transmissible.
func (t TimeStamp) Serialize(a *asm.Area) error {
	return a.SerializeUint64N(uint64(t))
}

// Deserialize implements Transmissible.
func (t *TimeStamp) Deserialize(a *asm.Area) error {
	v, err := a.DeserializeUint64N()
	if err != nil {
		return err
	}
	*t = TimeStamp(v)
	return nil
}

// Now returns the current TimeStamp (microseconds since Unix epoch).
func Now() TimeStamp {
	return TimeStamp(time.Now().UnixMicro())
}

// Time converts back to a time.Time.
func (t TimeStamp) Time() time.Time {
	return time.UnixMicro(int64(t))
}

// Sub returns t-other as a time.Duration.
func (t TimeStamp) Sub(other TimeStamp) time.Duration {
	return time.Duration(int64(t)-int64(other)) * time.Microsecond
}

// VarId identifies a variable, 0..255.
type VarId uint8

// FixedSize implements Transmissible.
func (VarId) FixedSize() int { return 1 }

// TotalSize implements Transmissible.
func (v VarId) TotalSize() int { return 1 }

// Serialize implements Transmissible.
func (v VarId) Serialize(a *asm.Area) error { return a.SerializeByte(byte(v)) }

// Deserialize implements Transmissible.
func (v *VarId) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	*v = VarId(b)
	return nil
}

// VarLen is the length of a variable's value, 0..255.
type VarLen uint8

// FixedSize implements Transmissible.
func (VarLen) FixedSize() int { return 1 }

// TotalSize implements Transmissible.
func (v VarLen) TotalSize() int { return 1 }

// Serialize implements Transmissible.
func (v VarLen) Serialize(a *asm.Area) error { return a.SerializeByte(byte(v)) }

// Deserialize implements Transmissible.
func (v *VarLen) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	*v = VarLen(b)
	return nil
}

// VarRepCnt is a per-variable repetition count, must be in [1,15].
type VarRepCnt uint8

// FixedSize implements Transmissible.
func (VarRepCnt) FixedSize() int { return 1 }

// TotalSize implements Transmissible.
func (v VarRepCnt) TotalSize() int { return 1 }

// Serialize implements Transmissible.
func (v VarRepCnt) Serialize(a *asm.Area) error { return a.SerializeByte(byte(v)) }

// Deserialize implements Transmissible.
func (v *VarRepCnt) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	*v = VarRepCnt(b)
	return nil
}

// VarSeqno is a per-variable sequence number, compared with wrap-aware
// arithmetic via MoreRecent.
type VarSeqno uint8

// FixedSize implements Transmissible.
func (VarSeqno) FixedSize() int { return 1 }

// TotalSize implements Transmissible.
func (v VarSeqno) TotalSize() int { return 1 }

// Serialize implements Transmissible.
func (v VarSeqno) Serialize(a *asm.Area) error { return a.SerializeByte(byte(v)) }

// Deserialize implements Transmissible.
func (v *VarSeqno) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	*v = VarSeqno(b)
	return nil
}

// Next returns the next sequence number, wrapping mod 256.
func (v VarSeqno) Next() VarSeqno { return VarSeqno(uint8(v) + 1) }

// MoreRecent implements spec.md's freshness predicate:
// more_recent(a,b) ≡ (a≠b) ∧ ((a−b) mod 256 < 128).
func MoreRecent(a, b VarSeqno) bool {
	if a == b {
		return false
	}
	return uint8(a-b) < 128
}

// BPLength is the length of a BP payload.
type BPLength uint16

// FixedSize implements Transmissible.
func (BPLength) FixedSize() int { return 2 }

// TotalSize implements Transmissible.
func (l BPLength) TotalSize() int { return 2 }

// Serialize implements Transmissible.
func (l BPLength) Serialize(a *asm.Area) error { return a.SerializeUint16N(uint16(l)) }

// Deserialize implements Transmissible.
func (l *BPLength) Deserialize(a *asm.Area) error {
	v, err := a.DeserializeUint16N()
	if err != nil {
		return err
	}
	*l = BPLength(v)
	return nil
}

// BPProtocolId identifies a BP client protocol.
type BPProtocolId uint16

// Reserved protocol ids, per spec.md §3.1.
const (
	ProtocolIdSRP    BPProtocolId = 0x0001
	ProtocolIdVardis BPProtocolId = 0x0002
)

// FixedSize implements Transmissible.
func (BPProtocolId) FixedSize() int { return 2 }

// TotalSize implements Transmissible.
func (p BPProtocolId) TotalSize() int { return 2 }

// Serialize implements Transmissible.
func (p BPProtocolId) Serialize(a *asm.Area) error { return a.SerializeUint16N(uint16(p)) }

// Deserialize implements Transmissible.
func (p *BPProtocolId) Deserialize(a *asm.Area) error {
	v, err := a.DeserializeUint16N()
	if err != nil {
		return err
	}
	*p = BPProtocolId(v)
	return nil
}

// String is a 1-length-byte-prefixed, UTF-8-oblivious blob of at most 255 bytes.
type String string

// FixedSize implements Transmissible; -1 because length is runtime-dependent.
func (String) FixedSize() int { return -1 }

// TotalSize implements Transmissible.
func (s String) TotalSize() int { return 1 + len(s) }

// Serialize implements Transmissible.
func (s String) Serialize(a *asm.Area) error {
	if len(s) > 255 {
		return fmt.Errorf("wiretypes: String too long: %d bytes", len(s))
	}
	if err := a.SerializeByte(byte(len(s))); err != nil {
		return err
	}
	return a.SerializeByteBlock(len(s), []byte(s))
}

// Deserialize implements Transmissible.
func (s *String) Deserialize(a *asm.Area) error {
	l, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	b, err := a.DeserializeByteBlock(int(l))
	if err != nil {
		return err
	}
	*s = String(b)
	return nil
}

// VarValue is a VarLen-prefixed value blob. Empty values are illegal per
// spec.md §3.1 and are rejected at the call sites that construct/accept one
// (RTDB_Create, RTDB_Update), not here: VarValue itself is a dumb carrier.
type VarValue []byte

// FixedSize implements Transmissible; -1, runtime-dependent.
func (VarValue) FixedSize() int { return -1 }

// TotalSize implements Transmissible.
func (v VarValue) TotalSize() int { return 1 + len(v) }

// Serialize implements Transmissible.
func (v VarValue) Serialize(a *asm.Area) error {
	if len(v) > 255 {
		return fmt.Errorf("wiretypes: VarValue too long: %d bytes", len(v))
	}
	if err := a.SerializeByte(byte(len(v))); err != nil {
		return err
	}
	return a.SerializeByteBlock(len(v), v)
}

// Deserialize implements Transmissible.
func (v *VarValue) Deserialize(a *asm.Area) error {
	l, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	b, err := a.DeserializeByteBlock(int(l))
	if err != nil {
		return err
	}
	*v = b
	return nil
}

// VarSpec is the immutable-after-creation metadata of a variable:
// producer, repCnt and a human-readable description.
type VarSpec struct {
	VarId       VarId
	Producer    NodeId
	RepCnt      VarRepCnt
	Description String
}

// FixedSize implements Transmissible; -1 because Description is variable length.
func (VarSpec) FixedSize() int { return -1 }

// TotalSize implements Transmissible.
func (s VarSpec) TotalSize() int {
	return s.VarId.TotalSize() + s.Producer.TotalSize() + s.RepCnt.TotalSize() + s.Description.TotalSize()
}

// Serialize implements Transmissible.
func (s VarSpec) Serialize(a *asm.Area) error {
	if err := s.VarId.Serialize(a); err != nil {
		return err
	}
	if err := s.Producer.Serialize(a); err != nil {
		return err
	}
	if err := s.RepCnt.Serialize(a); err != nil {
		return err
	}
	return s.Description.Serialize(a)
}

// Deserialize implements Transmissible.
func (s *VarSpec) Deserialize(a *asm.Area) error {
	if err := s.VarId.Deserialize(a); err != nil {
		return err
	}
	if err := s.Producer.Deserialize(a); err != nil {
		return err
	}
	if err := s.RepCnt.Deserialize(a); err != nil {
		return err
	}
	return s.Description.Deserialize(a)
}

// SafetyData is SRP's per-node position/velocity payload, three single-
// precision floats each, carried as raw IEEE-754 bit patterns.
type SafetyData struct {
	PositionX, PositionY, PositionZ float32
	VelocityX, VelocityY, VelocityZ float32
}

// FixedSize implements Transmissible.
func (SafetyData) FixedSize() int { return 24 }

// TotalSize implements Transmissible.
func (SafetyData) TotalSize() int { return 24 }

// Serialize implements Transmissible.
func (s SafetyData) Serialize(a *asm.Area) error {
	for _, f := range []float32{s.PositionX, s.PositionY, s.PositionZ, s.VelocityX, s.VelocityY, s.VelocityZ} {
		if err := a.SerializeUint32N(math.Float32bits(f)); err != nil {
			return err
		}
	}
	return nil
}

// Deserialize implements Transmissible.
func (s *SafetyData) Deserialize(a *asm.Area) error {
	fs := make([]*float32, 6)
	fs[0], fs[1], fs[2] = &s.PositionX, &s.PositionY, &s.PositionZ
	fs[3], fs[4], fs[5] = &s.VelocityX, &s.VelocityY, &s.VelocityZ
	for _, f := range fs {
		v, err := a.DeserializeUint32N()
		if err != nil {
			return err
		}
		*f = math.Float32frombits(v)
	}
	return nil
}

// ExtendedSafetyData is the wire record SRP broadcasts: a node's safety
// data plus its identity, generation time and sequence number, per
// spec.md §4.14.
type ExtendedSafetyData struct {
	Data      SafetyData
	NodeId    NodeId
	Timestamp TimeStamp
	Seqno     VarSeqno
}

// FixedSize implements Transmissible.
func (ExtendedSafetyData) FixedSize() int { return 24 + 6 + 8 + 1 }

// TotalSize implements Transmissible.
func (e ExtendedSafetyData) TotalSize() int { return e.FixedSize() }

// Serialize implements Transmissible.
func (e ExtendedSafetyData) Serialize(a *asm.Area) error {
	if err := e.Data.Serialize(a); err != nil {
		return err
	}
	if err := e.NodeId.Serialize(a); err != nil {
		return err
	}
	if err := e.Timestamp.Serialize(a); err != nil {
		return err
	}
	return e.Seqno.Serialize(a)
}

// Deserialize implements Transmissible.
func (e *ExtendedSafetyData) Deserialize(a *asm.Area) error {
	if err := e.Data.Deserialize(a); err != nil {
		return err
	}
	if err := e.NodeId.Deserialize(a); err != nil {
		return err
	}
	if err := e.Timestamp.Deserialize(a); err != nil {
		return err
	}
	return e.Seqno.Deserialize(a)
}
