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
	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// CreateRequest is the chunk payload an application client pushes onto a
// Segment.CreateRequest queue, per spec.md §4.10's RTDB_Create.request.
type CreateRequest struct {
	Spec  wiretypes.VarSpec
	Value wiretypes.VarValue
}

func (r CreateRequest) Serialize(a *asm.Area) error {
	if err := r.Spec.Serialize(a); err != nil {
		return err
	}
	return r.Value.Serialize(a)
}

func (r *CreateRequest) Deserialize(a *asm.Area) error {
	if err := r.Spec.Deserialize(a); err != nil {
		return err
	}
	return r.Value.Deserialize(a)
}

// UpdateRequest is RTDB_Update.request{varId, value}.
type UpdateRequest struct {
	VarId wiretypes.VarId
	Value wiretypes.VarValue
}

func (r UpdateRequest) Serialize(a *asm.Area) error {
	if err := r.VarId.Serialize(a); err != nil {
		return err
	}
	return r.Value.Serialize(a)
}

func (r *UpdateRequest) Deserialize(a *asm.Area) error {
	if err := r.VarId.Deserialize(a); err != nil {
		return err
	}
	return r.Value.Deserialize(a)
}

// ReadRequest is RTDB_Read.request{varId, bufCapacity}.
type ReadRequest struct {
	VarId       wiretypes.VarId
	BufCapacity uint16
}

func (r ReadRequest) Serialize(a *asm.Area) error {
	if err := r.VarId.Serialize(a); err != nil {
		return err
	}
	return a.SerializeUint16N(r.BufCapacity)
}

func (r *ReadRequest) Deserialize(a *asm.Area) error {
	if err := r.VarId.Deserialize(a); err != nil {
		return err
	}
	v, err := a.DeserializeUint16N()
	if err != nil {
		return err
	}
	r.BufCapacity = v
	return nil
}

// ReadConfirm is RTDB_Read.confirm{status, seqno, value}. Value is present
// only when Status == StatusOK.
type ReadConfirm struct {
	Status Status
	Seqno  wiretypes.VarSeqno
	Value  wiretypes.VarValue
}

func (c ReadConfirm) Serialize(a *asm.Area) error {
	if err := a.SerializeByte(byte(c.Status)); err != nil {
		return err
	}
	if c.Status != StatusOK {
		return nil
	}
	if err := c.Seqno.Serialize(a); err != nil {
		return err
	}
	return c.Value.Serialize(a)
}

func (c *ReadConfirm) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	c.Status = Status(b)
	if c.Status != StatusOK {
		return nil
	}
	if err := c.Seqno.Deserialize(a); err != nil {
		return err
	}
	return c.Value.Deserialize(a)
}

// StatusConfirm is the shared wire shape of Create/Delete/Update confirms:
// a single status byte.
type StatusConfirm struct {
	Status Status
}

func (c StatusConfirm) Serialize(a *asm.Area) error { return a.SerializeByte(byte(c.Status)) }

func (c *StatusConfirm) Deserialize(a *asm.Area) error {
	b, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	c.Status = Status(b)
	return nil
}
