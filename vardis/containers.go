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

// Package vardis implements the RTDB convergence protocol: instruction
// container wire encoding (this file), plus the transmitter, receiver,
// scrubber and client service handler that drive package rtdb.
package vardis

import (
	"fmt"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// ContainerType identifies one of the six instruction container kinds of
// spec.md §3.3.
type ContainerType uint8

const (
	ContainerSummaries ContainerType = iota + 1
	ContainerUpdates
	ContainerRequestVarUpdates
	ContainerRequestVarCreates
	ContainerCreateVariables
	ContainerDeleteVariables
)

var containerTypeNames = map[ContainerType]string{
	ContainerSummaries:         "SUMMARIES",
	ContainerUpdates:           "UPDATES",
	ContainerRequestVarUpdates: "REQUEST_VARUPDATES",
	ContainerRequestVarCreates: "REQUEST_VARCREATES",
	ContainerCreateVariables:   "CREATE_VARIABLES",
	ContainerDeleteVariables:   "DELETE_VARIABLES",
}

func (t ContainerType) String() string {
	if name, ok := containerTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("IC_UNKNOWN(%d)", uint8(t))
}

// SummaryRecord is one record of a SUMMARIES container.
type SummaryRecord struct {
	VarId wiretypes.VarId
	Seqno wiretypes.VarSeqno
}

func (r SummaryRecord) serialize(a *asm.Area) error {
	if err := r.VarId.Serialize(a); err != nil {
		return err
	}
	return r.Seqno.Serialize(a)
}

func (r *SummaryRecord) deserialize(a *asm.Area) error {
	if err := r.VarId.Deserialize(a); err != nil {
		return err
	}
	return r.Seqno.Deserialize(a)
}

// UpdateRecord is one record of an UPDATES container.
type UpdateRecord struct {
	VarId wiretypes.VarId
	Seqno wiretypes.VarSeqno
	Value wiretypes.VarValue
}

func (r UpdateRecord) serialize(a *asm.Area) error {
	if err := r.VarId.Serialize(a); err != nil {
		return err
	}
	if err := r.Seqno.Serialize(a); err != nil {
		return err
	}
	return r.Value.Serialize(a)
}

func (r *UpdateRecord) deserialize(a *asm.Area) error {
	if err := r.VarId.Deserialize(a); err != nil {
		return err
	}
	if err := r.Seqno.Deserialize(a); err != nil {
		return err
	}
	return r.Value.Deserialize(a)
}

// RequestVarUpdateRecord is one record of a REQUEST_VARUPDATES container.
type RequestVarUpdateRecord struct {
	VarId wiretypes.VarId
	Seqno wiretypes.VarSeqno
}

func (r RequestVarUpdateRecord) serialize(a *asm.Area) error {
	if err := r.VarId.Serialize(a); err != nil {
		return err
	}
	return r.Seqno.Serialize(a)
}

func (r *RequestVarUpdateRecord) deserialize(a *asm.Area) error {
	if err := r.VarId.Deserialize(a); err != nil {
		return err
	}
	return r.Seqno.Deserialize(a)
}

// RequestVarCreateRecord is one record of a REQUEST_VARCREATES container.
type RequestVarCreateRecord struct {
	VarId wiretypes.VarId
}

func (r RequestVarCreateRecord) serialize(a *asm.Area) error { return r.VarId.Serialize(a) }
func (r *RequestVarCreateRecord) deserialize(a *asm.Area) error {
	return r.VarId.Deserialize(a)
}

// CreateVariableRecord is one record of a CREATE_VARIABLES container.
type CreateVariableRecord struct {
	Spec  wiretypes.VarSpec
	Value wiretypes.VarValue
}

func (r CreateVariableRecord) serialize(a *asm.Area) error {
	if err := r.Spec.Serialize(a); err != nil {
		return err
	}
	return r.Value.Serialize(a)
}

func (r *CreateVariableRecord) deserialize(a *asm.Area) error {
	if err := r.Spec.Deserialize(a); err != nil {
		return err
	}
	return r.Value.Deserialize(a)
}

// DeleteVariableRecord is one record of a DELETE_VARIABLES container.
type DeleteVariableRecord struct {
	VarId wiretypes.VarId
}

func (r DeleteVariableRecord) serialize(a *asm.Area) error   { return r.VarId.Serialize(a) }
func (r *DeleteVariableRecord) deserialize(a *asm.Area) error { return r.VarId.Deserialize(a) }

// container is the shared container header: icType, icCount.
type container struct {
	Type  ContainerType
	Count uint8
}

func (c container) serialize(a *asm.Area) error {
	if err := a.SerializeByte(byte(c.Type)); err != nil {
		return err
	}
	return a.SerializeByte(c.Count)
}

func (c *container) deserialize(a *asm.Area) error {
	t, err := a.DeserializeByte()
	if err != nil {
		return err
	}
	c.Type = ContainerType(t)
	c.Count, err = a.DeserializeByte()
	return err
}

// SerializeSummaries writes a SUMMARIES container for recs, or nothing
// (returns false) if recs is empty.
func SerializeSummaries(a *asm.Area, recs []SummaryRecord) (bool, error) {
	if len(recs) == 0 {
		return false, nil
	}
	if err := (container{ContainerSummaries, uint8(len(recs))}).serialize(a); err != nil {
		return false, err
	}
	for _, r := range recs {
		if err := r.serialize(a); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SerializeUpdates writes an UPDATES container for recs.
func SerializeUpdates(a *asm.Area, recs []UpdateRecord) (bool, error) {
	if len(recs) == 0 {
		return false, nil
	}
	if err := (container{ContainerUpdates, uint8(len(recs))}).serialize(a); err != nil {
		return false, err
	}
	for _, r := range recs {
		if err := r.serialize(a); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SerializeRequestVarUpdates writes a REQUEST_VARUPDATES container for recs.
func SerializeRequestVarUpdates(a *asm.Area, recs []RequestVarUpdateRecord) (bool, error) {
	if len(recs) == 0 {
		return false, nil
	}
	if err := (container{ContainerRequestVarUpdates, uint8(len(recs))}).serialize(a); err != nil {
		return false, err
	}
	for _, r := range recs {
		if err := r.serialize(a); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SerializeRequestVarCreates writes a REQUEST_VARCREATES container for recs.
func SerializeRequestVarCreates(a *asm.Area, recs []RequestVarCreateRecord) (bool, error) {
	if len(recs) == 0 {
		return false, nil
	}
	if err := (container{ContainerRequestVarCreates, uint8(len(recs))}).serialize(a); err != nil {
		return false, err
	}
	for _, r := range recs {
		if err := r.serialize(a); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SerializeCreateVariables writes a CREATE_VARIABLES container for recs.
func SerializeCreateVariables(a *asm.Area, recs []CreateVariableRecord) (bool, error) {
	if len(recs) == 0 {
		return false, nil
	}
	if err := (container{ContainerCreateVariables, uint8(len(recs))}).serialize(a); err != nil {
		return false, err
	}
	for _, r := range recs {
		if err := r.serialize(a); err != nil {
			return false, err
		}
	}
	return true, nil
}

// SerializeDeleteVariables writes a DELETE_VARIABLES container for recs.
func SerializeDeleteVariables(a *asm.Area, recs []DeleteVariableRecord) (bool, error) {
	if len(recs) == 0 {
		return false, nil
	}
	if err := (container{ContainerDeleteVariables, uint8(len(recs))}).serialize(a); err != nil {
		return false, err
	}
	for _, r := range recs {
		if err := r.serialize(a); err != nil {
			return false, err
		}
	}
	return true, nil
}

// DisassembledContainer is one decoded container, holding exactly one of
// its record slices depending on Type.
type DisassembledContainer struct {
	Type ContainerType

	Summaries         []SummaryRecord
	Updates           []UpdateRecord
	RequestVarUpdates []RequestVarUpdateRecord
	RequestVarCreates []RequestVarCreateRecord
	CreateVariables   []CreateVariableRecord
	DeleteVariables   []DeleteVariableRecord
}

// Disassemble reads every container present in a until exhausted.
func Disassemble(a *asm.Area) ([]DisassembledContainer, error) {
	var out []DisassembledContainer
	for a.Remaining() > 0 {
		var hdr container
		if err := hdr.deserialize(a); err != nil {
			return nil, err
		}
		dc := DisassembledContainer{Type: hdr.Type}
		switch hdr.Type {
		case ContainerSummaries:
			for i := 0; i < int(hdr.Count); i++ {
				var r SummaryRecord
				if err := r.deserialize(a); err != nil {
					return nil, err
				}
				dc.Summaries = append(dc.Summaries, r)
			}
		case ContainerUpdates:
			for i := 0; i < int(hdr.Count); i++ {
				var r UpdateRecord
				if err := r.deserialize(a); err != nil {
					return nil, err
				}
				dc.Updates = append(dc.Updates, r)
			}
		case ContainerRequestVarUpdates:
			for i := 0; i < int(hdr.Count); i++ {
				var r RequestVarUpdateRecord
				if err := r.deserialize(a); err != nil {
					return nil, err
				}
				dc.RequestVarUpdates = append(dc.RequestVarUpdates, r)
			}
		case ContainerRequestVarCreates:
			for i := 0; i < int(hdr.Count); i++ {
				var r RequestVarCreateRecord
				if err := r.deserialize(a); err != nil {
					return nil, err
				}
				dc.RequestVarCreates = append(dc.RequestVarCreates, r)
			}
		case ContainerCreateVariables:
			for i := 0; i < int(hdr.Count); i++ {
				var r CreateVariableRecord
				if err := r.deserialize(a); err != nil {
					return nil, err
				}
				dc.CreateVariables = append(dc.CreateVariables, r)
			}
		case ContainerDeleteVariables:
			for i := 0; i < int(hdr.Count); i++ {
				var r DeleteVariableRecord
				if err := r.deserialize(a); err != nil {
					return nil, err
				}
				dc.DeleteVariables = append(dc.DeleteVariables, r)
			}
		default:
			return nil, fmt.Errorf("vardis: unknown instruction container type %d", hdr.Type)
		}
		out = append(out, dc)
	}
	return out, nil
}
