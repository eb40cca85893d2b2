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
	"context"
	"time"

	"github.com/dcp-vardis/dcpd/asm"
	"github.com/dcp-vardis/dcpd/shmqueue"
	"github.com/dcp-vardis/dcpd/vardisshm"
	"github.com/dcp-vardis/dcpd/wiretypes"
)

// DispatchPollInterval bounds how often the Dispatcher sweeps attached
// segments for new requests, matching shmqueue.PollInterval's cadence.
const DispatchPollInterval = 10 * time.Millisecond

// Dispatcher drains every attached application client's request queues and
// applies them against a Service, the local-IPC analogue of what bp.Manager
// does for BP's control-socket requests. It holds no protocol logic of its
// own: Service.Create/Delete/Update/Read already implement spec.md §4.10.
type Dispatcher struct {
	registry *ClientRegistry
	service  *Service
}

// NewDispatcher binds a Dispatcher to registry and service.
func NewDispatcher(registry *ClientRegistry, service *Service) *Dispatcher {
	return &Dispatcher{registry: registry, service: service}
}

// Run sweeps attached segments until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(DispatchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.sweep(ctx)
		}
	}
}

func (d *Dispatcher) sweep(ctx context.Context) {
	for _, seg := range d.registry.Segments() {
		d.drainCreate(ctx, seg)
		d.drainDelete(ctx, seg)
		d.drainUpdate(ctx, seg)
		d.drainRead(ctx, seg)
	}
}

func readChunk(seg *vardisshm.Segment, buf shmqueue.SharedMemBuffer) *asm.Area {
	chunk := seg.ChunkBytes(buf)
	return asm.NewAreaForReading(chunk, int(buf.UsedLen))
}

func (d *Dispatcher) reply(ctx context.Context, seg *vardisshm.Segment, confirmQ *shmqueue.Queue, encode func(*asm.Area) error) {
	buf, _, err := seg.FreeList.PopWait(ctx)
	if err != nil {
		return
	}
	a := asm.NewArea(seg.ChunkBytes(buf))
	if err := encode(a); err != nil {
		return
	}
	buf.UsedLen = uint32(a.Used())
	buf.DataOffset = 0
	_ = confirmQ.PushWait(ctx, buf)
}

func (d *Dispatcher) drainCreate(ctx context.Context, seg *vardisshm.Segment) {
	for {
		buf, _, err := seg.CreateRequest.PopNoWait()
		if err != nil {
			return
		}
		var req CreateRequest
		status := StatusInternalError
		if err := req.Deserialize(readChunk(seg, buf)); err == nil {
			status = d.service.Create(req.Spec, req.Value)
		}
		_ = seg.FreeList.PushWait(ctx, buf)
		d.reply(ctx, seg, seg.CreateConfirm, StatusConfirm{Status: status}.Serialize)
	}
}

func (d *Dispatcher) drainDelete(ctx context.Context, seg *vardisshm.Segment) {
	for {
		buf, _, err := seg.DeleteRequest.PopNoWait()
		if err != nil {
			return
		}
		var varId wiretypes.VarId
		status := StatusInternalError
		if err := varId.Deserialize(readChunk(seg, buf)); err == nil {
			status = d.service.Delete(varId)
		}
		_ = seg.FreeList.PushWait(ctx, buf)
		d.reply(ctx, seg, seg.DeleteConfirm, StatusConfirm{Status: status}.Serialize)
	}
}

func (d *Dispatcher) drainUpdate(ctx context.Context, seg *vardisshm.Segment) {
	for {
		buf, _, err := seg.UpdateRequest.PopNoWait()
		if err != nil {
			return
		}
		var req UpdateRequest
		status := StatusInternalError
		if err := req.Deserialize(readChunk(seg, buf)); err == nil {
			status = d.service.Update(req.VarId, req.Value)
		}
		_ = seg.FreeList.PushWait(ctx, buf)
		d.reply(ctx, seg, seg.UpdateConfirm, StatusConfirm{Status: status}.Serialize)
	}
}

func (d *Dispatcher) drainRead(ctx context.Context, seg *vardisshm.Segment) {
	for {
		buf, _, err := seg.ReadRequest.PopNoWait()
		if err != nil {
			return
		}
		var req ReadRequest
		var confirm ReadConfirm
		if err := req.Deserialize(readChunk(seg, buf)); err != nil {
			confirm = ReadConfirm{Status: StatusInternalError}
		} else {
			result, status := d.service.Read(req.VarId, int(req.BufCapacity))
			confirm = ReadConfirm{Status: status, Seqno: result.Seqno, Value: result.Value}
		}
		_ = seg.FreeList.PushWait(ctx, buf)
		d.reply(ctx, seg, seg.ReadConfirm, confirm.Serialize)
	}
}
