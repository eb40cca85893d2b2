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

package bpshm

import (
	"fmt"

	"github.com/dcp-vardis/dcpd/bp"
)

// Factory implements bp.ClientFactory by creating a brand-new control
// segment under a fixed shared-memory directory for each registration
// request, named after the client's protocol id.
type Factory struct {
	Dir       string
	ChunkSize int
}

// CreateClient builds the control segment named for req.ProtocolId.
func (f Factory) CreateClient(req bp.RegisterRequest) (bp.ClientHandle, error) {
	name := fmt.Sprintf("bp-client-%d", req.ProtocolId)
	info := StaticClientInfo{
		ProtocolId:         req.ProtocolId,
		ProtocolName:       req.ProtocolName,
		MaxPayloadSize:     req.MaxPayloadSize,
		QueueingMode:       req.QueueingMode,
		MaxEntries:         req.MaxEntries,
		GenerateTxConfirms: req.GenerateTxConfirms,
	}
	chunkSize := f.ChunkSize
	if chunkSize < int(req.MaxPayloadSize) {
		chunkSize = int(req.MaxPayloadSize)
	}
	return Create(f.Dir, name, info, chunkSize)
}
