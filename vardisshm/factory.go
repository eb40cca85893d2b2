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

package vardisshm

import "fmt"

// Factory mints a fresh control segment per registering application
// client, mirroring bpshm.Factory.
type Factory struct {
	Dir       string
	ChunkSize int
}

// CreateClient builds a new named segment whose chunks are f.ChunkSize
// bytes, or bufCapacity bytes if that is larger.
func (f Factory) CreateClient(clientName string, bufCapacity uint32) (*Segment, error) {
	name := fmt.Sprintf("vardis-client-%s", clientName)
	info := StaticClientInfo{ClientName: clientName, BufCapacity: bufCapacity}
	chunkSize := f.ChunkSize
	if chunkSize < int(bufCapacity) {
		chunkSize = int(bufCapacity)
	}
	return Create(f.Dir, name, info, chunkSize)
}
