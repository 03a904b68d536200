/*
 *
 * Copyright 2025 gRPC authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package platform

import (
	"github.com/shmring/magicring/layout"
)

// buildMapping slices a raw total_bytes-sized reservation (already carrying
// the remapped mirror) into the Header, Primary, and Mirror ranges described
// in §3/§6, and wires closer to the back-end-supplied teardown function.
func buildMapping(name string, desc layout.Descriptor, raw []byte, writable bool, closer func() error) *Mapping {
	return &Mapping{
		Name:     name,
		Layout:   desc,
		Raw:      raw,
		Header:   raw[desc.HeaderOffset : desc.HeaderOffset+desc.RawHeaderSize],
		Primary:  raw[desc.BufferOffset : desc.BufferOffset+desc.AlignedBufferSize],
		Mirror:   raw[desc.MirrorOffset : desc.MirrorOffset+desc.AlignedBufferSize],
		Writable: writable,
		closer:   closer,
	}
}
