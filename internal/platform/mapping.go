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

import "github.com/shmring/magicring/layout"

// Mapping is C2's output: the doubled virtual reservation described in §3,
// split into the three non-overlapping byte ranges a typed ring casts over.
type Mapping struct {
	// Name is the backing object's name, as passed to Create/Open.
	Name string
	// Layout is the descriptor this mapping was built from.
	Layout layout.Descriptor
	// Raw is the full total_bytes virtual reservation, header first.
	Raw []byte
	// Header is Raw[Layout.HeaderOffset : Layout.HeaderOffset+Layout.RawHeaderSize].
	Header []byte
	// Primary is Raw[Layout.BufferOffset : Layout.BufferOffset+Layout.AlignedBufferSize].
	Primary []byte
	// Mirror is Raw[Layout.MirrorOffset : Layout.MirrorOffset+Layout.AlignedBufferSize],
	// aliasing the same physical pages as Primary.
	Mirror []byte
	// Writable reports whether Primary/Mirror/Header were mapped read-write.
	Writable bool

	closer func() error
}

// Close tears the mapping down via its back-end-specific closer.
func (m *Mapping) Close() error {
	if m.closer == nil {
		return nil
	}
	c := m.closer
	m.closer = nil
	return c()
}

// Backend presents the four C2 primitives with identical contracts across
// memfd, POSIX shm, and Windows placeholder back-ends.
type Backend interface {
	// Create creates a new named backing object sized for total_bytes,
	// carves the virtual reservation, and places Primary immediately
	// before Mirror. Fails with ErrKindAlreadyExists if name is present.
	Create(name string, desc layout.Descriptor) (*Mapping, error)
	// Open attaches to an existing named backing object. Fails with
	// ErrKindDoesNotExist if name is absent. On memfd, the returned mapping
	// is read-only (see the asymmetry documented on the memfd back-end).
	Open(name string, desc layout.Descriptor, writable bool) (*Mapping, error)
	// Exists reports whether name currently resolves to a live backing
	// object.
	Exists(name string) bool
}
