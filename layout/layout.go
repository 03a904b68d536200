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

// Package layout computes the page-aligned virtual-memory layout for a magic
// ring buffer: how large the header and buffer regions must be once aligned,
// and where the primary and mirror buffer views sit inside the doubled
// virtual reservation.
//
// This package is pure arithmetic. It has no platform dependency of its own;
// internal/platform supplies the page size and allocation granularity it was
// queried from the OS with, and layout.Calculate never calls into the OS.
package layout

import "fmt"

// Descriptor is the immutable output of Calculate. All fields are derived
// from (elementSize, elementCountReq, headerSize, pageSize, granularity).
type Descriptor struct {
	PageSize        uint64
	Granularity     uint64
	RawHeaderSize   uint64
	RawBufferSize   uint64
	ElementSize     uint64
	ElementCountReq uint64

	AlignedHeaderSize uint64
	AlignedBufferSize uint64
	ActualElementCount uint64

	HeaderPageCount uint64
	BufferPageCount uint64

	TotalSize uint64

	HeaderOffset    uint64
	BufferOffset    uint64
	MirrorOffset    uint64
}

// Calculate derives a Descriptor for an element of elementSize bytes, a
// requested capacity of elementCountReq elements, and a raw user header of
// headerSize bytes (the {count,head,tail} prefix plus caller fields), given
// the platform's page size and allocation granularity (granularity is equal
// to pageSize on POSIX; on Windows it is the larger system allocation
// granularity, typically 64 KiB).
//
// Calculate never fails: a zero elementSize or elementCountReq is rejected by
// the caller (ring.Create; multiring.New/Open reject zero-size fields and
// always request at least one element) before Calculate is invoked.
func Calculate(elementSize, elementCountReq, headerSize, pageSize, granularity uint64) Descriptor {
	unit := pageSize
	if granularity > unit {
		unit = granularity
	}

	alignedHeader := alignUp(headerSize, unit)
	rawBuffer := elementSize * elementCountReq
	alignedBuffer := alignUp(rawBuffer, unit)

	actualCount := alignedBuffer / elementSize

	return Descriptor{
		PageSize:        pageSize,
		Granularity:     granularity,
		RawHeaderSize:   headerSize,
		RawBufferSize:   rawBuffer,
		ElementSize:     elementSize,
		ElementCountReq: elementCountReq,

		AlignedHeaderSize:  alignedHeader,
		AlignedBufferSize:  alignedBuffer,
		ActualElementCount: actualCount,

		HeaderPageCount: alignedHeader / unit,
		BufferPageCount: alignedBuffer / unit,

		TotalSize: alignedHeader + 2*alignedBuffer,

		HeaderOffset: 0,
		BufferOffset: alignedHeader,
		MirrorOffset: alignedHeader + alignedBuffer,
	}
}

func alignUp(n, unit uint64) uint64 {
	if unit == 0 {
		return n
	}
	rem := n % unit
	if rem == 0 {
		return n
	}
	return n + (unit - rem)
}

// Validate checks the invariants listed in §3 of the specification. It is
// called from this package's tests; no other package calls it, and
// Calculate's own arithmetic can never violate them.
func (d Descriptor) Validate() error {
	unit := d.PageSize
	if d.Granularity > unit {
		unit = d.Granularity
	}
	if unit == 0 {
		return fmt.Errorf("layout: page size and granularity are both zero")
	}
	if d.AlignedHeaderSize%unit != 0 {
		return fmt.Errorf("layout: aligned header size %d is not a multiple of %d", d.AlignedHeaderSize, unit)
	}
	if d.AlignedBufferSize%unit != 0 {
		return fmt.Errorf("layout: aligned buffer size %d is not a multiple of %d", d.AlignedBufferSize, unit)
	}
	if d.ActualElementCount*d.ElementSize != d.AlignedBufferSize {
		return fmt.Errorf("layout: actual element count %d * element size %d != aligned buffer size %d",
			d.ActualElementCount, d.ElementSize, d.AlignedBufferSize)
	}
	if d.HeaderOffset+d.RawHeaderSize > d.BufferOffset {
		return fmt.Errorf("layout: header [%d,%d) overruns buffer offset %d", d.HeaderOffset, d.HeaderOffset+d.RawHeaderSize, d.BufferOffset)
	}
	if d.MirrorOffset-d.BufferOffset != d.AlignedBufferSize {
		return fmt.Errorf("layout: mirror offset %d is not one aligned buffer past buffer offset %d", d.MirrorOffset, d.BufferOffset)
	}
	if d.ActualElementCount < d.ElementCountReq {
		return fmt.Errorf("layout: actual element count %d is below requested %d", d.ActualElementCount, d.ElementCountReq)
	}
	return nil
}
