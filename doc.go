/*
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
 */

// Package magicring is the top-level umbrella for a cross-platform magic
// ring buffer library: a named, shared-memory, single-producer circular
// buffer whose physical storage is mapped twice in virtual memory so that
// any window of length up to the buffer's capacity is always contiguous,
// wrap or no wrap, with no copying and no special-casing at the seam.
//
// The library is organized as a small stack of packages, each building on
// the one below it:
//
//   - layout computes the page-aligned virtual-memory layout (header size,
//     buffer size, actual element count, and the offsets the doubled
//     reservation is carved into) from pure arithmetic over the platform's
//     page size and allocation granularity.
//   - internal/platform implements the three back-ends that actually create
//     and double-map a named backing object: memfd on Linux, POSIX named
//     shared memory on darwin/freebsd, and placeholder-splitting virtual
//     memory on Windows.
//   - ring is the typed, single-producer ring buffer built on top of a
//     layout and a platform mapping: push, slice, and indexed access, all
//     addressing the buffer through its wrap-free combined (primary+mirror)
//     view.
//   - multiring lifts ring to a struct-of-arrays layout, decomposing a
//     record type into one parallel sub-ring per field with synchronized
//     logical indices.
//
// config and cmd/magicringctl are caller-side conveniences built on top of
// this stack — JSON sidecar persistence and a small command-line tool — and
// are never imported by the core packages themselves.
package magicring
