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

// Package ring implements the typed magic ring buffer: a named,
// shared-memory, single-producer circular buffer bound to an element type T
// and a caller-supplied header type H. The buffer's physical storage is
// mapped twice in virtual memory (internal/platform) so that any window of
// length up to the ring's capacity is always contiguous, wrap or no wrap.
package ring

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/shmring/magicring/internal/platform"
	"github.com/shmring/magicring/layout"
)

// Allocator customizes the backing-object name a Ring (or a MultiRing
// sub-ring) is created/opened under. field is empty for a plain Ring; for a
// MultiRing sub-ring it is the source-level field name, and the decorated
// name must be identical on both create and open (§6).
type Allocator interface {
	AllocName(base, field string) string
}

// DefaultAllocator implements the "<base>-<field>" naming convention of §6,
// or the bare base name when field is empty.
type DefaultAllocator struct{}

// AllocName implements Allocator.
func (DefaultAllocator) AllocName(base, field string) string {
	if field == "" {
		return base
	}
	return base + "-" + field
}

// State is the fixed {count, head, tail} prefix described in §3, mapped
// directly onto shared memory. Fields are accessed through sync/atomic
// because a reader in another process may observe them mid-update (§5); the
// ring remains single-producer, so only one writer may call the setters.
type State struct {
	count uint64
	head  uint64
	tail  uint64
}

// Count returns the monotonic push count.
func (s *State) Count() uint64 { return atomic.LoadUint64(&s.count) }

// SetCount stores the monotonic push count. Callers outside this package
// (e.g. multiring's sub-rings) use this to drive the same {count,head,tail}
// bookkeeping a Ring performs internally; the ring remains single-producer,
// so only the one writer may call it.
func (s *State) SetCount(v uint64) { atomic.StoreUint64(&s.count, v) }

// Head returns the wire-format head (count mod 2L).
func (s *State) Head() uint64 { return atomic.LoadUint64(&s.head) }

// SetHead stores the wire-format head.
func (s *State) SetHead(v uint64) { atomic.StoreUint64(&s.head, v) }

// Tail returns the wire-format tail.
func (s *State) Tail() uint64 { return atomic.LoadUint64(&s.tail) }

// SetTail stores the wire-format tail.
func (s *State) SetTail(v uint64) { atomic.StoreUint64(&s.tail, v) }

func (s *State) reset() {
	s.SetCount(0)
	s.SetHead(0)
	s.SetTail(0)
}

// Ring is the C3 typed ring with header: element type T, user header type H.
// The zero value is not usable; obtain one via Create or Open.
type Ring[T any, H any] struct {
	name      string
	mapping   *platform.Mapping
	state     *State
	header    *H
	buffer    []T // primary view, length L
	combined  []T // primary ∪ mirror, length 2L
	length    uint64
	allocator Allocator
}

// headerSize is {count,head,tail} (3×u64 = 24 bytes) plus sizeof(H).
func headerSize[H any]() uint64 {
	var h H
	return 24 + uint64(unsafe.Sizeof(h))
}

// Exists reports whether a ring backing object named name is currently
// present, without attaching to it.
func Exists(name string) bool {
	return platform.DefaultBackend().Exists(name)
}

// Create constructs a new ring named name with room for at least length
// elements of T. It fails with platform.ErrKindAlreadyExists if a backing
// object of that name is already present.
func Create[T any, H any](name string, length uint64, allocator Allocator) (*Ring[T, H], error) {
	if allocator == nil {
		allocator = DefaultAllocator{}
	}
	name = allocator.AllocName(name, "")
	var zero T
	if unsafe.Sizeof(zero) == 0 || length == 0 {
		return nil, fmt.Errorf("ring: create %q: element size and length must be non-zero", name)
	}
	backend := platform.DefaultBackend()
	if backend.Exists(name) {
		return nil, platform.NewError(platform.ErrKindAlreadyExists, "create", name, fmt.Errorf("ring %q already exists", name))
	}

	desc := layout.Calculate(uint64(unsafe.Sizeof(zero)), length, headerSize[H](), platform.PageSize(), platform.Granularity())

	mapping, err := backend.Create(name, desc)
	if err != nil {
		return nil, err
	}
	return newRing[T, H](name, mapping, allocator), nil
}

// Open attaches to an existing ring named name. length must equal the
// length the ring was created with, or its Len() (cmd/magicringctl records
// Len() in config.Document's ShmSize field for later openers). Open
// fails with platform.ErrKindDoesNotExist if no backing object is present.
func Open[T any, H any](name string, length uint64, writable bool, allocator Allocator) (*Ring[T, H], error) {
	if allocator == nil {
		allocator = DefaultAllocator{}
	}
	name = allocator.AllocName(name, "")
	backend := platform.DefaultBackend()
	if !backend.Exists(name) {
		return nil, platform.NewError(platform.ErrKindDoesNotExist, "open", name, fmt.Errorf("ring %q does not exist", name))
	}

	var zero T
	desc := layout.Calculate(uint64(unsafe.Sizeof(zero)), length, headerSize[H](), platform.PageSize(), platform.Granularity())

	mapping, err := backend.Open(name, desc, writable)
	if err != nil {
		return nil, err
	}
	return newRing[T, H](name, mapping, allocator), nil
}

func newRing[T any, H any](name string, mapping *platform.Mapping, allocator Allocator) *Ring[T, H] {
	L := mapping.Layout.ActualElementCount
	headerBase := unsafe.Pointer(&mapping.Header[0])
	state := (*State)(headerBase)
	// Pointer arithmetic rather than slice indexing: when H is zero-sized
	// (no extension fields), mapping.Header's length is exactly 24 and
	// indexing at offset 24 would be out of range even though the address
	// itself is valid (it sits in the header's page-alignment padding).
	header := (*H)(unsafe.Pointer(uintptr(headerBase) + 24))
	buffer := unsafe.Slice((*T)(unsafe.Pointer(&mapping.Primary[0])), L)
	combined := unsafe.Slice((*T)(unsafe.Pointer(&mapping.Primary[0])), 2*L)
	return &Ring[T, H]{
		name:      name,
		mapping:   mapping,
		state:     state,
		header:    header,
		buffer:    buffer,
		combined:  combined,
		length:    L,
		allocator: allocator,
	}
}

// Close tears down the backing mapping. The handle must not be used
// afterward; any views previously returned by Slice/ValueAt/Header must not
// outlive this call.
func (r *Ring[T, H]) Close() error {
	if r.mapping == nil {
		return nil
	}
	err := r.mapping.Close()
	r.mapping = nil
	r.state = nil
	r.header = nil
	r.buffer = nil
	r.combined = nil
	return err
}

// Name returns the backing object's name.
func (r *Ring[T, H]) Name() string { return r.name }

// Len returns L, the actual element count (always ≥ the requested count).
func (r *Ring[T, H]) Len() uint64 { return r.length }

// Layout returns the C1 descriptor this ring's mapping was built from.
func (r *Ring[T, H]) Layout() layout.Descriptor { return r.mapping.Layout }

// Header returns the mutable user header view.
func (r *Ring[T, H]) Header() *H { return r.header }

// Reset zeroes count, head, and tail.
func (r *Ring[T, H]) Reset() { r.state.reset() }

// CurrentState snapshots {count, head, tail}.
func (r *Ring[T, H]) CurrentState() (count, head, tail uint64) {
	return r.state.Count(), r.state.Head(), r.state.Tail()
}

// logicalTail returns the unwrapped logical tail position implied by count:
// zero until the ring has overrun once, then count-L forever after. Because
// count is monotonic and never itself wraps, this sidesteps the mod-2L
// ambiguity the source's slice precondition suffered from (§9, open
// question 4): every comparison below is against this unwrapped value, not
// against State.Tail()'s wire-format remainder.
func (r *Ring[T, H]) logicalTail() uint64 {
	count := r.state.Count()
	if count <= r.length {
		return 0
	}
	return count - r.length
}

// advance applies a push of n elements: bumps count, recomputes the
// wire-format head/tail fields, and returns the new count.
func (r *Ring[T, H]) advance(n uint64) uint64 {
	L := r.length
	count := r.state.Count() + n
	r.state.SetCount(count)
	r.state.SetHead(count % (2 * L))
	if count > L {
		r.state.SetTail((count - L) % (2 * L))
	}
	return count
}

// ValueAt returns ring[i mod L]. Requires i < count.
func (r *Ring[T, H]) ValueAt(i uint64) (T, error) {
	var zero T
	count := r.state.Count()
	if i >= count {
		return zero, platform.NewError(platform.ErrKindIndexOutOfRange, "valueAt", r.name, fmt.Errorf("index %d >= count %d", i, count))
	}
	return r.buffer[i%r.length], nil
}

// Push writes v to ring[count mod L] and advances count/head/tail by one.
// It returns the new count.
func (r *Ring[T, H]) Push(v T) uint64 {
	count := r.state.Count()
	r.buffer[count%r.length] = v
	return r.advance(1)
}

// PushValues copies vs contiguously starting at ring[head mod L], using the
// combined view so the destination is contiguous even across the seam.
// Requires len(vs) ≤ L. It returns the new count.
func (r *Ring[T, H]) PushValues(vs []T) (uint64, error) {
	L := r.length
	k := uint64(len(vs))
	if k > L {
		return 0, platform.NewError(platform.ErrKindIndexOutOfRange, "pushValues", r.name, fmt.Errorf("len(vs)=%d exceeds capacity %d", k, L))
	}
	if k == 0 {
		return r.state.Count(), nil
	}
	start := r.state.Count() % L
	copy(r.combined[start:start+k], vs)
	return r.advance(k), nil
}

// Slice returns ring[(start mod L) .. (start mod L)+(stop-start)] via the
// combined view. Requires start ≤ stop, stop-start ≤ L, and start ≥ the
// logical tail (the tightened form of §9 open question 4: compares
// unwrapped logical positions, not remainders).
func (r *Ring[T, H]) Slice(start, stop uint64) ([]T, error) {
	if start > stop {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "slice", r.name, fmt.Errorf("start %d > stop %d", start, stop))
	}
	width := stop - start
	if width > r.length {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "slice", r.name, fmt.Errorf("window width %d exceeds capacity %d", width, r.length))
	}
	if start < r.logicalTail() {
		return nil, platform.NewError(platform.ErrKindWindowCrossesTail, "slice", r.name, fmt.Errorf("start %d is behind tail %d", start, r.logicalTail()))
	}
	base := start % r.length
	return r.combined[base : base+width], nil
}

// SliceFromTail returns the k oldest live elements: ring[(tail mod L) ..
// (tail mod L)+k]. Requires k ≤ L.
func (r *Ring[T, H]) SliceFromTail(k uint64) ([]T, error) {
	if k > r.length {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "sliceFromTail", r.name, fmt.Errorf("k=%d exceeds capacity %d", k, r.length))
	}
	base := r.logicalTail() % r.length
	return r.combined[base : base+k], nil
}

// SliceToHead returns the k newest elements: ring[(head-k) .. head].
// Requires k ≤ count.
func (r *Ring[T, H]) SliceToHead(k uint64) ([]T, error) {
	count := r.state.Count()
	if k > count {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "sliceToHead", r.name, fmt.Errorf("k=%d exceeds count %d", k, count))
	}
	base := (count - k) % r.length
	return r.combined[base : base+k], nil
}

// Insert overwrites ring[i mod L] in place without advancing count/head/tail.
// Requires tail ≤ i < count (the tightened form of §9 open question 3:
// rejects writes behind the tail rather than silently allowing them).
func (r *Ring[T, H]) Insert(v T, i uint64) error {
	count := r.state.Count()
	if i >= count {
		return platform.NewError(platform.ErrKindIndexOutOfRange, "insert", r.name, fmt.Errorf("index %d >= count %d", i, count))
	}
	if i < r.logicalTail() {
		return platform.NewError(platform.ErrKindWindowCrossesTail, "insert", r.name, fmt.Errorf("index %d is behind tail %d", i, r.logicalTail()))
	}
	r.buffer[i%r.length] = v
	return nil
}

// InsertValues overwrites vs starting at logical index i, one call to
// Insert per element.
func (r *Ring[T, H]) InsertValues(vs []T, i uint64) error {
	for off, v := range vs {
		if err := r.Insert(v, i+uint64(off)); err != nil {
			return err
		}
	}
	return nil
}
