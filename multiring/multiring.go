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

// Package multiring implements the struct-of-arrays magic ring buffer: one
// logical record of type T, whose fields F₁…Fₙ each live in their own magic
// ring buffer, pushed and sliced in lockstep so that logical index i always
// addresses the same record across every field.
//
// Go generics cannot parametrize a single aggregate over n distinct,
// per-field element types chosen at runtime from T's fields, so each
// sub-ring here is driven directly off raw bytes sized by reflect.Type
// rather than wrapped in a ring.Ring[Uᵢ, H]. The one-time field walk runs at
// New/Open time and is cached; no reflection happens on the push/slice hot
// path.
package multiring

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/shmring/magicring/internal/platform"
	"github.com/shmring/magicring/layout"
	"github.com/shmring/magicring/ring"
)

type fieldInfo struct {
	name   string
	typ    reflect.Type
	size   uint64
	offset uintptr
}

// subRing is one field's magic ring buffer, addressed by raw bytes.
type subRing struct {
	name     string
	mapping  *platform.Mapping
	state    *ring.State
	elemSize uint64
	length   uint64
	buffer   []byte // primary, length L*elemSize
	combined []byte // primary ∪ mirror, length 2L*elemSize
}

// header reinterprets the sub-ring's header region (past the {count,head,tail}
// prefix) as *H. H is fixed across every sub-ring of a MultiRing[T,H], so
// this is a direct cast, not a reflection-driven one.
func subHeader[H any](mapping *platform.Mapping) *H {
	headerBase := unsafe.Pointer(&mapping.Header[0])
	return (*H)(unsafe.Pointer(uintptr(headerBase) + 24))
}

// MultiRing is the C4 struct-of-arrays ring over record type T, sharing
// header type H across every sub-ring.
type MultiRing[T any, H any] struct {
	base      string
	allocator ring.Allocator
	fields    []fieldInfo
	subs      []*subRing
	length    uint64
}

func enumerateFields[T any]() ([]fieldInfo, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("multiring: record type must be a struct, got %v", t)
	}
	fields := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Type.Size() == 0 {
			return nil, fmt.Errorf("multiring: field %s of %v has zero size", sf.Name, t)
		}
		fields = append(fields, fieldInfo{
			name:   sf.Name,
			typ:    sf.Type,
			size:   uint64(sf.Type.Size()),
			offset: sf.Offset,
		})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("multiring: record type %v has no exported fields", t)
	}
	return fields, nil
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}

// syncedElementCount implements §4.4's allocation strategy: the smallest
// shared element count m such that every field's buffer is simultaneously an
// integer number of granularity units, scaled up to cover the caller's
// requested count q.
func syncedElementCount(fields []fieldInfo, granularity, q uint64) uint64 {
	m := uint64(1)
	for _, f := range fields {
		r := granularity / gcd(granularity, f.size)
		m = lcm(m, r)
	}
	if q <= m {
		return m
	}
	return m * ((q + m - 1) / m)
}

func headerSize[H any]() uint64 {
	var h H
	return 24 + uint64(unsafe.Sizeof(h))
}

func buildSubRing(name string, f fieldInfo, length uint64, mapping *platform.Mapping) *subRing {
	desc := mapping.Layout
	return &subRing{
		name:     name,
		mapping:  mapping,
		state:    (*ring.State)(unsafe.Pointer(&mapping.Header[0])),
		elemSize: f.size,
		length:   length,
		buffer:   mapping.Raw[desc.BufferOffset : desc.BufferOffset+desc.AlignedBufferSize],
		combined: mapping.Raw[desc.BufferOffset : desc.BufferOffset+2*desc.AlignedBufferSize],
	}
}

// New constructs a MultiRing named name, one sub-ring per exported field of
// T, each sized to the synchronized element count derived from length.
func New[T any, H any](name string, length uint64, allocator ring.Allocator) (*MultiRing[T, H], error) {
	if allocator == nil {
		allocator = ring.DefaultAllocator{}
	}
	fields, err := enumerateFields[T]()
	if err != nil {
		return nil, err
	}
	granularity := platform.Granularity()
	shared := syncedElementCount(fields, granularity, length)

	backend := platform.DefaultBackend()
	subs := make([]*subRing, 0, len(fields))
	for _, f := range fields {
		subName := allocator.AllocName(name, f.name)
		if backend.Exists(subName) {
			closeSubs(subs)
			return nil, platform.NewError(platform.ErrKindAlreadyExists, "create", subName, fmt.Errorf("sub-ring %q already exists", subName))
		}
		desc := layout.Calculate(f.size, shared, headerSize[H](), platform.PageSize(), granularity)
		mapping, err := backend.Create(subName, desc)
		if err != nil {
			closeSubs(subs)
			return nil, err
		}
		subs = append(subs, buildSubRing(subName, f, desc.ActualElementCount, mapping))
	}

	return &MultiRing[T, H]{base: name, allocator: allocator, fields: fields, subs: subs, length: subs[0].length}, nil
}

// Open attaches to an existing MultiRing named name. length must match the
// value it was created with.
func Open[T any, H any](name string, length uint64, writable bool, allocator ring.Allocator) (*MultiRing[T, H], error) {
	if allocator == nil {
		allocator = ring.DefaultAllocator{}
	}
	fields, err := enumerateFields[T]()
	if err != nil {
		return nil, err
	}
	granularity := platform.Granularity()
	shared := syncedElementCount(fields, granularity, length)

	backend := platform.DefaultBackend()
	subs := make([]*subRing, 0, len(fields))
	for _, f := range fields {
		subName := allocator.AllocName(name, f.name)
		if !backend.Exists(subName) {
			closeSubs(subs)
			return nil, platform.NewError(platform.ErrKindDoesNotExist, "open", subName, fmt.Errorf("sub-ring %q does not exist", subName))
		}
		desc := layout.Calculate(f.size, shared, headerSize[H](), platform.PageSize(), granularity)
		mapping, err := backend.Open(subName, desc, writable)
		if err != nil {
			closeSubs(subs)
			return nil, err
		}
		subs = append(subs, buildSubRing(subName, f, desc.ActualElementCount, mapping))
	}

	return &MultiRing[T, H]{base: name, allocator: allocator, fields: fields, subs: subs, length: subs[0].length}, nil
}

func closeSubs(subs []*subRing) {
	for _, s := range subs {
		if s.mapping != nil {
			s.mapping.Close()
		}
	}
}

// Close tears down every sub-ring.
func (m *MultiRing[T, H]) Close() error {
	var firstErr error
	for _, s := range m.subs {
		if s.mapping == nil {
			continue
		}
		if err := s.mapping.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.mapping = nil
	}
	return firstErr
}

// Len returns the shared element count every sub-ring was allocated with.
func (m *MultiRing[T, H]) Len() uint64 { return m.length }

// HeaderField returns the named field's sub-ring's mutable header view.
// Each sub-ring carries its own independent H instance: there is no
// cross-field atomicity, consistent with the synchronisation caveat on
// per-field vs. whole-record operations.
func (m *MultiRing[T, H]) HeaderField(field string) (*H, error) {
	sub, _, err := m.subByField(field)
	if err != nil {
		return nil, err
	}
	return subHeader[H](sub.mapping), nil
}

func (m *MultiRing[T, H]) subByField(field string) (*subRing, fieldInfo, error) {
	for i, f := range m.fields {
		if f.name == field {
			return m.subs[i], f, nil
		}
	}
	return nil, fieldInfo{}, platform.NewError(platform.ErrKindIndexOutOfRange, "field", m.base, fmt.Errorf("no such field %q", field))
}

func (s *subRing) logicalTail() uint64 {
	count := s.state.Count()
	if count <= s.length {
		return 0
	}
	return count - s.length
}

func (s *subRing) advance(n uint64) uint64 {
	L := s.length
	count := s.state.Count() + n
	s.state.SetCount(count)
	s.state.SetHead(count % (2 * L))
	if count > L {
		s.state.SetTail((count - L) % (2 * L))
	}
	return count
}

func (s *subRing) pushBytes(src []byte) uint64 {
	count := s.state.Count()
	idx := (count % s.length) * s.elemSize
	copy(s.buffer[idx:idx+s.elemSize], src)
	return s.advance(1)
}

func (s *subRing) pushValuesBytes(src []byte, n uint64) (uint64, error) {
	if n > s.length {
		return 0, platform.NewError(platform.ErrKindIndexOutOfRange, "pushValuesField", s.name, fmt.Errorf("n=%d exceeds capacity %d", n, s.length))
	}
	if n == 0 {
		return s.state.Count(), nil
	}
	start := (s.state.Count() % s.length) * s.elemSize
	copy(s.combined[start:start+n*s.elemSize], src)
	return s.advance(n), nil
}

func (s *subRing) sliceBytes(start, stop uint64) ([]byte, error) {
	if start > stop {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "sliceField", s.name, fmt.Errorf("start %d > stop %d", start, stop))
	}
	width := stop - start
	if width > s.length {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "sliceField", s.name, fmt.Errorf("window width %d exceeds capacity %d", width, s.length))
	}
	if start < s.logicalTail() {
		return nil, platform.NewError(platform.ErrKindWindowCrossesTail, "sliceField", s.name, fmt.Errorf("start %d is behind tail %d", start, s.logicalTail()))
	}
	base := (start % s.length) * s.elemSize
	return s.combined[base : base+width*s.elemSize], nil
}

func (s *subRing) sliceFromTailBytes(k uint64) ([]byte, error) {
	if k > s.length {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "sliceFieldFromTail", s.name, fmt.Errorf("k=%d exceeds capacity %d", k, s.length))
	}
	base := (s.logicalTail() % s.length) * s.elemSize
	return s.combined[base : base+k*s.elemSize], nil
}

func (s *subRing) sliceToHeadBytes(k uint64) ([]byte, error) {
	count := s.state.Count()
	if k > count {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "sliceFieldToHead", s.name, fmt.Errorf("k=%d exceeds count %d", k, count))
	}
	base := ((count - k) % s.length) * s.elemSize
	return s.combined[base : base+k*s.elemSize], nil
}

func (s *subRing) valueAtBytes(i uint64) ([]byte, error) {
	count := s.state.Count()
	if i >= count {
		return nil, platform.NewError(platform.ErrKindIndexOutOfRange, "valueAtInField", s.name, fmt.Errorf("index %d >= count %d", i, count))
	}
	idx := (i % s.length) * s.elemSize
	return s.buffer[idx : idx+s.elemSize], nil
}

// Push delegates rec's fields to their sub-rings in lockstep and returns the
// new count for each field, keyed by field name (the Go stand-in for the
// source's synthesized Pushed product type).
func (m *MultiRing[T, H]) Push(rec T) map[string]uint64 {
	base := unsafe.Pointer(&rec)
	counts := make(map[string]uint64, len(m.fields))
	for i, f := range m.fields {
		src := unsafe.Slice((*byte)(unsafe.Add(base, f.offset)), f.size)
		counts[f.name] = m.subs[i].pushBytes(src)
	}
	return counts
}

// PushValues pushes recs one at a time, in record order.
func (m *MultiRing[T, H]) PushValues(recs []T) {
	for _, rec := range recs {
		m.Push(rec)
	}
}

// PushSlice is the columnar bulk path: cols maps field name to a slice of
// that field's concrete type (e.g. []float64 for an F64 field). Every
// column must have equal length.
func (m *MultiRing[T, H]) PushSlice(cols map[string]any) error {
	for i, f := range m.fields {
		col, ok := cols[f.name]
		if !ok {
			return fmt.Errorf("multiring: PushSlice missing column %q", f.name)
		}
		rv := reflect.ValueOf(col)
		if rv.Kind() != reflect.Slice || rv.Type().Elem() != f.typ {
			return fmt.Errorf("multiring: PushSlice column %q has type %v, want []%v", f.name, rv.Type(), f.typ)
		}
		n := uint64(rv.Len())
		var src []byte
		if n > 0 {
			src = unsafe.Slice((*byte)(unsafe.Pointer(rv.Index(0).Addr().Pointer())), n*f.size)
		}
		if _, err := m.subs[i].pushValuesBytes(src, n); err != nil {
			return err
		}
	}
	return nil
}

func bytesToSlice(data []byte, typ reflect.Type, elemSize uint64) any {
	n := int(uint64(len(data)) / elemSize)
	out := reflect.MakeSlice(reflect.SliceOf(typ), n, n)
	if n > 0 {
		dst := unsafe.Slice((*byte)(unsafe.Pointer(out.Index(0).Addr().Pointer())), len(data))
		copy(dst, data)
	}
	return out.Interface()
}

// Slice returns a map from field name to that field's sub-range, mirroring
// the source's synthesized Slice product type.
func (m *MultiRing[T, H]) Slice(start, stop uint64) (map[string]any, error) {
	out := make(map[string]any, len(m.fields))
	for i, f := range m.fields {
		data, err := m.subs[i].sliceBytes(start, stop)
		if err != nil {
			return nil, err
		}
		out[f.name] = bytesToSlice(data, f.typ, f.size)
	}
	return out, nil
}

// SliceFromTail returns, per field, the k oldest live elements.
func (m *MultiRing[T, H]) SliceFromTail(k uint64) (map[string]any, error) {
	out := make(map[string]any, len(m.fields))
	for i, f := range m.fields {
		data, err := m.subs[i].sliceFromTailBytes(k)
		if err != nil {
			return nil, err
		}
		out[f.name] = bytesToSlice(data, f.typ, f.size)
	}
	return out, nil
}

// SliceToHead returns, per field, the k newest elements.
func (m *MultiRing[T, H]) SliceToHead(k uint64) (map[string]any, error) {
	out := make(map[string]any, len(m.fields))
	for i, f := range m.fields {
		data, err := m.subs[i].sliceToHeadBytes(k)
		if err != nil {
			return nil, err
		}
		out[f.name] = bytesToSlice(data, f.typ, f.size)
	}
	return out, nil
}

// PushField pushes a single value to the named field's sub-ring. v's
// dynamic type must match the field's declared type.
func (m *MultiRing[T, H]) PushField(field string, v any) (uint64, error) {
	sub, f, err := m.subByField(field)
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != f.typ {
		return 0, fmt.Errorf("multiring: PushField(%q) got %v, want %v", field, rv.Type(), f.typ)
	}
	ptr := reflect.New(f.typ)
	ptr.Elem().Set(rv)
	src := unsafe.Slice((*byte)(unsafe.Pointer(ptr.Pointer())), f.size)
	return sub.pushBytes(src), nil
}

// PushValuesField bulk-pushes vs (a []F matching the field's type) to the
// named field's sub-ring.
func (m *MultiRing[T, H]) PushValuesField(field string, vs any) (uint64, error) {
	sub, f, err := m.subByField(field)
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(vs)
	if rv.Kind() != reflect.Slice || rv.Type().Elem() != f.typ {
		return 0, fmt.Errorf("multiring: PushValuesField(%q) got %v, want []%v", field, rv.Type(), f.typ)
	}
	n := uint64(rv.Len())
	var src []byte
	if n > 0 {
		src = unsafe.Slice((*byte)(unsafe.Pointer(rv.Index(0).Addr().Pointer())), n*f.size)
	}
	return sub.pushValuesBytes(src, n)
}

// SliceField returns the named field's [start,stop) window as an any
// wrapping a []F.
func (m *MultiRing[T, H]) SliceField(field string, start, stop uint64) (any, error) {
	sub, f, err := m.subByField(field)
	if err != nil {
		return nil, err
	}
	data, err := sub.sliceBytes(start, stop)
	if err != nil {
		return nil, err
	}
	return bytesToSlice(data, f.typ, f.size), nil
}

// SliceFieldFromTail returns the named field's k oldest live elements.
func (m *MultiRing[T, H]) SliceFieldFromTail(field string, k uint64) (any, error) {
	sub, f, err := m.subByField(field)
	if err != nil {
		return nil, err
	}
	data, err := sub.sliceFromTailBytes(k)
	if err != nil {
		return nil, err
	}
	return bytesToSlice(data, f.typ, f.size), nil
}

// SliceFieldToHead returns the named field's k newest elements.
func (m *MultiRing[T, H]) SliceFieldToHead(field string, k uint64) (any, error) {
	sub, f, err := m.subByField(field)
	if err != nil {
		return nil, err
	}
	data, err := sub.sliceToHeadBytes(k)
	if err != nil {
		return nil, err
	}
	return bytesToSlice(data, f.typ, f.size), nil
}

// ValueAtInField returns the named field's logical index i as an any
// wrapping an F.
func (m *MultiRing[T, H]) ValueAtInField(field string, i uint64) (any, error) {
	sub, f, err := m.subByField(field)
	if err != nil {
		return nil, err
	}
	data, err := sub.valueAtBytes(i)
	if err != nil {
		return nil, err
	}
	v := reflect.New(f.typ)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(v.Pointer())), f.size)
	copy(dst, data)
	return v.Elem().Interface(), nil
}

// PushField2 is a type-safe wrapper around (*MultiRing[T,H]).PushField for
// callers that know F at compile time; F is supplied explicitly, T and H
// are inferred from m.
func PushField2[F any, T any, H any](m *MultiRing[T, H], field string, v F) (uint64, error) {
	return m.PushField(field, v)
}

// SliceFieldFromTailTyped is the type-safe counterpart to
// (*MultiRing[T,H]).SliceFieldFromTail.
func SliceFieldFromTailTyped[F any, T any, H any](m *MultiRing[T, H], field string, k uint64) ([]F, error) {
	v, err := m.SliceFieldFromTail(field, k)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]F)
	if !ok {
		return nil, fmt.Errorf("multiring: field %q is not of type []%T", field, *new(F))
	}
	return out, nil
}
