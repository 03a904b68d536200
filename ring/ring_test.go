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

package ring

import (
	"fmt"
	"testing"
	"time"
)

type emptyHeader struct{}

type sampleHeader struct {
	SampleRate float64
}

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/magicring-test-%s-%d", t.Name(), time.Now().UnixNano())
}

func mustCreate[T any, H any](t *testing.T, name string, length uint64) *Ring[T, H] {
	t.Helper()
	r, err := Create[T, H](name, length, nil)
	if err != nil {
		t.Fatalf("Create(%q, %d) = %v", name, length, err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func assertEqualSlice[T comparable](t *testing.T, got, want []T) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(got)=%d, len(want)=%d; got=%v want=%v", len(got), len(want), got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v (got=%v want=%v)", i, got[i], want[i], got, want)
		}
	}
}

// Scenario A - single wrap.
func TestRing_SingleWrap(t *testing.T) {
	r := mustCreate[uint32, emptyHeader](t, uniqueName(t), 1024)
	if got := r.Len(); got != 1024 {
		t.Fatalf("Len() = %d, want 1024", got)
	}

	for i := uint32(0); i < 1024; i++ {
		r.Push(i)
	}
	got, err := r.Slice(1020, 1028)
	if err != nil {
		t.Fatalf("Slice(1020,1028) = %v", err)
	}
	assertEqualSlice(t, got, []uint32{1020, 1021, 1022, 1023, 0, 1, 2, 3})

	for i := uint32(1024); i < 1028; i++ {
		r.Push(i)
	}
	got, err = r.Slice(1020, 1028)
	if err != nil {
		t.Fatalf("Slice(1020,1028) = %v", err)
	}
	assertEqualSlice(t, got, []uint32{1020, 1021, 1022, 1023, 1024, 1025, 1026, 1027})

	got, err = r.Slice(1022, 1030)
	if err != nil {
		t.Fatalf("Slice(1022,1030) = %v", err)
	}
	assertEqualSlice(t, got, []uint32{1022, 1023, 1024, 1025, 1026, 1027, 4, 5})
}

// Scenario B - overwrite semantics.
func TestRing_OverwriteSemantics(t *testing.T) {
	// 512 eight-byte elements fill exactly one 4096-byte page, so L = 512.
	r := mustCreate[uint64, emptyHeader](t, uniqueName(t), 512)

	for i := uint64(0); i < 512; i++ {
		r.Push(i)
	}
	count, head, tail := r.CurrentState()
	if count != 512 || head != 512 || tail != 0 {
		t.Fatalf("after 512 pushes: count=%d head=%d tail=%d, want 512/512/0", count, head, tail)
	}

	r.Push(1000)
	count, head, tail = r.CurrentState()
	if count != 513 || head != 513 || tail != 1 {
		t.Fatalf("after push(1000): count=%d head=%d tail=%d, want 513/513/1", count, head, tail)
	}
	v, err := r.ValueAt(512)
	if err != nil || v != 1000 {
		t.Fatalf("ValueAt(512) = %v, %v; want 1000, nil", v, err)
	}

	for _, v := range []uint64{5000, 5001, 5002, 5003, 5004} {
		r.Push(v)
	}
	count, head, tail = r.CurrentState()
	if count != 518 || head != 518 || tail != 6 {
		t.Fatalf("after batch: count=%d head=%d tail=%d, want 518/518/6", count, head, tail)
	}

	fromTail, err := r.SliceFromTail(3)
	if err != nil {
		t.Fatalf("SliceFromTail(3) = %v", err)
	}
	assertEqualSlice(t, fromTail, []uint64{6, 7, 8})

	toHead, err := r.SliceToHead(3)
	if err != nil {
		t.Fatalf("SliceToHead(3) = %v", err)
	}
	assertEqualSlice(t, toHead, []uint64{5002, 5003, 5004})
}

// Scenario D - large header, Windows-representative sizing.
func TestRing_LargeHeader(t *testing.T) {
	type bigHeader struct {
		Payload [980]byte // pushes sizeof({count,head,tail}⊕H) to 1004 bytes.
	}

	r := mustCreate[uint64, bigHeader](t, uniqueName(t), 10)
	if r.Len() < 10 {
		t.Fatalf("Len() = %d, want >= 10", r.Len())
	}

	for i := uint64(0); i < 10; i++ {
		r.Push(i)
	}
	for i := uint64(0); i < 10; i++ {
		got, err := r.ValueAt(i)
		if err != nil || got != i {
			t.Fatalf("ValueAt(%d) = %v, %v; want %d, nil", i, got, err, i)
		}
	}
}

// Scenario F - existence predicate.
func TestRing_ExistsPredicate(t *testing.T) {
	name := uniqueName(t)
	if Exists(name) {
		t.Fatalf("Exists(%q) = true before create", name)
	}
	r, err := Create[uint32, emptyHeader](name, 64, nil)
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	if !Exists(name) {
		t.Fatalf("Exists(%q) = false after create", name)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if Exists(name) {
		t.Fatalf("Exists(%q) = true after close", name)
	}
}

func TestRing_SliceRejectsBehindTail(t *testing.T) {
	r := mustCreate[uint32, emptyHeader](t, uniqueName(t), 4)
	// L is page-rounded well above 4; overrun it by 16 so the tail is at 16.
	for i := uint32(0); i < uint32(r.Len())+16; i++ {
		r.Push(i)
	}
	if _, err := r.Slice(0, 2); err == nil {
		t.Fatalf("Slice(0,2) succeeded, want WindowCrossesTail error")
	}
}

func TestRing_InsertRejectsBehindTail(t *testing.T) {
	r := mustCreate[uint32, emptyHeader](t, uniqueName(t), 4)
	// L is page-rounded well above 4; overrun it by 16 so the tail is at 16.
	for i := uint32(0); i < uint32(r.Len())+16; i++ {
		r.Push(i)
	}
	if err := r.Insert(99, 0); err == nil {
		t.Fatalf("Insert(99, 0) succeeded, want WindowCrossesTail error")
	}
	if err := r.Insert(99, 19); err != nil {
		t.Fatalf("Insert(99, 19) = %v, want nil", err)
	}
	got, err := r.ValueAt(19)
	if err != nil || got != 99 {
		t.Fatalf("ValueAt(19) = %v, %v; want 99, nil", got, err)
	}
}

func TestRing_PushValuesRoundTrip(t *testing.T) {
	r := mustCreate[uint32, emptyHeader](t, uniqueName(t), 16)
	vs := []uint32{10, 11, 12, 13}
	if _, err := r.PushValues(vs); err != nil {
		t.Fatalf("PushValues = %v", err)
	}
	got, err := r.SliceFromTail(uint64(len(vs)))
	if err != nil {
		t.Fatalf("SliceFromTail = %v", err)
	}
	assertEqualSlice(t, got, vs)
}

func TestRing_HeaderRoundTrip(t *testing.T) {
	r := mustCreate[uint32, sampleHeader](t, uniqueName(t), 8)
	r.Header().SampleRate = 44100.0
	if got := r.Header().SampleRate; got != 44100.0 {
		t.Fatalf("Header().SampleRate = %v, want 44100.0", got)
	}
}
