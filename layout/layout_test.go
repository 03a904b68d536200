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

package layout

import "testing"

func TestCalculate_ActualElementCountMeetsOrExceedsRequest(t *testing.T) {
	d := Calculate(4, 1000, 24, 4096, 4096)
	if d.ActualElementCount < 1000 {
		t.Fatalf("ActualElementCount = %d, want >= 1000", d.ActualElementCount)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestCalculate_MirrorImmediatelyFollowsBuffer(t *testing.T) {
	d := Calculate(8, 500, 24, 4096, 4096)
	if d.MirrorOffset != d.BufferOffset+d.AlignedBufferSize {
		t.Fatalf("MirrorOffset = %d, want %d", d.MirrorOffset, d.BufferOffset+d.AlignedBufferSize)
	}
	if d.TotalSize != d.AlignedHeaderSize+2*d.AlignedBufferSize {
		t.Fatalf("TotalSize = %d, want %d", d.TotalSize, d.AlignedHeaderSize+2*d.AlignedBufferSize)
	}
}

func TestCalculate_HeaderNeverOverrunsBufferOffset(t *testing.T) {
	d := Calculate(1, 10, 1004, 4096, 4096)
	if d.HeaderOffset+d.RawHeaderSize > d.BufferOffset {
		t.Fatalf("header [%d,%d) overruns buffer offset %d", d.HeaderOffset, d.HeaderOffset+d.RawHeaderSize, d.BufferOffset)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestCalculate_AlignedSizesAreGranularityMultiples(t *testing.T) {
	d := Calculate(4, 1000, 24, 4096, 65536)
	if d.AlignedHeaderSize%65536 != 0 {
		t.Fatalf("AlignedHeaderSize = %d, not a multiple of 65536", d.AlignedHeaderSize)
	}
	if d.AlignedBufferSize%65536 != 0 {
		t.Fatalf("AlignedBufferSize = %d, not a multiple of 65536", d.AlignedBufferSize)
	}
}

func TestCalculate_ExactFitNeedsNoPadding(t *testing.T) {
	// 4096 elements of 4 bytes is already exactly four pages: no rounding.
	d := Calculate(4, 4096, 24, 4096, 4096)
	if d.ActualElementCount != 4096 {
		t.Fatalf("ActualElementCount = %d, want 4096", d.ActualElementCount)
	}
	if d.AlignedBufferSize != 4096*4 {
		t.Fatalf("AlignedBufferSize = %d, want %d", d.AlignedBufferSize, 4096*4)
	}
}

func TestValidate_CatchesInconsistentDescriptor(t *testing.T) {
	d := Calculate(4, 100, 24, 4096, 4096)
	d.ActualElementCount++ // corrupt it
	if err := d.Validate(); err == nil {
		t.Fatalf("Validate() succeeded on a corrupted descriptor, want error")
	}
}
