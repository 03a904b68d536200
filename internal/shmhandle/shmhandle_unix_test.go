//go:build linux || darwin || freebsd

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

package shmhandle

import (
	"fmt"
	"testing"
	"time"
)

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("/magicring-shmhandle-test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestCreateOpenExistsClose(t *testing.T) {
	name := uniqueName(t)

	if Exists(name) {
		t.Fatalf("Exists(%q) = true before Create", name)
	}

	h, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	if len(h.Data) != 4096 {
		t.Fatalf("len(Data) = %d, want 4096", len(h.Data))
	}
	if !Exists(name) {
		t.Fatalf("Exists(%q) = false after Create", name)
	}

	h.Data[0] = 0x55
	opened, err := Open(name, false)
	if err != nil {
		t.Fatalf("Open = %v", err)
	}
	if opened.Data[0] != 0x55 {
		t.Fatalf("opened.Data[0] = %#x, want 0x55", opened.Data[0])
	}
	if err := Close(opened, name); err != nil {
		t.Fatalf("Close(opened) = %v", err)
	}

	if err := Close(h, name); err != nil {
		t.Fatalf("Close(h) = %v", err)
	}
	if Exists(name) {
		t.Fatalf("Exists(%q) = true after Close", name)
	}
}

func TestCreateTwiceFails(t *testing.T) {
	name := uniqueName(t)
	h, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create = %v", err)
	}
	defer Close(h, name)

	if _, err := Create(name, 4096); err == nil {
		t.Fatalf("second Create(%q) succeeded, want error", name)
	}
}

func TestOpenMissingFails(t *testing.T) {
	name := uniqueName(t)
	if _, err := Open(name, false); err == nil {
		t.Fatalf("Open(%q) on a never-created name succeeded, want error", name)
	}
}
