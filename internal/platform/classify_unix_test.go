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

package platform

import (
	"fmt"
	"os"
	"syscall"
	"testing"
)

func TestKindFromErrno_DirectErrno(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  ErrorKind
	}{
		{syscall.EEXIST, ErrKindAlreadyExists},
		{syscall.ENOENT, ErrKindDoesNotExist},
		{syscall.EACCES, ErrKindAccessDenied},
		{syscall.EPERM, ErrKindAccessDenied},
		{syscall.ENAMETOOLONG, ErrKindNameTooLong},
		{syscall.EMFILE, ErrKindFdQuotaExceeded},
		{syscall.ENFILE, ErrKindFdQuotaExceeded},
		{syscall.EINVAL, ErrKindPlatformUnexpected},
	}
	for _, c := range cases {
		if got := kindFromErrno(c.errno); got != c.want {
			t.Errorf("kindFromErrno(%v) = %v, want %v", c.errno, got, c.want)
		}
	}
}

func TestKindFromErrno_WrappedInPathError(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "/x", Err: syscall.ENOENT}
	if got := kindFromErrno(err); got != ErrKindDoesNotExist {
		t.Errorf("kindFromErrno(wrapped ENOENT) = %v, want ErrKindDoesNotExist", got)
	}
}

func TestClassifyCreate_WrapsKindAndName(t *testing.T) {
	err := classifyCreate("create", "/foo", syscall.EEXIST)
	if KindOf(err) != ErrKindAlreadyExists {
		t.Fatalf("KindOf = %v, want ErrKindAlreadyExists", KindOf(err))
	}
	if msg := err.Error(); msg == "" {
		t.Fatalf("Error() returned empty string")
	}
}

func TestClassifyOpen_UnmappedErrnoFallsBackToPlatformUnexpected(t *testing.T) {
	err := classifyOpen("open", "/foo", fmt.Errorf("some unclassified failure"))
	if KindOf(err) != ErrKindPlatformUnexpected {
		t.Fatalf("KindOf = %v, want ErrKindPlatformUnexpected", KindOf(err))
	}
}
