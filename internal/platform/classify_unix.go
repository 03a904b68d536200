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
	"errors"
	"os"
	"syscall"
)

// classifyCreate maps the error returned by shmhandle.Create into the §7
// ErrorKind taxonomy for the create path (name collision is the distinguished
// case: the spec requires Create to fail, not silently reuse, an existing
// segment).
func classifyCreate(op, name string, err error) error {
	return NewError(kindFromErrno(err), op, name, err)
}

// classifyOpen maps the error returned by shmhandle.Open for the open path.
func classifyOpen(op, name string, err error) error {
	return NewError(kindFromErrno(err), op, name, err)
}

func kindFromErrno(err error) ErrorKind {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		var pe *os.PathError
		if errors.As(err, &pe) {
			if e, ok := pe.Err.(syscall.Errno); ok {
				errno = e
			}
		}
	}
	switch errno {
	case syscall.EEXIST:
		return ErrKindAlreadyExists
	case syscall.ENOENT:
		return ErrKindDoesNotExist
	case syscall.EACCES, syscall.EPERM:
		return ErrKindAccessDenied
	case syscall.ENAMETOOLONG:
		return ErrKindNameTooLong
	case syscall.EMFILE, syscall.ENFILE:
		return ErrKindFdQuotaExceeded
	default:
		return ErrKindPlatformUnexpected
	}
}
