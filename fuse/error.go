//
// Copyright 2019-2023 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package fuse

import (
	"context"
	"errors"
	"syscall"

	"bazil.org/fuse"
	"golang.org/x/sys/unix"

	"github.com/nestybox/hesiodfs/domain"
)

//
// IOerror's purpose is to encapsulate errors to be delivered to FUSE-Bazil
// library, which imposes certain demands on the error types that can be
// handled (i.e. it must satisfy 'errorNumber' interface).
//
type IOerror struct {
	RcvError error
	Code     syscall.Errno
}

func (e IOerror) Error() string {
	return e.RcvError.Error()
}

func (e IOerror) Unwrap() error {
	return e.RcvError
}

// Method requested by fuse.ErrorNumber interface. By implementing this
// interface, we are allowed to return IOerrors back to our FUSE-lib
// modules without making any modification to Bazil-FUSE code.
func (e IOerror) Errno() fuse.Errno {
	return fuse.Errno(e.Code)
}

// toFuseError translates hesiodfs' error taxonomy into the errno handed back to
// the kernel.
func toFuseError(err error) error {

	if err == nil {
		return nil
	}

	var code syscall.Errno

	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = unix.ENOENT
	case errors.Is(err, domain.ErrPermission):
		code = unix.EPERM
	case errors.Is(err, domain.ErrAccessMode):
		code = unix.EACCES
	case errors.Is(err, domain.ErrUnavailable):
		code = unix.ENOENT
	case errors.Is(err, context.Canceled):
		code = unix.EINTR
	default:
		code = unix.EIO
	}

	return IOerror{RcvError: err, Code: code}
}
