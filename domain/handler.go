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

package domain

import (
	"context"
	"os"
)

// HandlerRequest carries the identity of the caller along with the path being
// operated on. Paths are absolute within the mount, e.g. "/" or "/sipb".
type HandlerRequest struct {
	Path  string
	Pid   uint32
	Uid   uint32
	Gid   uint32
	Flags int // open(2) flags, only meaningful for Open
}

// Subject returns the partition of mount state this request operates on.
func (r *HandlerRequest) Subject() Subject {
	return Subject(r.Uid)
}

// DirEntry is one element of a directory listing.
type DirEntry struct {
	Name string
	Mode os.FileMode
}

//
// HandlerServiceIface is the callback surface offered to the transport layer.
// Every method is safe for concurrent use.
//
type HandlerServiceIface interface {
	Getattr(ctx context.Context, req *HandlerRequest) (FileInfo, error)
	ReadDirAll(ctx context.Context, req *HandlerRequest) ([]DirEntry, error)
	Readlink(ctx context.Context, req *HandlerRequest) (string, error)
	Open(ctx context.Context, req *HandlerRequest) error
	Read(ctx context.Context, req *HandlerRequest, off int64, size int) ([]byte, error)
	Symlink(ctx context.Context, req *HandlerRequest, target string) error
	Remove(ctx context.Context, req *HandlerRequest) error
}

//
// ResolverIface turns locker names into link targets for a given subject, and
// keeps the attach table and the negative cache consistent with each other.
//
type ResolverIface interface {
	Resolve(ctx context.Context, s Subject, name string) (string, bool, error)
	Define(s Subject, name string, target string)
	Undefine(s Subject, name string) error
	Names(s Subject) []string
	Render(s Subject) string
}

// SyntheticFileSetIface exposes the read-only files living next to the links.
type SyntheticFileSetIface interface {
	Contains(name string) bool
	Names() []string
	Content(name string, s Subject) ([]byte, bool)
}
