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

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/sirupsen/logrus"
)

var (
	_ fs.Node          = (*File)(nil)
	_ fs.NodeGetattrer = (*File)(nil)
	_ fs.NodeOpener    = (*File)(nil)
	_ fs.HandleReader  = (*File)(nil)
)

//
// File represents a read-only synthetic file. It doubles as its own handle:
// reads carry the caller's identity, which is all the state a handle needs.
//
type File struct {
	srv  *fuseServer
	path string
}

//
// Attr FS operation.
//
func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {

	return f.attr(ctx, headerFromContext(ctx), a)
}

//
// Getattr FS operation.
//
func (f *File) Getattr(
	ctx context.Context,
	req *fuse.GetattrRequest,
	resp *fuse.GetattrResponse) error {

	return f.attr(ctx, &req.Header, &resp.Attr)
}

func (f *File) attr(ctx context.Context, h *fuse.Header, a *fuse.Attr) error {

	info, err := f.srv.hds.Getattr(ctx, newRequest(h, f.path))
	if err != nil {
		return toFuseError(err)
	}

	fillAttr(a, info, f.srv.opts.AttrTimeout)

	return nil
}

//
// Open FS operation.
//
func (f *File) Open(
	ctx context.Context,
	req *fuse.OpenRequest,
	resp *fuse.OpenResponse) (fs.Handle, error) {

	logrus.Debugf("Requested Open() for %v (uid %d, flags %v)", f.path, req.Uid, req.Flags)

	request := newRequest(&req.Header, f.path)
	request.Flags = int(req.Flags)

	if err := f.srv.hds.Open(ctx, request); err != nil {
		return nil, toFuseError(err)
	}

	// Content may change between reads (attachtab), so the kernel page-cache
	// must stay out of the way.
	resp.Flags |= fuse.OpenDirectIO

	return f, nil
}

//
// Read FS operation.
//
func (f *File) Read(
	ctx context.Context,
	req *fuse.ReadRequest,
	resp *fuse.ReadResponse) error {

	logrus.Debugf("Requested Read() for %v (uid %d, off %d, size %d)",
		f.path, req.Uid, req.Offset, req.Size)

	data, err := f.srv.hds.Read(ctx, newRequest(&req.Header, f.path), req.Offset, req.Size)
	if err != nil {
		return toFuseError(err)
	}

	resp.Data = data

	return nil
}
