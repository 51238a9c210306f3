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
	"os"
	"path"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/sirupsen/logrus"

	"github.com/nestybox/hesiodfs/domain"
)

// Ensure Dir implements the node interfaces hesiodfs relies on.
var (
	_ fs.Node                = (*Dir)(nil)
	_ fs.NodeGetattrer       = (*Dir)(nil)
	_ fs.NodeRequestLookuper = (*Dir)(nil)
	_ fs.HandleReadDirAller  = (*Dir)(nil)
	_ fs.NodeSymlinker       = (*Dir)(nil)
	_ fs.NodeRemover         = (*Dir)(nil)
)

//
// Dir is the root (and only) directory of the mount.
//
type Dir struct {
	srv *fuseServer
}

//
// Attr FS operation.
//
func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {

	return d.attr(ctx, headerFromContext(ctx), a)
}

//
// Getattr FS operation.
//
func (d *Dir) Getattr(
	ctx context.Context,
	req *fuse.GetattrRequest,
	resp *fuse.GetattrResponse) error {

	return d.attr(ctx, &req.Header, &resp.Attr)
}

func (d *Dir) attr(ctx context.Context, h *fuse.Header, a *fuse.Attr) error {

	info, err := d.srv.hds.Getattr(ctx, newRequest(h, "/"))
	if err != nil {
		return toFuseError(err)
	}

	fillAttr(a, info, d.srv.opts.AttrTimeout)

	return nil
}

//
// Lookup FS operation.
//
func (d *Dir) Lookup(
	ctx context.Context,
	req *fuse.LookupRequest,
	resp *fuse.LookupResponse) (fs.Node, error) {

	logrus.Debugf("Requested Lookup() for %v (uid %d)", req.Name, req.Uid)

	p := path.Join("/", req.Name)

	info, err := d.srv.hds.Getattr(ctx, newRequest(&req.Header, p))
	if err != nil {
		return nil, toFuseError(err)
	}

	// Adjust response to carry the proper dentry-cache-timeout value.
	resp.EntryValid = d.srv.opts.EntryTimeout

	if info.IsSymlink() {
		return &Link{srv: d.srv, path: p}, nil
	}

	return &File{srv: d.srv, path: p}, nil
}

//
// ReadDirAll FS operation.
//
func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {

	h := headerFromContext(ctx)

	logrus.Debugf("Requested ReadDirAll() (uid %d)", h.Uid)

	entries, err := d.srv.hds.ReadDirAll(ctx, newRequest(h, "/"))
	if err != nil {
		return nil, toFuseError(err)
	}

	children := make([]fuse.Dirent, 0, len(entries))
	for _, e := range entries {
		elem := fuse.Dirent{Name: e.Name}

		switch {
		case e.Mode.IsDir():
			elem.Type = fuse.DT_Dir
		case e.Mode&os.ModeSymlink != 0:
			elem.Type = fuse.DT_Link
		default:
			elem.Type = fuse.DT_File
		}

		children = append(children, elem)
	}

	return children, nil
}

//
// Symlink FS operation.
//
func (d *Dir) Symlink(ctx context.Context, req *fuse.SymlinkRequest) (fs.Node, error) {

	logrus.Debugf("Requested Symlink() %v -> %v (uid %d)", req.NewName, req.Target, req.Uid)

	p := path.Join("/", req.NewName)

	if err := d.srv.hds.Symlink(ctx, newRequest(&req.Header, p), req.Target); err != nil {
		return nil, toFuseError(err)
	}

	return &Link{srv: d.srv, path: p}, nil
}

//
// Remove FS operation.
//
func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {

	logrus.Debugf("Requested Remove() for %v (uid %d)", req.Name, req.Uid)

	if req.Dir {
		return toFuseError(domain.ErrPermission)
	}

	p := path.Join("/", req.Name)

	return toFuseError(d.srv.hds.Remove(ctx, newRequest(&req.Header, p)))
}

// fillAttr copies hesiodfs' view of a node into the attributes sent to the
// kernel.
func fillAttr(a *fuse.Attr, info domain.FileInfo, valid time.Duration) {

	a.Valid = valid
	a.Mode = info.Mode
	a.Size = uint64(info.Size)
	a.Nlink = info.Nlink
	a.Uid = info.Uid
	a.Gid = info.Gid
	a.Atime = info.ModTime
	a.Mtime = info.ModTime
	a.Ctime = info.ModTime
}
