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
	_ fs.Node           = (*Link)(nil)
	_ fs.NodeGetattrer  = (*Link)(nil)
	_ fs.NodeReadlinker = (*Link)(nil)
)

// Link represents one locker. Its target is resolved again on every request,
// for the requesting user.
type Link struct {
	srv  *fuseServer
	path string
}

func (l *Link) Attr(ctx context.Context, a *fuse.Attr) error {

	return l.attr(ctx, headerFromContext(ctx), a)
}

func (l *Link) Getattr(
	ctx context.Context,
	req *fuse.GetattrRequest,
	resp *fuse.GetattrResponse) error {

	return l.attr(ctx, &req.Header, &resp.Attr)
}

func (l *Link) attr(ctx context.Context, h *fuse.Header, a *fuse.Attr) error {

	info, err := l.srv.hds.Getattr(ctx, newRequest(h, l.path))
	if err != nil {
		return toFuseError(err)
	}

	fillAttr(a, info, l.srv.opts.AttrTimeout)

	return nil
}

func (l *Link) Readlink(ctx context.Context, req *fuse.ReadlinkRequest) (string, error) {

	logrus.Debugf("Requested Readlink() for %v (uid %d)", l.path, req.Uid)

	target, err := l.srv.hds.Readlink(ctx, newRequest(&req.Header, l.path))
	if err != nil {
		return "", toFuseError(err)
	}

	return target, nil
}
