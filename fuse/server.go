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
	"fmt"
	"sync"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nestybox/hesiodfs/domain"
	"github.com/nestybox/hesiodfs/sysio"
)

// Options tune the FUSE mount.
type Options struct {
	FSName        string        // name shown in /proc/mounts -- "hesiodfs" by default
	AllowOther    bool          // let every user access the mount
	AllowNonEmpty bool          // allow mounting over a non-empty directory
	EntryTimeout  time.Duration // kernel dentry-cache timeout
	AttrTimeout   time.Duration // kernel attribute-cache timeout
}

//
// Kernel caches default to zero: the dentry cache is shared by all users while
// hesiodfs answers differently for each of them, so every lookup must reach us.
//
func DefaultOptions() Options {
	return Options{
		FSName:     "hesiodfs",
		AllowOther: true,
	}
}

func (o Options) mountOptions() []fuse.MountOption {

	opts := []fuse.MountOption{
		fuse.FSName(o.FSName),
		fuse.Subtype("hesiodfs"),
	}
	if o.AllowOther {
		opts = append(opts, fuse.AllowOther())
	}
	if o.AllowNonEmpty {
		opts = append(opts, fuse.AllowNonEmptyMount())
	}

	return opts
}

// fuseServer is in charge of running/hosting hesiodfs' FUSE server features.
type fuseServer struct {
	sync.RWMutex                            // conn / server protection
	mountPoint   string                     // mountpoint -- "/mit" by default
	opts         Options                    // mount options
	hds          domain.HandlerServiceIface // file-system operations
	conn         *fuse.Conn                 // fuse connection
	server       *fs.Server                 // bazil-fuse server instance
	root         *Dir                       // root node of fuse fs
	initDone     chan struct{}              // closed once the server is about to serve
}

func NewFuseServer(
	mountpoint string,
	hds domain.HandlerServiceIface,
	opts Options) domain.FuseServerIface {

	srv := &fuseServer{
		mountPoint: mountpoint,
		opts:       opts,
		hds:        hds,
	}

	return srv
}

func (s *fuseServer) Create() error {

	// Verify the existence of the requested mountpoint in the host FS.
	info, err := sysio.AppFs.Stat(s.mountPoint)
	if err != nil {
		logrus.Errorf("File-System mountpoint not accessible: %v", s.mountPoint)
		return err
	}
	if !info.IsDir() {
		logrus.Errorf("File-System mountpoint is not a directory: %v", s.mountPoint)
		return fmt.Errorf("mountpoint %v is not a directory", s.mountPoint)
	}
	if !s.opts.AllowNonEmpty {
		empty, err := afero.IsEmpty(sysio.AppFs, s.mountPoint)
		if err == nil && !empty {
			logrus.Warnf("File-System mountpoint %v is not empty", s.mountPoint)
		}
	}

	// Build hesiodfs top-most directory (root).
	s.root = &Dir{srv: s}

	s.initDone = make(chan struct{})

	return nil
}

func (s *fuseServer) Run() error {

	c, err := fuse.Mount(s.mountPoint, s.opts.mountOptions()...)
	if err != nil {
		logrus.Errorf("FUSE file-system could not be mounted on %v: %v", s.mountPoint, err)
		return err
	}

	// Deferred routine to enforce a clean exit should an unrecoverable error is
	// ever returned from fuse-lib.
	defer func() {
		s.Unmount()
		c.Close()
	}()

	cfg := &fs.Config{
		WithContext: withHeader,
	}
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		cfg.Debug = func(msg interface{}) {
			logrus.Debugf("FUSE: %v", msg)
		}
	}

	// Creating a FUSE server to drive kernel interactions.
	srv := fs.New(c, cfg)
	if srv == nil {
		logrus.Error("FUSE file-system could not be created")
		return errors.New("FUSE file-system could not be created")
	}

	s.Lock()
	s.conn = c
	s.server = srv
	s.Unlock()

	// At this point we are done with fuse-server initialization, so let's
	// caller know about it.
	close(s.initDone)

	logrus.Infof("Serving hesiodfs on %v", s.mountPoint)

	// Launch fuse-server's main-loop to handle incoming requests.
	if err := srv.Serve(s); err != nil {
		logrus.Errorf("FUSE server error: %v", err)
		return err
	}

	return nil
}

func (s *fuseServer) Destroy() error {

	// Unmount hesiodfs from mountpoint.
	err := fuse.Unmount(s.mountPoint)
	if err != nil {
		logrus.Errorf("FUSE file-system could not be unmounted: %v", err)
		return err
	}

	// Unset pointers for GC purposes.
	s.Lock()
	s.server = nil
	s.conn = nil
	s.root = nil
	s.Unlock()

	return nil
}

//
// Root method. This is a Bazil-FUSE-lib requirement. Function returns
// hesiodfs' root-node.
//
func (s *fuseServer) Root() (fs.Node, error) {

	return s.root, nil
}

// InitWait blocks till the fuse-server is ready to serve requests.
func (s *fuseServer) InitWait() {
	<-s.initDone
}

func (s *fuseServer) MountPoint() string {

	return s.mountPoint
}

func (s *fuseServer) Unmount() {

	fuse.Unmount(s.mountPoint)
}

type headerKey struct{}

// withHeader makes the header of every request (and so the caller's identity)
// available to node methods that don't receive the request itself, such as
// Attr() and ReadDirAll().
func withHeader(ctx context.Context, req fuse.Request) context.Context {
	return context.WithValue(ctx, headerKey{}, req.Hdr())
}

func headerFromContext(ctx context.Context) *fuse.Header {
	if h, ok := ctx.Value(headerKey{}).(*fuse.Header); ok {
		return h
	}
	return &fuse.Header{}
}

func newRequest(h *fuse.Header, path string) *domain.HandlerRequest {
	return &domain.HandlerRequest{
		Path: path,
		Pid:  h.Pid,
		Uid:  h.Uid,
		Gid:  h.Gid,
	}
}
