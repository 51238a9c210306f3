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

package handler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nestybox/hesiodfs/domain"
)

//
// handlerService implements the file-system operations of the mount: a single
// directory holding the synthetic files plus one symlink per locker. Synthetic
// files are consulted first, so they shadow lockers with the same name.
//
type handlerService struct {
	rs        domain.ResolverIface
	sfs       domain.SyntheticFileSetIface
	startTime time.Time
}

func NewHandlerService(
	rs domain.ResolverIface,
	sfs domain.SyntheticFileSetIface) domain.HandlerServiceIface {

	newHS := &handlerService{
		rs:        rs,
		sfs:       sfs,
		startTime: time.Now(),
	}

	return newHS
}

func (h *handlerService) Getattr(
	ctx context.Context,
	req *domain.HandlerRequest) (domain.FileInfo, error) {

	logrus.Debugf("Executing Getattr() for path %v (uid %d)", req.Path, req.Uid)

	kind, name := domain.ParsePath(req.Path)

	switch kind {
	case domain.RootPath:
		return domain.FileInfo{
			Name:    "/",
			Mode:    os.ModeDir | 0755,
			ModTime: h.startTime,
			Nlink:   2,
			Gid:     req.Gid,
		}, nil

	case domain.LeafPath:
		if data, ok := h.sfs.Content(name, req.Subject()); ok {
			return domain.FileInfo{
				Name:    name,
				Size:    int64(len(data)),
				Mode:    0444,
				ModTime: h.startTime,
				Nlink:   1,
			}, nil
		}

		target, err := h.resolve(ctx, req, name)
		if err != nil {
			return domain.FileInfo{}, err
		}

		return domain.FileInfo{
			Name:    name,
			Size:    int64(len(target)),
			Mode:    os.ModeSymlink | 0777,
			ModTime: h.startTime,
			Nlink:   1,
			Uid:     req.Uid,
		}, nil
	}

	return domain.FileInfo{}, fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
}

//
// ReadDirAll lists the root directory. Only the lockers already present in the
// caller's attach table show up: listing never triggers a lookup.
//
func (h *handlerService) ReadDirAll(
	ctx context.Context,
	req *domain.HandlerRequest) ([]domain.DirEntry, error) {

	logrus.Debugf("Executing ReadDirAll() for path %v (uid %d)", req.Path, req.Uid)

	if kind, _ := domain.ParsePath(req.Path); kind != domain.RootPath {
		return nil, fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
	}

	synthetic := h.sfs.Names()
	lockers := h.rs.Names(req.Subject())

	entries := make([]domain.DirEntry, 0, 2+len(synthetic)+len(lockers))
	entries = append(entries,
		domain.DirEntry{Name: ".", Mode: os.ModeDir},
		domain.DirEntry{Name: "..", Mode: os.ModeDir},
	)
	for _, name := range synthetic {
		entries = append(entries, domain.DirEntry{Name: name})
	}
	for _, name := range lockers {
		entries = append(entries, domain.DirEntry{Name: name, Mode: os.ModeSymlink})
	}

	return entries, nil
}

func (h *handlerService) Readlink(
	ctx context.Context,
	req *domain.HandlerRequest) (string, error) {

	logrus.Debugf("Executing Readlink() for path %v (uid %d)", req.Path, req.Uid)

	kind, name := domain.ParsePath(req.Path)
	if kind != domain.LeafPath || h.sfs.Contains(name) {
		return "", fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
	}

	return h.resolve(ctx, req, name)
}

// Open only applies to synthetic files, which can't be opened for writing.
func (h *handlerService) Open(ctx context.Context, req *domain.HandlerRequest) error {

	logrus.Debugf("Executing Open() for path %v (uid %d, flags %#x)",
		req.Path, req.Uid, req.Flags)

	kind, name := domain.ParsePath(req.Path)
	if kind != domain.LeafPath || !h.sfs.Contains(name) {
		return fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
	}

	if req.Flags&unix.O_ACCMODE != unix.O_RDONLY {
		return fmt.Errorf("%v: %w", req.Path, domain.ErrAccessMode)
	}

	return nil
}

// Read returns the requested range of a synthetic file's current content.
func (h *handlerService) Read(
	ctx context.Context,
	req *domain.HandlerRequest,
	off int64,
	size int) ([]byte, error) {

	logrus.Debugf("Executing Read() for path %v (uid %d, off %d, size %d)",
		req.Path, req.Uid, off, size)

	kind, name := domain.ParsePath(req.Path)
	if kind != domain.LeafPath {
		return nil, fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
	}

	data, ok := h.sfs.Content(name, req.Subject())
	if !ok {
		return nil, fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
	}

	if off < 0 || size < 0 {
		return nil, fmt.Errorf("%v: invalid range: %w", req.Path, domain.ErrIO)
	}
	if off >= int64(len(data)) {
		return []byte{}, nil
	}

	end := off + int64(size)
	if end > int64(len(data)) {
		end = int64(len(data))
	}

	return data[off:end], nil
}

// Symlink pins a locker to an arbitrary target for the caller.
func (h *handlerService) Symlink(
	ctx context.Context,
	req *domain.HandlerRequest,
	target string) error {

	logrus.Debugf("Executing Symlink() for path %v -> %v (uid %d)", req.Path, target, req.Uid)

	name, err := h.writableName(req)
	if err != nil {
		return err
	}

	h.rs.Define(req.Subject(), name, target)

	return nil
}

// Remove drops a locker from the caller's attach table and holds its name.
func (h *handlerService) Remove(ctx context.Context, req *domain.HandlerRequest) error {

	logrus.Debugf("Executing Remove() for path %v (uid %d)", req.Path, req.Uid)

	name, err := h.writableName(req)
	if err != nil {
		return err
	}

	if err := h.rs.Undefine(req.Subject(), name); err != nil {
		return fmt.Errorf("%v: %w", req.Path, err)
	}

	return nil
}

// writableName returns the locker name a structural write applies to. The root,
// synthetic files and nested paths can't be written to.
func (h *handlerService) writableName(req *domain.HandlerRequest) (string, error) {

	kind, name := domain.ParsePath(req.Path)
	if kind != domain.LeafPath || h.sfs.Contains(name) {
		return "", fmt.Errorf("%v: %w", req.Path, domain.ErrPermission)
	}

	return name, nil
}

func (h *handlerService) resolve(
	ctx context.Context,
	req *domain.HandlerRequest,
	name string) (string, error) {

	target, ok, err := h.rs.Resolve(ctx, req.Subject(), name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%v: %w", req.Path, domain.ErrNotFound)
	}

	return target, nil
}
