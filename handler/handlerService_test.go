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

package handler_test

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/hesiodfs/domain"
	"github.com/nestybox/hesiodfs/handler"
	"github.com/nestybox/hesiodfs/mocks"
	"github.com/nestybox/hesiodfs/resolver"
	"github.com/nestybox/hesiodfs/state"
	"github.com/nestybox/hesiodfs/sysio"
)

const readme = "read me\n"

func TestMain(m *testing.M) {

	// Disable log generation during UT.
	logrus.SetOutput(ioutil.Discard)

	m.Run()
}

func newHandlerService(t *testing.T) (domain.HandlerServiceIface, *mocks.NamingServiceIface) {

	nss := mocks.NewNamingServiceIface(t)
	rs := resolver.NewResolverService(
		state.NewAttachTable(),
		state.NewNegativeCache(time.Minute),
		nss,
	)

	sfs, err := sysio.NewDefaultFileSet(
		sysio.NewStaticFile(sysio.ReadmeFile, []byte(readme)),
		rs,
	)
	require.NoError(t, err)

	return handler.NewHandlerService(rs, sfs), nss
}

func req(path string) *domain.HandlerRequest {
	return &domain.HandlerRequest{Path: path, Uid: 1000, Gid: 100, Pid: 4242}
}

func afs(loc string) []domain.Candidate {
	return []domain.Candidate{{Kind: domain.AutomountableStorage, Type: "AFS", Location: loc}}
}

func TestHandlerService_Getattr(t *testing.T) {

	hs, nss := newHandlerService(t)
	ctx := context.Background()

	nss.On("Lookup", mock.Anything, "sipb").Return(afs("/afs/athena.mit.edu/activity/s/sipb"), nil).Once()
	nss.On("Lookup", mock.Anything, "nonexistent").Return(nil, domain.ErrNotFound).Once()

	tests := []struct {
		name     string
		path     string
		wantMode os.FileMode
		wantSize int64
		wantUid  uint32
		wantGid  uint32
		wantErr  error
	}{
		// Root directory, owned by the caller's group.
		{"1", "/", os.ModeDir | 0755, 0, 0, 100, nil},

		// Synthetic file, sized after its content.
		{"2", "/README.txt", 0444, int64(len(readme)), 0, 0, nil},

		// Attach table is still empty.
		{"3", "/attachtab", 0444, 0, 0, 0, nil},

		// Locker resolved through hesiod.
		{"4", "/sipb", os.ModeSymlink | 0777,
			int64(len("/afs/athena.mit.edu/activity/s/sipb")), 1000, 0, nil},

		// Unknown locker.
		{"5", "/nonexistent", 0, 0, 0, 0, domain.ErrNotFound},

		// The file-system is one level deep.
		{"6", "/sipb/foo", 0, 0, 0, 0, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hs.Getattr(ctx, req(tt.path))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, got.Mode)
			assert.Equal(t, tt.wantSize, got.Size)
			assert.Equal(t, tt.wantUid, got.Uid)
			assert.Equal(t, tt.wantGid, got.Gid)
		})
	}

	// The attach table now holds the resolved locker, and its size follows.
	want := "sipb /afs/athena.mit.edu/activity/s/sipb\n"
	got, err := hs.Getattr(ctx, req("/attachtab"))
	require.NoError(t, err)
	assert.Equal(t, int64(len(want)), got.Size)
}

func TestHandlerService_ReadDirAll(t *testing.T) {

	hs, nss := newHandlerService(t)
	ctx := context.Background()

	names := func(entries []domain.DirEntry) []string {
		var n []string
		for _, e := range entries {
			n = append(n, e.Name)
		}
		return n
	}

	// Listing reflects cache state only: no lookup happens here.
	entries, err := hs.ReadDirAll(ctx, req("/"))
	require.NoError(t, err)
	assert.Equal(t, []string{".", "..", "README.txt", "attachtab"}, names(entries))

	nss.On("Lookup", mock.Anything, "sipb").Return(afs("/afs/sipb"), nil).Once()
	_, err = hs.Readlink(ctx, req("/sipb"))
	require.NoError(t, err)
	require.NoError(t, hs.Symlink(ctx, req("/mine"), "/tmp/mine"))

	want := []string{".", "..", "README.txt", "attachtab", "mine", "sipb"}
	for i := 0; i < 3; i++ {
		entries, err = hs.ReadDirAll(ctx, req("/"))
		require.NoError(t, err)
		assert.Equal(t, want, names(entries))
	}
	assert.Equal(t, os.ModeSymlink, entries[5].Mode)

	// Other users don't see those entries.
	other := req("/")
	other.Uid = 2000
	entries, err = hs.ReadDirAll(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, []string{".", "..", "README.txt", "attachtab"}, names(entries))

	_, err = hs.ReadDirAll(ctx, req("/sipb"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestHandlerService_Readlink(t *testing.T) {

	hs, nss := newHandlerService(t)
	ctx := context.Background()

	nss.On("Lookup", mock.Anything, "x").Return(afs("/mit/x"), nil).Once()

	// Second call is served from the attach table.
	for i := 0; i < 2; i++ {
		got, err := hs.Readlink(ctx, req("/x"))
		require.NoError(t, err)
		assert.Equal(t, "/mit/x", got)
	}

	_, err := hs.Readlink(ctx, req("/README.txt"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = hs.Readlink(ctx, req("/"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	nss.On("Lookup", mock.Anything, "broken").Return(nil, errors.New("boom")).Once()
	_, err = hs.Readlink(ctx, req("/broken"))
	assert.True(t, errors.Is(err, domain.ErrIO))
}

func TestHandlerService_SymlinkRemove(t *testing.T) {

	hs, _ := newHandlerService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"1", "/", domain.ErrPermission},
		{"2", "/README.txt", domain.ErrPermission},
		{"3", "/attachtab", domain.ErrPermission},
		{"4", "/a/b", domain.ErrPermission},
		{"5", "/y", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hs.Symlink(ctx, req(tt.path), "/tmp/z")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}

			err = hs.Remove(ctx, req(tt.path))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	// "y" is now held: reported as absent without any lookup.
	_, err := hs.Readlink(ctx, req("/y"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Removing it again fails: nothing left to remove.
	err = hs.Remove(ctx, req("/y"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Re-creating it cancels the hold.
	require.NoError(t, hs.Symlink(ctx, req("/y"), "/tmp/w"))
	got, err := hs.Readlink(ctx, req("/y"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w", got)

	data, err := hs.Read(ctx, req("/attachtab"), 0, 4096)
	require.NoError(t, err)
	assert.Equal(t, "y /tmp/w user\n", string(data))
}

func TestHandlerService_OpenRead(t *testing.T) {

	hs, _ := newHandlerService(t)
	ctx := context.Background()

	withFlags := func(path string, flags int) *domain.HandlerRequest {
		r := req(path)
		r.Flags = flags
		return r
	}

	assert.NoError(t, hs.Open(ctx, withFlags("/README.txt", syscall.O_RDONLY)))

	err := hs.Open(ctx, withFlags("/README.txt", syscall.O_WRONLY))
	assert.True(t, errors.Is(err, domain.ErrAccessMode))

	err = hs.Open(ctx, withFlags("/attachtab", syscall.O_RDWR))
	assert.True(t, errors.Is(err, domain.ErrAccessMode))

	err = hs.Open(ctx, withFlags("/sipb", syscall.O_RDONLY))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	tests := []struct {
		name string
		off  int64
		size int
		want string
	}{
		{"1", 0, 4096, readme},
		{"2", 0, 4, "read"},
		{"3", 5, 2, "me"},
		{"4", 5, 100, "me\n"},
		{"5", int64(len(readme)), 10, ""},
		{"6", 100, 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hs.Read(ctx, req("/README.txt"), tt.off, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	_, err = hs.Read(ctx, req("/sipb"), 0, 10)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
