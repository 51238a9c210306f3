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

package sysio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/hesiodfs/domain"
)

// Names of the synthetic files exposed by default at the root of the mount.
const (
	ReadmeFile    = "README.txt"
	AttachtabFile = "attachtab"
)

const DefaultReadme = `This directory is served by hesiodfs.

Every entry in here is a symbolic link to the storage location of a locker.
Entries are looked up in Hesiod the first time they are accessed, e.g.

    cd /mit/sipb

will follow the "sipb" filsys record. Looked-up entries stay around until the
filesystem is unmounted or until you remove them.

You can point a name at a location of your choice with

    ln -s /path/to/somewhere /mit/name

and go back to the Hesiod answer by removing your link. Your changes are only
visible to you.

The "attachtab" file lists the entries currently attached for you.
`

//
// SyntheticFile is a read-only file living next to the links. Its content is
// either fixed at construction time or produced on every read by a function;
// which one is decided by the constructor used.
//
type SyntheticFile struct {
	name    string
	static  []byte
	dynamic func(s domain.Subject) []byte
}

func NewStaticFile(name string, content []byte) SyntheticFile {
	return SyntheticFile{name: name, static: content}
}

func NewDynamicFile(name string, fn func(s domain.Subject) []byte) SyntheticFile {
	return SyntheticFile{name: name, dynamic: fn}
}

func (f SyntheticFile) Name() string {
	return f.name
}

func (f SyntheticFile) IsDynamic() bool {
	return f.dynamic != nil
}

// Content returns the current file content as seen by the given subject.
func (f SyntheticFile) Content(s domain.Subject) []byte {
	if f.dynamic != nil {
		return f.dynamic(s)
	}
	return f.static
}

type syntheticFileSet struct {
	files map[string]SyntheticFile
	names []string // registration order
}

// NewSyntheticFileSet builds the (immutable) set of synthetic files.
func NewSyntheticFileSet(files ...SyntheticFile) (domain.SyntheticFileSetIface, error) {

	set := &syntheticFileSet{
		files: make(map[string]SyntheticFile, len(files)),
	}

	for _, f := range files {
		kind, _ := domain.ParsePath("/" + f.name)
		if kind != domain.LeafPath {
			return nil, fmt.Errorf("invalid synthetic file name %q", f.name)
		}
		if _, ok := set.files[f.name]; ok {
			logrus.Errorf("Synthetic file %v already registered", f.name)
			return nil, errors.New("Synthetic file already registered")
		}

		set.files[f.name] = f
		set.names = append(set.names, f.name)
	}

	return set, nil
}

func (set *syntheticFileSet) Contains(name string) bool {
	_, ok := set.files[name]
	return ok
}

func (set *syntheticFileSet) Names() []string {
	names := make([]string, len(set.names))
	copy(names, set.names)
	return names
}

func (set *syntheticFileSet) Content(name string, s domain.Subject) ([]byte, bool) {
	f, ok := set.files[name]
	if !ok {
		return nil, false
	}
	return f.Content(s), true
}

// String is used for logging purposes.
func (set *syntheticFileSet) String() string {
	return strings.Join(set.names, ", ")
}

// NewDefaultFileSet builds the standard set of synthetic files: the given
// readme plus the caller's attach table.
func NewDefaultFileSet(
	readme SyntheticFile,
	rs domain.ResolverIface) (domain.SyntheticFileSetIface, error) {

	attachtab := NewDynamicFile(AttachtabFile, func(s domain.Subject) []byte {
		return []byte(rs.Render(s))
	})

	return NewSyntheticFileSet(readme, attachtab)
}
