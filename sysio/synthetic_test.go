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

package sysio_test

import (
	"fmt"
	"io/ioutil"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/hesiodfs/domain"
	"github.com/nestybox/hesiodfs/sysio"
)

func TestMain(m *testing.M) {

	// Disable log generation during UT.
	logrus.SetOutput(ioutil.Discard)

	m.Run()
}

func TestNewSyntheticFileSet(t *testing.T) {

	tests := []struct {
		name    string
		files   []sysio.SyntheticFile
		want    []string
		wantErr bool
	}{
		{"1", []sysio.SyntheticFile{
			sysio.NewStaticFile("README.txt", []byte("hi")),
			sysio.NewStaticFile("attachtab", nil),
		}, []string{"README.txt", "attachtab"}, false},

		// Empty set is fine.
		{"2", nil, []string{}, false},

		// Duplicated names.
		{"3", []sysio.SyntheticFile{
			sysio.NewStaticFile("README.txt", nil),
			sysio.NewStaticFile("README.txt", nil),
		}, nil, true},

		// Names must designate an entry right below the root.
		{"4", []sysio.SyntheticFile{sysio.NewStaticFile("a/b", nil)}, nil, true},
		{"5", []sysio.SyntheticFile{sysio.NewStaticFile("", nil)}, nil, true},
		{"6", []sysio.SyntheticFile{sysio.NewStaticFile("..", nil)}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sysio.NewSyntheticFileSet(tt.files...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Names())
		})
	}
}

func TestSyntheticFileSet_Content(t *testing.T) {

	var calls int

	set, err := sysio.NewSyntheticFileSet(
		sysio.NewStaticFile("README.txt", []byte("static content")),
		sysio.NewDynamicFile("attachtab", func(s domain.Subject) []byte {
			calls++
			return []byte(fmt.Sprintf("uid %d call %d\n", s, calls))
		}),
	)
	require.NoError(t, err)

	assert.True(t, set.Contains("README.txt"))
	assert.True(t, set.Contains("attachtab"))
	assert.False(t, set.Contains("sipb"))

	data, ok := set.Content("README.txt", 1000)
	assert.True(t, ok)
	assert.Equal(t, "static content", string(data))

	// Dynamic content is produced on every read, for the requesting subject.
	data, ok = set.Content("attachtab", 1000)
	assert.True(t, ok)
	assert.Equal(t, "uid 1000 call 1\n", string(data))

	data, ok = set.Content("attachtab", 2000)
	assert.True(t, ok)
	assert.Equal(t, "uid 2000 call 2\n", string(data))

	_, ok = set.Content("sipb", 1000)
	assert.False(t, ok)
}

func TestSyntheticFile_IsDynamic(t *testing.T) {

	f1 := sysio.NewStaticFile("a", []byte("x"))
	f2 := sysio.NewDynamicFile("b", func(domain.Subject) []byte { return nil })

	assert.False(t, f1.IsDynamic())
	assert.True(t, f2.IsDynamic())
	assert.Equal(t, "a", f1.Name())
	assert.Equal(t, "b", f2.Name())
}

func TestLoadStaticFile(t *testing.T) {

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/hesiodfs/README", []byte("custom readme"), 0644))

	f, err := sysio.LoadStaticFile(fs, "README.txt", "/etc/hesiodfs/README")
	require.NoError(t, err)
	assert.Equal(t, "README.txt", f.Name())
	assert.Equal(t, "custom readme", string(f.Content(0)))

	_, err = sysio.LoadStaticFile(fs, "README.txt", "/non-existing")
	assert.Error(t, err)
}
