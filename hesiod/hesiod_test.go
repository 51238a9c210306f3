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

package hesiod

import (
	"context"
	"errors"
	"io/ioutil"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/hesiodfs/domain"
)

func TestMain(m *testing.M) {

	// Disable log generation during UT.
	logrus.SetOutput(ioutil.Discard)

	m.Run()
}

func TestLoadConfig(t *testing.T) {

	tests := []struct {
		name    string
		content *string
		want    Config
	}{
		// No file at all: defaults.
		{"1", nil, DefaultConfig()},

		{"2", strp("# Comment\nlhs=.ns\nrhs=.example.com\nclasses=IN,HS\n"),
			Config{LHS: ".ns", RHS: ".example.com"}},

		// Missing leading dots get added, trailing comments and junk ignored.
		{"3", strp("lhs = hes   # the lhs\nrhs=example.org\nbogus line\nfoo=bar\n"),
			Config{LHS: ".hes", RHS: ".example.org"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if tt.content != nil {
				require.NoError(t, afero.WriteFile(fs, DefaultConfPath, []byte(*tt.content), 0644))
			}

			got, err := LoadConfig(fs, DefaultConfPath)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfig_HesDomain(t *testing.T) {

	t.Setenv("HES_DOMAIN", "realm.example")

	got, err := LoadConfig(afero.NewMemMapFs(), DefaultConfPath)
	assert.NoError(t, err)
	assert.Equal(t, ".realm.example", got.RHS)
}

func TestParseFilsys(t *testing.T) {

	tests := []struct {
		name    string
		records []string
		want    []domain.Candidate
	}{
		{"1", []string{"AFS /afs/athena.mit.edu/activity/s/sipb w /mit/sipb"},
			[]domain.Candidate{
				{Kind: domain.AutomountableStorage, Type: "AFS", Location: "/afs/athena.mit.edu/activity/s/sipb"},
			}},

		{"2", []string{"LOC /var/local/x w /mit/x"},
			[]domain.Candidate{
				{Kind: domain.AutomountableStorage, Type: "LOC", Location: "/var/local/x"},
			}},

		{"3", []string{"ERR Locker has been retired."},
			[]domain.Candidate{
				{Kind: domain.ErrorRecord, Type: "ERR", Message: "Locker has been retired."},
			}},

		{"4", []string{"NFS /u1/x charon w /mit/x"},
			[]domain.Candidate{
				{Kind: domain.Unrecognized, Type: "NFS", Location: "/u1/x", Message: "NFS /u1/x charon w /mit/x"},
			}},

		// Several records get ordered by their trailing priority.
		{"5", []string{
			"AFS /afs/b w /mit/x 2",
			"AFS /afs/a w /mit/x 1",
		}, []domain.Candidate{
			{Kind: domain.AutomountableStorage, Type: "AFS", Location: "/afs/a"},
			{Kind: domain.AutomountableStorage, Type: "AFS", Location: "/afs/b"},
		}},

		// Blank records are skipped; an AFS record without location isn't usable.
		{"6", []string{"", "AFS"}, []domain.Candidate{
			{Kind: domain.Unrecognized, Type: "AFS", Message: "AFS"},
		}},

		{"7", nil, []domain.Candidate{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseFilsys(tt.records))
		})
	}
}

func Test_client_Lookup(t *testing.T) {

	var queried string

	tests := []struct {
		name      string
		locker    string
		txt       []string
		err       error
		wantQuery string
		want      []domain.Candidate
		wantErr   error
	}{
		{"1", "sipb", []string{"AFS /afs/athena.mit.edu/activity/s/sipb w /mit/sipb"}, nil,
			"sipb.filsys.ns.athena.mit.edu",
			[]domain.Candidate{{Kind: domain.AutomountableStorage, Type: "AFS", Location: "/afs/athena.mit.edu/activity/s/sipb"}},
			nil},

		// Alternate realm.
		{"2", "x@example.com", []string{"LOC /x w /mit/x"}, nil,
			"x.filsys.ns.example.com",
			[]domain.Candidate{{Kind: domain.AutomountableStorage, Type: "LOC", Location: "/x"}},
			nil},

		{"3", "nonexistent", nil, &net.DNSError{Err: "no such host", IsNotFound: true}, "nonexistent.filsys.ns.athena.mit.edu",
			nil, domain.ErrNotFound},

		{"4", "sipb", nil, &net.DNSError{Err: "i/o timeout", IsTimeout: true}, "sipb.filsys.ns.athena.mit.edu",
			nil, domain.ErrUnavailable},

		{"5", "sipb", nil, &net.DNSError{Err: "server misbehaving", IsTemporary: true}, "sipb.filsys.ns.athena.mit.edu",
			nil, domain.ErrUnavailable},

		{"6", "sipb", nil, context.DeadlineExceeded, "sipb.filsys.ns.athena.mit.edu",
			nil, domain.ErrUnavailable},

		// Names that can't be a DNS label never reach the resolver.
		{"7", "", nil, nil, "", nil, domain.ErrNotFound},
		{"8", ".hidden", nil, nil, "", nil, domain.ErrNotFound},
		{"9", "a-name-that-is-much-too-long-to-ever-fit-within-a-single-dns-label", nil, nil, "",
			nil, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queried = ""

			c := NewClient(DefaultConfig()).(*client)
			c.lookupTXT = func(ctx context.Context, name string) ([]string, error) {
				queried = name
				return tt.txt, tt.err
			}

			got, err := c.Lookup(context.Background(), tt.locker)
			assert.Equal(t, tt.wantQuery, queried)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "error %v is not %v", err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_client_LookupOtherError(t *testing.T) {

	c := NewClient(DefaultConfig()).(*client)
	c.lookupTXT = func(ctx context.Context, name string) ([]string, error) {
		return nil, errors.New("boom")
	}

	_, err := c.Lookup(context.Background(), "sipb")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNotFound))
	assert.False(t, errors.Is(err, domain.ErrUnavailable))
}

func strp(s string) *string {
	return &s
}
