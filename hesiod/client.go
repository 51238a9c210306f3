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
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/hesiodfs/domain"
)

// Longest name accepted as a single DNS label.
const maxNameLen = 63

// Ensure client implements the naming-service interface.
var _ domain.NamingServiceIface = (*client)(nil)

type client struct {
	cfg Config

	// lookupTXT returns all TXT strings for a DNS name. It aliases the system
	// resolver except in tests.
	lookupTXT func(ctx context.Context, name string) ([]string, error)
}

func NewClient(cfg Config) domain.NamingServiceIface {

	return &client{
		cfg:       cfg,
		lookupTXT: net.DefaultResolver.LookupTXT,
	}
}

// Lookup queries the filsys records of a locker.
func (c *client) Lookup(ctx context.Context, name string) ([]domain.Candidate, error) {

	qname, err := c.bindName(name, "filsys")
	if err != nil {
		return nil, err
	}

	logrus.Debugf("Querying hesiod for %v", qname)

	txts, err := c.lookupTXT(ctx, qname)
	if err != nil {
		return nil, classify(qname, err)
	}

	return ParseFilsys(txts), nil
}

// bindName builds the DNS name holding the records of the given type for a
// Hesiod name. "name@realm" selects an alternate RHS.
func (c *client) bindName(name string, typ string) (string, error) {

	rhs := c.cfg.RHS
	if i := strings.LastIndexByte(name, '@'); i >= 0 {
		rhs = normalizeSuffix(name[i+1:])
		name = name[:i]
	}

	if name == "" ||
		len(name) > maxNameLen ||
		strings.HasPrefix(name, ".") ||
		strings.ContainsAny(name, "/ \t") {
		return "", fmt.Errorf("invalid hesiod name %q: %w", name, domain.ErrNotFound)
	}

	return name + "." + typ + c.cfg.LHS + rhs, nil
}

// classify maps resolver failures onto the naming-service error taxonomy.
func classify(qname string, err error) error {

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return fmt.Errorf("%s: %w", qname, domain.ErrNotFound)
		case dnsErr.IsTimeout, dnsErr.IsTemporary:
			return fmt.Errorf("%s: %v: %w", qname, dnsErr.Err, domain.ErrUnavailable)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %v: %w", qname, err, domain.ErrUnavailable)
	}

	return fmt.Errorf("hesiod lookup of %s: %w", qname, err)
}
