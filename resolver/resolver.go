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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nestybox/hesiodfs/domain"
)

// Bound on a single naming-service query. Queries run detached from the
// requests waiting on them, so they need a deadline of their own.
const DefaultLookupTimeout = 10 * time.Second

//
// resolverService ties together the attach table, the negative cache and the
// naming service. The table/negative-cache pair of every subject is guarded by
// a per-subject mutex, so the check-then-write sequences below are atomic with
// respect to each other. The (potentially slow) naming-service query is issued
// without holding that mutex; a resolution stays in flight, keyed by subject
// and locker, until its result has been stored, so concurrent resolutions of
// the same locker by the same subject share one query.
//
type resolverService struct {
	ats domain.AttachTableIface
	ncs domain.NegativeCacheIface
	nss domain.NamingServiceIface

	sync.Mutex                                // locks map protection
	locks      map[domain.Subject]*sync.Mutex // per-subject state locks

	group         singleflight.Group
	lookupTimeout time.Duration
}

// resolution is the outcome of one in-flight resolution.
type resolution struct {
	target string
	ok     bool
}

func NewResolverService(
	ats domain.AttachTableIface,
	ncs domain.NegativeCacheIface,
	nss domain.NamingServiceIface) domain.ResolverIface {

	newRS := &resolverService{
		ats:           ats,
		ncs:           ncs,
		nss:           nss,
		locks:         make(map[domain.Subject]*sync.Mutex),
		lookupTimeout: DefaultLookupTimeout,
	}

	return newRS
}

func (r *resolverService) subjectLock(s domain.Subject) *sync.Mutex {
	r.Lock()
	defer r.Unlock()

	mu, ok := r.locks[s]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[s] = mu
	}

	return mu
}

// cached reports what the local state knows about a name: either a target, or
// that the name is being held, or nothing at all. Caller must hold the subject
// lock.
func (r *resolverService) cached(s domain.Subject, name string) (string, bool, bool) {

	if e, ok := r.ats.Get(s, name); ok {
		return e.Target, true, false
	}

	if r.ncs.IsHeld(s, name) {
		return "", false, true
	}

	return "", false, false
}

//
// Resolve returns the link target of a locker for the given subject. A false
// boolean with a nil error means the locker doesn't exist (as far as this
// subject is concerned). Errors are returned for unexpected naming-service
// failures, and when ctx is done before the answer is known; the query itself
// carries on for the benefit of other waiters.
//
func (r *resolverService) Resolve(
	ctx context.Context,
	s domain.Subject,
	name string) (string, bool, error) {

	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("locker %v: %w", name, err)
	}

	key := fmt.Sprintf("%d/%s", s, name)

	ch := r.group.DoChan(key, func() (interface{}, error) {
		return r.resolve(s, name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", false, res.Err
		}
		rsl := res.Val.(resolution)
		return rsl.target, rsl.ok, nil

	case <-ctx.Done():
		logrus.Debugf("Resolution of locker %v for uid %d interrupted", name, s)
		return "", false, fmt.Errorf("locker %v: %w", name, ctx.Err())
	}
}

// resolve runs one resolution from start to end: check local state, query the
// naming service, store the answer.
func (r *resolverService) resolve(s domain.Subject, name string) (resolution, error) {

	mu := r.subjectLock(s)

	mu.Lock()
	target, ok, held := r.cached(s, name)
	mu.Unlock()

	if ok {
		return resolution{target: target, ok: true}, nil
	}
	if held {
		logrus.Debugf("Locker %v is on hold for uid %d", name, s)
		return resolution{}, nil
	}

	cand, err := r.lookup(name)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logrus.Infof("Locker %v not found: %v", name, err)
			return resolution{}, nil

		case errors.Is(err, domain.ErrUnavailable):
			logrus.Infof("Naming service unavailable for locker %v: %v", name, err)
			return resolution{}, nil
		}

		logrus.Errorf("Lookup of locker %v failed: %v", name, err)
		return resolution{}, fmt.Errorf("locker %v: %v: %w", name, err, domain.ErrIO)
	}
	if cand == nil {
		return resolution{}, nil
	}

	mu.Lock()
	defer mu.Unlock()

	// A symlink() or unlink() that landed while the naming service was being
	// queried takes precedence over the lookup result.
	if target, ok, held := r.cached(s, name); ok || held {
		return resolution{target: target, ok: ok}, nil
	}

	r.ats.Set(s, domain.ResolvedEntry{
		Name:       name,
		Target:     cand.Location,
		Provenance: domain.LookedUp,
	})

	logrus.Infof("Mounting %v on %v", name, cand.Location)

	return resolution{target: cand.Location, ok: true}, nil
}

// lookup queries the naming service and picks the candidate to use, if any.
func (r *resolverService) lookup(name string) (*domain.Candidate, error) {

	ctx, cancel := context.WithTimeout(context.Background(), r.lookupTimeout)
	defer cancel()

	candidates, err := r.nss.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	return selectCandidate(name, candidates), nil
}

//
// selectCandidate returns the first automountable candidate. Candidates after
// it are never considered, even if they would be usable too.
//
func selectCandidate(name string, candidates []domain.Candidate) *domain.Candidate {

	for i := range candidates {
		c := &candidates[i]

		switch c.Kind {
		case domain.AutomountableStorage:
			return c

		case domain.ErrorRecord:
			logrus.Infof("ERR for locker %v: %v", name, c.Message)

		default:
			logrus.Infof("Unknown locker type %v for locker %v (%v)", c.Type, name, c.Message)
		}
	}

	logrus.Warnf("Couldn't find filsys for %v", name)

	return nil
}

// Define pins a locker to a user-chosen target and cancels any pending hold.
func (r *resolverService) Define(s domain.Subject, name string, target string) {

	mu := r.subjectLock(s)
	mu.Lock()
	defer mu.Unlock()

	r.ats.Set(s, domain.ResolvedEntry{
		Name:       name,
		Target:     target,
		Provenance: domain.UserDefined,
	})
	r.ncs.Clear(s, name)

	logrus.Infof("Locker %v defined as %v for uid %d", name, target, s)
}

// Undefine removes a locker and holds its name for a short while.
func (r *resolverService) Undefine(s domain.Subject, name string) error {

	mu := r.subjectLock(s)
	mu.Lock()
	defer mu.Unlock()

	if err := r.ats.Delete(s, name); err != nil {
		return err
	}
	r.ncs.Hold(s, name)

	logrus.Infof("Locker %v detached for uid %d", name, s)

	return nil
}

func (r *resolverService) Names(s domain.Subject) []string {
	return r.ats.Names(s)
}

func (r *resolverService) Render(s domain.Subject) string {
	return r.ats.Render(s)
}
