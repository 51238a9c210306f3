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

package state

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/hesiodfs/domain"
)

// Default amount of time a removed entry is reported as absent. Long enough for
// `ln -nsf` to unlink the old link and create the new one without a Hesiod
// round-trip in between.
const DefaultHoldDuration = 500 * time.Millisecond

//
// negativeCache keeps, per subject, the names that were recently removed along
// with their removal time. Expiration is lazy: stale entries are dropped by the
// IsHeld() call that notices them, there's no timer involved.
//
type negativeCache struct {
	sync.Mutex

	// Amount of time an entry stays in effect.
	holdDuration time.Duration

	// Time source, replaced during UT.
	now func() time.Time

	// Subject -> name -> insertion time.
	holds map[domain.Subject]map[string]time.Time
}

func NewNegativeCache(holdDuration time.Duration) domain.NegativeCacheIface {

	return newNegativeCache(holdDuration, time.Now)
}

func newNegativeCache(
	holdDuration time.Duration,
	now func() time.Time) *negativeCache {

	newNC := &negativeCache{
		holdDuration: holdDuration,
		now:          now,
		holds:        make(map[domain.Subject]map[string]time.Time),
	}

	return newNC
}

func (nc *negativeCache) Hold(s domain.Subject, name string) {
	nc.Lock()
	defer nc.Unlock()

	names, ok := nc.holds[s]
	if !ok {
		names = make(map[string]time.Time)
		nc.holds[s] = names
	}
	names[name] = nc.now()

	logrus.Debugf("Holding %q for uid %d during %v", name, s, nc.holdDuration)
}

func (nc *negativeCache) Clear(s domain.Subject, name string) {
	nc.Lock()
	defer nc.Unlock()

	nc.clearLocked(s, name)
}

func (nc *negativeCache) IsHeld(s domain.Subject, name string) bool {
	nc.Lock()
	defer nc.Unlock()

	insertedAt, ok := nc.holds[s][name]
	if !ok {
		return false
	}

	if insertedAt.Add(nc.holdDuration).After(nc.now()) {
		return true
	}

	nc.clearLocked(s, name)

	return false
}

func (nc *negativeCache) clearLocked(s domain.Subject, name string) {

	names, ok := nc.holds[s]
	if !ok {
		return
	}

	delete(names, name)
	if len(names) == 0 {
		delete(nc.holds, s)
	}
}
