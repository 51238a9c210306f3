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
	"sort"
	"strconv"
	"strings"

	"github.com/nestybox/hesiodfs/domain"
)

// Filsys record types that point at directly usable storage.
var automountTypes = map[string]struct{}{
	"AFS": {},
	"LOC": {},
}

//
// ParseFilsys turns the TXT strings of a filsys lookup into candidates:
//
//   AFS /afs/athena.mit.edu/activity/s/sipb w /mit/sipb
//   ERR Locker has been retired
//
// When a name has several records, each one ends with a numeric priority and
// the candidates are returned in increasing priority order. Records without a
// priority keep their relative position.
//
func ParseFilsys(records []string) []domain.Candidate {

	type prioritized struct {
		c        domain.Candidate
		priority int
	}

	var list []prioritized

	for _, rec := range records {
		fields := strings.Fields(rec)
		if len(fields) == 0 {
			continue
		}

		typ := strings.ToUpper(fields[0])
		c := domain.Candidate{Type: typ}

		switch {
		case typ == "ERR":
			c.Kind = domain.ErrorRecord
			c.Message = strings.TrimSpace(strings.TrimSpace(rec)[len(fields[0]):])

		case isAutomountType(typ) && len(fields) >= 2:
			c.Kind = domain.AutomountableStorage
			c.Location = fields[1]

		default:
			c.Kind = domain.Unrecognized
			if len(fields) >= 2 {
				c.Location = fields[1]
			}
			c.Message = rec
		}

		p := prioritized{c: c}
		if len(records) > 1 && len(fields) > 1 {
			if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
				p.priority = n
			}
		}

		list = append(list, p)
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].priority < list[j].priority
	})

	candidates := make([]domain.Candidate, 0, len(list))
	for _, p := range list {
		candidates = append(candidates, p.c)
	}

	return candidates
}

func isAutomountType(typ string) bool {
	_, ok := automountTypes[typ]
	return ok
}
