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

package domain

import "fmt"

// Subject identifies the requester of a file-system operation (its uid). All
// mutable mount state is partitioned by Subject.
type Subject uint32

// Provenance tells how an attach-table entry came to exist.
type Provenance int

const (
	LookedUp    Provenance = iota // resolved through the naming service
	UserDefined                   // pinned by the user through symlink(2)
)

func (p Provenance) String() string {
	switch p {
	case LookedUp:
		return "hesiod"
	case UserDefined:
		return "user"
	}
	return fmt.Sprintf("provenance(%d)", int(p))
}

// ResolvedEntry is one row of a subject's attach table.
type ResolvedEntry struct {
	Name       string
	Target     string
	Provenance Provenance
}

// String renders the entry as a single attach-table line (without the trailing
// newline). User-defined entries carry their provenance so that the override can
// be told apart from a plain lookup and re-created.
func (e ResolvedEntry) String() string {
	if e.Provenance == UserDefined {
		return fmt.Sprintf("%s %s %s", e.Name, e.Target, e.Provenance)
	}
	return fmt.Sprintf("%s %s", e.Name, e.Target)
}

//
// AttachTableIface is the per-subject forward cache of resolved lockers. Entries
// have no TTL: once present they stay until removed or until the mount goes away.
//
type AttachTableIface interface {
	Get(s Subject, name string) (ResolvedEntry, bool)
	Set(s Subject, e ResolvedEntry)
	Delete(s Subject, name string) error
	Names(s Subject) []string
	Render(s Subject) string
}

//
// NegativeCacheIface holds recently removed names so that they are reported as
// absent for a short period, instead of being looked up again right away.
//
type NegativeCacheIface interface {
	Hold(s Subject, name string)
	Clear(s Subject, name string)
	IsHeld(s Subject, name string) bool
}
