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
	"fmt"
	"strings"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/sirupsen/logrus"

	"github.com/nestybox/hesiodfs/domain"
)

//
// attachTable stores every subject's resolved entries in an immutable radix
// tree. Writers swap the subject's tree under the lock; readers grab the current
// tree and walk it lock-free, which gives them a consistent, lexically ordered
// snapshot.
//
type attachTable struct {
	sync.RWMutex

	// Subject -> (name -> domain.ResolvedEntry).
	trees map[domain.Subject]*iradix.Tree
}

func NewAttachTable() domain.AttachTableIface {

	newAT := &attachTable{
		trees: make(map[domain.Subject]*iradix.Tree),
	}

	return newAT
}

func (at *attachTable) snapshot(s domain.Subject) *iradix.Tree {
	at.RLock()
	defer at.RUnlock()

	return at.trees[s]
}

func (at *attachTable) Get(s domain.Subject, name string) (domain.ResolvedEntry, bool) {

	tree := at.snapshot(s)
	if tree == nil {
		return domain.ResolvedEntry{}, false
	}

	val, ok := tree.Get([]byte(name))
	if !ok {
		return domain.ResolvedEntry{}, false
	}

	return val.(domain.ResolvedEntry), true
}

func (at *attachTable) Set(s domain.Subject, e domain.ResolvedEntry) {
	at.Lock()

	tree, ok := at.trees[s]
	if !ok {
		tree = iradix.New()
	}
	tree, _, _ = tree.Insert([]byte(e.Name), e)
	at.trees[s] = tree
	at.Unlock()

	logrus.Debugf("Attach-table entry set for uid %d: %v", s, e)
}

func (at *attachTable) Delete(s domain.Subject, name string) error {
	at.Lock()

	tree, ok := at.trees[s]
	if !ok {
		at.Unlock()
		return fmt.Errorf("attach-table entry %q: %w", name, domain.ErrNotFound)
	}

	tree, _, ok = tree.Delete([]byte(name))
	if !ok {
		at.Unlock()
		return fmt.Errorf("attach-table entry %q: %w", name, domain.ErrNotFound)
	}

	if tree.Len() == 0 {
		delete(at.trees, s)
	} else {
		at.trees[s] = tree
	}
	at.Unlock()

	logrus.Debugf("Attach-table entry %q deleted for uid %d", name, s)

	return nil
}

func (at *attachTable) Names(s domain.Subject) []string {

	var names []string

	tree := at.snapshot(s)
	if tree == nil {
		return names
	}

	tree.Root().Walk(func(k []byte, v interface{}) bool {
		names = append(names, string(k))
		return false
	})

	return names
}

// Render dumps the subject's attach table, one newline-terminated line per entry
// in name order. Identical state always renders identically.
func (at *attachTable) Render(s domain.Subject) string {

	var b strings.Builder

	tree := at.snapshot(s)
	if tree == nil {
		return ""
	}

	tree.Root().Walk(func(k []byte, v interface{}) bool {
		b.WriteString(v.(domain.ResolvedEntry).String())
		b.WriteByte('\n')
		return false
	})

	return b.String()
}
