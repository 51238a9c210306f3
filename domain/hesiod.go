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

import "context"

type CandidateKind int

const (
	Unrecognized CandidateKind = iota
	AutomountableStorage
	ErrorRecord
)

func (k CandidateKind) String() string {
	switch k {
	case AutomountableStorage:
		return "automountable"
	case ErrorRecord:
		return "error"
	}
	return "unrecognized"
}

// Candidate is one location record returned by the naming service for a locker.
type Candidate struct {
	Kind     CandidateKind
	Type     string // raw record type, e.g. "AFS", "LOC", "ERR"
	Location string
	Message  string
}

//
// NamingServiceIface is the directory service that maps locker names to storage
// locations. Lookup returns the candidates in preference order, or an error
// matching ErrNotFound or ErrUnavailable; any other error is unexpected.
//
type NamingServiceIface interface {
	Lookup(ctx context.Context, name string) ([]Candidate, error)
}
