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

import "strings"

type PathKind int

const (
	RootPath   PathKind = iota // "/"
	LeafPath                   // "/name"
	NestedPath                 // "/a/b", or anything else not directly under root
)

// ParsePath classifies a mount-relative path and returns its leaf name when the
// path designates an entry right below the root.
func ParsePath(path string) (PathKind, string) {
	if path == "/" || path == "" {
		return RootPath, ""
	}
	if !strings.HasPrefix(path, "/") {
		return NestedPath, ""
	}

	leaf := path[1:]
	if leaf == "" || strings.Contains(leaf, "/") || leaf == "." || leaf == ".." {
		return NestedPath, ""
	}

	return LeafPath, leaf
}
