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

import (
	"os"
	"time"
)

// FileInfo is the attribute set of a node as handed back to the kernel.
type FileInfo struct {
	Name    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	Nlink   uint32
	Uid     uint32 // owner; links belong to whoever looks at them
	Gid     uint32
}

func (fi FileInfo) IsSymlink() bool {
	return fi.Mode&os.ModeSymlink != 0
}
