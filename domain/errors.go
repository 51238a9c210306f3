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

import "errors"

// Error taxonomy shared by all hesiodfs components. Callers wrap these with
// fmt.Errorf("...: %w") and classify with errors.Is; the FUSE layer is the only
// place where they turn into errnos.
var (
	ErrNotFound    = errors.New("no such entry")
	ErrPermission  = errors.New("operation not permitted")
	ErrUnavailable = errors.New("naming service unavailable")
	ErrIO          = errors.New("input/output error")
	ErrAccessMode  = errors.New("access mode not supported")
)
