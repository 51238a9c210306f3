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

package sysio

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// AppFs is the file-system that hesiodfs reads its host files from (readme,
// hesiod.conf, config file). It's replaced by a memory-backed one during UT.
var AppFs = afero.NewOsFs()

// LoadStaticFile creates a fixed-content synthetic file out of a host file.
func LoadStaticFile(fs afero.Fs, name string, path string) (SyntheticFile, error) {

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		logrus.Errorf("Could not read content of synthetic file %v from %v: %v",
			name, path, err)
		return SyntheticFile{}, err
	}

	return NewStaticFile(name, data), nil
}
