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
	"bufio"
	"bytes"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const DefaultConfPath = "/etc/hesiod.conf"

// Config holds the domain suffixes used to turn a Hesiod name into a DNS name:
// "<name>.<type><LHS><RHS>", e.g. "sipb.filsys.ns.athena.mit.edu".
type Config struct {
	LHS string
	RHS string
}

func DefaultConfig() Config {
	return Config{
		LHS: ".ns",
		RHS: ".athena.mit.edu",
	}
}

//
// LoadConfig parses a hesiod.conf file ("key=value" lines, '#' comments). A
// missing file yields the default configuration. As with libhesiod, the
// HES_DOMAIN environment variable overrides the configured RHS.
//
func LoadConfig(fs afero.Fs, path string) (Config, error) {

	cfg := DefaultConfig()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Errorf("Could not read hesiod configuration %v: %v", path, err)
			return cfg, err
		}
		logrus.Debugf("No hesiod configuration at %v, using defaults", path)
		data = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			logrus.Warnf("Ignoring malformed hesiod.conf line: %q", line)
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "lhs":
			cfg.LHS = normalizeSuffix(val)
		case "rhs":
			cfg.RHS = normalizeSuffix(val)
		case "classes":
			// Only the IN class is reachable through the system resolver.
			if !strings.Contains(strings.ToUpper(val), "IN") {
				logrus.Warnf("hesiod.conf classes %q do not include IN", val)
			}
		default:
			logrus.Debugf("Ignoring hesiod.conf key %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}

	if dom := os.Getenv("HES_DOMAIN"); dom != "" {
		cfg.RHS = normalizeSuffix(dom)
	}

	return cfg, nil
}

func normalizeSuffix(s string) string {
	if s == "" || strings.HasPrefix(s, ".") {
		return s
	}
	return "." + s
}
