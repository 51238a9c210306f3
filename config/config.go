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


// Package config holds hesiodfs' runtime settings. Settings start from
// built-in defaults, may be overlaid by an optional YAML file, and are finally
// overridden by whatever command-line flags were explicitly given.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMountPoint   = "/mit"
	DefaultHoldDuration = "500ms"
	DefaultHesiodConf   = "/etc/hesiod.conf"
	DefaultLog          = "/dev/stdout"
	DefaultLogLevel     = "info"
)

// Config is the set of settings recognized in the configuration file.
type Config struct {
	// MountPoint is where the file-system gets attached.
	MountPoint string `yaml:"mountpoint"`

	// HoldDuration is how long a removed locker stays hidden from lookups,
	// as a Go duration string ("500ms").
	HoldDuration string `yaml:"hold_duration"`

	// HesiodConf points to the hesiod.conf(5) file carrying lhs/rhs.
	HesiodConf string `yaml:"hesiod_conf"`

	// Readme optionally replaces the built-in README.txt content with the
	// content of the given file.
	Readme string `yaml:"readme"`

	// Kernel cache timeouts. Empty means no caching.
	EntryTimeout string `yaml:"entry_timeout"`
	AttrTimeout  string `yaml:"attr_timeout"`

	AllowNonEmpty bool `yaml:"allow_nonempty"`

	Log      string `yaml:"log"`
	LogLevel string `yaml:"log_level"`
	Syslog   bool   `yaml:"syslog"`
}

// Default returns the configuration hesiodfs runs with when nothing else is
// specified.
func Default() *Config {
	return &Config{
		MountPoint:   DefaultMountPoint,
		HoldDuration: DefaultHoldDuration,
		HesiodConf:   DefaultHesiodConf,
		Log:          DefaultLog,
		LogLevel:     DefaultLogLevel,
	}
}

// LoadFile overlays the content of the YAML file at path on top of the
// defaults. Keys absent from the file keep their default value.
func LoadFile(fs afero.Fs, path string) (*Config, error) {

	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %v: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {

	if c.MountPoint == "" {
		return fmt.Errorf("mountpoint is required")
	}

	if _, err := c.Hold(); err != nil {
		return err
	}
	if _, err := c.EntryValid(); err != nil {
		return err
	}
	if _, err := c.AttrValid(); err != nil {
		return err
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "error", "fatal":
	default:
		return fmt.Errorf("log_level %q not recognized", c.LogLevel)
	}

	return nil
}

func (c *Config) Hold() (time.Duration, error) {

	d, err := parseDuration("hold_duration", c.HoldDuration)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("hold_duration must be positive, got %v", c.HoldDuration)
	}

	return d, nil
}

func (c *Config) EntryValid() (time.Duration, error) {
	return parseDuration("entry_timeout", c.EntryTimeout)
}

func (c *Config) AttrValid() (time.Duration, error) {
	return parseDuration("attr_timeout", c.AttrTimeout)
}

func parseDuration(key string, val string) (time.Duration, error) {

	if val == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%v must not be negative, got %v", key, val)
	}

	return d, nil
}
