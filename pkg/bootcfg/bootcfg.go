// Copyright 2026 The Kestrel Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bootcfg loads the boot configuration: machine shape and the
// programs to start.
package bootcfg

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"kestrel.dev/kestrel/pkg/memarch"
)

// Duration is a time.Duration that unmarshals from strings like "10ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config is the boot configuration.
type Config struct {
	// RAMSize is the physical memory size in bytes. Must be a multiple of
	// the page size.
	RAMSize uint64 `toml:"ram-size"`

	// Cores is the number of cores to bring up.
	Cores int `toml:"cores"`

	// Tick is the preemption quantum.
	Tick Duration `toml:"tick"`

	// ImageRoot is the directory program images are loaded from.
	ImageRoot string `toml:"image-root"`

	// Programs are the images started at boot, in order.
	Programs []string `toml:"programs"`

	// Debug enables debug logging.
	Debug bool `toml:"debug"`
}

// Default returns the configuration used when a field is not set.
func Default() Config {
	return Config{
		RAMSize:   64 << 20,
		Cores:     4,
		Tick:      Duration(10 * time.Millisecond),
		ImageRoot: ".",
	}
}

// Load reads the configuration at path, filling unset fields from Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for nonsense.
func (c Config) Validate() error {
	if c.RAMSize == 0 || c.RAMSize%memarch.PageSize != 0 {
		return fmt.Errorf("ram-size %d is not a positive multiple of the %d-byte page", c.RAMSize, memarch.PageSize)
	}
	if c.Cores < 1 {
		return fmt.Errorf("cores must be at least 1, got %d", c.Cores)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %v", time.Duration(c.Tick))
	}
	if len(c.Programs) == 0 {
		return fmt.Errorf("no programs to run")
	}
	return nil
}
