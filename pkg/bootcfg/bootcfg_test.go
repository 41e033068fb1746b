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

package bootcfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kestrel.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
ram-size = 4194304
cores = 2
tick = "5ms"
image-root = "/images"
programs = ["init", "shell"]
debug = true
`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		RAMSize:   4 << 20,
		Cores:     2,
		Tick:      Duration(5 * time.Millisecond),
		ImageRoot: "/images",
		Programs:  []string{"init", "shell"},
		Debug:     true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `programs = ["init"]`)
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if got.RAMSize != def.RAMSize || got.Cores != def.Cores || got.Tick != def.Tick || got.ImageRoot != def.ImageRoot {
		t.Errorf("unset fields not defaulted: got %+v", got)
	}
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		contents string
	}{
		{"unaligned ram", `ram-size = 12345` + "\n" + `programs = ["init"]`},
		{"zero cores", `cores = 0` + "\n" + `programs = ["init"]`},
		{"bad tick", `tick = "0s"` + "\n" + `programs = ["init"]`},
		{"no programs", `cores = 2`},
		{"malformed", `cores = [`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.contents)); err == nil {
				t.Errorf("Load accepted %q", tc.contents)
			}
		})
	}
}
