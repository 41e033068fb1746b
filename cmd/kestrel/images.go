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

package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"kestrel.dev/kestrel/pkg/kernel"
	"kestrel.dev/kestrel/pkg/platform/interp"
)

// imagesCmd writes the sample program images.
type imagesCmd struct {
	dir string
}

// Name implements subcommands.Command.Name.
func (*imagesCmd) Name() string {
	return "images"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*imagesCmd) Synopsis() string {
	return "write the sample program images"
}

// Usage implements subcommands.Command.Usage.
func (*imagesCmd) Usage() string {
	return `images [flags] - write the sample program images
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (i *imagesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&i.dir, "dir", ".", "directory to write images into")
}

// Execute implements subcommands.Command.Execute.
func (i *imagesCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	for name, prog := range sampleImages() {
		path := filepath.Join(i.dir, name)
		if err := os.WriteFile(path, prog.Bytes(), 0o644); err != nil {
			return fail("writing %s: %v", path, err)
		}
	}
	return subcommands.ExitSuccess
}

func sampleImages() map[string]*interp.Program {
	// hello prints a greeting and exits.
	hello := new(interp.Program)
	for _, b := range []byte("hello from user space\n") {
		hello.Movi(0, uint16(b)).Svc(kernel.NrWrite)
	}
	hello.Svc(kernel.NrExit)

	// heartbeat prints a dot once a second, five times.
	heartbeat := new(interp.Program).Movi(1, 5)
	heartbeat.Movi(0, 1000).Svc(kernel.NrSleep)
	heartbeat.Movi(0, '.').Svc(kernel.NrWrite)
	heartbeat.Subi(1, 1).Bnz(1, -5)
	heartbeat.Movi(0, '\n').Svc(kernel.NrWrite)
	heartbeat.Svc(kernel.NrExit)

	return map[string]*interp.Program{
		"hello":     hello,
		"heartbeat": heartbeat,
	}
}
