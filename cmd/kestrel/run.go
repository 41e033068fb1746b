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
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"kestrel.dev/kestrel/pkg/bootcfg"
	"kestrel.dev/kestrel/pkg/kernel"
	"kestrel.dev/kestrel/pkg/log"
	"kestrel.dev/kestrel/pkg/machine"
	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/physmem"
	"kestrel.dev/kestrel/pkg/platform/interp"
)

// runCmd implements subcommands.Command for the "run" command.
type runCmd struct {
	config string
	debug  bool
}

// Name implements subcommands.Command.Name.
func (*runCmd) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*runCmd) Synopsis() string {
	return "boot a machine and run the configured programs"
}

// Usage implements subcommands.Command.Usage.
func (*runCmd) Usage() string {
	return `run [flags] - boot a machine and run the configured programs
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.config, "config", "kestrel.toml", "boot configuration file")
	f.BoolVar(&r.debug, "debug", false, "enable debug logging")
}

// Execute implements subcommands.Command.Execute.
func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	cfg, err := bootcfg.Load(r.config)
	if err != nil {
		return fail("%v", err)
	}
	if r.debug || cfg.Debug {
		log.SetLevel(log.Debug)
	}

	ram, err := physmem.New(cfg.RAMSize)
	if err != nil {
		return fail("%v", err)
	}
	defer ram.Destroy()

	m, err := machine.New(machine.Config{
		RAM:     ram,
		Cores:   cfg.Cores,
		Console: machine.NewConsole(os.Stdout),
		FS:      &machine.HostFS{Root: cfg.ImageRoot},
	})
	if err != nil {
		return fail("%v", err)
	}
	k, err := kernel.New(m, interp.New(m), kernel.Config{
		Tick:    time.Duration(cfg.Tick),
		IOStart: machine.IOBase,
		IOEnd:   machine.IOBase + memarch.PhysicalAddr(machine.IOSize),
	})
	if err != nil {
		return fail("%v", err)
	}
	for _, prog := range cfg.Programs {
		if _, err := k.Spawn(prog); err != nil {
			return fail("spawning %s: %v", prog, err)
		}
	}
	if err := k.Run(ctx); err != nil {
		return fail("%v", err)
	}
	return subcommands.ExitSuccess
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	return subcommands.ExitFailure
}
