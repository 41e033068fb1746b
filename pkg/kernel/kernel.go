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

// Package kernel implements process execution: the round-robin scheduler,
// the system call surface, and the trap dispatcher that ties user exceptions
// back to both.
package kernel

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/log"
	"kestrel.dev/kestrel/pkg/machine"
	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/pagetables"
	"kestrel.dev/kestrel/pkg/platform"
)

// DefaultTick is the preemption quantum when the configuration does not set
// one.
const DefaultTick = 10 * time.Millisecond

// kernelEntry is the address secondary cores are told to jump to when the
// primary releases them from their parking loop.
const kernelEntry = 0x80000

// Config configures a kernel.
type Config struct {
	// Tick is the preemption quantum. Zero means DefaultTick.
	Tick time.Duration

	// IOStart and IOEnd bound the peripheral window mapped as device
	// memory in the kernel identity map.
	IOStart, IOEnd memarch.PhysicalAddr
}

// Kernel owns the machine and runs processes on it.
type Kernel struct {
	machine *machine.Machine
	plat    platform.Platform

	// kernPT is the identity map shared by every core, built once.
	kernPT *pagetables.PageTables

	sched *Scheduler
	irqs  irqRegistry
	tick  time.Duration

	stopped atomic.Bool
}

// New builds a kernel on the given machine: the identity map is constructed
// and the scheduler wired to the system timer. No process runs until Run.
func New(m *machine.Machine, plat platform.Platform, cfg Config) (*Kernel, error) {
	tick := cfg.Tick
	if tick == 0 {
		tick = DefaultTick
	}
	kernPT, err := pagetables.NewKernel(m.RAM, m.RAM.Size(), cfg.IOStart, cfg.IOEnd)
	if err != nil {
		return nil, fmt.Errorf("building identity map: %w", err)
	}
	return &Kernel{
		machine: m,
		plat:    plat,
		kernPT:  kernPT,
		sched:   NewScheduler(m.Timer.Read),
		tick:    tick,
	}, nil
}

// Spawn loads the program at path into a fresh process and queues it.
func (k *Kernel) Spawn(path string) (uint64, error) {
	p, err := NewProcess(k.machine.RAM)
	if err != nil {
		return 0, err
	}
	if err := p.Load(k.machine.FS, path, k.kernPT.Root()); err != nil {
		p.Space.Release()
		return 0, err
	}
	id, err := k.sched.Add(p)
	if err != nil {
		p.Space.Release()
		return 0, err
	}
	log.Infof("spawned %s as process %d", path, id)
	return id, nil
}

// Run brings up every core and schedules until all processes have exited or
// ctx is cancelled. Core 0 runs the scheduler; secondary cores are woken
// from their mailboxes and park until shutdown.
func (k *Kernel) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	go func() {
		<-ctx.Done()
		k.shutdown()
	}()
	for id := 0; id < k.machine.NumCores(); id++ {
		core := k.machine.Core(id)
		if id == 0 {
			g.Go(func() error { return k.runPrimary(core) })
		} else {
			g.Go(func() error { return k.runSecondary(core) })
		}
	}
	return g.Wait()
}

func (k *Kernel) shutdown() {
	k.stopped.Store(true)
	k.machine.SendEvent()
}

func (k *Kernel) runPrimary(core *machine.Core) error {
	defer k.shutdown()

	k.irqs.register(machine.Timer1, func(tf *arch.TrapFrame) {
		k.machine.Intc.Clear(machine.Timer1)
		k.machine.Timer.TickIn(k.tick)
		k.preempt(core, tf)
	})
	k.machine.Intc.Enable(machine.Timer1)
	k.machine.Timer.TickIn(k.tick)
	k.machine.WakeSecondaries(kernelEntry)

	tf := new(arch.TrapFrame)
	if !k.switchTo(core, tf) {
		log.Warningf("nothing to schedule")
		return nil
	}
	cpu := k.plat.NewContext(core.ID)
	for !k.stopped.Load() {
		trap := cpu.Resume(tf)
		if !k.handleException(core, trap, tf) {
			log.Infof("all processes exited")
			return nil
		}
	}
	return nil
}

// runSecondary parks a woken core. Scheduling stays on core 0; the
// secondaries exist so the boot protocol and the event plumbing are real.
func (k *Kernel) runSecondary(core *machine.Core) error {
	entry := core.WaitForWake()
	log.Debugf("core %d online at %#x", core.ID, entry)
	for !k.stopped.Load() {
		core.WaitForEvent()
	}
	return nil
}

// switchTo restores the next ready process into tf, idling until one wakes.
// Returns false when no process remains at all.
func (k *Kernel) switchTo(core *machine.Core, tf *arch.TrapFrame) bool {
	for {
		if _, ok := k.sched.SwitchTo(tf); ok {
			return true
		}
		if k.sched.Len() == 0 {
			return false
		}
		if k.stopped.Load() {
			return false
		}
		k.plat.Idle(core.ID)
	}
}

// preempt rotates the running process to the back of the queue and restores
// the next one. The outgoing process stays ready, so there is always
// something to switch to.
func (k *Kernel) preempt(core *machine.Core, tf *arch.TrapFrame) {
	if _, ok := k.sched.Switch(Ready, nil, tf); !ok {
		k.switchTo(core, tf)
	}
}
