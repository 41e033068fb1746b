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

// Package machine models the board: physical memory, the interrupt
// controller, the system timer, the serial console, the boot filesystem and
// the cores with their wake mailboxes.
package machine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"kestrel.dev/kestrel/pkg/physmem"
)

// Physical placement of the memory-mapped peripherals.
const (
	// IOBase is the start of the peripheral window.
	IOBase = 0x3f000000

	// IOSize is the size of the peripheral window.
	IOSize = 0x01000000
)

// Core is one processing element. Secondary cores come out of reset parked,
// spinning on their mailbox under wfe until the primary posts an entry point
// and signals an event.
type Core struct {
	// ID is the core number. Core 0 is the primary.
	ID int

	m       *Machine
	mailbox atomic.Uint64

	// event is the latched event register. An event raised while the core
	// is running satisfies its next wait.
	event bool
}

// Machine is the whole board.
type Machine struct {
	RAM     *physmem.Memory
	Intc    *Controller
	Timer   *SystemTimer
	Console *Console
	FS      FileSystem

	cores []*Core

	// evMu and evCond guard the per-core event registers behind sev
	// and wfe.
	evMu   sync.Mutex
	evCond *sync.Cond
}

// Config configures a new machine.
type Config struct {
	// RAM is the physical memory. Ownership passes to the machine.
	RAM *physmem.Memory

	// Cores is the number of cores, at least 1.
	Cores int

	// Console is the serial sink.
	Console *Console

	// FS is the boot filesystem.
	FS FileSystem
}

// New assembles a machine.
func New(cfg Config) (*Machine, error) {
	if cfg.Cores < 1 {
		return nil, fmt.Errorf("machine needs at least one core, got %d", cfg.Cores)
	}
	m := &Machine{
		RAM:     cfg.RAM,
		Intc:    NewController(),
		Console: cfg.Console,
		FS:      cfg.FS,
	}
	m.Timer = NewSystemTimer(m.Intc)
	m.evCond = sync.NewCond(&m.evMu)
	for i := 0; i < cfg.Cores; i++ {
		m.cores = append(m.cores, &Core{ID: i, m: m})
	}
	return m, nil
}

// NumCores returns the number of cores.
func (m *Machine) NumCores() int {
	return len(m.cores)
}

// Core returns core id.
func (m *Machine) Core(id int) *Core {
	return m.cores[id]
}

// SendEvent latches the event register of every core and wakes any blocked
// in WaitForEvent. sev.
func (m *Machine) SendEvent() {
	m.evMu.Lock()
	for _, c := range m.cores {
		c.event = true
	}
	m.evCond.Broadcast()
	m.evMu.Unlock()
}

// WaitForEvent consumes the core's latched event, blocking until one is
// raised. An event sent before the wait satisfies it immediately. wfe.
func (c *Core) WaitForEvent() {
	m := c.m
	m.evMu.Lock()
	for !c.event {
		m.evCond.Wait()
	}
	c.event = false
	m.evMu.Unlock()
}

// WakeSecondaries posts entry to every secondary mailbox and signals an
// event, releasing the parked cores. Called once by the primary after the
// kernel is ready to schedule on all cores.
func (m *Machine) WakeSecondaries(entry uint64) {
	for _, c := range m.cores[1:] {
		c.mailbox.Store(entry)
	}
	m.SendEvent()
}

// WaitForWake parks the core until its mailbox is posted, then returns the
// posted entry point.
func (c *Core) WaitForWake() uint64 {
	for {
		if entry := c.mailbox.Load(); entry != 0 {
			return entry
		}
		c.WaitForEvent()
	}
}
