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

package kernel

import (
	"fmt"
	"io"
	"time"

	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/machine"
	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/pagetables"
	"kestrel.dev/kestrel/pkg/physmem"
)

// State is the scheduling state of a process.
type State int

const (
	// Ready means the process can run as soon as it is picked.
	Ready State = iota

	// Running means the process owns a core right now.
	Running

	// Waiting means the process is blocked until its wait reason clears.
	Waiting

	// Dead means the process has exited and is being reclaimed.
	Dead
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Dead:
		return "dead"
	default:
		return "state(?)"
	}
}

// WaitReason describes what a waiting process is blocked on. The only wait
// today is sleep: the process becomes ready when the clock reaches Deadline,
// and its wake-up return values are derived from Start.
type WaitReason struct {
	Start    time.Duration
	Deadline time.Duration
}

// Process is one user program: its saved register state and its address
// space. All fields are owned by the scheduler once the process is added.
type Process struct {
	// Context is the saved trap frame. While the process runs, the live
	// copy is the frame on the core's exception stack; Context is stale
	// until the next schedule-out.
	Context *arch.TrapFrame

	// Space is the process's address space.
	Space *pagetables.PageTables

	state State
	wait  *WaitReason
}

// NewProcess returns a process with an empty address space and a zero frame.
// The caller must Load it before adding it to a scheduler, and must release
// the space if loading fails.
func NewProcess(alloc physmem.Allocator) (*Process, error) {
	space, err := pagetables.New(alloc)
	if err != nil {
		return nil, err
	}
	return &Process{
		Context: new(arch.TrapFrame),
		Space:   space,
		state:   Ready,
	}, nil
}

// Load reads the program image at path into the process's address space and
// prepares the trap frame for first entry: execution starts at the image
// base with a fresh stack, user mode, interrupts unmasked, and the kernel
// identity map alongside the process's own tables.
func (p *Process) Load(fsys machine.FileSystem, path string, kernelRoot memarch.PhysicalAddr) error {
	f, err := fsys.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	size := f.Size()
	if size == 0 {
		return fmt.Errorf("%s: empty program image", path)
	}

	if _, err := p.Space.Alloc(memarch.VirtualAddr(memarch.UserStackBase), pagetables.UserRW); err != nil {
		return fmt.Errorf("allocating stack: %w", err)
	}

	va := memarch.VirtualAddr(memarch.UserImageBase)
	for off := int64(0); off < size; off += memarch.PageSize {
		page, err := p.Space.Alloc(va, pagetables.UserRWX)
		if err != nil {
			return fmt.Errorf("allocating image page: %w", err)
		}
		n := int64(len(page))
		if rem := size - off; rem < n {
			n = rem
		}
		if _, err := io.ReadFull(f, page[:n]); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		va += memarch.PageSize
	}

	tf := p.Context
	tf.ELR = memarch.UserImageBase
	tf.SP = memarch.UserStackTop
	tf.SPSR = arch.UserSPSR
	tf.TTBR0 = uint64(kernelRoot)
	tf.TTBR1 = uint64(p.Space.Root())
	return nil
}

// isReady reports whether the process can run at the given time, waking it
// if its wait has expired. Waking a sleeper delivers its return values: the
// elapsed time in x0 and success in x7.
func (p *Process) isReady(now time.Duration) bool {
	switch p.state {
	case Ready:
		return true
	case Waiting:
		if p.wait != nil && now >= p.wait.Deadline {
			p.Context.X[0] = uint64((now - p.wait.Start).Milliseconds())
			p.Context.X[7] = uint64(StatusOk)
			p.wait = nil
			p.state = Ready
			return true
		}
	}
	return false
}
