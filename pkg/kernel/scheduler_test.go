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
	"errors"
	"testing"
	"time"

	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/pagetables"
	"kestrel.dev/kestrel/pkg/physmem"
)

func testRAM(t *testing.T, pages uint64) *physmem.Memory {
	t.Helper()
	ram, err := physmem.New(pages * memarch.PageSize)
	if err != nil {
		t.Fatalf("physmem.New: %v", err)
	}
	t.Cleanup(ram.Destroy)
	return ram
}

func newTestProcess(t *testing.T, ram *physmem.Memory) *Process {
	t.Helper()
	p, err := NewProcess(ram)
	if err != nil {
		t.Fatalf("NewProcess: %v", err)
	}
	return p
}

func TestAddAssignsMonotonicIDs(t *testing.T) {
	ram := testRAM(t, 64)
	s := NewScheduler(func() time.Duration { return 0 })
	for want := uint64(1); want <= 3; want++ {
		p := newTestProcess(t, ram)
		id, err := s.Add(p)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if id != want {
			t.Errorf("Add assigned id %d, want %d", id, want)
		}
		if p.Context.TPIDR != want {
			t.Errorf("Add stored TPIDR %d, want %d", p.Context.TPIDR, want)
		}
	}
	if got := s.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestRoundRobinRotation(t *testing.T) {
	ram := testRAM(t, 64)
	s := NewScheduler(func() time.Duration { return 0 })
	for i := 0; i < 3; i++ {
		if _, err := s.Add(newTestProcess(t, ram)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var tf arch.TrapFrame
	want := []uint64{1, 2, 3, 1, 2, 3}
	for turn, wantID := range want {
		id, ok := s.SwitchTo(&tf)
		if !ok {
			t.Fatalf("turn %d: SwitchTo found nothing ready", turn)
		}
		if id != wantID {
			t.Fatalf("turn %d: scheduled process %d, want %d", turn, id, wantID)
		}
		if !s.ScheduleOut(Ready, nil, &tf) {
			t.Fatalf("turn %d: ScheduleOut found no running process", turn)
		}
	}
}

func TestSwitchRestoresSavedFrame(t *testing.T) {
	ram := testRAM(t, 64)
	s := NewScheduler(func() time.Duration { return 0 })
	p := newTestProcess(t, ram)
	p.Context.ELR = 0x4000
	p.Context.SP = 0xfff0
	for i := range p.Context.X {
		p.Context.X[i] = uint64(i) << 8
	}
	if _, err := s.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(newTestProcess(t, ram)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var tf arch.TrapFrame
	if _, ok := s.SwitchTo(&tf); !ok {
		t.Fatalf("SwitchTo found nothing ready")
	}
	// Run for a while, trap, and get switched out with modified state.
	tf.ELR = 0x4044
	tf.X[0] = 0xdead
	saved := tf
	if !s.ScheduleOut(Ready, nil, &tf) {
		t.Fatalf("ScheduleOut found no running process")
	}

	// Second process takes a turn and trashes the live frame.
	if id, ok := s.SwitchTo(&tf); !ok || id != 2 {
		t.Fatalf("SwitchTo = (%d, %v), want process 2", id, ok)
	}
	tf.X[0] = 0xbeef
	s.ScheduleOut(Ready, nil, &tf)

	if id, ok := s.SwitchTo(&tf); !ok || id != 1 {
		t.Fatalf("SwitchTo = (%d, %v), want process 1", id, ok)
	}
	if tf != saved {
		t.Errorf("restored frame differs from saved frame:\ngot  %v\nwant %v", &tf, &saved)
	}
}

func TestSleepWake(t *testing.T) {
	ram := testRAM(t, 64)
	var now time.Duration
	s := NewScheduler(func() time.Duration { return now })
	if _, err := s.Add(newTestProcess(t, ram)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var tf arch.TrapFrame
	if _, ok := s.SwitchTo(&tf); !ok {
		t.Fatalf("SwitchTo found nothing ready")
	}
	wait := &WaitReason{Start: now, Deadline: 30 * time.Millisecond}
	if !s.ScheduleOut(Waiting, wait, &tf) {
		t.Fatalf("ScheduleOut found no running process")
	}

	now = 29 * time.Millisecond
	if id, ok := s.SwitchTo(&tf); ok {
		t.Fatalf("process %d scheduled before its deadline", id)
	}

	now = 35 * time.Millisecond
	id, ok := s.SwitchTo(&tf)
	if !ok {
		t.Fatalf("process not scheduled after its deadline")
	}
	if id != 1 {
		t.Fatalf("scheduled process %d, want 1", id)
	}
	if got := tf.X[0]; got != 35 {
		t.Errorf("woke with x0 = %d ms elapsed, want 35", got)
	}
	if got := Status(tf.X[7]); got != StatusOk {
		t.Errorf("woke with x7 = %v, want %v", got, StatusOk)
	}
}

func TestKillReclaimsProcess(t *testing.T) {
	ram := testRAM(t, 64)
	before := ram.Available()
	s := NewScheduler(func() time.Duration { return 0 })

	p := newTestProcess(t, ram)
	if _, err := p.Space.Alloc(memarch.VirtualAddr(memarch.UserImageBase), pagetables.UserRW); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := s.Add(p); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var tf arch.TrapFrame
	if _, ok := s.SwitchTo(&tf); !ok {
		t.Fatalf("SwitchTo found nothing ready")
	}
	id, ok := s.Kill(&tf)
	if !ok {
		t.Fatalf("Kill found no running process")
	}
	if id != 1 {
		t.Errorf("Kill returned id %d, want 1", id)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("Len() = %d after Kill, want 0", got)
	}
	if got := ram.Available(); got != before {
		t.Errorf("killed process leaked pages: %d available, want %d", got, before)
	}
}

func TestSwitchCompound(t *testing.T) {
	ram := testRAM(t, 64)
	s := NewScheduler(func() time.Duration { return 0 })
	for i := 0; i < 2; i++ {
		if _, err := s.Add(newTestProcess(t, ram)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	var tf arch.TrapFrame
	if id, ok := s.SwitchTo(&tf); !ok || id != 1 {
		t.Fatalf("SwitchTo = (%d, %v), want process 1", id, ok)
	}

	// A timer tick: the running process rotates out ready, the other runs.
	id, ok := s.Switch(Ready, nil, &tf)
	if !ok {
		t.Fatalf("Switch found nothing ready")
	}
	if id != 2 {
		t.Fatalf("Switch picked process %d, want 2", id)
	}
	if s.procs[0].state != Running || s.procs[0].Context.TPIDR != 2 {
		t.Errorf("queue front is %v process %d, want running 2", s.procs[0].state, s.procs[0].Context.TPIDR)
	}
	if s.procs[1].state != Ready || s.procs[1].Context.TPIDR != 1 {
		t.Errorf("queue back is %v process %d, want ready 1", s.procs[1].state, s.procs[1].Context.TPIDR)
	}
}

func TestQueueInvariant(t *testing.T) {
	ram := testRAM(t, 64)
	var now time.Duration
	s := NewScheduler(func() time.Duration { return now })

	check := func(step string) {
		t.Helper()
		seen := make(map[uint64]bool)
		running := 0
		for _, p := range s.procs {
			if seen[p.Context.TPIDR] {
				t.Fatalf("%s: process %d queued twice", step, p.Context.TPIDR)
			}
			seen[p.Context.TPIDR] = true
			if p.state == Running {
				running++
			}
		}
		if running > 1 {
			t.Fatalf("%s: %d processes running, want at most 1", step, running)
		}
	}

	var tf arch.TrapFrame
	for i := 0; i < 4; i++ {
		if _, err := s.Add(newTestProcess(t, ram)); err != nil {
			t.Fatalf("Add: %v", err)
		}
		check("add")
	}
	for i := 0; i < 6; i++ {
		if _, ok := s.SwitchTo(&tf); !ok {
			t.Fatalf("SwitchTo found nothing ready")
		}
		check("switch-to")
		switch i % 3 {
		case 0:
			s.Switch(Ready, nil, &tf)
		case 1:
			s.ScheduleOut(Waiting, &WaitReason{Deadline: now + time.Millisecond}, &tf)
			now += 2 * time.Millisecond
		case 2:
			s.Kill(&tf)
		}
		check("rotate")
	}
}

func TestAddExhaustedIDs(t *testing.T) {
	ram := testRAM(t, 64)
	s := NewScheduler(func() time.Duration { return 0 })
	s.lastID = ^uint64(0)
	if _, err := s.Add(newTestProcess(t, ram)); !errors.Is(err, ErrNoProcessIDs) {
		t.Errorf("Add with exhausted counter: err = %v, want %v", err, ErrNoProcessIDs)
	}
	if got := s.Len(); got != 0 {
		t.Errorf("failed Add queued a process: Len() = %d", got)
	}
}

func TestScheduleOutUnknownFrame(t *testing.T) {
	ram := testRAM(t, 64)
	s := NewScheduler(func() time.Duration { return 0 })
	if _, err := s.Add(newTestProcess(t, ram)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	tf := arch.TrapFrame{TPIDR: 99}
	if s.ScheduleOut(Ready, nil, &tf) {
		t.Errorf("ScheduleOut matched a frame belonging to no running process")
	}
	if _, ok := s.Kill(&tf); ok {
		t.Errorf("Kill matched a frame belonging to no running process")
	}
}
