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

package machine

import (
	"bytes"
	"testing"
	"time"

	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/physmem"
)

func testMachine(t *testing.T, cores int) *Machine {
	t.Helper()
	ram, err := physmem.New(16 * memarch.PageSize)
	if err != nil {
		t.Fatalf("physmem.New: %v", err)
	}
	t.Cleanup(ram.Destroy)
	m, err := New(Config{RAM: ram, Cores: cores, Console: NewConsole(&bytes.Buffer{})})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestControllerMasking(t *testing.T) {
	c := NewController()

	c.Assert(Timer1)
	if c.IsPending(Timer1) {
		t.Errorf("disabled line reported pending")
	}

	c.Enable(Timer1)
	if !c.IsPending(Timer1) {
		t.Errorf("asserted and enabled line not pending")
	}
	if got := c.Pending(); got != 1<<Timer1 {
		t.Errorf("Pending() = %#x, want %#x", got, uint64(1)<<Timer1)
	}

	c.Clear(Timer1)
	if c.IsPending(Timer1) {
		t.Errorf("cleared line still pending")
	}

	c.Assert(Uart)
	c.Enable(Uart)
	c.Disable(Uart)
	if c.IsPending(Uart) {
		t.Errorf("re-masked line still pending")
	}
}

func TestTimerCompare(t *testing.T) {
	intc := NewController()
	intc.Enable(Timer1)
	tm := NewSystemTimer(intc)

	tm.TickIn(10 * time.Millisecond)
	tm.Advance(9 * time.Millisecond)
	if intc.IsPending(Timer1) {
		t.Fatalf("timer fired before the compare value")
	}
	tm.Advance(1 * time.Millisecond)
	if !intc.IsPending(Timer1) {
		t.Fatalf("timer did not fire at the compare value")
	}
	if got := tm.Read(); got != 10*time.Millisecond {
		t.Errorf("Read() = %v, want 10ms", got)
	}

	// One shot until re-armed.
	intc.Clear(Timer1)
	tm.Advance(50 * time.Millisecond)
	if intc.IsPending(Timer1) {
		t.Errorf("timer fired again without re-arming")
	}
	tm.TickIn(5 * time.Millisecond)
	tm.Advance(5 * time.Millisecond)
	if !intc.IsPending(Timer1) {
		t.Errorf("re-armed timer did not fire")
	}
}

func TestSecondaryWake(t *testing.T) {
	m := testMachine(t, 4)

	const entry = 0x80000
	got := make(chan uint64, m.NumCores()-1)
	for id := 1; id < m.NumCores(); id++ {
		go func(c *Core) {
			got <- c.WaitForWake()
		}(m.Core(id))
	}

	m.WakeSecondaries(entry)
	for i := 1; i < m.NumCores(); i++ {
		select {
		case e := <-got:
			if e != entry {
				t.Errorf("secondary woke with entry %#x, want %#x", e, uint64(entry))
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("secondary core never woke")
		}
	}
}

func TestEventOrdering(t *testing.T) {
	m := testMachine(t, 2)
	core := m.Core(1)

	// An event raised before the wait is latched, not lost.
	m.SendEvent()

	released := make(chan struct{})
	go func() {
		core.WaitForEvent()
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(5 * time.Second):
		t.Fatalf("WaitForEvent did not consume a latched event")
	}

	// The wait consumed the latch; the next wait blocks until a new event.
	second := make(chan struct{})
	go func() {
		core.WaitForEvent()
		close(second)
	}()
	select {
	case <-second:
		t.Fatalf("WaitForEvent returned without a pending event")
	case <-time.After(50 * time.Millisecond):
	}
	m.SendEvent()
	select {
	case <-second:
	case <-time.After(5 * time.Second):
		t.Fatalf("WaitForEvent never returned after SendEvent")
	}
}
