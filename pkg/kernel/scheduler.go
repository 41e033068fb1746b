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
	"math"
	"sync"
	"time"

	"kestrel.dev/kestrel/pkg/arch"
)

// ErrNoProcessIDs is returned when the process ID counter is exhausted.
var ErrNoProcessIDs = errors.New("out of process ids")

// Scheduler is a round-robin run queue. The queue holds every live process;
// order is scheduling order. The running process sits at the front, switched
// out processes go to the back, so equal-priority processes take fair turns.
//
// A process is identified by the ID stored in its frame's TPIDR, which is how
// a trap frame is matched back to the process it belongs to.
type Scheduler struct {
	mu     sync.Mutex
	procs  []*Process
	lastID uint64

	// now reads the scheduling clock, used to wake expired sleepers.
	now func() time.Duration
}

// NewScheduler returns an empty scheduler reading time from now.
func NewScheduler(now func() time.Duration) *Scheduler {
	return &Scheduler{now: now}
}

// Add assigns the process an ID, marks it ready and queues it at the back.
// IDs are never reused; once the counter is exhausted no more processes can
// be created.
func (s *Scheduler) Add(p *Process) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastID == math.MaxUint64 {
		return 0, ErrNoProcessIDs
	}
	s.lastID++
	p.Context.TPIDR = s.lastID
	p.state = Ready
	s.procs = append(s.procs, p)
	return s.lastID, nil
}

// ScheduleOut takes the running process matching tf off the core: its state
// becomes newState, its frame is saved from tf, and it moves to the back of
// the queue. Returns false if no running process matches tf.
func (s *Scheduler) ScheduleOut(newState State, wait *WaitReason, tf *arch.TrapFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleOutLocked(newState, wait, tf)
}

func (s *Scheduler) scheduleOutLocked(newState State, wait *WaitReason, tf *arch.TrapFrame) bool {
	i := s.findRunning(tf)
	if i < 0 {
		return false
	}
	p := s.procs[i]
	p.state = newState
	p.wait = wait
	*p.Context = *tf
	copy(s.procs[i:], s.procs[i+1:])
	s.procs[len(s.procs)-1] = p
	return true
}

// SwitchTo picks the first ready process, marks it running, restores its
// frame into tf and moves it to the front of the queue. Returns false if no
// process is ready right now.
func (s *Scheduler) SwitchTo(tf *arch.TrapFrame) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.switchToLocked(tf)
}

func (s *Scheduler) switchToLocked(tf *arch.TrapFrame) (uint64, bool) {
	now := s.now()
	for i, p := range s.procs {
		if !p.isReady(now) {
			continue
		}
		p.state = Running
		copy(s.procs[1:i+1], s.procs[:i])
		s.procs[0] = p
		*tf = *p.Context
		return p.Context.TPIDR, true
	}
	return 0, false
}

// Switch is the compound switch used by yields and preemption: the running
// process is scheduled out into newState and the next ready one restored,
// under a single critical section so the pair is atomic to other cores.
// Returns false if nothing is ready; the caller must idle and retry SwitchTo.
func (s *Scheduler) Switch(newState State, wait *WaitReason, tf *arch.TrapFrame) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleOutLocked(newState, wait, tf)
	return s.switchToLocked(tf)
}

// Kill removes the running process matching tf from the queue and releases
// its address space. Returns the process ID, or false if no running process
// matches tf.
func (s *Scheduler) Kill(tf *arch.TrapFrame) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findRunning(tf)
	if i < 0 {
		return 0, false
	}
	p := s.procs[i]
	p.state = Dead
	s.procs = append(s.procs[:i], s.procs[i+1:]...)
	p.Space.Release()
	return p.Context.TPIDR, true
}

// Len returns the number of live processes.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

func (s *Scheduler) findRunning(tf *arch.TrapFrame) int {
	for i, p := range s.procs {
		if p.state == Running && p.Context.TPIDR == tf.TPIDR {
			return i
		}
	}
	return -1
}
