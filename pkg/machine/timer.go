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
	"sync"
	"time"
)

// SystemTimer is the free-running system counter with one compare register
// wired to the Timer1 line. Time is virtual: it advances only when the
// platform advances it, which keeps timing deterministic under test.
type SystemTimer struct {
	mu sync.Mutex

	// now is the counter value in microseconds.
	now uint64

	// compare fires Timer1 when the counter reaches it.
	compare uint64
	armed   bool

	intc *Controller
}

// NewSystemTimer returns a timer asserting matches on the given controller.
func NewSystemTimer(intc *Controller) *SystemTimer {
	return &SystemTimer{intc: intc}
}

// Read returns the current counter value.
func (t *SystemTimer) Read() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.now) * time.Microsecond
}

// TickIn arms the compare register to fire after d. Re-arming replaces any
// previous deadline.
func (t *SystemTimer) TickIn(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.compare = t.now + uint64(d.Microseconds())
	t.armed = true
}

// Advance moves the counter forward by d, asserting Timer1 if the compare
// value is crossed.
func (t *SystemTimer) Advance(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now += uint64(d.Microseconds())
	if t.armed && t.now >= t.compare {
		t.armed = false
		t.intc.Assert(Timer1)
	}
}
