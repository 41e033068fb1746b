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

// Package platform defines the boundary between the kernel and whatever
// executes user instructions. The kernel hands a context a trap frame and
// gets it back, mutated, together with the exception that ended the run. It
// never sees how the instructions in between were executed.
package platform

import (
	"kestrel.dev/kestrel/pkg/arch"
)

// Trap describes why a Resume returned.
type Trap struct {
	// Info is the vector the exception arrived through.
	Info arch.Info

	// Esr is the raw syndrome register. Meaningful for synchronous
	// exceptions only.
	Esr uint32
}

// Context runs user code on one core.
type Context interface {
	// Resume enters user mode with the given trap frame and runs until the
	// next exception. On return the frame holds the interrupted user state
	// and the result describes the exception. ELR points at the
	// instruction that trapped; advancing past it is the dispatcher's
	// decision, not the platform's.
	Resume(tf *arch.TrapFrame) Trap
}

// Platform creates execution contexts, one per core.
type Platform interface {
	NewContext(cpu int) Context

	// Idle is the core's low-power wait while the kernel has nothing to
	// run: it returns once an interrupt or event may have become
	// deliverable. A platform with a virtual clock advances it here,
	// otherwise sleepers would never expire while every core idles.
	Idle(cpu int)
}
