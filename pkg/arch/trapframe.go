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

// Package arch defines the processor-facing data layouts: the trap frame
// exchanged at the exception boundary, the saved-program-status bits, and
// the decoding of exception syndromes.
package arch

import (
	"fmt"
	"unsafe"
)

// InstrSize is the width of one instruction. The saved program counter is
// advanced by this much to step past a trapping instruction.
const InstrSize = 4

// TrapFrameBytes is the size of the trap frame, including alignment padding.
// The exception entry code stores registers at fixed offsets from the frame
// base; the Go layout below and that code must agree exactly.
const TrapFrameBytes = 816

// TrapFrame is the complete register state a core had when it left user code,
// in the exact order the exception vectors save and restore it.
//
// Field order is a hardware contract. Do not reorder or resize fields.
type TrapFrame struct {
	// ELR is the exception link register: the address execution resumes at.
	ELR uint64

	// SPSR is the saved program status (mode and interrupt masks).
	SPSR uint64

	// SP is the saved stack pointer.
	SP uint64

	// TPIDR carries the scheduler-assigned process identifier.
	TPIDR uint64

	// TTBR0 is the translation base for the lower (kernel) range.
	TTBR0 uint64

	// TTBR1 is the translation base for the upper (user) range.
	TTBR1 uint64

	// Q holds the 32 SIMD registers, 128 bits each.
	Q [32][2]uint64

	// X holds general-purpose registers x0-x29.
	X [30]uint64

	// LR is x30, the link register.
	LR uint64

	// reserved pads the frame to its mandated 16-byte-aligned size.
	reserved uint64
}

// The exception vectors and TrapFrame must agree on size; a mismatch here is
// a silent corruption at the hardware boundary, so it fails the build.
var _ [TrapFrameBytes]byte = [unsafe.Sizeof(TrapFrame{})]byte{}

// String returns a compact register dump for diagnostics.
func (tf *TrapFrame) String() string {
	return fmt.Sprintf("elr=%#x spsr=%#x sp=%#x tpidr=%d ttbr0=%#x ttbr1=%#x x0=%#x x7=%#x lr=%#x",
		tf.ELR, tf.SPSR, tf.SP, tf.TPIDR, tf.TTBR0, tf.TTBR1, tf.X[0], tf.X[7], tf.LR)
}

// Saved program status bits (DAIF masks and mode field).
const (
	// SpsrD masks debug exceptions.
	SpsrD = uint64(1) << 9

	// SpsrA masks SError interrupts.
	SpsrA = uint64(1) << 8

	// SpsrI masks IRQs.
	SpsrI = uint64(1) << 7

	// SpsrF masks FIQs.
	SpsrF = uint64(1) << 6

	// SpsrModeEL0 is the mode field for unprivileged execution.
	SpsrModeEL0 = uint64(0)
)

// UserSPSR is the program status installed when entering a fresh user
// program: FIQ, SError and debug masked, IRQ left open so the periodic timer
// can preempt.
const UserSPSR = SpsrF | SpsrA | SpsrD | SpsrModeEL0

// IRQMasked returns true if the saved status masks IRQs.
func (tf *TrapFrame) IRQMasked() bool {
	return tf.SPSR&SpsrI != 0
}
