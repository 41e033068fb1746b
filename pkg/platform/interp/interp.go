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

// Package interp is the host execution substrate: a small interpreter that
// runs program images out of guest memory. Instructions are fetched through
// the same translation tables a hardware walk would use, permissions
// included, so address spaces and traps behave like the real thing. Time is
// virtual and advances one microsecond per instruction.
package interp

import (
	"encoding/binary"
	"time"

	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/machine"
	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/pagetables"
	"kestrel.dev/kestrel/pkg/platform"
)

// instrCost is the virtual time one instruction takes.
const instrCost = time.Microsecond

// idleQuantum is how far time advances per idle step while every process
// waits.
const idleQuantum = time.Millisecond

// Platform executes user code by interpretation.
type Platform struct {
	m *machine.Machine
}

// New returns a platform running on the given machine.
func New(m *machine.Machine) *Platform {
	return &Platform{m: m}
}

// NewContext implements platform.Platform.NewContext.
func (p *Platform) NewContext(cpu int) platform.Context {
	return &context{m: p.m}
}

// Idle implements platform.Platform.Idle.
func (p *Platform) Idle(cpu int) {
	p.m.Timer.Advance(idleQuantum)
}

type context struct {
	m *machine.Machine
}

// Resume implements platform.Context.Resume.
func (c *context) Resume(tf *arch.TrapFrame) platform.Trap {
	for {
		// Interrupts are taken at instruction boundaries, before the
		// next fetch.
		if !tf.IRQMasked() && c.m.Intc.Pending() != 0 {
			return platform.Trap{
				Info: arch.Info{Source: arch.LowerAArch64, Kind: arch.Irq},
			}
		}

		word, trap, ok := c.fetch(tf)
		if !ok {
			return trap
		}
		c.m.Timer.Advance(instrCost)
		if trap, ok := c.execute(tf, word); ok {
			return trap
		}
	}
}

// fetch reads the instruction at ELR through the frame's translation roots.
func (c *context) fetch(tf *arch.TrapFrame) (uint32, platform.Trap, bool) {
	va := memarch.VirtualAddr(tf.ELR)
	root := memarch.PhysicalAddr(tf.TTBR0)
	if va.IsUser() {
		root = memarch.PhysicalAddr(tf.TTBR1)
	}
	res, ok := pagetables.WalkPhysical(c.m.RAM, root, va)
	if !ok {
		return 0, c.abort(arch.InstructionAbortSyndrome(arch.FaultTranslation, res.Level)), false
	}
	if el0 := tf.SPSR&0xf == arch.SpsrModeEL0; el0 && !(res.User && res.Executable) {
		return 0, c.abort(arch.InstructionAbortSyndrome(arch.FaultPermission, res.Level)), false
	}
	return binary.LittleEndian.Uint32(c.m.RAM.Bytes(res.PA, arch.InstrSize)), platform.Trap{}, true
}

func (c *context) abort(esr uint32) platform.Trap {
	return platform.Trap{
		Info: arch.Info{Source: arch.LowerAArch64, Kind: arch.Synchronous},
		Esr:  esr,
	}
}

// execute runs one decoded instruction. The returned trap, if any, leaves
// ELR at the trapping instruction; everything else advances ELR itself.
func (c *context) execute(tf *arch.TrapFrame, word uint32) (platform.Trap, bool) {
	op := opcode(word & 0xff)
	rd := int((word >> 8) & 0xff)
	imm := uint16(word >> 16)
	if rd >= len(tf.X) {
		rd = 0
	}

	next := tf.ELR + arch.InstrSize
	switch op {
	case opNop:
	case opMovi:
		tf.X[rd] = uint64(imm)
	case opLsli:
		tf.X[rd] <<= imm & 63
	case opAddi:
		tf.X[rd] += uint64(imm)
	case opSubi:
		tf.X[rd] -= uint64(imm)
	case opMovr:
		tf.X[rd] = tf.X[imm&0xff]
	case opAddr:
		tf.X[rd] += tf.X[imm&0xff]
	case opB:
		next = branchTarget(tf.ELR, imm)
	case opBnz:
		if tf.X[rd] != 0 {
			next = branchTarget(tf.ELR, imm)
		}
	case opSvc:
		return c.abort(arch.SvcSyndrome(imm)), true
	case opBrk:
		return c.abort(arch.BrkSyndrome(imm)), true
	default:
		return c.abort(0), true
	}
	tf.ELR = next
	return platform.Trap{}, false
}

// branchTarget resolves a signed instruction-relative branch offset.
func branchTarget(pc uint64, imm uint16) uint64 {
	return pc + uint64(int64(int16(imm))*arch.InstrSize)
}
