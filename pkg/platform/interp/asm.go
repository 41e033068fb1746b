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

package interp

import (
	"encoding/binary"
)

// opcode identifies one interpreter instruction. The encoding is four bytes,
// little endian: opcode, destination register, 16-bit immediate.
type opcode uint8

const (
	opNop opcode = iota
	opMovi
	opLsli
	opAddi
	opSubi
	opMovr
	opAddr
	opB
	opBnz
	opSvc
	opBrk
)

// Program assembles an image for the interpreter. It exists so tests and
// sample images can be written as code instead of hex dumps.
type Program struct {
	words []uint32
}

func (p *Program) emit(op opcode, rd int, imm uint16) *Program {
	p.words = append(p.words, uint32(op)|uint32(rd&0xff)<<8|uint32(imm)<<16)
	return p
}

// Nop does nothing for one instruction.
func (p *Program) Nop() *Program { return p.emit(opNop, 0, 0) }

// Movi sets xd to an immediate.
func (p *Program) Movi(rd int, imm uint16) *Program { return p.emit(opMovi, rd, imm) }

// Lsli shifts xd left by an immediate.
func (p *Program) Lsli(rd int, imm uint16) *Program { return p.emit(opLsli, rd, imm) }

// Addi adds an immediate to xd.
func (p *Program) Addi(rd int, imm uint16) *Program { return p.emit(opAddi, rd, imm) }

// Subi subtracts an immediate from xd.
func (p *Program) Subi(rd int, imm uint16) *Program { return p.emit(opSubi, rd, imm) }

// Movr copies xs into xd.
func (p *Program) Movr(rd, rs int) *Program { return p.emit(opMovr, rd, uint16(rs&0xff)) }

// Addr adds xs to xd.
func (p *Program) Addr(rd, rs int) *Program { return p.emit(opAddr, rd, uint16(rs&0xff)) }

// B branches by a signed instruction offset relative to itself.
func (p *Program) B(offset int16) *Program { return p.emit(opB, 0, uint16(offset)) }

// Bnz branches by a signed instruction offset if xd is nonzero.
func (p *Program) Bnz(rd int, offset int16) *Program { return p.emit(opBnz, rd, uint16(offset)) }

// Svc raises a supervisor call with the given immediate.
func (p *Program) Svc(num uint16) *Program { return p.emit(opSvc, 0, num) }

// Brk raises a breakpoint with the given immediate.
func (p *Program) Brk(num uint16) *Program { return p.emit(opBrk, 0, num) }

// Len returns the number of assembled instructions.
func (p *Program) Len() int { return len(p.words) }

// Bytes returns the assembled image.
func (p *Program) Bytes() []byte {
	out := make([]byte, 4*len(p.words))
	for i, w := range p.words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}
