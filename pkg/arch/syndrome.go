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

package arch

import "fmt"

// Fault is the kind of a memory abort.
type Fault uint8

const (
	FaultAddressSize Fault = iota
	FaultTranslation
	FaultAccessFlag
	FaultPermission
	FaultAlignment
	FaultTlbConflict
	FaultOther
)

func (f Fault) String() string {
	switch f {
	case FaultAddressSize:
		return "address size"
	case FaultTranslation:
		return "translation"
	case FaultAccessFlag:
		return "access flag"
	case FaultPermission:
		return "permission"
	case FaultAlignment:
		return "alignment"
	case FaultTlbConflict:
		return "tlb conflict"
	default:
		return "other"
	}
}

// faultFrom decodes the fault status out of an abort syndrome.
func faultFrom(esr uint32) Fault {
	switch (esr & 0b111100) >> 2 {
	case 0b0000:
		return FaultAddressSize
	case 0b0001:
		return FaultTranslation
	case 0b0010:
		return FaultAccessFlag
	case 0b0011:
		return FaultPermission
	case 0b1000:
		return FaultAlignment
	case 0b1100:
		return FaultTlbConflict
	default:
		return FaultOther
	}
}

// faultLevel is the translation level an abort occurred at.
func faultLevel(esr uint32) uint8 {
	return uint8(esr & 0b11)
}

// SyndromeClass is the decoded exception class of an ESR value.
type SyndromeClass uint8

const (
	SyndromeUnknown SyndromeClass = iota
	SyndromeWfiWfe
	SyndromeSimdFp
	SyndromeIllegalExecutionState
	SyndromeSvc
	SyndromeHvc
	SyndromeSmc
	SyndromeMsrMrsSystem
	SyndromeInstructionAbort
	SyndromePCAlignmentFault
	SyndromeDataAbort
	SyndromeSpAlignmentFault
	SyndromeTrappedFpu
	SyndromeSError
	SyndromeBreakpoint
	SyndromeStep
	SyndromeWatchpoint
	SyndromeBrk
	SyndromeOther
)

// Syndrome is a decoded exception syndrome register value.
type Syndrome struct {
	// Class is the decoded exception class.
	Class SyndromeClass

	// Imm is the immediate of an Svc/Hvc/Smc/Brk class.
	Imm uint16

	// Fault and Level describe an instruction or data abort.
	Fault Fault
	Level uint8

	// Raw is the undecoded register value.
	Raw uint32
}

const (
	esrClassShift = 26
	esrImmMask    = 0xffff
)

// DecodeSyndrome decodes a raw exception syndrome register value.
func DecodeSyndrome(esr uint32) Syndrome {
	s := Syndrome{Raw: esr}
	switch esr >> esrClassShift {
	case 0b000000:
		s.Class = SyndromeUnknown
	case 0b000001:
		s.Class = SyndromeWfiWfe
	case 0b000111:
		s.Class = SyndromeSimdFp
	case 0b001110:
		s.Class = SyndromeIllegalExecutionState
	case 0b010101:
		s.Class, s.Imm = SyndromeSvc, uint16(esr&esrImmMask)
	case 0b010110:
		s.Class, s.Imm = SyndromeHvc, uint16(esr&esrImmMask)
	case 0b010111:
		s.Class, s.Imm = SyndromeSmc, uint16(esr&esrImmMask)
	case 0b011000:
		s.Class = SyndromeMsrMrsSystem
	case 0b100000, 0b100001:
		s.Class, s.Fault, s.Level = SyndromeInstructionAbort, faultFrom(esr), faultLevel(esr)
	case 0b100010:
		s.Class = SyndromePCAlignmentFault
	case 0b100100, 0b100101:
		s.Class, s.Fault, s.Level = SyndromeDataAbort, faultFrom(esr), faultLevel(esr)
	case 0b100110:
		s.Class = SyndromeSpAlignmentFault
	case 0b101100:
		s.Class = SyndromeTrappedFpu
	case 0b101111:
		s.Class = SyndromeSError
	case 0b110000, 0b110001:
		s.Class = SyndromeBreakpoint
	case 0b110010, 0b110011:
		s.Class = SyndromeStep
	case 0b110100, 0b110101:
		s.Class = SyndromeWatchpoint
	case 0b111100:
		s.Class, s.Imm = SyndromeBrk, uint16(esr&esrImmMask)
	default:
		s.Class = SyndromeOther
	}
	return s
}

// SvcSyndrome encodes the ESR for a supervisor call with the given immediate.
func SvcSyndrome(imm uint16) uint32 {
	return 0b010101<<esrClassShift | uint32(imm)
}

// BrkSyndrome encodes the ESR for a breakpoint with the given immediate.
func BrkSyndrome(imm uint16) uint32 {
	return 0b111100<<esrClassShift | uint32(imm)
}

// DataAbortSyndrome encodes the ESR for a data abort with the given fault
// kind at the given translation level.
func DataAbortSyndrome(f Fault, level uint8) uint32 {
	return 0b100100<<esrClassShift | faultStatus(f)<<2 | uint32(level&0b11)
}

// InstructionAbortSyndrome encodes the ESR for an instruction abort with the
// given fault kind at the given translation level.
func InstructionAbortSyndrome(f Fault, level uint8) uint32 {
	return 0b100000<<esrClassShift | faultStatus(f)<<2 | uint32(level&0b11)
}

func faultStatus(f Fault) uint32 {
	switch f {
	case FaultAddressSize:
		return 0b0000
	case FaultTranslation:
		return 0b0001
	case FaultAccessFlag:
		return 0b0010
	case FaultPermission:
		return 0b0011
	case FaultAlignment:
		return 0b1000
	case FaultTlbConflict:
		return 0b1100
	default:
		return 0b0111
	}
}

func (s Syndrome) String() string {
	switch s.Class {
	case SyndromeSvc:
		return fmt.Sprintf("svc #%d", s.Imm)
	case SyndromeBrk:
		return fmt.Sprintf("brk #%d", s.Imm)
	case SyndromeInstructionAbort:
		return fmt.Sprintf("instruction abort (%v, level %d)", s.Fault, s.Level)
	case SyndromeDataAbort:
		return fmt.Sprintf("data abort (%v, level %d)", s.Fault, s.Level)
	case SyndromeUnknown:
		return "unknown"
	case SyndromeWfiWfe:
		return "wfi/wfe"
	case SyndromeBreakpoint:
		return "breakpoint"
	case SyndromeStep:
		return "step"
	case SyndromeWatchpoint:
		return "watchpoint"
	case SyndromePCAlignmentFault:
		return "pc alignment fault"
	case SyndromeSpAlignmentFault:
		return "sp alignment fault"
	default:
		return fmt.Sprintf("class %#x", s.Raw>>esrClassShift)
	}
}
