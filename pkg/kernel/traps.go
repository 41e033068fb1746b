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
	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/log"
	"kestrel.dev/kestrel/pkg/machine"
	"kestrel.dev/kestrel/pkg/platform"
)

// handleException services one trap out of user mode. On return tf holds the
// frame to resume, which may belong to a different process than the one that
// trapped. Returns false when no process remains to run.
func (k *Kernel) handleException(core *machine.Core, trap platform.Trap, tf *arch.TrapFrame) bool {
	switch trap.Info.Kind {
	case arch.Synchronous:
		// Resumption continues after the trapping instruction, so step
		// past it before anything can switch the frame out.
		tf.ELR += arch.InstrSize
		return k.handleSynchronous(core, trap.Esr, tf)
	case arch.Irq:
		k.irqs.dispatch(k.machine.Intc, tf)
	case arch.Fiq:
		log.Debugf("fiq from %v ignored", trap.Info.Source)
	case arch.SError:
		log.Warningf("process %d: system error, esr %#x", tf.TPIDR, trap.Esr)
	}
	return true
}

func (k *Kernel) handleSynchronous(core *machine.Core, esr uint32, tf *arch.TrapFrame) bool {
	s := arch.DecodeSyndrome(esr)
	switch s.Class {
	case arch.SyndromeSvc:
		return k.handleSyscall(core, s.Imm, tf)
	case arch.SyndromeBrk:
		log.Warningf("process %d: brk #%d\n%v", tf.TPIDR, s.Imm, tf)
	case arch.SyndromeDataAbort, arch.SyndromeInstructionAbort:
		log.Warningf("process %d: %v at elr %#x", tf.TPIDR, s, tf.ELR-arch.InstrSize)
	default:
		log.Warningf("process %d: unexpected %v at elr %#x", tf.TPIDR, s, tf.ELR-arch.InstrSize)
	}
	return true
}
