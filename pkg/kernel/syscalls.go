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
	"time"

	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/log"
	"kestrel.dev/kestrel/pkg/machine"
)

// System call numbers, carried in the svc immediate. Arguments arrive in x0
// and x1; results return in x0 and x1 with the status in x7.
const (
	NrSleep  = 1
	NrTime   = 2
	NrExit   = 3
	NrWrite  = 4
	NrGetpid = 5
)

// handleSyscall dispatches a supervisor call. The return value is false only
// when the calling process was the last one and has exited.
func (k *Kernel) handleSyscall(core *machine.Core, num uint16, tf *arch.TrapFrame) bool {
	switch num {
	case NrSleep:
		return k.sysSleep(core, tf)
	case NrTime:
		k.sysTime(tf)
	case NrExit:
		return k.sysExit(core, tf)
	case NrWrite:
		k.sysWrite(tf)
	case NrGetpid:
		k.sysGetpid(tf)
	default:
		log.Warningf("process %d: unknown syscall %d", tf.TPIDR, num)
		tf.X[7] = uint64(StatusUnknown)
	}
	return true
}

// sysSleep blocks the caller for at least x0 milliseconds. The actual
// elapsed time is returned in x0 on wake-up. Sleeping for zero is a plain
// yield and returns immediately after one trip through the queue.
func (k *Kernel) sysSleep(core *machine.Core, tf *arch.TrapFrame) bool {
	ms := uint32(tf.X[0])
	if ms == 0 {
		tf.X[0] = 0
		tf.X[7] = uint64(StatusOk)
		if _, ok := k.sched.Switch(Ready, nil, tf); ok {
			return true
		}
		return k.switchTo(core, tf)
	}
	start := k.machine.Timer.Read()
	wait := &WaitReason{
		Start:    start,
		Deadline: start + time.Duration(ms)*time.Millisecond,
	}
	if _, ok := k.sched.Switch(Waiting, wait, tf); ok {
		return true
	}
	return k.switchTo(core, tf)
}

// sysTime returns the current time: whole seconds in x0, leftover
// nanoseconds in x1.
func (k *Kernel) sysTime(tf *arch.TrapFrame) {
	now := k.machine.Timer.Read()
	tf.X[0] = uint64(now / time.Second)
	tf.X[1] = uint64(now % time.Second)
	tf.X[7] = uint64(StatusOk)
}

// sysExit terminates the caller and schedules the next process.
func (k *Kernel) sysExit(core *machine.Core, tf *arch.TrapFrame) bool {
	if id, ok := k.sched.Kill(tf); ok {
		log.Infof("process %d exited", id)
	}
	return k.switchTo(core, tf)
}

// sysWrite sends the byte in x0 to the console.
func (k *Kernel) sysWrite(tf *arch.TrapFrame) {
	if err := k.machine.Console.WriteByte(byte(tf.X[0])); err != nil {
		log.Warningf("process %d: console write: %v", tf.TPIDR, err)
		tf.X[7] = uint64(StatusIoError)
		return
	}
	tf.X[7] = uint64(StatusOk)
}

// sysGetpid returns the caller's process ID in x0.
func (k *Kernel) sysGetpid(tf *arch.TrapFrame) {
	tf.X[0] = tf.TPIDR
	tf.X[7] = uint64(StatusOk)
}
