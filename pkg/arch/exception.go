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

// Kind is the hardware class of an exception.
type Kind uint16

const (
	// Synchronous exceptions are caused by the executing instruction.
	Synchronous Kind = iota

	// Irq is a normal interrupt request.
	Irq

	// Fiq is a fast interrupt request.
	Fiq

	// SError is a system error (asynchronous abort).
	SError
)

func (k Kind) String() string {
	switch k {
	case Synchronous:
		return "synchronous"
	case Irq:
		return "irq"
	case Fiq:
		return "fiq"
	case SError:
		return "serror"
	default:
		return fmt.Sprintf("kind(%d)", uint16(k))
	}
}

// Source identifies which vector bank the exception arrived through.
type Source uint16

const (
	// CurrentSpEl0 is an exception from the current level using SP_EL0.
	CurrentSpEl0 Source = iota

	// CurrentSpElx is an exception from the current level using SP_ELx.
	CurrentSpElx

	// LowerAArch64 is an exception from a lower level in AArch64 state.
	LowerAArch64

	// LowerAArch32 is an exception from a lower level in AArch32 state.
	LowerAArch32
)

func (s Source) String() string {
	switch s {
	case CurrentSpEl0:
		return "current/sp_el0"
	case CurrentSpElx:
		return "current/sp_elx"
	case LowerAArch64:
		return "lower/aarch64"
	case LowerAArch32:
		return "lower/aarch32"
	default:
		return fmt.Sprintf("source(%d)", uint16(s))
	}
}

// Info describes where an exception came from and what class it is. The
// vector stubs pack this into a single word before entering the dispatcher.
type Info struct {
	Source Source
	Kind   Kind
}

func (i Info) String() string {
	return fmt.Sprintf("%v %v", i.Source, i.Kind)
}
