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
	"sync"

	"kestrel.dev/kestrel/pkg/arch"
	"kestrel.dev/kestrel/pkg/log"
	"kestrel.dev/kestrel/pkg/machine"
)

// IrqHandler services one interrupt line. The handler runs in exception
// context with the interrupted process's frame and is responsible for
// clearing the line it handled.
type IrqHandler func(tf *arch.TrapFrame)

// irqRegistry maps interrupt lines to handlers.
type irqRegistry struct {
	mu       sync.RWMutex
	handlers [machine.NumLines]IrqHandler
}

// register installs a handler for a line, replacing any previous one.
func (r *irqRegistry) register(l machine.Line, h IrqHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[l] = h
}

// dispatch invokes the handler of every pending line. A pending line with no
// handler is cleared to keep it from storming and logged once per occurrence.
func (r *irqRegistry) dispatch(intc *machine.Controller, tf *arch.TrapFrame) {
	for l := machine.Line(0); l < machine.NumLines; l++ {
		if !intc.IsPending(l) {
			continue
		}
		r.mu.RLock()
		h := r.handlers[l]
		r.mu.RUnlock()
		if h == nil {
			log.Warningf("unhandled interrupt on %v, masking", l)
			intc.Clear(l)
			intc.Disable(l)
			continue
		}
		h(tf)
	}
}
