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
	"fmt"
	"sync"
)

// Line is one interrupt line on the controller.
type Line uint8

// Interrupt line assignments.
const (
	Timer1 Line = 1
	Timer3 Line = 3
	Usb    Line = 9
	Gpio0  Line = 49
	Gpio1  Line = 50
	Gpio2  Line = 51
	Gpio3  Line = 52
	Uart   Line = 57

	// NumLines is the number of lines on the controller.
	NumLines = 64
)

func (l Line) String() string {
	switch l {
	case Timer1:
		return "timer1"
	case Timer3:
		return "timer3"
	case Usb:
		return "usb"
	case Gpio0, Gpio1, Gpio2, Gpio3:
		return fmt.Sprintf("gpio%d", l-Gpio0)
	case Uart:
		return "uart"
	default:
		return fmt.Sprintf("line(%d)", uint8(l))
	}
}

// Controller is the interrupt controller. Devices assert lines; the kernel
// enables the ones it handles and reads back what is pending. A line that is
// asserted but not enabled never becomes pending.
type Controller struct {
	mu       sync.Mutex
	enabled  uint64
	asserted uint64
}

// NewController returns a controller with every line disabled.
func NewController() *Controller {
	return &Controller{}
}

func lineBit(l Line) uint64 {
	if l >= NumLines {
		panic(fmt.Sprintf("machine: interrupt line %d out of range", l))
	}
	return uint64(1) << l
}

// Enable unmasks a line.
func (c *Controller) Enable(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled |= lineBit(l)
}

// Disable masks a line.
func (c *Controller) Disable(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled &^= lineBit(l)
}

// Assert raises a line. Device side.
func (c *Controller) Assert(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asserted |= lineBit(l)
}

// Clear lowers a line. Called by the handler that serviced it.
func (c *Controller) Clear(l Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.asserted &^= lineBit(l)
}

// IsPending returns true if the line is both asserted and enabled.
func (c *Controller) IsPending(l Line) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asserted&c.enabled&lineBit(l) != 0
}

// Pending returns the set of pending lines as a bitmask.
func (c *Controller) Pending() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asserted & c.enabled
}
