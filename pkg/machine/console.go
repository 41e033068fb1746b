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
	"io"
	"sync"
)

// Console is the byte-at-a-time serial output. Writes from different cores
// interleave at byte granularity, like a real UART FIFO.
type Console struct {
	mu   sync.Mutex
	sink io.Writer
}

// NewConsole returns a console writing to sink.
func NewConsole(sink io.Writer) *Console {
	return &Console{sink: sink}
}

// WriteByte sends one byte out the serial line.
func (c *Console) WriteByte(b byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.sink.Write([]byte{b})
	return err
}
