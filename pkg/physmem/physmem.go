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

// Package physmem provides the machine's physical memory and the page
// allocator that hands out translation-granule pages from it.
package physmem

import (
	"errors"
	"fmt"
	"sync"

	"kestrel.dev/kestrel/pkg/memarch"
)

// ErrNoMemory is returned when no free page is available.
var ErrNoMemory = errors.New("out of physical memory")

// Allocator hands out and reclaims physical pages. It is the one collaborator
// shared by every address space lifetime.
type Allocator interface {
	// AllocatePage returns a zeroed, page-aligned physical page, or
	// ErrNoMemory if the memory is exhausted.
	AllocatePage() (memarch.PhysicalAddr, error)

	// FreePage returns a page to the allocator. Freeing a page that is not
	// currently allocated is a programming error and panics.
	FreePage(pa memarch.PhysicalAddr)

	// Page returns the backing bytes of the page containing pa.
	Page(pa memarch.PhysicalAddr) []byte
}

// Memory is a contiguous region standing in for the machine's RAM, together
// with a free-list page allocator over it.
//
// Physical address 0 corresponds to the first byte of the region.
type Memory struct {
	mu sync.Mutex

	// ram is the backing region, page-aligned.
	ram []byte

	// free marks allocatable pages. Pages outside [0, len(free)) do not
	// exist; pages reserved at creation are permanently unavailable.
	free []bool

	// available counts free pages.
	available uint64

	// donate releases the backing region, set by the mapping constructor.
	donate func()
}

// New returns a Memory of the given size backed by an anonymous mapping.
// size must be a multiple of the page size.
func New(size uint64) (*Memory, error) {
	if size == 0 || size&memarch.PageMask != 0 {
		return nil, fmt.Errorf("memory size %#x is not page aligned", size)
	}
	ram, donate, err := mapRAM(size)
	if err != nil {
		return nil, fmt.Errorf("mapping %d bytes of ram: %w", size, err)
	}
	m := &Memory{
		ram:    ram,
		free:   make([]bool, size>>memarch.PageShift),
		donate: donate,
	}
	for i := range m.free {
		m.free[i] = true
	}
	m.available = uint64(len(m.free))
	return m, nil
}

// Destroy releases the backing region. The Memory must not be used after.
func (m *Memory) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.donate != nil {
		m.donate()
		m.donate = nil
	}
	m.ram = nil
	m.free = nil
	m.available = 0
}

// Size returns the total size of the memory.
func (m *Memory) Size() uint64 {
	return uint64(len(m.ram))
}

// Available returns the number of free pages.
func (m *Memory) Available() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// AllocatePage implements Allocator.AllocatePage.
func (m *Memory) AllocatePage() (memarch.PhysicalAddr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ok := range m.free {
		if !ok {
			continue
		}
		m.free[i] = false
		m.available--
		pa := memarch.PhysicalAddr(uint64(i) << memarch.PageShift)
		clear(m.ram[pa : pa+memarch.PageSize])
		return pa, nil
	}
	return 0, ErrNoMemory
}

// FreePage implements Allocator.FreePage.
func (m *Memory) FreePage(pa memarch.PhysicalAddr) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !pa.PageAligned() {
		panic(fmt.Sprintf("physmem: freeing unaligned address %#x", uint64(pa)))
	}
	i := pa.PageNumber()
	if i >= uint64(len(m.free)) {
		panic(fmt.Sprintf("physmem: freeing address %#x beyond memory", uint64(pa)))
	}
	if m.free[i] {
		panic(fmt.Sprintf("physmem: double free of page %#x", uint64(pa)))
	}
	m.free[i] = true
	m.available++
}

// Page implements Allocator.Page.
func (m *Memory) Page(pa memarch.PhysicalAddr) []byte {
	base := uint64(pa) &^ memarch.PageMask
	if base+memarch.PageSize > uint64(len(m.ram)) {
		panic(fmt.Sprintf("physmem: page %#x beyond memory", uint64(pa)))
	}
	return m.ram[base : base+memarch.PageSize : base+memarch.PageSize]
}

// Bytes returns the slice [pa, pa+length). The range must lie within memory.
func (m *Memory) Bytes(pa memarch.PhysicalAddr, length uint64) []byte {
	if uint64(pa)+length > uint64(len(m.ram)) {
		panic(fmt.Sprintf("physmem: range [%#x, %#x) beyond memory", uint64(pa), uint64(pa)+length))
	}
	return m.ram[pa : uint64(pa)+length : uint64(pa)+length]
}
