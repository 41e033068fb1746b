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

// Package memarch describes the memory geometry of the machine: the
// translation granule, table widths, and the virtual address split between
// the lower (kernel) and upper (user) ranges.
package memarch

const (
	// PageShift is the binary log of the translation granule. The machine
	// runs with 64 KiB granules.
	PageShift = 16

	// PageSize is the size of one page.
	PageSize = 1 << PageShift

	// PageMask masks the offset within a page.
	PageMask = PageSize - 1

	// TableBits is the binary log of the number of entries in one
	// translation table. One table is exactly one page of 8-byte entries.
	TableBits = PageShift - 3

	// TableEntries is the number of entries in one translation table.
	TableEntries = 1 << TableBits

	// TableIndexMask masks a table index out of a shifted address.
	TableIndexMask = TableEntries - 1
)

// Address space layout. The lower range is translated through TTBR0 (the
// kernel identity map) and the upper range through TTBR1 (the per-process
// tables).
const (
	// LowerTop is the highest address of the lower (kernel) range.
	LowerTop = uint64(0x0000ffffffffffff)

	// UpperBottom is the lowest address of the upper (user) range.
	UpperBottom = uint64(0xffff000000000000)

	// UserImageBase is where user program images are loaded.
	UserImageBase = uint64(0xffffffffc0000000)

	// UserStackTop is the initial user stack pointer, 16-byte aligned at
	// the very top of the address space.
	UserStackTop = ^uint64(0) &^ 0xf

	// UserStackBase is the page containing the user stack.
	UserStackBase = ^uint64(0) &^ uint64(PageMask)
)

// VirtualAddr is an address as seen through address translation.
type VirtualAddr uint64

// PhysicalAddr is an address into physical memory.
type PhysicalAddr uint64

// PageAligned returns true if the address is granule-aligned.
func (v VirtualAddr) PageAligned() bool {
	return v&PageMask == 0
}

// PageOffset returns the offset of the address within its page.
func (v VirtualAddr) PageOffset() uint64 {
	return uint64(v) & PageMask
}

// RoundDown returns the address rounded down to the nearest page boundary.
func (v VirtualAddr) RoundDown() VirtualAddr {
	return v &^ PageMask
}

// IsUser returns true if the address falls in the upper (user) range.
func (v VirtualAddr) IsUser() bool {
	return uint64(v) >= UpperBottom
}

// PageAligned returns true if the address is granule-aligned.
func (p PhysicalAddr) PageAligned() bool {
	return p&PageMask == 0
}

// PageNumber returns the physical page number of the address.
func (p PhysicalAddr) PageNumber() uint64 {
	return uint64(p) >> PageShift
}

// Split extracts the (root table index, leaf table index) pair that
// translation hardware derives from the address under a two-level walk.
func (v VirtualAddr) Split() (root int, leaf int) {
	leaf = int((uint64(v) >> PageShift) & TableIndexMask)
	root = int((uint64(v) >> (PageShift + TableBits)) & TableIndexMask)
	return root, leaf
}

// PagesFor returns the number of pages needed to hold length bytes.
func PagesFor(length uint64) uint64 {
	return (length + PageMask) / PageSize
}
