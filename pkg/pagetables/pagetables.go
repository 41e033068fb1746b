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

// Package pagetables provides a two-level translation table implementation
// for the 64 KiB granule. Tables live in physical pages obtained from a
// physmem allocator, so the same memory the walker reads here is the memory
// the MMU walks from the translation base register.
package pagetables

import (
	"fmt"

	"kestrel.dev/kestrel/pkg/memarch"
	"kestrel.dev/kestrel/pkg/physmem"
)

// Kind distinguishes the kernel identity map from user address spaces.
type Kind int

const (
	// KernelSpace is the identity map installed in TTBR0 on every core.
	KernelSpace Kind = iota

	// UserSpace is a per-process map installed in TTBR1.
	UserSpace
)

// PageTables is one address space: a root table plus on-demand leaf tables.
// All tables and all mapped pages come from the same allocator and are
// returned to it by Release. Not safe for concurrent use.
type PageTables struct {
	alloc physmem.Allocator
	kind  Kind

	root   *PTEs
	rootPA memarch.PhysicalAddr

	// leaves caches host views of allocated leaf tables by root index.
	// The authoritative entries are the table pages themselves.
	leaves map[int]*PTEs

	released bool
}

// New returns an empty user address space with an allocated root table.
func New(alloc physmem.Allocator) (*PageTables, error) {
	return newSpace(alloc, UserSpace)
}

func newSpace(alloc physmem.Allocator, kind Kind) (*PageTables, error) {
	rootPA, err := alloc.AllocatePage()
	if err != nil {
		return nil, fmt.Errorf("allocating root table: %w", err)
	}
	return &PageTables{
		alloc:  alloc,
		kind:   kind,
		root:   ptesFromPage(alloc.Page(rootPA)),
		rootPA: rootPA,
		leaves: make(map[int]*PTEs),
	}, nil
}

// NewKernel builds the kernel identity map: all of RAM as normal memory and
// the peripheral window as device memory, privileged access only. It is built
// once at boot and shared read-only by every core, so it is never released.
func NewKernel(alloc physmem.Allocator, ramSize uint64, ioStart, ioEnd memarch.PhysicalAddr) (*PageTables, error) {
	pt, err := newSpace(alloc, KernelSpace)
	if err != nil {
		return nil, err
	}
	for pa := memarch.PhysicalAddr(0); pa < memarch.PhysicalAddr(ramSize); pa += memarch.PageSize {
		if err := pt.mapIdentity(pa, Normal); err != nil {
			return nil, err
		}
	}
	for pa := ioStart; pa < ioEnd; pa += memarch.PageSize {
		if err := pt.mapIdentity(pa, Device); err != nil {
			return nil, err
		}
	}
	return pt, nil
}

func (pt *PageTables) mapIdentity(pa memarch.PhysicalAddr, mt MemType) error {
	entry, err := pt.locate(memarch.VirtualAddr(pa))
	if err != nil {
		return err
	}
	entry.SetPage(pa, KernelRW, mt)
	return nil
}

// locate returns the leaf entry for va, allocating the leaf table if this is
// the first mapping under its root slot. va must be page aligned.
func (pt *PageTables) locate(va memarch.VirtualAddr) (*PTE, error) {
	if !va.PageAligned() {
		panic(fmt.Sprintf("pagetables: unaligned address %#x", uint64(va)))
	}
	rootIdx, leafIdx := va.Split()
	leaf, ok := pt.leaves[rootIdx]
	if !ok {
		pa, err := pt.alloc.AllocatePage()
		if err != nil {
			return nil, fmt.Errorf("allocating leaf table: %w", err)
		}
		leaf = ptesFromPage(pt.alloc.Page(pa))
		pt.root[rootIdx].SetTable(pa)
		pt.leaves[rootIdx] = leaf
	}
	return &leaf[leafIdx], nil
}

// Alloc maps a fresh zeroed page at va in a user space and returns a host
// view of it. Mapping below the user image base or mapping the same virtual
// page twice is a bug in the caller and panics; running out of physical
// memory is reported as an error.
func (pt *PageTables) Alloc(va memarch.VirtualAddr, perm Permission) ([]byte, error) {
	if pt.kind != UserSpace {
		panic("pagetables: Alloc on the kernel identity map")
	}
	if uint64(va) < memarch.UserImageBase {
		panic(fmt.Sprintf("pagetables: user mapping below image base: %#x", uint64(va)))
	}
	if pt.IsMapped(va) {
		panic(fmt.Sprintf("pagetables: double map of %#x", uint64(va)))
	}
	entry, err := pt.locate(va)
	if err != nil {
		return nil, err
	}
	pa, err := pt.alloc.AllocatePage()
	if err != nil {
		return nil, err
	}
	entry.SetPage(pa, perm, Normal)
	return pt.alloc.Page(pa), nil
}

// IsMapped returns true if the page containing va has a valid mapping.
func (pt *PageTables) IsMapped(va memarch.VirtualAddr) bool {
	rootIdx, leafIdx := va.RoundDown().Split()
	leaf, ok := pt.leaves[rootIdx]
	if !ok {
		return false
	}
	return leaf[leafIdx].Valid()
}

// Lookup translates va to its physical address, including the page offset.
func (pt *PageTables) Lookup(va memarch.VirtualAddr) (memarch.PhysicalAddr, bool) {
	rootIdx, leafIdx := va.RoundDown().Split()
	leaf, ok := pt.leaves[rootIdx]
	if !ok {
		return 0, false
	}
	entry := leaf[leafIdx]
	if !entry.Valid() {
		return 0, false
	}
	return entry.Address() + memarch.PhysicalAddr(va.PageOffset()), true
}

// Page returns a host view of the mapped page containing va, or false if va
// is unmapped. The view is the backing page itself, not a copy.
func (pt *PageTables) Page(va memarch.VirtualAddr) ([]byte, bool) {
	rootIdx, leafIdx := va.RoundDown().Split()
	leaf, ok := pt.leaves[rootIdx]
	if !ok {
		return nil, false
	}
	entry := leaf[leafIdx]
	if !entry.Valid() {
		return nil, false
	}
	return pt.alloc.Page(entry.Address()), true
}

// Root is the physical address of the root table, as written to a
// translation base register.
func (pt *PageTables) Root() memarch.PhysicalAddr {
	return pt.rootPA
}

// Release returns every mapped page, every leaf table and the root table to
// the allocator. Exactly once per space; a second call panics, as does
// releasing the kernel identity map.
func (pt *PageTables) Release() {
	if pt.kind != UserSpace {
		panic("pagetables: Release of the kernel identity map")
	}
	if pt.released {
		panic("pagetables: double release")
	}
	pt.released = true
	for rootIdx, leaf := range pt.leaves {
		for i := range leaf {
			if entry := &leaf[i]; entry.Valid() {
				pt.alloc.FreePage(entry.Address())
				entry.Clear()
			}
		}
		pt.alloc.FreePage(pt.root[rootIdx].Address())
		pt.root[rootIdx].Clear()
	}
	pt.leaves = nil
	pt.alloc.FreePage(pt.rootPA)
	pt.root = nil
}
