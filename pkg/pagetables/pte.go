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

package pagetables

import (
	"kestrel.dev/kestrel/pkg/memarch"
)

// PTE is a single translation table entry. An entry is either wholly invalid
// (zero) or fully populated by one Set call; no partially-constructed entry
// is ever observable.
type PTE uint64

// PTEs is one translation table: a page of entries.
type PTEs [memarch.TableEntries]PTE

// Entry field encodings (stage 1, 64 KiB granule).
const (
	pteValid = PTE(1) << 0
	pteType  = PTE(1) << 1 // table pointer at the root, page at the leaf

	pteAttrShift = 2 // MAIR attribute index

	pteNS = PTE(1) << 5

	pteAPShift = 6
	apKernRW   = PTE(0b00)
	apUserRW   = PTE(0b01)

	pteSHShift = 8
	shOuter    = PTE(0b10)
	shInner    = PTE(0b11)

	pteAF = PTE(1) << 10

	pteUXN = PTE(1) << 54

	pteAddrMask = PTE(0x0000ffffffff0000)
)

// MAIR attribute indices programmed at boot.
const (
	attrDevice = PTE(0)
	attrNormal = PTE(1)
)

// Permission is the access permission of a mapped page.
type Permission int

const (
	// KernelRW is privileged read/write, never executable or
	// user-accessible. Used for the identity map.
	KernelRW Permission = iota

	// UserRW is unprivileged read/write, not executable.
	UserRW

	// UserRWX is unprivileged read/write/execute. Used for program images.
	UserRWX
)

func (p Permission) String() string {
	switch p {
	case KernelRW:
		return "kern-rw"
	case UserRW:
		return "user-rw"
	case UserRWX:
		return "user-rwx"
	default:
		return "perm(?)"
	}
}

// MemType selects the memory attribute and shareability of a mapping.
type MemType int

const (
	// Normal is ordinary inner-shareable RAM.
	Normal MemType = iota

	// Device is the outer-shareable peripheral window.
	Device
)

// Valid returns true if the entry is populated.
func (p PTE) Valid() bool {
	return p&pteValid != 0
}

// Address extracts the physical page address of a populated entry.
func (p PTE) Address() memarch.PhysicalAddr {
	return memarch.PhysicalAddr(p & pteAddrMask)
}

// User returns true if the entry permits unprivileged access.
func (p PTE) User() bool {
	return (p>>pteAPShift)&0b11 == apUserRW
}

// Executable returns true if the entry permits unprivileged execution.
func (p PTE) Executable() bool {
	return p&pteUXN == 0
}

// Accessed returns the access ("referenced") flag.
func (p PTE) Accessed() bool {
	return p&pteAF != 0
}

// SetPage populates the entry as a leaf page mapping. The entry transitions
// from zero to fully populated in a single store.
func (p *PTE) SetPage(pa memarch.PhysicalAddr, perm Permission, mt MemType) {
	v := pteValid | pteType | pteNS | pteAF | PTE(pa)&pteAddrMask
	switch mt {
	case Device:
		v |= attrDevice<<pteAttrShift | shOuter<<pteSHShift
	default:
		v |= attrNormal<<pteAttrShift | shInner<<pteSHShift
	}
	switch perm {
	case KernelRW:
		v |= apKernRW<<pteAPShift | pteUXN
	case UserRW:
		v |= apUserRW<<pteAPShift | pteUXN
	case UserRWX:
		v |= apUserRW << pteAPShift
	}
	*p = v
}

// SetTable populates the entry as a pointer to a next-level table.
func (p *PTE) SetTable(pa memarch.PhysicalAddr) {
	*p = pteValid | pteType | pteNS | pteAF | attrNormal<<pteAttrShift | shInner<<pteSHShift | PTE(pa)&pteAddrMask
}

// Clear invalidates the entry.
func (p *PTE) Clear() {
	*p = 0
}
