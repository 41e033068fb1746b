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

// WalkResult is the outcome of a hardware-style table walk.
type WalkResult struct {
	// PA is the translated physical address, offset included.
	PA memarch.PhysicalAddr

	// Level is the table level a failed walk stopped at (1 for the root,
	// 3 for the leaf, matching the fault level reported in the syndrome).
	Level uint8

	// User and Executable are the permissions of the leaf entry.
	User       bool
	Executable bool
}

// WalkPhysical translates va by walking the tables rooted at rootPA directly
// from physical memory, the way the MMU does. It ignores any host-side cache
// and reads only table pages, so it works for any space given just its
// translation base register value.
func WalkPhysical(alloc interface {
	Page(memarch.PhysicalAddr) []byte
}, rootPA memarch.PhysicalAddr, va memarch.VirtualAddr) (WalkResult, bool) {
	rootIdx, leafIdx := va.RoundDown().Split()

	root := ptesFromPage(alloc.Page(rootPA))
	tableEntry := root[rootIdx]
	if !tableEntry.Valid() {
		return WalkResult{Level: 1}, false
	}

	leaf := ptesFromPage(alloc.Page(tableEntry.Address()))
	entry := leaf[leafIdx]
	if !entry.Valid() {
		return WalkResult{Level: 3}, false
	}
	return WalkResult{
		PA:         entry.Address() + memarch.PhysicalAddr(va.PageOffset()),
		Level:      3,
		User:       entry.User(),
		Executable: entry.Executable(),
	}, true
}
