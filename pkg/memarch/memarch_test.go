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

package memarch

import "testing"

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		va   VirtualAddr
		root int
		leaf int
	}{
		{0, 0, 0},
		{PageSize, 0, 1},
		{PageSize * TableEntries, 1, 0},
		{VirtualAddr(UserImageBase), 0x1ffe, 0},
		{VirtualAddr(UserImageBase) + PageSize, 0x1ffe, 1},
		{VirtualAddr(UserStackBase), 0x1fff, TableEntries - 1},
	} {
		root, leaf := tc.va.Split()
		if root != tc.root || leaf != tc.leaf {
			t.Errorf("Split(%#x) = (%#x, %#x), want (%#x, %#x)", uint64(tc.va), root, leaf, tc.root, tc.leaf)
		}
	}
}

func TestAlignment(t *testing.T) {
	if !VirtualAddr(2 * PageSize).PageAligned() {
		t.Errorf("page multiple should be aligned")
	}
	if VirtualAddr(PageSize + 8).PageAligned() {
		t.Errorf("offset address should not be aligned")
	}
	if got := VirtualAddr(PageSize + 123).RoundDown(); got != PageSize {
		t.Errorf("RoundDown = %#x, want %#x", uint64(got), PageSize)
	}
	if got := PagesFor(1); got != 1 {
		t.Errorf("PagesFor(1) = %d, want 1", got)
	}
	if got := PagesFor(PageSize + 1); got != 2 {
		t.Errorf("PagesFor(PageSize+1) = %d, want 2", got)
	}
}

func TestRanges(t *testing.T) {
	if VirtualAddr(LowerTop).IsUser() {
		t.Errorf("lower range address should not be user")
	}
	if !VirtualAddr(UserImageBase).IsUser() {
		t.Errorf("image base should be user")
	}
	if UserStackTop&0xf != 0 {
		t.Errorf("stack top must be 16-byte aligned")
	}
}
