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
	"unsafe"

	"kestrel.dev/kestrel/pkg/memarch"
)

// ptesFromPage reinterprets a physical page as a translation table. The page
// bytes are the authoritative storage; hardware walks the same memory.
func ptesFromPage(b []byte) *PTEs {
	if len(b) < memarch.PageSize {
		panic("pagetables: table page too small")
	}
	return (*PTEs)(unsafe.Pointer(&b[0]))
}
