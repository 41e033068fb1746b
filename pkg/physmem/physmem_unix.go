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

//go:build linux || darwin

package physmem

import (
	"golang.org/x/sys/unix"

	"kestrel.dev/kestrel/pkg/log"
)

// mapRAM obtains a page-aligned anonymous mapping for the machine's RAM.
// The host page size is at most the translation granule, so the mapping is
// granule-aligned as well.
func mapRAM(size uint64) ([]byte, func(), error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}
	donate := func() {
		if err := unix.Munmap(b); err != nil {
			log.Warningf("physmem: munmap: %v", err)
		}
	}
	return b, donate, nil
}
