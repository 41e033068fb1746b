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

package kernel

// Status is the result code a system call returns in x7. User programs test
// x7 before trusting x0 and x1.
type Status uint64

const (
	StatusUnknown   Status = 0
	StatusOk        Status = 1
	StatusNoEntry   Status = 10
	StatusNoMemory  Status = 20
	StatusNoVMSpace Status = 30
	StatusIoError   Status = 40
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusOk:
		return "ok"
	case StatusNoEntry:
		return "no entry"
	case StatusNoMemory:
		return "no memory"
	case StatusNoVMSpace:
		return "no vm space"
	case StatusIoError:
		return "io error"
	default:
		return "status(?)"
	}
}
