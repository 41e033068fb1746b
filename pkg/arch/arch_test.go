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

package arch

import (
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
)

// The exception vectors store each field at a fixed offset; this pins the
// whole layout, not just the total size.
func TestTrapFrameOffsets(t *testing.T) {
	var tf TrapFrame
	for _, tc := range []struct {
		name   string
		offset uintptr
		want   uintptr
	}{
		{"ELR", unsafe.Offsetof(tf.ELR), 0},
		{"SPSR", unsafe.Offsetof(tf.SPSR), 8},
		{"SP", unsafe.Offsetof(tf.SP), 16},
		{"TPIDR", unsafe.Offsetof(tf.TPIDR), 24},
		{"TTBR0", unsafe.Offsetof(tf.TTBR0), 32},
		{"TTBR1", unsafe.Offsetof(tf.TTBR1), 40},
		{"Q", unsafe.Offsetof(tf.Q), 48},
		{"X", unsafe.Offsetof(tf.X), 560},
		{"LR", unsafe.Offsetof(tf.LR), 800},
	} {
		if tc.offset != tc.want {
			t.Errorf("offset of %s = %d, want %d", tc.name, tc.offset, tc.want)
		}
	}
	if size := unsafe.Sizeof(tf); size != TrapFrameBytes {
		t.Errorf("sizeof(TrapFrame) = %d, want %d", size, TrapFrameBytes)
	}
}

func TestTrapFrameCopyRoundTrip(t *testing.T) {
	a := TrapFrame{ELR: 0x1000, SPSR: UserSPSR, SP: 0xfff0, TPIDR: 3}
	for i := range a.X {
		a.X[i] = uint64(i) * 0x1111
	}
	for i := range a.Q {
		a.Q[i] = [2]uint64{uint64(i), ^uint64(i)}
	}
	b := a
	// TrapFrame is comparable; assignment must be a byte-exact copy.
	if a != b {
		t.Errorf("copied frame differs: %v vs %v", &a, &b)
	}
}

func TestDecodeSyndrome(t *testing.T) {
	for _, tc := range []struct {
		name string
		esr  uint32
		want Syndrome
	}{
		{"svc", SvcSyndrome(1), Syndrome{Class: SyndromeSvc, Imm: 1, Raw: SvcSyndrome(1)}},
		{"brk", BrkSyndrome(0x40), Syndrome{Class: SyndromeBrk, Imm: 0x40, Raw: BrkSyndrome(0x40)}},
		{"wfi", 0b000001 << esrClassShift, Syndrome{Class: SyndromeWfiWfe, Raw: 0b000001 << esrClassShift}},
		{
			"data abort",
			DataAbortSyndrome(FaultTranslation, 3),
			Syndrome{Class: SyndromeDataAbort, Fault: FaultTranslation, Level: 3, Raw: DataAbortSyndrome(FaultTranslation, 3)},
		},
		{
			"instruction abort",
			0b100000<<esrClassShift | 0b0011<<2 | 0b10,
			Syndrome{Class: SyndromeInstructionAbort, Fault: FaultPermission, Level: 2, Raw: 0b100000<<esrClassShift | 0b0011<<2 | 0b10},
		},
		{"other", 0b111111 << esrClassShift, Syndrome{Class: SyndromeOther, Raw: 0b111111 << esrClassShift}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := DecodeSyndrome(tc.esr)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("DecodeSyndrome(%#x) mismatch (-want +got):\n%s", tc.esr, diff)
			}
		})
	}
}

func TestUserSPSR(t *testing.T) {
	tf := TrapFrame{SPSR: UserSPSR}
	if tf.IRQMasked() {
		t.Errorf("user programs must be preemptible: IRQ should be unmasked")
	}
	if UserSPSR&SpsrF == 0 || UserSPSR&SpsrA == 0 || UserSPSR&SpsrD == 0 {
		t.Errorf("F, A and D must be masked on user entry, got %#x", UserSPSR)
	}
}
