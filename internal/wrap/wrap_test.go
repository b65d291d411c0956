package wrap

import (
	"math"
	"testing"
)

func TestBefore_uint32(t *testing.T) {
	for _, tc := range [...]struct {
		name   string
		a, b   uint32
		before bool
	}{
		{`equal`, 5, 5, false},
		{`simple less`, 1, 2, true},
		{`simple greater`, 2, 1, false},
		{`zero vs max`, 0, math.MaxUint32, false},
		{`max vs zero`, math.MaxUint32, 0, true},
		{`wrap boundary`, math.MaxUint32 - 1, 1, true},
		{`half range`, 0, 1 << 31, true},
		{`past half range`, 0, 1<<31 + 1, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if v := Before(tc.a, tc.b); v != tc.before {
				t.Errorf(`Before(%d, %d) = %v, want %v`, tc.a, tc.b, v, tc.before)
			}
			if v := AtLeast(tc.a, tc.b); v != !tc.before {
				t.Errorf(`AtLeast(%d, %d) = %v, want %v`, tc.a, tc.b, v, !tc.before)
			}
		})
	}
}

func TestBefore_uint8(t *testing.T) {
	// exhaustive over the full uint8 range
	for a := 0; a < 256; a++ {
		for b := 0; b < 256; b++ {
			want := int8(uint8(a)-uint8(b)) < 0
			if v := Before(uint8(a), uint8(b)); v != want {
				t.Fatalf(`Before(%d, %d) = %v, want %v`, a, b, v, want)
			}
			if v := AtLeast(uint8(a), uint8(b)); v != !want {
				t.Fatalf(`AtLeast(%d, %d) = %v, want %v`, a, b, v, !want)
			}
		}
	}
}
