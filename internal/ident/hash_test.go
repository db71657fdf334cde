package ident

import "testing"

func TestCompact(t *testing.T) {
	// Fixed vectors: the mapping is part of the external contract and must
	// never change across releases.
	cases := []struct {
		in   string
		want int32
	}{
		{"order-123", 621334298},
		{"drv_8f2c", 218047409},
		{"", 0},
	}

	for _, c := range cases {
		if got := Compact(c.in); got != c.want {
			t.Errorf("Compact(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestCompactStable(t *testing.T) {
	first := Compact("order-123")
	for i := 0; i < 100; i++ {
		if got := Compact("order-123"); got != first {
			t.Fatalf("unstable hash on iteration %d: %d != %d", i, got, first)
		}
	}
	if first < 0 {
		t.Fatalf("hash must be non-negative, got %d", first)
	}
}
