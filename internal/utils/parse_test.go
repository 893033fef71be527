package utils

import "testing"

func TestParseFID(t *testing.T) {
	cases := []struct {
		s      string
		want   int64
		wantOK bool
	}{
		{"198116", 198116, true},
		{" 7 ", 7, true},
		{"", 0, false},
		{"0", 0, false},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"1e3", 0, false},
		{"abc", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseFID(tc.s)
		if got != tc.want || ok != tc.wantOK {
			t.Fatalf("ParseFID(%q) = (%d, %v); want (%d, %v)", tc.s, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"25", 10, 25},
		{"-3", 10, -3}, // clamped later by the leaderboard
		{"ten", 10, 10},
		{" 42", 7, 7},
		{"999999999999999999999999", 10, 10},
	}
	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}
