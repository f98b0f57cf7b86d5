package core

import "testing"

func TestEvaluateAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"135", 13500, true},
		{"120+15", 13500, true},
		{"12.5", 1250, true},
		{"12,5", 0, false}, // comma is not part of the mini-language
		{"120+15*2", 15000, true},
		{"(120+15)*2", 27000, true},
		{"100/3", 3333, true}, // 33.33.. major units, rounded
		{"10-2.5", 750, true},
		{" 1 + 2 ", 300, true},
		{"0.005", 1, true}, // half rounds away from zero
		{"-5", -500, true},
		{"abc", 0, false},
		{"1+abc", 0, false},
		{"", 0, false},
		{"1+", 0, false},
		{"(1+2", 0, false},
		{"2/0", 0, false},
		{"1..2", 0, false},
	}
	for _, tc := range cases {
		got, err := EvaluateAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q: expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q: expected error, got %d", tc.in, got)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		minor    int64
		currency string
		want     string
	}{
		{13550, "SEK", "135.50 SEK"},
		{5000, "SEK", "50.00 SEK"},
		{-150, "EUR", "-1.50 EUR"},
		{7, "SEK", "0.07 SEK"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.minor, tc.currency); got != tc.want {
			t.Fatalf("FormatAmount(%d, %q) = %q, want %q", tc.minor, tc.currency, got, tc.want)
		}
	}
}

func TestMajorUnits(t *testing.T) {
	if got := MajorUnits(12345); got != "123.45" {
		t.Fatalf("MajorUnits(12345) = %q, want 123.45", got)
	}
	if got := MajorUnits(5000); got != "50.00" {
		t.Fatalf("MajorUnits(5000) = %q, want 50.00", got)
	}
}
